package strata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the local-tier option set for YAML-based deployment
// configuration. Remote configuration carries live client handles and is
// wired in code.
type FileConfig struct {
	// Location is the on-disk root directory. Empty disables the disk
	// tier.
	Location string `yaml:"location"`

	// InMemoryLimit is the memory tier's cost ceiling in bytes. Zero
	// falls back to the default.
	InMemoryLimit int64 `yaml:"in_memory_limit"`

	// OnDiskLimit is the disk tier's byte ceiling. Zero falls back to
	// the default.
	OnDiskLimit int64 `yaml:"on_disk_limit"`

	// DigestNames selects digest-based disk filenames.
	DigestNames bool `yaml:"digest_names"`
}

// LoadFileConfig reads a FileConfig from a YAML file.
func LoadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return fc, nil
}

// Options converts the file configuration into cache options.
func (fc FileConfig) Options() []Option {
	var opts []Option
	if fc.Location != "" {
		opts = append(opts, WithLocation(fc.Location))
	}
	if fc.InMemoryLimit > 0 {
		opts = append(opts, WithMemoryLimit(fc.InMemoryLimit))
	}
	if fc.OnDiskLimit > 0 {
		opts = append(opts, WithDiskLimit(fc.OnDiskLimit))
	}
	if fc.DigestNames {
		opts = append(opts, WithDigestNames())
	}
	return opts
}
