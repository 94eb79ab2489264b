// Package miniostore implements remote.Store over any S3-compatible
// endpoint using the MinIO client.
//
// Each record maps to one object named "<type>/<rest of id>"; whether the
// payload was written inline or as an asset rides in user metadata, and the
// record's modification instant is the object's server-assigned
// last-modified time.
package miniostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/meigma/strata/remote"
)

// fieldMetaKey marks which record field an object's payload belongs to.
const fieldMetaKey = "Strata-Field"

// Config describes the S3-compatible endpoint backing the store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string

	// Client overrides the constructed client. Endpoint and credentials
	// are ignored when set.
	Client *minio.Client
}

// Store implements remote.Store over a single bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New creates a Store from cfg. The bucket must already exist.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("miniostore: bucket is empty")
	}
	client := cfg.Client
	if client == nil {
		if cfg.Endpoint == "" {
			return nil, errors.New("miniostore: endpoint is empty")
		}
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// objectName maps a record id onto an object key. The first ':' becomes a
// '/' so records of one type share a listable prefix.
func objectName(id string) string {
	return strings.Replace(id, ":", "/", 1)
}

// recordID inverts objectName.
func recordID(name string) string {
	return strings.Replace(name, "/", ":", 1)
}

// mapError translates backend failures into the tier's error kinds.
func mapError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %v", remote.ErrUnknownRecord, err)
	case "AccessDenied":
		return fmt.Errorf("%w: %v", remote.ErrPermission, err)
	}
	return err
}

func (s *Store) Fetch(ctx context.Context, id string) (remote.Record, error) {
	name := objectName(id)

	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return remote.Record{}, mapError(err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return remote.Record{}, mapError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return remote.Record{}, mapError(err)
	}

	rec := remote.Record{
		ID:         id,
		Type:       recordType(id),
		ModifiedAt: info.LastModified,
	}
	if info.UserMetadata[fieldMetaKey] == "asset" {
		rec.Asset = data
	} else {
		rec.Inline = data
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, rec remote.Record) error {
	data := rec.Inline
	field := "inline"
	if len(rec.Asset) > 0 {
		data = rec.Asset
		field = "asset"
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName(rec.ID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{UserMetadata: map[string]string{fieldMetaKey: field}})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName(id), minio.RemoveObjectOptions{})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, recordType string) ([]string, error) {
	var ids []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    recordType + "/",
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, mapError(info.Err)
		}
		ids = append(ids, recordID(info.Key))
	}
	return ids, nil
}

// recordType extracts the type prefix from a record id.
func recordType(id string) string {
	if idx := strings.IndexByte(id, ':'); idx >= 0 {
		return id[:idx]
	}
	return id
}
