package strata

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
)

// Codec converts payload values to and from their stored byte form.
//
// Cost reports the bytes a value occupies in memory and feeds the memory
// tier's eviction accounting; it must be non-zero for non-empty values.
// Ext is a stable file-kind tag used as the disk filename extension.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
	Cost(v V) int64
	Ext() string
}

// BytesCodec stores raw byte slices as-is.
type BytesCodec struct{}

func (BytesCodec) Encode(v []byte) ([]byte, error)    { return v, nil }
func (BytesCodec) Decode(data []byte) ([]byte, error) { return data, nil }
func (BytesCodec) Cost(v []byte) int64                { return int64(len(v)) }
func (BytesCodec) Ext() string                        { return "bin" }

// JSONCodec stores any JSON-marshalable value. time.Time fields encode as
// RFC 3339 per encoding/json.
//
// Cost marshals the value to measure it; prefer BytesCodec for payloads that
// are already bytes.
type JSONCodec[V any] struct{}

func (JSONCodec[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[V]) Decode(data []byte) (V, error) {
	var v V
	err := json.Unmarshal(data, &v)
	return v, err
}

func (JSONCodec[V]) Cost(v V) int64 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

func (JSONCodec[V]) Ext() string { return "json" }

// ImageCodec stores decoded images as PNG. Cost is the decoded bitmap's
// pixel count times four, approximating its RGBA footprint rather than the
// encoded size.
type ImageCodec struct{}

func (ImageCodec) Encode(v image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ImageCodec) Decode(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

func (ImageCodec) Cost(v image.Image) int64 {
	b := v.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}

func (ImageCodec) Ext() string { return "png" }

// StringKey is the identity key printer for string-keyed caches.
func StringKey(k string) string { return k }
