package strata

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesCodec(t *testing.T) {
	t.Parallel()

	c := BytesCodec{}
	data := []byte("hello world")

	encoded, err := c.Encode(data)
	require.NoError(t, err)
	assert.Equal(t, data, encoded)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	assert.Equal(t, int64(11), c.Cost(data))
	assert.Equal(t, "bin", c.Ext())
}

func TestJSONCodecRoundTrip(t *testing.T) {
	t.Parallel()

	type article struct {
		Title       string    `json:"title"`
		PublishedAt time.Time `json:"published_at"`
		Tags        []string  `json:"tags"`
	}

	c := JSONCodec[article]{}
	in := article{
		Title:       "tiered caches",
		PublishedAt: time.Date(2026, 8, 5, 9, 30, 0, 0, time.UTC),
		Tags:        []string{"go", "cache"},
	}

	encoded, err := c.Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), "2026-08-05T09:30:00Z")

	out, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, in.Title, out.Title)
	assert.True(t, in.PublishedAt.Equal(out.PublishedAt))
	assert.Equal(t, in.Tags, out.Tags)

	assert.Equal(t, int64(len(encoded)), c.Cost(in))
	assert.Equal(t, "json", c.Ext())
}

func TestJSONCodecDecodeError(t *testing.T) {
	t.Parallel()

	c := JSONCodec[map[string]int]{}
	_, err := c.Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestImageCodec(t *testing.T) {
	t.Parallel()

	c := ImageCodec{}
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(3, 3, color.RGBA{R: 255, A: 255})

	encoded, err := c.Encode(img)
	require.NoError(t, err)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	// Cost is the decoded bitmap footprint, not the encoded size.
	assert.Equal(t, int64(8*6*4), c.Cost(img))
	assert.Equal(t, "png", c.Ext())
}

func TestImageCodecDecodeError(t *testing.T) {
	t.Parallel()

	c := ImageCodec{}
	_, err := c.Decode([]byte("definitely not a png"))
	assert.Error(t, err)
}
