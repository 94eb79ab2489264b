//go:build integration

package miniostore

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/strata/remote"
)

// startMinIO launches a MinIO container and returns a Store bound to a
// fresh bucket.
func startMinIO(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "minioadmin",
				"MINIO_ROOT_PASSWORD": "minioadmin",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)
	require.NoError(t, client.MakeBucket(ctx, "strata-test", minio.MakeBucketOptions{}))

	store, err := New(Config{Client: client, Bucket: "strata-test"})
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := startMinIO(t)
	ctx := context.Background()

	rec := remote.Record{ID: "blob:k", Type: "blob", Inline: []byte("hello")}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Fetch(ctx, "blob:k")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Inline)
	assert.Empty(t, got.Asset)
	assert.WithinDuration(t, time.Now(), got.ModifiedAt, time.Minute)
}

func TestStoreAssetFieldSurvivesRoundTrip(t *testing.T) {
	store := startMinIO(t)
	ctx := context.Background()

	rec := remote.Record{ID: "blob:big", Type: "blob", Asset: []byte("large payload")}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Fetch(ctx, "blob:big")
	require.NoError(t, err)
	assert.Equal(t, []byte("large payload"), got.Asset)
	assert.Empty(t, got.Inline)
}

func TestStoreFetchUnknownRecord(t *testing.T) {
	store := startMinIO(t)

	_, err := store.Fetch(context.Background(), "blob:absent")
	assert.ErrorIs(t, err, remote.ErrUnknownRecord)
}

func TestStoreListAndDelete(t *testing.T) {
	store := startMinIO(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, remote.Record{ID: "blob:a", Type: "blob", Inline: []byte("1")}))
	require.NoError(t, store.Upsert(ctx, remote.Record{ID: "blob:b", Type: "blob", Inline: []byte("2")}))
	require.NoError(t, store.Upsert(ctx, remote.Record{ID: "other:c", Type: "other", Inline: []byte("3")}))

	ids, err := store.List(ctx, "blob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blob:a", "blob:b"}, ids)

	require.NoError(t, store.Delete(ctx, "blob:a"))
	ids, err = store.List(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, []string{"blob:b"}, ids)
}
