package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"petii/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBucketUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	bucket, err := NewLocalBucket(dir, "http://localhost:5000/")
	require.NoError(t, err)
	ctx := context.Background()

	stored, err := bucket.Upload(ctx, Object{
		Path:        "users/7/posts/1700000000000/media.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(len("png-bytes")), stored.Size)
	assert.NotEmpty(t, stored.Token)
	assert.Equal(t, "http://localhost:5000/uploads/users/7/posts/1700000000000/media.png?token="+stored.Token, stored.URL)

	data, err := os.ReadFile(filepath.Join(dir, "users/7/posts/1700000000000/media.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, bucket.Delete(ctx, stored.Path))
	_, err = os.Stat(filepath.Join(dir, stored.Path))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	require.NoError(t, bucket.Delete(ctx, stored.Path))
}

func TestLocalBucketStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	bucket, err := NewLocalBucket(filepath.Join(dir, "root"), "")
	require.NoError(t, err)

	_, err = bucket.Upload(context.Background(), Object{Path: "../../escape.txt", Body: strings.NewReader("x")})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "root", "escape.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewSelectsDriver(t *testing.T) {
	conf := &config.ConfigSchema{}
	conf.Storage.Driver = "local"
	conf.Storage.LocalDir = t.TempDir()

	bucket, err := New(context.Background(), conf)
	require.NoError(t, err)
	assert.IsType(t, &LocalBucket{}, bucket)

	conf.Storage.Driver = "s3"
	_, err = New(context.Background(), conf)
	require.Error(t, err)
}
