package services

import (
	"context"
	"os"
	"path/filepath"
	"petii/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	media, _ := newTestMedia(t)

	files, err := media.Inspect("media", formFiles(t, "media", upload{"pic.jpeg", pngBytes}), media.Media, 2)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "image/png", files[0].ContentType)
	assert.Equal(t, ".jpeg", files[0].Ext)
	assert.Equal(t, models.MediaImage, files[0].Kind())

	files, err = media.Inspect("media", formFiles(t, "media", upload{"noext", pngBytes}), media.Media, 1)
	require.NoError(t, err)
	assert.Equal(t, ".png", files[0].Ext)

	_, err = media.Inspect("media", formFiles(t, "media", upload{"a.txt", []byte("just some text")}), media.Media, 1)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = media.Inspect("pets", formFiles(t, "pets", upload{"a.mp3", mp3Bytes}), media.Images, 1)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = media.Inspect("media", formFiles(t, "media", upload{"a.png", pngBytes}, upload{"b.png", pngBytes}), media.Media, 1)
	assert.ErrorIs(t, err, ErrTooManyFiles)

	tight := MediaPolicy{MaxBytes: 8, Prefixes: []string{"image/"}}
	_, err = media.Inspect("media", formFiles(t, "media", upload{"a.png", pngBytes}), tight, 1)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	files, err = media.Inspect("media", nil, media.Media, 1)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPickExt(t *testing.T) {
	assert.Equal(t, ".mov", pickExt("clip.mp4", "video/quicktime", ".mov"))
	assert.Equal(t, ".mp4", pickExt("clip.jpg", "video/mp4", ".mp4"))
	assert.Equal(t, ".png", pickExt("photo.mp4", "image/png", ".png"))
	assert.Equal(t, ".webp", pickExt("photo.WEBP", "image/webp", ".webp"))
	assert.Equal(t, ".jpg", pickExt("photo", "image/x-unknown", ""))
	assert.Equal(t, ".mp3", pickExt("voice", "audio/x-unknown", ""))
}

func TestObjectPath(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "users/42/posts/1700000000123/media.png", ObjectPath(42, "posts", at, "media", ".png"))
}

func TestStoreAndRemove(t *testing.T) {
	media, bucket := newTestMedia(t)
	media.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	mf := mediaFile(t, media, "media", upload{"a.png", pngBytes})
	stored, err := media.Store(ctx, 7, "posts", "media", mf)
	require.NoError(t, err)
	assert.Equal(t, "users/7/posts/1700000000000/media.png", stored.Path)
	assert.Equal(t, int64(len(pngBytes)), stored.Size)

	data, err := os.ReadFile(filepath.Join(bucket.Dir, stored.Path))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	require.NoError(t, media.Remove(ctx, stored.Path, "", "users/7/missing.png"))
	_, err = os.Stat(filepath.Join(bucket.Dir, stored.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "100MB", humanSize(100<<20))
	assert.Equal(t, "1500 bytes", humanSize(1500))
}
