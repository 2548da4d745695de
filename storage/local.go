package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalBucket keeps objects on disk; the HTTP server exposes Dir under /uploads.
type LocalBucket struct {
	Dir     string
	BaseURL string
}

func NewLocalBucket(dir, baseURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalBucket{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalBucket) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(b.Dir, clean), nil
}

func (b *LocalBucket) Upload(ctx context.Context, obj Object) (*Stored, error) {
	full, err := b.resolve(obj.Path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}
	dst, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("create object %s: %w", obj.Path, err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, obj.Body)
	if err != nil {
		return nil, fmt.Errorf("write object %s: %w", obj.Path, err)
	}

	token := newDownloadToken()
	return &Stored{
		Path:        obj.Path,
		URL:         fmt.Sprintf("%s/uploads/%s?token=%s", b.BaseURL, strings.TrimPrefix(obj.Path, "/"), token),
		Size:        size,
		ContentType: obj.ContentType,
		Token:       token,
	}, nil
}

func (b *LocalBucket) Delete(ctx context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", path, err)
	}
	return nil
}
