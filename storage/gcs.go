package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const firebaseTokenKey = "firebaseStorageDownloadTokens"

// GCSBucket stores objects in a Google Cloud Storage (Firebase) bucket. URLs are
// Firebase download URLs carrying an access token stored in object metadata.
type GCSBucket struct {
	client *gcs.Client
	name   string
}

func NewGCSBucket(ctx context.Context, name, credentialsFile string) (*GCSBucket, error) {
	if name == "" {
		return nil, fmt.Errorf("storage.bucket is required for gcs")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSBucket{client: client, name: name}, nil
}

func (b *GCSBucket) Upload(ctx context.Context, obj Object) (*Stored, error) {
	token := newDownloadToken()
	metadata := map[string]string{firebaseTokenKey: token}
	for k, v := range obj.Metadata {
		metadata[k] = v
	}

	w := b.client.Bucket(b.name).Object(obj.Path).NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.CacheControl = "public, max-age=31536000"
	w.Metadata = metadata

	size, err := io.Copy(w, obj.Body)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write object %s: %w", obj.Path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close object %s: %w", obj.Path, err)
	}

	return &Stored{
		Path:        obj.Path,
		URL:         b.downloadURL(obj.Path, token),
		Size:        size,
		ContentType: obj.ContentType,
		Token:       token,
	}, nil
}

func (b *GCSBucket) Delete(ctx context.Context, path string) error {
	err := b.client.Bucket(b.name).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", path, err)
	}
	return nil
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}

func (b *GCSBucket) downloadURL(path, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		b.name, url.PathEscape(path), token)
}
