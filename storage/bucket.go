// Package storage persists uploaded media in an object-storage bucket and hands back
// durable download URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"petii/config"

	"github.com/google/uuid"
)

// Object describes one upload.
type Object struct {
	Path        string
	ContentType string
	Body        io.Reader
	Metadata    map[string]string
}

// Stored is the result of a successful upload.
type Stored struct {
	Path        string
	URL         string
	Size        int64
	ContentType string
	Token       string
}

// Bucket is the object-storage contract used by post creation, registration and chat
// media upload. Delete treats a missing object as success.
type Bucket interface {
	Upload(ctx context.Context, obj Object) (*Stored, error)
	Delete(ctx context.Context, path string) error
}

// New builds the bucket selected by the storage config section.
func New(ctx context.Context, conf *config.ConfigSchema) (Bucket, error) {
	switch conf.Storage.Driver {
	case "gcs":
		return NewGCSBucket(ctx, conf.Storage.Bucket, conf.Storage.CredentialsFile)
	case "local":
		return NewLocalBucket(conf.Storage.LocalDir, conf.Storage.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}

func newDownloadToken() string {
	return uuid.NewString()
}
