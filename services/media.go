package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"petii/models"
	"petii/storage"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	imageExts = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}
	videoExts = []string{".mp4", ".mov", ".m4v", ".webm"}
)

// MediaFile is an uploaded file whose content type was sniffed from its bytes.
type MediaFile struct {
	Header      *multipart.FileHeader
	ContentType string
	Ext         string
}

// Kind classifies the file for Post.MediaType and Message.MediaType.
func (f *MediaFile) Kind() models.MediaKind {
	if strings.HasPrefix(f.ContentType, "image/") {
		return models.MediaImage
	}
	return models.MediaVideo
}

// MediaPolicy bounds what an upload field accepts.
type MediaPolicy struct {
	MaxBytes int64
	Prefixes []string
}

func (p MediaPolicy) allows(contentType string) bool {
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// MediaService validates uploads and writes them to the object-storage bucket.
type MediaService struct {
	bucket storage.Bucket
	// Media accepts images, videos and audio; Images accepts images only.
	Media  MediaPolicy
	Images MediaPolicy
	now    func() time.Time
}

func NewMediaService(bucket storage.Bucket, maxMediaBytes, maxImageBytes int64) *MediaService {
	return &MediaService{
		bucket: bucket,
		Media:  MediaPolicy{MaxBytes: maxMediaBytes, Prefixes: []string{"image/", "video/", "audio/"}},
		Images: MediaPolicy{MaxBytes: maxImageBytes, Prefixes: []string{"image/"}},
		now:    time.Now,
	}
}

// Inspect checks count, size and sniffed content type of every file in one form field.
func (ms *MediaService) Inspect(field string, files []*multipart.FileHeader, policy MediaPolicy, maxFiles int) ([]*MediaFile, error) {
	if len(files) > maxFiles {
		return nil, fmt.Errorf("%w: at most %d %s file(s) allowed", ErrTooManyFiles, maxFiles, field)
	}
	out := make([]*MediaFile, 0, len(files))
	for _, fh := range files {
		if fh.Size > policy.MaxBytes {
			return nil, fmt.Errorf("%w: maximum size is %s", ErrFileTooLarge, humanSize(policy.MaxBytes))
		}
		mf, err := sniff(fh)
		if err != nil {
			return nil, err
		}
		if !policy.allows(mf.ContentType) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mf.ContentType)
		}
		out = append(out, mf)
	}
	return out, nil
}

func sniff(fh *multipart.FileHeader) (*MediaFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	contentType, _, _ := strings.Cut(mtype.String(), ";")
	return &MediaFile{
		Header:      fh,
		ContentType: contentType,
		Ext:         pickExt(fh.Filename, contentType, mtype.Extension()),
	}, nil
}

// pickExt keeps the client's extension unless it is missing or contradicts the content.
func pickExt(filename, contentType, sniffedExt string) string {
	if contentType == "video/quicktime" {
		return ".mov"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == "" || ext == ".":
		ext = sniffedExt
	case strings.HasPrefix(contentType, "video/") && slices.Contains(imageExts, ext):
		ext = sniffedExt
	case strings.HasPrefix(contentType, "image/") && slices.Contains(videoExts, ext):
		ext = sniffedExt
	}
	if ext == "" {
		switch {
		case strings.HasPrefix(contentType, "image/"):
			ext = ".jpg"
		case strings.HasPrefix(contentType, "audio/"):
			ext = ".mp3"
		case contentType == "video/mp4":
			ext = ".mp4"
		}
	}
	return ext
}

// ObjectPath builds users/{userId}/{scope}/{timestamp}/{field}{ext}.
func ObjectPath(userID int64, scope string, at time.Time, field, ext string) string {
	return fmt.Sprintf("users/%d/%s/%d/%s%s", userID, scope, at.UnixMilli(), field, ext)
}

// Store uploads mf under the owner's scope and returns the stored object.
func (ms *MediaService) Store(ctx context.Context, userID int64, scope, field string, mf *MediaFile) (*storage.Stored, error) {
	f, err := mf.Header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", mf.Header.Filename, err)
	}
	defer f.Close()

	stored, err := ms.bucket.Upload(ctx, storage.Object{
		Path:        ObjectPath(userID, scope, ms.now(), field, mf.Ext),
		ContentType: mf.ContentType,
		Body:        f,
		Metadata:    map[string]string{"originalName": mf.Header.Filename},
	})
	if err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}
	return stored, nil
}

// Remove deletes stored objects, returning every failure joined.
func (ms *MediaService) Remove(ctx context.Context, paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := ms.bucket.Delete(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("remove media: %w", err)
	}
	return nil
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
