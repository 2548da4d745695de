package services

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"petii/db"
	"petii/models"
	"petii/storage"
	"strconv"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	mp3Bytes = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)
)

// setupDB gives each test a fresh in-memory database and routes slog to t.Log.
func setupDB(t *testing.T) context.Context {
	t.Helper()
	prev := slog.Default()
	slog.SetDefault(slogt.New(t))
	require.NoError(t, db.ConnectSQLite(":memory:"))
	t.Cleanup(func() {
		_ = db.Close()
		slog.SetDefault(prev)
	})
	return context.Background()
}

func newTestMedia(t *testing.T) (*MediaService, *storage.LocalBucket) {
	t.Helper()
	bucket, err := storage.NewLocalBucket(t.TempDir(), "http://media.test")
	require.NoError(t, err)
	return NewMediaService(bucket, 100<<20, 10<<20), bucket
}

type upload struct {
	name string
	body []byte
}

// formFiles builds real multipart file headers for one form field.
func formFiles(t *testing.T, field string, uploads ...upload) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, u := range uploads {
		part, err := w.CreateFormFile(field, u.name)
		require.NoError(t, err)
		_, err = part.Write(u.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field]
}

func mediaFile(t *testing.T, ms *MediaService, field string, u upload) *MediaFile {
	t.Helper()
	files, err := ms.Inspect(field, formFiles(t, field, u), ms.Media, 1)
	require.NoError(t, err)
	require.Len(t, files, 1)
	return files[0]
}

func createUser(t *testing.T, ctx context.Context) models.User {
	t.Helper()
	user := models.User{
		Username: gofakeit.Username() + gofakeit.DigitN(6),
		Email:    gofakeit.DigitN(6) + gofakeit.Email(),
		Password: "x",
	}
	require.NoError(t, db.GetWriteDB(ctx).Create(&user).Error)
	return user
}

// createPost inserts a post row directly; id 0 lets the database assign one.
func createPost(t *testing.T, ctx context.Context, id, userID int64, tags ...string) models.Post {
	t.Helper()
	post := models.Post{
		ID:          id,
		UserID:      userID,
		Caption:     gofakeit.Sentence(5),
		MediaURL:    "http://media.test/uploads/x.png",
		MediaType:   models.MediaImage,
		Hashtags:    datatypes.JSONSlice[string](append([]string{}, tags...)),
		LikerSample: datatypes.JSONSlice[int64]{},
	}
	for _, tag := range tags {
		post.Tags = append(post.Tags, models.PostHashtag{Tag: tag})
	}
	require.NoError(t, db.GetWriteDB(ctx).Create(&post).Error)
	return post
}

func reloadPost(t *testing.T, ctx context.Context, id int64) models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, db.GetWriteDB(ctx).Take(&post, id).Error)
	return post
}

func ledgerCount(t *testing.T, ctx context.Context, postID int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.GetWriteDB(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error)
	return n
}

// recordingQueue is a RecountQueue that only remembers what was enqueued.
type recordingQueue struct {
	mu  sync.Mutex
	ids []int64
}

func (q *recordingQueue) EnqueueRecount(_ context.Context, postID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, postID)
	return nil
}

func (q *recordingQueue) enqueued() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int64(nil), q.ids...)
}

func postIDs(posts []models.Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
