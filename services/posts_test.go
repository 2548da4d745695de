package services

import (
	"os"
	"path/filepath"
	"petii/db"
	"petii/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHashtags(t *testing.T) {
	assert.Equal(t, []string{"dog", "good_boy"}, ExtractHashtags("walk #dog with my #good_boy and #dog"))
	assert.Equal(t, []string{}, ExtractHashtags("no tags here"))
}

func TestCreatePost(t *testing.T) {
	ctx := setupDB(t)
	media, bucket := newTestMedia(t)
	ps := NewPostService(media)
	author := createUser(t, ctx)

	post, err := ps.CreatePost(ctx, CreatePostInput{
		UserID:   author.ID,
		Caption:  "  Morning walk #dogs #park  ",
		Location: "Central Park",
		Media:    mediaFile(t, media, "media", upload{"walk.png", pngBytes}),
		Audio:    mediaFile(t, media, "audio", upload{"song.mp3", mp3Bytes}),
	})
	require.NoError(t, err)

	assert.Equal(t, "Morning walk #dogs #park", post.Caption)
	assert.Equal(t, models.MediaImage, post.MediaType)
	assert.Equal(t, []string{"dogs", "park"}, []string(post.Hashtags))
	assert.Equal(t, int64(0), post.LikeCount)
	assert.NotNil(t, post.LikerSample)
	assert.False(t, post.LikedByMe)
	require.NotNil(t, post.User)
	assert.Equal(t, author.Username, post.User.Username)

	prefix := "users/" + itoa(author.ID) + "/posts/"
	assert.True(t, strings.HasPrefix(post.MediaPath, prefix), post.MediaPath)
	assert.True(t, strings.HasSuffix(post.MediaPath, "/media.png"), post.MediaPath)
	assert.Contains(t, post.MediaURL, "?token=")
	require.NotNil(t, post.AudioURL)
	assert.True(t, strings.HasSuffix(post.AudioPath, "/audio.mp3"), post.AudioPath)

	_, err = os.Stat(filepath.Join(bucket.Dir, post.MediaPath))
	require.NoError(t, err)

	var tags []models.PostHashtag
	require.NoError(t, db.GetWriteDB(ctx).Where("post_id = ?", post.ID).Find(&tags).Error)
	assert.Len(t, tags, 2)
}

func TestCreatePostValidation(t *testing.T) {
	ctx := setupDB(t)
	media, _ := newTestMedia(t)
	ps := NewPostService(media)
	author := createUser(t, ctx)

	_, err := ps.CreatePost(ctx, CreatePostInput{UserID: author.ID, Caption: "no media"})
	assert.ErrorIs(t, err, ErrMissingMedia)

	_, err = ps.CreatePost(ctx, CreatePostInput{
		UserID:  author.ID,
		Caption: strings.Repeat("я", models.MaxCaptionLength+1),
		Media:   mediaFile(t, media, "media", upload{"a.png", pngBytes}),
	})
	assert.ErrorIs(t, err, ErrValidation)

	var n int64
	require.NoError(t, db.GetWriteDB(ctx).Model(&models.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestGetPost(t *testing.T) {
	ctx := setupDB(t)
	media, _ := newTestMedia(t)
	ps := NewPostService(media)
	author := createUser(t, ctx)
	viewer := createUser(t, ctx)
	post := createPost(t, ctx, 0, author.ID)

	_, err := NewLikeService(&recordingQueue{}).Toggle(ctx, post.ID, viewer.ID)
	require.NoError(t, err)
	_, err = ps.AddComment(ctx, post.ID, viewer.ID, "nice")
	require.NoError(t, err)

	got, err := ps.GetPost(ctx, post.ID, viewer.ID)
	require.NoError(t, err)
	assert.True(t, got.LikedByMe)
	assert.Equal(t, int64(1), got.LikeCount)
	require.Len(t, got.Comments, 1)
	require.NotNil(t, got.Comments[0].User)
	assert.Equal(t, viewer.Username, got.Comments[0].User.Username)

	got, err = ps.GetPost(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, got.LikedByMe)

	_, err = ps.GetPost(ctx, post.ID+100, viewer.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestAddComment(t *testing.T) {
	ctx := setupDB(t)
	media, _ := newTestMedia(t)
	ps := NewPostService(media)
	author := createUser(t, ctx)
	post := createPost(t, ctx, 0, author.ID)

	c, err := ps.AddComment(ctx, post.ID, author.ID, "  first  ")
	require.NoError(t, err)
	assert.Equal(t, "first", c.Text)
	require.NotNil(t, c.User)
	assert.Equal(t, author.ID, c.User.ID)

	_, err = ps.AddComment(ctx, post.ID, author.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, int64(2), reloadPost(t, ctx, post.ID).CommentCount)

	_, err = ps.AddComment(ctx, post.ID, author.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ps.AddComment(ctx, post.ID, author.ID, strings.Repeat("x", models.MaxCommentLength+1))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ps.AddComment(ctx, post.ID+1, author.ID, "lost")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePost(t *testing.T) {
	ctx := setupDB(t)
	media, bucket := newTestMedia(t)
	ps := NewPostService(media)
	owner := createUser(t, ctx)
	stranger := createUser(t, ctx)

	post, err := ps.CreatePost(ctx, CreatePostInput{
		UserID:  owner.ID,
		Caption: "#bye",
		Media:   mediaFile(t, media, "media", upload{"a.png", pngBytes}),
	})
	require.NoError(t, err)
	_, err = NewLikeService(&recordingQueue{}).Toggle(ctx, post.ID, stranger.ID)
	require.NoError(t, err)
	_, err = ps.AddComment(ctx, post.ID, stranger.ID, "hi")
	require.NoError(t, err)

	// чужой пост неотличим от несуществующего
	assert.ErrorIs(t, ps.DeletePost(ctx, post.ID, stranger.ID), ErrPostNotFound)

	require.NoError(t, ps.DeletePost(ctx, post.ID, owner.ID))
	assert.ErrorIs(t, ps.DeletePost(ctx, post.ID, owner.ID), ErrPostNotFound)

	for _, model := range []any{&models.Post{}, &models.Like{}, &models.Comment{}, &models.PostHashtag{}} {
		var n int64
		q := db.GetWriteDB(ctx).Model(model)
		if _, isPost := model.(*models.Post); isPost {
			q = q.Where("id = ?", post.ID)
		} else {
			q = q.Where("post_id = ?", post.ID)
		}
		require.NoError(t, q.Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}
	_, err = os.Stat(filepath.Join(bucket.Dir, post.MediaPath))
	assert.True(t, os.IsNotExist(err))
}
