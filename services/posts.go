package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"petii/db"
	"petii/models"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxLocationLength = 100

var hashtagRegex = regexp.MustCompile(`#(\w+)`)

// CreatePostInput is a validated post creation request. Media is required.
type CreatePostInput struct {
	UserID   int64
	Caption  string
	Location string
	Media    *MediaFile
	Audio    *MediaFile
}

type PostService struct {
	media *MediaService
}

func NewPostService(media *MediaService) *PostService {
	return &PostService{media: media}
}

// ExtractHashtags returns the distinct #tags of a caption without the '#', in order.
func ExtractHashtags(caption string) []string {
	tags := make([]string, 0)
	seen := make(map[string]struct{})
	for _, m := range hashtagRegex.FindAllStringSubmatch(caption, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}

// CreatePost загружает медиа в хранилище и создаёт пост.
func (ps *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Media == nil {
		return nil, ErrMissingMedia
	}
	caption := strings.TrimSpace(in.Caption)
	if utf8.RuneCountInString(caption) > models.MaxCaptionLength {
		return nil, validationError("caption cannot exceed %d characters", models.MaxCaptionLength)
	}
	location := strings.TrimSpace(in.Location)
	if utf8.RuneCountInString(location) > maxLocationLength {
		return nil, validationError("location cannot exceed %d characters", maxLocationLength)
	}

	media, err := ps.media.Store(ctx, in.UserID, "posts", "media", in.Media)
	if err != nil {
		return nil, err
	}
	uploaded := []string{media.Path}

	post := models.Post{
		UserID:      in.UserID,
		Caption:     caption,
		Location:    location,
		MediaURL:    media.URL,
		MediaPath:   media.Path,
		MediaType:   in.Media.Kind(),
		LikerSample: datatypes.JSONSlice[int64]{},
	}

	if in.Audio != nil {
		audio, err := ps.media.Store(ctx, in.UserID, "posts", "audio", in.Audio)
		if err != nil {
			ps.cleanup(ctx, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, audio.Path)
		post.AudioURL = &audio.URL
		post.AudioPath = audio.Path
	}

	tags := ExtractHashtags(caption)
	post.Hashtags = datatypes.JSONSlice[string](tags)
	for _, tag := range tags {
		post.Tags = append(post.Tags, models.PostHashtag{Tag: tag})
	}

	if err := db.GetWriteDB(ctx).Create(&post).Error; err != nil {
		ps.cleanup(ctx, uploaded...)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return ps.GetPost(ctx, post.ID, in.UserID)
}

// GetPost returns one post with author, commenters and the viewer's likedByMe flag.
func (ps *PostService) GetPost(ctx context.Context, postID, viewerID int64) (*models.Post, error) {
	var post models.Post
	err := withPostRelations(db.GetReadOnlyDB(ctx).Model(&models.Post{}), viewerID).
		Where("posts.id = ?", postID).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// AddComment appends a comment and bumps the post's commentCount.
func (ps *PostService) AddComment(ctx context.Context, postID, userID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return nil, validationError("comment cannot exceed %d characters", models.MaxCommentLength)
	}
	if err := ensurePostExists(ctx, postID); err != nil {
		return nil, err
	}

	comment := models.Comment{PostID: postID, UserID: userID, Text: text}
	if err := db.GetWriteDB(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	err := db.GetWriteDB(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	if err != nil {
		slog.Warn("failed to bump comment count", "post_id", postID, "error", err)
	}

	if err := db.GetWriteDB(ctx).Preload("User").Take(&comment, comment.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return &comment, nil
}

// DeletePost удаляет пост владельца вместе с лайками, комментариями и медиа.
// A post owned by someone else is reported as not found.
func (ps *PostService) DeletePost(ctx context.Context, postID, userID int64) error {
	var post models.Post
	err := db.GetWriteDB(ctx).
		Select("id", "user_id", "media_path", "audio_path").
		Where("id = ? AND user_id = ?", postID, userID).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}

	if err := db.GetWriteDB(ctx).Delete(&models.Post{}, post.ID).Error; err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	for _, child := range []any{&models.Like{}, &models.Comment{}, &models.PostHashtag{}} {
		if err := db.GetWriteDB(ctx).Where("post_id = ?", post.ID).Delete(child).Error; err != nil {
			slog.Warn("failed to delete post children", "post_id", post.ID, "error", err)
		}
	}

	ps.cleanup(ctx, post.MediaPath, post.AudioPath)
	return nil
}

func (ps *PostService) cleanup(ctx context.Context, paths ...string) {
	if err := ps.media.Remove(context.WithoutCancel(ctx), paths...); err != nil {
		slog.Warn("failed to remove stored media", "paths", paths, "error", err)
	}
}
