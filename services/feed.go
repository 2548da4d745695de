package services

import (
	"context"
	"fmt"
	"petii/db"
	"petii/models"
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// FeedQuery selects one page of posts, newest first.
type FeedQuery struct {
	ViewerID int64
	// Cursor is the id of the last post already seen; nil starts from the newest post.
	Cursor   *int64
	Limit    int
	AuthorID int64
	Hashtag  string
}

// ParseCursor accepts an empty string (no cursor) or a positive post id.
func ParseCursor(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, validationError("invalid cursor %q", raw)
	}
	return &id, nil
}

// ParseLimit returns DefaultPageSize for an absent or non-numeric limit, otherwise the
// value clamped into [1, MaxPageSize].
func ParseLimit(raw string) int {
	if raw == "" {
		return DefaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultPageSize
	}
	return ClampLimit(n)
}

func ClampLimit(n int) int {
	return min(max(n, 1), MaxPageSize)
}

// FeedService собирает ленту с курсорной пагинацией по id поста.
type FeedService struct{}

func NewFeedService() *FeedService {
	return &FeedService{}
}

// Page fetches limit+1 posts strictly older than the cursor. The extra row only
// decides HasMore; NextCursor is the id of the last post actually returned.
func (fs *FeedService) Page(ctx context.Context, q FeedQuery) (*models.Page, error) {
	limit := ClampLimit(q.Limit)

	query := withPostRelations(db.GetReadOnlyDB(ctx).Model(&models.Post{}), q.ViewerID).
		Order("posts.id DESC").
		Limit(limit + 1)

	if q.Cursor != nil {
		query = query.Where("posts.id < ?", *q.Cursor)
	}
	if q.AuthorID > 0 {
		query = query.Where("posts.user_id = ?", q.AuthorID)
	}
	if q.Hashtag != "" {
		query = query.Where("posts.id IN (SELECT post_id FROM post_hashtags WHERE tag = ?)", q.Hashtag)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get feed posts: %w", err)
	}

	page := &models.Page{Data: posts}
	if len(posts) > limit {
		page.Data = posts[:limit]
		page.HasMore = true
		next := strconv.FormatInt(page.Data[limit-1].ID, 10)
		page.NextCursor = &next
	}
	if page.Data == nil {
		page.Data = []models.Post{}
	}
	return page, nil
}

// withPostRelations selects posts with the viewer's likedByMe flag computed per row by
// an EXISTS check on the likes index, and preloads author and commenters.
func withPostRelations(tx *gorm.DB, viewerID int64) *gorm.DB {
	return tx.
		Select("posts.*, EXISTS (SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked_by_me", viewerID).
		Preload("User").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("comments.id ASC")
		}).
		Preload("Comments.User")
}
