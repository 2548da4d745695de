package services

import (
	"context"
	"fmt"
	"petii/db"
	"petii/models"
)

// FollowResult is the state of the relation after a follow mutation.
type FollowResult struct {
	Following      bool  `json:"following"`
	FollowersCount int64 `json:"followersCount"`
}

// FollowService keeps one row per (follower, followee); the unique pair is the only arbiter.
type FollowService struct{}

func NewFollowService() *FollowService {
	return &FollowService{}
}

// Toggle подписывает или отписывает, как лайк: вставка, при дубликате удаление.
func (fs *FollowService) Toggle(ctx context.Context, followerID, followeeID int64) (*FollowResult, error) {
	if err := fs.check(ctx, followerID, followeeID); err != nil {
		return nil, err
	}
	outcome, err := toggleRow(ctx, &models.Follow{FollowerID: followerID, FolloweeID: followeeID},
		"follower_id = ? AND followee_id = ?", followerID, followeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle follow: %w", err)
	}
	return fs.result(ctx, outcome == ledgerLiked, followeeID)
}

// Follow is idempotent: following twice keeps a single row.
func (fs *FollowService) Follow(ctx context.Context, followerID, followeeID int64) (*FollowResult, error) {
	if err := fs.check(ctx, followerID, followeeID); err != nil {
		return nil, err
	}
	err := db.GetWriteDB(ctx).Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
	if err != nil && !db.IsDuplicateKey(err) {
		return nil, fmt.Errorf("failed to follow: %w", err)
	}
	return fs.result(ctx, true, followeeID)
}

// Unfollow is idempotent: a missing row is not an error.
func (fs *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) (*FollowResult, error) {
	if err := fs.check(ctx, followerID, followeeID); err != nil {
		return nil, err
	}
	err := db.GetWriteDB(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to unfollow: %w", err)
	}
	return fs.result(ctx, false, followeeID)
}

// IsFollowing reports whether followerID follows followeeID.
func (fs *FollowService) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var n int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("error checking follow: %w", err)
	}
	return n > 0, nil
}

func (fs *FollowService) check(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	var n int64
	if err := db.GetWriteDB(ctx).Model(&models.User{}).Where("id = ?", followeeID).Count(&n).Error; err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (fs *FollowService) result(ctx context.Context, following bool, followeeID int64) (*FollowResult, error) {
	res := &FollowResult{Following: following}
	err := db.GetWriteDB(ctx).Model(&models.Follow{}).Where("followee_id = ?", followeeID).Count(&res.FollowersCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	return res, nil
}
