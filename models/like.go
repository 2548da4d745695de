package models

import "time"

// Like is one ledger entry. The (post, user) pair is unique.
type Like struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"not null;uniqueIndex:idx_like_post_user;index" json:"postId"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_like_post_user;index" json:"userId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (Like) TableName() string {
	return "likes"
}
