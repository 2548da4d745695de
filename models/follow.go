package models

import "time"

// Follow is a single directed follow relation. The (follower, followee) pair is unique,
// so both "following" and "followers" views are queries over the same rows.
type Follow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID int64     `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"followerId"`
	FolloweeID int64     `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Follow) TableName() string {
	return "follows"
}
