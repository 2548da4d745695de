package models

import (
	"time"
)

// MaxPets bounds the pet sub-records a user may register with.
const MaxPets = 5

type User struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string    `gorm:"size:60;uniqueIndex" json:"username"`
	Email          string    `gorm:"size:255;uniqueIndex" json:"email"`
	Password       string    `gorm:"size:255" json:"-"`
	Petname        string    `gorm:"size:255" json:"petname,omitempty"`
	Bio            string    `gorm:"size:500" json:"bio,omitempty"`
	ProfilePicture string    `gorm:"size:1024" json:"profilePicture,omitempty"`
	Pets           []Pet     `gorm:"constraint:OnDelete:CASCADE" json:"pets,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

type Pet struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   int64  `gorm:"index" json:"-"`
	Name     string `gorm:"size:255" json:"name"`
	PhotoURL string `gorm:"size:1024" json:"photoUrl"`
}

func (Pet) TableName() string {
	return "pets"
}

// UserSummary is the author projection embedded in posts and comments.
type UserSummary struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (UserSummary) TableName() string {
	return "users"
}

// Profile is the public view of a user with follow-relation counts.
type Profile struct {
	User
	FollowersCount int64 `json:"followersCount"`
	FollowingCount int64 `json:"followingCount"`
	// IsFollowing is set only when another user views the profile.
	IsFollowing *bool `json:"isFollowing,omitempty"`
}
