package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MaxCaptionLength = 2200
	MaxCommentLength = 500
	// LikerSampleSize caps Post.LikerSample.
	LikerSampleSize = 20
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Post - пост с медиа. LikeCount and LikerSample are maintained from the likes ledger,
// never recomputed on read.
type Post struct {
	ID          int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64                       `gorm:"index:idx_post_user_id" json:"userId"`
	User        *UserSummary                `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Caption     string                      `gorm:"size:2200" json:"caption"`
	MediaURL    string                      `gorm:"size:2048;not null" json:"mediaUrl"`
	MediaPath   string                      `gorm:"size:1024" json:"-"`
	MediaType   MediaKind                   `gorm:"size:16;not null" json:"mediaType"`
	AudioURL    *string                     `gorm:"size:2048" json:"audioUrl"`
	AudioPath   string                      `gorm:"size:1024" json:"-"`
	Location    string                      `gorm:"size:255" json:"location,omitempty"`
	Hashtags    datatypes.JSONSlice[string] `json:"hashtags"`
	Tags        []PostHashtag               `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	LikeCount   int64                       `gorm:"not null;default:0;index" json:"likeCount"`
	LikerSample datatypes.JSONSlice[int64]  `json:"likerSample"`
	// SampleVersion guards read-modify-write of LikerSample.
	SampleVersion int64     `gorm:"not null;default:0" json:"-"`
	CommentCount  int64     `gorm:"not null;default:0" json:"commentCount"`
	Comments      []Comment `gorm:"constraint:OnDelete:CASCADE" json:"comments"`
	LikedByMe     bool      `gorm:"->;-:migration" json:"likedByMe"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Post) TableName() string {
	return "posts"
}

// PostHashtag indexes posts by tag.
type PostHashtag struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	PostID int64  `gorm:"not null;index"`
	Tag    string `gorm:"size:255;not null;index"`
}

func (PostHashtag) TableName() string {
	return "post_hashtags"
}

type Comment struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64        `gorm:"not null;index" json:"postId"`
	UserID    int64        `gorm:"not null" json:"userId"`
	User      *UserSummary `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Text      string       `gorm:"size:500;not null" json:"text"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (Comment) TableName() string {
	return "comments"
}

// Page is a cursor-paginated slice of posts.
type Page struct {
	Data       []Post  `json:"data"`
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}
