package models

import (
	"time"
)

// Message представляет сообщение в диалоге между пользователями
type Message struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID    int64      `gorm:"column:sender_id;index:idx_message_pair" json:"sender"`
	RecipientID int64      `gorm:"column:recipient_id;index:idx_message_pair" json:"recipient"`
	Text        string     `gorm:"type:text" json:"text,omitempty"`
	MediaType   *MediaKind `gorm:"size:16" json:"mediaType"`
	MediaURL    *string    `gorm:"size:2048" json:"mediaUrl"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"timestamp"`
}

// TableName возвращает имя таблицы для модели Message
func (Message) TableName() string {
	return "messages"
}
