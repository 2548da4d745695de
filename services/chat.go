package services

import (
	"context"
	"fmt"
	"log/slog"
	"petii/db"
	"petii/models"
	"strings"
)

const maxMessageLength = 2000

// ChatService persists direct messages and hands them to the relay.
// Delivery is best-effort: a relay failure never fails the send.
type ChatService struct {
	relay ChatRelay
	media *MediaService
}

func NewChatService(relay ChatRelay, media *MediaService) *ChatService {
	return &ChatService{relay: relay, media: media}
}

// Send сохраняет текстовое сообщение и пересылает его получателю.
func (cs *ChatService) Send(ctx context.Context, from, to int64, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if from <= 0 || to <= 0 {
		return nil, validationError("sender and recipient are required")
	}
	if text == "" {
		return nil, validationError("text is required")
	}
	if len([]rune(text)) > maxMessageLength {
		return nil, validationError("message cannot exceed %d characters", maxMessageLength)
	}

	msg := models.Message{SenderID: from, RecipientID: to, Text: text}
	if err := db.GetWriteDB(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	cs.relayMessage(ctx, &msg)
	return &msg, nil
}

// SendMedia stores an uploaded file and records it as a message.
// kind overrides the sniffed media kind when set.
func (cs *ChatService) SendMedia(ctx context.Context, from, to int64, text string, kind *models.MediaKind, mf *MediaFile) (*models.Message, error) {
	if mf == nil {
		return nil, ErrMissingMedia
	}
	if from <= 0 || to <= 0 {
		return nil, validationError("sender and recipient are required")
	}

	stored, err := cs.media.Store(ctx, from, "messages", "media", mf)
	if err != nil {
		return nil, err
	}
	mediaKind := mf.Kind()
	if kind != nil {
		mediaKind = *kind
	}
	msg := models.Message{
		SenderID:    from,
		RecipientID: to,
		Text:        strings.TrimSpace(text),
		MediaType:   &mediaKind,
		MediaURL:    &stored.URL,
	}
	if err := db.GetWriteDB(ctx).Create(&msg).Error; err != nil {
		if rmErr := cs.media.Remove(context.WithoutCancel(ctx), stored.Path); rmErr != nil {
			slog.Warn("failed to remove chat media", "path", stored.Path, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	cs.relayMessage(ctx, &msg)
	return &msg, nil
}

// StoreMedia uploads a chat attachment without creating a message and returns its URL.
func (cs *ChatService) StoreMedia(ctx context.Context, userID int64, mf *MediaFile) (string, error) {
	if mf == nil {
		return "", ErrMissingMedia
	}
	stored, err := cs.media.Store(ctx, userID, "messages", "media", mf)
	if err != nil {
		return "", err
	}
	return stored.URL, nil
}

// History returns the conversation between two users, oldest first.
func (cs *ChatService) History(ctx context.Context, user1, user2 int64) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	err := db.GetReadOnlyDB(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			user1, user2, user2, user1).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

func (cs *ChatService) relayMessage(ctx context.Context, msg *models.Message) {
	if cs.relay == nil {
		return
	}
	event := ChatEvent{
		To:        msg.RecipientID,
		From:      msg.SenderID,
		MessageID: msg.ID,
		Text:      msg.Text,
		MediaURL:  msg.MediaURL,
		Timestamp: msg.CreatedAt,
	}
	if msg.MediaType != nil {
		kind := string(*msg.MediaType)
		event.MediaType = &kind
	}
	err := cs.relay.Publish(ctx, event)
	if err == nil {
		return
	}
	slog.Warn("chat relay failed", "to", msg.RecipientID, "error", err)
	// брокер недоступен - пробуем доставить в локальные сокеты
	if rabbit, ok := cs.relay.(*RabbitRelay); ok {
		chatMessagesTotal.WithLabelValues("fallback").Inc()
		deliverLocal(rabbit.manager, event)
	}
}
