package handlers

import (
	"mime/multipart"
	"net/http"
	"petii/models"
	"petii/services"

	"github.com/gin-gonic/gin"
)

type MessageUploadRequest struct {
	Sender    int64                   `form:"sender" binding:"required,gt=0"`
	Recipient int64                   `form:"recipient" binding:"required,gt=0"`
	Text      string                  `form:"text" binding:"max=2000"`
	MediaType string                  `form:"mediaType" binding:"omitempty,mediakind"`
	Media     []*multipart.FileHeader `form:"media"`
}

type ChatMediaRequest struct {
	Media []*multipart.FileHeader `form:"media"`
}

// ListDialogHandler - получение сообщений между пользователями (диалога)
func ListDialogHandler(c *gin.Context) {
	user1, ok := paramID(c, "user1")
	if !ok {
		return
	}
	user2, ok := paramID(c, "user2")
	if !ok {
		return
	}
	messages, err := chatService.History(c.Request.Context(), user1, user2)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// UploadMessageHandler сохраняет сообщение с медиа. When a token is present the
// sender must be its owner.
func UploadMessageHandler(c *gin.Context) {
	var req MessageUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if userID, ok := optionalUserID(c); ok && userID != req.Sender {
		respondError(c, services.ErrUnauthorized)
		return
	}
	media, err := firstFile("media", req.Media, mediaService.Media, 1)
	if err != nil {
		respondError(c, err)
		return
	}
	if media == nil {
		respondError(c, services.ErrMissingMedia)
		return
	}

	var kind *models.MediaKind
	if req.MediaType != "" {
		k := models.MediaKind(req.MediaType)
		kind = &k
	}
	msg, err := chatService.SendMedia(c.Request.Context(), req.Sender, req.Recipient, req.Text, kind, media)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadChatMediaHandler stores a chat attachment and returns its URL only.
func UploadChatMediaHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ChatMediaRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	media, err := firstFile("media", req.Media, mediaService.Media, 1)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := chatService.StoreMedia(c.Request.Context(), userID, media)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mediaUrl": url})
}
