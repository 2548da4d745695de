package handlers

import (
	"mime/multipart"
	"net/http"
	"petii/services"
	"strings"

	"github.com/gin-gonic/gin"
)

type CreatePostRequest struct {
	Caption  string                  `form:"caption" binding:"max=2200"`
	Location string                  `form:"location" binding:"max=100"`
	Media    []*multipart.FileHeader `form:"media"`
	Audio    []*multipart.FileHeader `form:"audio"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"required,max=500"`
}

type PageRequest struct {
	Cursor string `form:"cursor"`
	Limit  string `form:"limit"`
}

const maxPostFiles = 2

// CreatePost создает пост: медиа обязательно, аудио по желанию.
func CreatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.Media) == 0 {
		respondError(c, services.ErrMissingMedia)
		return
	}

	media, err := firstFile("media", req.Media, mediaService.Media, maxPostFiles)
	if err != nil {
		respondError(c, err)
		return
	}
	audio, err := firstFile("audio", req.Audio, mediaService.Media, maxPostFiles)
	if err != nil {
		respondError(c, err)
		return
	}

	post, err := postService.CreatePost(c.Request.Context(), services.CreatePostInput{
		UserID:   userID,
		Caption:  req.Caption,
		Location: req.Location,
		Media:    media,
		Audio:    audio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetFeed отдает страницу ленты по курсору.
func GetFeed(c *gin.Context) {
	servePage(c, services.FeedQuery{})
}

func GetHashtagPosts(c *gin.Context) {
	tag := strings.TrimPrefix(strings.TrimSpace(c.Param("tag")), "#")
	if tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag"})
		return
	}
	servePage(c, services.FeedQuery{Hashtag: tag})
}

func GetUserPosts(c *gin.Context) {
	authorID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	servePage(c, services.FeedQuery{AuthorID: authorID})
}

func servePage(c *gin.Context, q services.FeedQuery) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}
	cursor, err := services.ParseCursor(req.Cursor)
	if err != nil {
		respondError(c, err)
		return
	}
	q.ViewerID = userID
	q.Cursor = cursor
	q.Limit = services.ParseLimit(req.Limit)

	page, err := feedService.Page(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func GetPost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	post, err := postService.GetPost(c.Request.Context(), postID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ToggleLike ставит или снимает лайк.
func ToggleLike(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := likeService.Toggle(c.Request.Context(), postID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func AddComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	comment, err := postService.AddComment(c.Request.Context(), postID, userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeletePost удаляет пост; чужой пост выглядит как несуществующий.
func DeletePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := postService.DeletePost(c.Request.Context(), postID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
