package handlers

import (
	"mime/multipart"
	"net/http"
	"petii/services"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Services wired into the handlers at startup.
type Services struct {
	Users   *services.UserService
	Follows *services.FollowService
	Posts   *services.PostService
	Feed    *services.FeedService
	Likes   *services.LikeService
	Chat    *services.ChatService
	Media   *services.MediaService
	Sockets *services.WSConnManager
}

var (
	userService   *services.UserService
	followService *services.FollowService
	postService   *services.PostService
	feedService   *services.FeedService
	likeService   *services.LikeService
	chatService   *services.ChatService
	mediaService  *services.MediaService
	wsManager     *services.WSConnManager
)

// Init sets the package-level services used by the handler funcs.
func Init(s Services) {
	userService = s.Users
	followService = s.Follows
	postService = s.Posts
	feedService = s.Feed
	likeService = s.Likes
	chatService = s.Chat
	mediaService = s.Media
	wsManager = s.Sockets
	if wsManager == nil {
		wsManager = services.GlobalWSConnManager
	}
}

// currentUserID returns the id set by the auth middleware.
func currentUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID.(int64), true
}

func optionalUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	return userID.(int64), true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// firstFile inspects an upload field and returns its first file, or nil when empty.
func firstFile(field string, files []*multipart.FileHeader, policy services.MediaPolicy, maxFiles int) (*services.MediaFile, error) {
	inspected, err := mediaService.Inspect(field, files, policy, maxFiles)
	if err != nil || len(inspected) == 0 {
		return nil, err
	}
	return inspected[0], nil
}
