package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SearchUsers ищет пользователей по части имени.
func SearchUsers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	users, err := userService.Search(c.Request.Context(), userID, c.Query("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func GetUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}
	profile, err := userService.GetProfile(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	if targetID != userID {
		following, err := followService.IsFollowing(c.Request.Context(), userID, targetID)
		if err != nil {
			respondError(c, err)
			return
		}
		profile.IsFollowing = &following
	}
	c.JSON(http.StatusOK, profile)
}

func FollowUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := followService.Follow(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func UnfollowUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := followService.Unfollow(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
