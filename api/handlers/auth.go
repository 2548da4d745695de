package handlers

import (
	"mime/multipart"
	"net/http"
	"petii/models"
	"petii/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username       string                  `form:"username" binding:"required,min=3,max=60"`
	Email          string                  `form:"email" binding:"required,email,max=255"`
	Password       string                  `form:"password" binding:"required,min=6,max=128"`
	Petname        string                  `form:"petname" binding:"max=255"`
	PetNames       []string                `form:"petNames"`
	ProfilePicture []*multipart.FileHeader `form:"profilePicture"`
	Pets           []*multipart.FileHeader `form:"pets"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ProfileUpdateRequest struct {
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Username *string `json:"username" binding:"omitempty,min=3,max=60"`
}

// Register - multipart регистрация с аватаром и фото питомцев.
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.PetNames) == 0 {
		req.PetNames = c.PostFormArray("petNames[]")
	}

	avatar, err := firstFile("profilePicture", req.ProfilePicture, mediaService.Images, 1)
	if err != nil {
		respondError(c, err)
		return
	}
	pets, err := mediaService.Inspect("pets", req.Pets, mediaService.Images, models.MaxPets)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := userService.Register(c.Request.Context(), services.RegisterInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		Petname:        req.Petname,
		ProfilePicture: avatar,
		Pets:           pets,
		PetNames:       req.PetNames,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": res.Token, "user": res.User})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Me returns the authenticated user's profile with follow counts.
func Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	profile, err := userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	profile, err := userService.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		Bio:      req.Bio,
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ToggleFollow подписка/отписка одним вызовом.
func ToggleFollow(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	res, err := followService.Toggle(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
