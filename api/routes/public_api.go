package routes

import (
	"petii/api/handlers"
	"petii/api/middleware"
	"petii/services"

	"github.com/gin-gonic/gin"
)

func PublicApi(router *gin.Engine, tokens *services.TokenIssuer) *gin.RouterGroup {
	auth := middleware.AuthMiddleware(tokens)

	api := router.Group("/api/")
	{
		api.POST("auth/register", handlers.Register)
		api.POST("auth/login", handlers.Login)
		api.GET("auth/me", auth, handlers.Me)
		api.PUT("auth/profile", auth, handlers.UpdateProfile)
		api.POST("auth/follow/:userId", auth, handlers.ToggleFollow)

		// Посты
		api.POST("posts", auth, handlers.CreatePost)
		api.GET("posts/feed", auth, handlers.GetFeed)
		api.GET("posts/hashtag/:tag", auth, handlers.GetHashtagPosts)
		api.GET("posts/by-user/:userId", auth, handlers.GetUserPosts)
		api.GET("posts/:id", auth, handlers.GetPost)
		api.POST("posts/:id/like", auth, handlers.ToggleLike)
		api.POST("posts/:id/comment", auth, handlers.AddComment)
		api.DELETE("posts/:id", auth, handlers.DeletePost)

		// Пользователи
		api.GET("users/search", auth, handlers.SearchUsers)
		api.GET("users/:id", auth, handlers.GetUser)
		api.POST("users/:id/follow", auth, handlers.FollowUser)
		api.POST("users/:id/unfollow", auth, handlers.UnfollowUser)
	}
	return api
}
