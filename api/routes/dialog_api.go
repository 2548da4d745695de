package routes

import (
	"petii/api/handlers"
	"petii/api/middleware"
	"petii/services"

	"github.com/gin-gonic/gin"
)

func DialogApi(router *gin.Engine, tokens *services.TokenIssuer) *gin.RouterGroup {
	optional := middleware.OptionalAuthMiddleware(tokens)

	dialogEndpoints := router.Group("/api/messages/")
	{
		dialogEndpoints.GET(":user1/:user2", handlers.ListDialogHandler)
		dialogEndpoints.POST("upload", optional, handlers.UploadMessageHandler)
		dialogEndpoints.POST("upload-chat-media", middleware.AuthMiddleware(tokens), handlers.UploadChatMediaHandler)
	}
	router.GET("/ws", middleware.WSAuthMiddleware(tokens), handlers.ChatSocket)
	return dialogEndpoints
}
