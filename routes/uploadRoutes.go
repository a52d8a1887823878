package routes

import (
	"trinetra-be/controllers"
	"trinetra-be/middlewares"

	"github.com/gin-gonic/gin"
)

// UploadRoutes sets up the media upload route
func UploadRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/upload", middlewares.AuthMiddleware(), controllers.UploadImage)
	}
}
