package routes

import (
	"trinetra-be/controllers"
	"trinetra-be/middlewares"
	"trinetra-be/models"

	"github.com/gin-gonic/gin"
)

// ComplaintRoutes sets up the citizen-facing complaint routes.
// rateLimiter may be nil when Redis is not configured.
func ComplaintRoutes(r *gin.Engine, rateLimiter gin.HandlerFunc) {
	api := r.Group("/api")
	{
		createHandlers := []gin.HandlerFunc{middlewares.AuthMiddleware()}
		if rateLimiter != nil {
			createHandlers = append(createHandlers, rateLimiter)
		}
		createHandlers = append(createHandlers, controllers.CreateComplaint)

		api.POST("/complaints", createHandlers...)
		api.GET("/complaints", middlewares.AuthMiddleware(), controllers.GetAllComplaints)
		api.PATCH("/complaints/:id/status",
			middlewares.AuthMiddleware(),
			middlewares.AuthorizeRoles(models.RoleAdmin),
			controllers.UpdateComplaintStatus)
		api.POST("/complaints/:id/feedback", middlewares.AuthMiddleware(), controllers.SubmitComplaintFeedback)
	}
}
