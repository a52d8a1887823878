package routes

import (
	"trinetra-be/controllers"
	"trinetra-be/middlewares"
	"trinetra-be/models"

	"github.com/gin-gonic/gin"
)

// AdminRoutes sets up the admin triage routes
func AdminRoutes(r *gin.Engine) {
	admin := r.Group("/api/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.AuthorizeRoles(models.RoleAdmin))
	{
		admin.GET("/workers", controllers.GetWorkers)
		admin.POST("/assign", controllers.AssignWorker)
		admin.POST("/approve", controllers.ApproveComplaint)
		admin.POST("/reject", controllers.RejectComplaint)
	}
}
