package routes

import (
	"trinetra-be/controllers"
	"trinetra-be/middlewares"
	"trinetra-be/models"

	"github.com/gin-gonic/gin"
)

// WorkerRoutes sets up the worker task routes
func WorkerRoutes(r *gin.Engine) {
	worker := r.Group("/api/worker")
	worker.Use(middlewares.AuthMiddleware(), middlewares.AuthorizeRoles(models.RoleWorker))
	{
		worker.GET("/tasks", controllers.GetAssignedTasks)
		worker.POST("/start", controllers.StartWork)
		worker.POST("/complete", controllers.CompleteTask)
	}
}
