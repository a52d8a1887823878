package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"trinetra-be/config"
	"trinetra-be/middlewares"
	"trinetra-be/models"
	"trinetra-be/routes"
	"trinetra-be/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db := config.ConnectDB()
	if db == nil {
		log.Fatal("Failed to connect to MongoDB")
	}

	if err := models.EnsureUserEmailIndex(config.GetCollection("users")); err != nil {
		log.Printf("Failed to ensure user email index: %v", err)
	}
	if err := models.EnsureComplaintIndexes(config.GetCollection("complaints")); err != nil {
		log.Printf("Failed to ensure complaint indexes: %v", err)
	}

	// Correct any legacy documents that slipped through with wrong category
	// values. Idempotent and safe to run each start.
	fixed, err := models.FixCategories(config.GetCollection("complaints"))
	if err != nil {
		log.Printf("Error normalizing categories: %v", err)
	} else {
		log.Printf("Complaint categories normalized (%d fixed)", fixed)
	}

	// Optional collaborators: event publishing and media uploads stay
	// disabled when their backends are not configured.
	if err := services.ConnectNotifier(); err != nil {
		log.Printf("Event publishing disabled: %v", err)
	} else {
		defer services.CloseNotifier()
	}
	if err := services.ConnectUploader(); err != nil {
		log.Printf("Media uploads disabled: %v", err)
	}

	var rateLimiter gin.HandlerFunc
	if os.Getenv("REDIS_ADDRESS") != "" {
		if err := config.ConnectRedis(); err != nil {
			log.Printf("Submission rate limiting disabled: %v", err)
		} else {
			limit := 10
			if raw := os.Getenv("COMPLAINT_DAILY_LIMIT"); raw != "" {
				if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
					limit = parsed
				}
			}
			rateLimiter = middlewares.ComplaintRateLimiter(limit)
		}
	}

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = []string{origin}
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("Authorization")
	corsConfig.AddAllowMethods("PATCH")
	r.Use(cors.New(corsConfig))

	routes.AuthRoutes(r)
	routes.ComplaintRoutes(r, rateLimiter)
	routes.AdminRoutes(r)
	routes.WorkerRoutes(r)
	routes.UploadRoutes(r)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
