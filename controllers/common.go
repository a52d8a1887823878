package controllers

import (
	"context"
	"net/http"

	"trinetra-be/config"
	"trinetra-be/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	complaintCollection *mongo.Collection
	userCollection      *mongo.Collection
)

// complaintColl resolves the complaints collection lazily so tests can stub
// it before any handler runs.
func complaintColl() *mongo.Collection {
	if complaintCollection == nil {
		complaintCollection = config.GetCollection("complaints")
	}
	return complaintCollection
}

func userColl() *mongo.Collection {
	if userCollection == nil {
		userCollection = config.GetCollection("users")
	}
	return userCollection
}

// currentActor extracts the authenticated user's ID and role from the gin
// context. Writes the error response itself and returns ok=false on failure.
func currentActor(c *gin.Context) (primitive.ObjectID, models.Role, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return primitive.NilObjectID, "", false
	}

	actorID, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, "", false
	}

	roleVal, _ := c.Get("role")
	role, ok := roleVal.(models.Role)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return primitive.NilObjectID, "", false
	}

	return actorID, role, true
}

// userSummary returns the id/name/email view of a user for embedding in
// complaint responses. Missing users degrade to id-only.
func userSummary(ctx context.Context, id primitive.ObjectID) map[string]interface{} {
	summary := map[string]interface{}{"id": id}

	var user models.User
	if err := userColl().FindOne(ctx, bson.M{"_id": id}).Decode(&user); err == nil {
		summary["name"] = user.Name
		summary["email"] = user.Email
	}

	return summary
}

// complaintResponse renders a complaint with owner and worker details joined in
func complaintResponse(ctx context.Context, complaint models.Complaint) gin.H {
	resp := gin.H{
		"id":          complaint.ID,
		"description": complaint.Description,
		"category":    complaint.Category,
		"priority":    complaint.Priority,
		"status":      complaint.Status,
		"location":    complaint.Location,
		"imageUrl":    complaint.ImageURL,
		"timeline":    complaint.Timeline,
		"feedback":    complaint.Feedback,
		"createdAt":   complaint.CreatedAt,
		"updatedAt":   complaint.UpdatedAt,
		"user":        userSummary(ctx, complaint.User),
	}

	if complaint.AssignedWorker != nil {
		resp["assignedWorker"] = userSummary(ctx, *complaint.AssignedWorker)
	}
	if complaint.ProofImageURL != "" {
		resp["proofImageUrl"] = complaint.ProofImageURL
		resp["completionImage"] = complaint.CompletionImage
	}
	if complaint.CompletedAt != nil {
		resp["completedAt"] = complaint.CompletedAt
	}

	return resp
}
