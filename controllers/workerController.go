package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"trinetra-be/models"
	"trinetra-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetAssignedTasks lists the complaints assigned to the logged-in worker
func GetAssignedTasks(c *gin.Context) {
	actorID, _, ok := currentActor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := complaintColl().Find(ctx, bson.M{"assignedWorker": actorID}, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching tasks"})
		return
	}
	defer cursor.Close(ctx)

	var tasks []models.Complaint
	if err := cursor.All(ctx, &tasks); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching tasks"})
		return
	}

	response := make([]gin.H, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, complaintResponse(ctx, task))
	}

	c.JSON(http.StatusOK, response)
}

// explainStartFailure re-reads the complaint after a conditional start update
// matched nothing, to report the right error.
func explainStartFailure(c *gin.Context, ctx context.Context, complaintID, workerID primitive.ObjectID) {
	var complaint models.Complaint
	err := complaintColl().FindOne(ctx, bson.M{"_id": complaintID}).Decode(&complaint)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error starting work"})
		}
		return
	}

	if ok, reason := complaint.CanStart(workerID); !ok {
		if strings.Contains(reason, "not assigned") {
			c.JSON(http.StatusForbidden, gin.H{"error": reason})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		}
		return
	}

	// Preconditions hold now but did not at update time; a concurrent
	// transition won the race.
	c.JSON(http.StatusConflict, gin.H{"error": "Complaint was modified concurrently, retry"})
}

// StartWork transitions an Assigned complaint to In Progress. The update is
// keyed on the expected status and worker so concurrent starts cannot clobber
// each other.
func StartWork(c *gin.Context) {
	actorID, _, ok := currentActor(c)
	if !ok {
		return
	}

	var input struct {
		ComplaintID string `json:"complaintId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaintID, err := primitive.ObjectIDFromHex(input.ComplaintID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid complaint ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var updated models.Complaint
	err = complaintColl().FindOneAndUpdate(ctx,
		bson.M{
			"_id":            complaintID,
			"status":         models.Assigned,
			"assignedWorker": actorID,
		},
		bson.M{
			"$set": bson.M{"status": models.InProgress, "updatedAt": time.Now()},
			"$push": bson.M{"timeline": models.TimelineEntry{
				Status:    models.InProgress,
				UpdatedBy: actorID,
				Note:      "Work started by worker",
				Timestamp: time.Now(),
			}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			explainStartFailure(c, ctx, complaintID, actorID)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error starting work"})
		}
		return
	}

	services.PublishEvent(services.ComplaintEvent{
		ComplaintID: updated.ID.Hex(),
		Status:      string(models.InProgress),
		ActorID:     actorID.Hex(),
		Note:        "Work started by worker",
	})

	c.JSON(http.StatusOK, gin.H{
		"message":   "Status updated to In Progress. Work started successfully.",
		"complaint": complaintResponse(ctx, updated),
		"notification": gin.H{
			"type":        "status_update",
			"audience":    []string{"worker", "admin"},
			"complaintId": updated.ID,
			"status":      models.InProgress,
		},
	})
}

// explainCompleteFailure mirrors explainStartFailure for the complete path.
func explainCompleteFailure(c *gin.Context, ctx context.Context, complaintID, workerID primitive.ObjectID, proofImageURL string) {
	var complaint models.Complaint
	err := complaintColl().FindOne(ctx, bson.M{"_id": complaintID}).Decode(&complaint)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error completing task"})
		}
		return
	}

	if ok, reason := complaint.CanComplete(workerID, proofImageURL); !ok {
		if strings.Contains(reason, "not assigned") {
			c.JSON(http.StatusForbidden, gin.H{"error": reason})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		}
		return
	}

	c.JSON(http.StatusConflict, gin.H{"error": "Complaint was modified concurrently, retry"})
}

// CompleteTask transitions an In Progress complaint to Completed. A proof
// image URL is required before any write happens.
func CompleteTask(c *gin.Context) {
	actorID, _, ok := currentActor(c)
	if !ok {
		return
	}

	var input struct {
		ComplaintID   string `json:"complaintId" binding:"required"`
		ProofImageURL string `json:"proofImageUrl"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	complaintID, err := primitive.ObjectIDFromHex(input.ComplaintID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid complaint ID"})
		return
	}

	proofImageURL := strings.TrimSpace(input.ProofImageURL)
	if proofImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Completion photo is required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	var updated models.Complaint
	err = complaintColl().FindOneAndUpdate(ctx,
		bson.M{
			"_id":            complaintID,
			"status":         models.InProgress,
			"assignedWorker": actorID,
		},
		bson.M{
			"$set": bson.M{
				"status":          models.Completed,
				"proofImageUrl":   proofImageURL,
				"completionImage": proofImageURL,
				"completedAt":     now,
				"updatedAt":       now,
			},
			"$push": bson.M{"timeline": models.TimelineEntry{
				Status:    models.Completed,
				UpdatedBy: actorID,
				Note:      "Work completed by worker",
				Timestamp: now,
			}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			explainCompleteFailure(c, ctx, complaintID, actorID, proofImageURL)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error completing task"})
		}
		return
	}

	services.PublishEvent(services.ComplaintEvent{
		ComplaintID: updated.ID.Hex(),
		Status:      string(models.Completed),
		ActorID:     actorID.Hex(),
		Note:        "Work completed by worker",
	})

	c.JSON(http.StatusOK, gin.H{
		"message":   "Task completed",
		"complaint": complaintResponse(ctx, updated),
	})
}
