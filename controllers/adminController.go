package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"trinetra-be/models"
	"trinetra-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AssignWorker assigns a worker to one or many complaints. Each complaint is
// updated independently; ids that match nothing are excluded from the
// reported count rather than failing the request.
func AssignWorker(c *gin.Context) {
	actorID, _, ok := currentActor(c)
	if !ok {
		return
	}

	var input struct {
		ComplaintID  string   `json:"complaintId,omitempty"`
		ComplaintIDs []string `json:"complaintIds,omitempty"`
		WorkerID     string   `json:"workerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workerID, err := primitive.ObjectIDFromHex(input.WorkerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var worker models.User
	if err := userColl().FindOne(ctx, bson.M{"_id": workerID}).Decode(&worker); err != nil || worker.Role != models.RoleWorker {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker"})
		return
	}

	rawIDs := input.ComplaintIDs
	if len(rawIDs) == 0 && input.ComplaintID != "" {
		rawIDs = []string{input.ComplaintID}
	}

	targetIDs := make([]primitive.ObjectID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			targetIDs = append(targetIDs, id)
		}
	}

	if len(targetIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "complaintId or complaintIds is required"})
		return
	}

	cursor, err := complaintColl().Find(ctx, bson.M{"_id": bson.M{"$in": targetIDs}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve complaints"})
		return
	}

	var complaints []models.Complaint
	if err := cursor.All(ctx, &complaints); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode complaints"})
		return
	}

	if len(complaints) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No complaints found"})
		return
	}

	assigned := 0
	for _, complaint := range complaints {
		set := bson.M{
			"assignedWorker": workerID,
			"status":         models.Assigned,
			"updatedAt":      time.Now(),
		}

		// Re-canonicalize stale categories on the way through, the same
		// repair FixCategories does at startup.
		if canon, ok := models.CanonicalCategory(string(complaint.Category)); ok && canon != complaint.Category {
			set["category"] = canon
		}

		result, err := complaintColl().UpdateOne(ctx,
			bson.M{"_id": complaint.ID},
			bson.M{
				"$set": set,
				"$push": bson.M{"timeline": models.TimelineEntry{
					Status:    models.Assigned,
					UpdatedBy: actorID,
					Note:      "Complaint assigned to worker",
					Timestamp: time.Now(),
				}},
			},
		)
		if err != nil {
			log.Printf("Assign failed for complaint %s: %v", complaint.ID.Hex(), err)
			continue
		}
		if result.MatchedCount == 0 {
			continue
		}

		assigned++
		services.PublishEvent(services.ComplaintEvent{
			ComplaintID: complaint.ID.Hex(),
			Status:      string(models.Assigned),
			ActorID:     actorID.Hex(),
			Note:        "Complaint assigned to worker",
		})
	}

	if len(rawIDs) == 1 {
		c.JSON(http.StatusOK, gin.H{"message": "Worker assigned successfully", "assignedCount": assigned})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Worker assigned to complaints successfully",
		"assignedCount": assigned,
	})
}

// GetWorkers lists every worker-role user for assignment selection
func GetWorkers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().SetProjection(bson.M{"name": 1, "email": 1})
	cursor, err := userColl().Find(ctx, bson.M{"role": models.RoleWorker}, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve workers"})
		return
	}

	var workers []struct {
		ID    primitive.ObjectID `bson:"_id" json:"id"`
		Name  string             `bson:"name" json:"name"`
		Email string             `bson:"email" json:"email"`
	}
	if err := cursor.All(ctx, &workers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode workers"})
		return
	}

	c.JSON(http.StatusOK, workers)
}

// ApproveComplaint marks a complaint Approved and rewards the owner. The
// update is keyed on "not already Approved" so a repeated approval cannot
// pay out credits twice.
func ApproveComplaint(c *gin.Context) {
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

	var complaint models.Complaint
	err = complaintColl().FindOneAndUpdate(ctx,
		bson.M{"_id": complaintID, "status": bson.M{"$ne": models.Approved}},
		bson.M{"$set": bson.M{"status": models.Approved, "updatedAt": time.Now()}},
	).Decode(&complaint)
	freshlyApproved := err == nil
	if err != nil {
		if err != mongo.ErrNoDocuments {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve complaint"})
			return
		}

		// Either missing or already approved; approval is idempotent.
		findErr := complaintColl().FindOne(ctx, bson.M{"_id": complaintID}).Decode(&complaint)
		if findErr == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
			return
		}
		if findErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve complaint"})
			return
		}
		if complaint.CreditAwardedAt != nil {
			c.JSON(http.StatusOK, gin.H{"message": "Complaint already approved"})
			return
		}
		// Approved earlier but the credit never landed; retry the award.
	}

	// Reward the citizen whose complaint was resolved. The creditAwardedAt
	// marker keeps the award single-shot: a failed $inc leaves the marker
	// unset, so re-approving retries it without double-paying.
	_, err = userColl().UpdateOne(ctx,
		bson.M{"_id": complaint.User},
		bson.M{"$inc": bson.M{"credits": models.ApprovalCredits}},
	)
	if err != nil {
		log.Printf("Failed to add credits for user %s: %v", complaint.User.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Complaint approved but credit award failed; approve again to retry"})
		return
	}
	if _, err := complaintColl().UpdateOne(ctx,
		bson.M{"_id": complaintID, "creditAwardedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"creditAwardedAt": time.Now()}},
	); err != nil {
		log.Printf("Failed to record credit award for complaint %s: %v", complaintID.Hex(), err)
	}

	if freshlyApproved {
		services.PublishEvent(services.ComplaintEvent{
			ComplaintID: complaintID.Hex(),
			Status:      string(models.Approved),
			ActorID:     actorID.Hex(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Complaint approved & credits added"})
}

// RejectComplaint marks a complaint Rejected. Reachable from any state at
// admin discretion; the timeline records the rejection.
func RejectComplaint(c *gin.Context) {
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

	result, err := complaintColl().UpdateOne(ctx,
		bson.M{"_id": complaintID},
		bson.M{
			"$set": bson.M{"status": models.Rejected, "updatedAt": time.Now()},
			"$push": bson.M{"timeline": models.TimelineEntry{
				Status:    models.Rejected,
				UpdatedBy: actorID,
				Note:      "Complaint rejected by admin",
				Timestamp: time.Now(),
			}},
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject complaint"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
		return
	}

	services.PublishEvent(services.ComplaintEvent{
		ComplaintID: complaintID.Hex(),
		Status:      string(models.Rejected),
		ActorID:     actorID.Hex(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Complaint rejected"})
}
