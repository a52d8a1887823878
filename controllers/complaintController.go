package controllers

import (
	"context"
	"encoding/base64"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"trinetra-be/models"
	"trinetra-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateComplaint handles citizen complaint submission (multipart, optional image)
func CreateComplaint(c *gin.Context) {
	actorID, role, ok := currentActor(c)
	if !ok {
		return
	}

	// Admins cannot submit complaints, only view and manage them
	if role == models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Admins are not allowed to submit complaints. They can only view and manage complaints.",
		})
		return
	}

	description := strings.TrimSpace(c.PostForm("description"))
	if description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Description is required."})
		return
	}

	priority := models.Medium
	if raw := c.PostForm("priority"); raw != "" {
		if !models.ValidPriority(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return
		}
		priority = models.Priority(raw)
	}

	// Read the optional image before any external calls so a broken upload
	// fails fast.
	var imageBytes []byte
	var imageName, imageType string
	if fileHeader, err := c.FormFile("image"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
			return
		}
		imageBytes, err = io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
			return
		}
		imageName = fileHeader.Filename
		imageType = fileHeader.Header.Get("Content-Type")
		if imageType == "" {
			imageType = "image/jpeg"
		}
	}

	// The classifier hint wins over the manually supplied category, matching
	// the submission wizard's behavior.
	finalCategory := c.PostForm("category")
	if len(imageBytes) > 0 {
		if result := services.ClassifyImage(c.Request.Context(), imageName, imageType, imageBytes); result != nil {
			finalCategory = result.Classification
		}
	}

	var category models.Category
	if finalCategory != "" {
		canon, ok := models.CanonicalCategory(finalCategory)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported category: " + finalCategory})
			return
		}
		category = canon
	}

	location := services.BuildLocation(c.Request.Context(), c.PostForm("location"))

	complaint := models.Complaint{
		ID:          primitive.NewObjectID(),
		User:        actorID,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      models.Submitted,
		Location:    location,
		Timeline:    []models.TimelineEntry{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if len(imageBytes) > 0 {
		dataURI := "data:" + imageType + ";base64," + base64.StdEncoding.EncodeToString(imageBytes)
		complaint.Image = &models.InlineImage{Data: dataURI, ContentType: imageType}

		if services.UploaderReady() {
			url, err := services.UploadImage(c.Request.Context(), "complaints", imageName, imageType, imageBytes)
			if err != nil {
				log.Printf("Complaint image upload failed: %v", err)
			} else {
				complaint.ImageURL = url
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := complaintColl().InsertOne(ctx, complaint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create complaint"})
		return
	}

	c.JSON(http.StatusCreated, complaintResponse(ctx, complaint))
}

// GetAllComplaints returns the role-scoped complaint list: admins see every
// complaint, citizens and workers only the ones they submitted.
func GetAllComplaints(c *gin.Context) {
	actorID, role, ok := currentActor(c)
	if !ok {
		return
	}

	filter := bson.M{}
	if role != models.RoleAdmin {
		filter["user"] = actorID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := complaintColl().Find(ctx, filter, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve complaints"})
		return
	}
	defer cursor.Close(ctx)

	var complaints []models.Complaint
	if err := cursor.All(ctx, &complaints); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode complaints"})
		return
	}

	response := make([]gin.H, 0, len(complaints))
	for _, complaint := range complaints {
		response = append(response, complaintResponse(ctx, complaint))
	}

	c.JSON(http.StatusOK, response)
}

// UpdateComplaintStatus is the admin-only generic status transition. Moving
// to Assigned requires a valid worker and records the assignment.
func UpdateComplaintStatus(c *gin.Context) {
	actorID, _, ok := currentActor(c)
	if !ok {
		return
	}

	complaintID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid complaint ID"})
		return
	}

	var input struct {
		Status   string `json:"status" binding:"required"`
		WorkerID string `json:"workerId,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.ComplaintStatus(input.Status)
	switch status {
	case models.Submitted, models.Assigned, models.InProgress, models.Completed, models.Approved, models.Rejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}

	if status == models.Assigned {
		if input.WorkerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "workerId is required when status is Assigned."})
			return
		}

		workerID, err := primitive.ObjectIDFromHex(input.WorkerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid workerId."})
			return
		}

		var worker models.User
		if err := userColl().FindOne(ctx, bson.M{"_id": workerID}).Decode(&worker); err != nil || worker.Role != models.RoleWorker {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid workerId."})
			return
		}

		update["$set"].(bson.M)["assignedWorker"] = workerID
		update["$push"] = bson.M{"timeline": models.TimelineEntry{
			Status:    models.Assigned,
			UpdatedBy: actorID,
			Note:      "Complaint assigned to worker",
			Timestamp: time.Now(),
		}}
	}

	var updated models.Complaint
	err = complaintColl().FindOneAndUpdate(ctx,
		bson.M{"_id": complaintID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update complaint"})
		}
		return
	}

	services.PublishEvent(services.ComplaintEvent{
		ComplaintID: updated.ID.Hex(),
		Status:      string(updated.Status),
		ActorID:     actorID.Hex(),
	})

	c.JSON(http.StatusOK, complaintResponse(ctx, updated))
}

// SubmitComplaintFeedback records the owner's satisfaction rating once the
// complaint is Completed or Approved. Re-submission overwrites.
func SubmitComplaintFeedback(c *gin.Context) {
	actorID, _, ok := currentActor(c)
	if !ok {
		return
	}

	complaintID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid complaint ID"})
		return
	}

	var input struct {
		Rating  string `json:"rating" binding:"required"`
		Comment string `json:"comment,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating, ok := models.NormalizeFeedbackRating(input.Rating)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback rating. Use Good, Average, Poor, or Worst."})
		return
	}

	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment must be 500 characters or fewer."})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var complaint models.Complaint
	err = complaintColl().FindOne(ctx, bson.M{"_id": complaintID}).Decode(&complaint)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve complaint"})
		}
		return
	}

	if complaint.User != actorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the complaint owner can submit feedback."})
		return
	}

	if !models.FeedbackAllowed(complaint.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Feedback can be submitted only after completion."})
		return
	}

	feedback := models.Feedback{
		Rating:      rating,
		Comment:     comment,
		SubmittedAt: time.Now(),
	}

	// The filter re-verifies owner and status so a concurrent transition out
	// of a feedback-eligible state loses cleanly. The pipeline form stamps
	// the timeline entry with the status the filter matched, not the one
	// read above, so a Completed->Approved race cannot mislabel the entry.
	now := time.Now()
	entry := bson.D{
		{Key: "status", Value: "$status"},
		{Key: "updatedBy", Value: actorID},
		{Key: "note", Value: "Citizen feedback recorded (" + string(rating) + ")"},
		{Key: "timestamp", Value: now},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "feedback", Value: bson.D{{Key: "$literal", Value: feedback}}},
			{Key: "updatedAt", Value: now},
			{Key: "timeline", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$timeline", bson.A{}}}},
				bson.A{entry},
			}}}},
		}}},
	}

	var updated models.Complaint
	err = complaintColl().FindOneAndUpdate(ctx,
		bson.M{
			"_id":    complaintID,
			"user":   actorID,
			"status": bson.M{"$in": []models.ComplaintStatus{models.Completed, models.Approved}},
		},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Feedback can be submitted only after completion."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save feedback"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Feedback submitted successfully.",
		"complaint": complaintResponse(ctx, updated),
	})
}
