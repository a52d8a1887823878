package controllers

import (
	"net/http"
	"testing"
	"time"

	"trinetra-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestCompleteTask(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	worker := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()
	body := `{"complaintId": "` + complaintID.Hex() + `", "proofImageUrl": "https://cdn.example.com/proof.jpg"}`

	mt.Run("records proof, completion time and a single timeline entry", func(mt *mtest.T) {
		useMockCollections(mt)

		now := time.Now()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: complaintID},
				{Key: "user", Value: owner},
				{Key: "assignedWorker", Value: worker},
				{Key: "status", Value: models.Completed},
				{Key: "proofImageUrl", Value: "https://cdn.example.com/proof.jpg"},
				{Key: "completionImage", Value: "https://cdn.example.com/proof.jpg"},
				{Key: "completedAt", Value: now},
				{Key: "timeline", Value: bson.A{bson.D{
					{Key: "status", Value: models.Completed},
					{Key: "updatedBy", Value: worker},
					{Key: "note", Value: "Work completed by worker"},
					{Key: "timestamp", Value: now},
				}}},
			}}),
			// Owner and worker summaries joined into the response.
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: owner},
				{Key: "name", Value: "Citizen"},
				{Key: "email", Value: "citizen@example.com"},
			}),
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: worker},
				{Key: "name", Value: "Field Worker"},
				{Key: "email", Value: "worker@example.com"},
			}),
		)

		w := performAs(CompleteTask, worker, models.RoleWorker, http.MethodPost, "/complete", "/complete", body)

		require.Equal(mt, http.StatusOK, w.Code)
		assert.Equal(mt, "Task completed", decodeBody(mt, w)["message"])

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		require.Equal(mt, "findAndModify", ev.CommandName)

		update := ev.Command.Lookup("update").Document()
		set := update.Lookup("$set").Document()
		assert.Equal(mt, string(models.Completed), set.Lookup("status").StringValue())
		assert.Equal(mt, "https://cdn.example.com/proof.jpg", set.Lookup("proofImageUrl").StringValue())
		assert.Equal(mt, "https://cdn.example.com/proof.jpg", set.Lookup("completionImage").StringValue())
		_, err := set.LookupErr("completedAt")
		assert.NoError(mt, err)

		// A plain document push appends exactly one entry.
		entry := update.Lookup("$push").Document().Lookup("timeline").Document()
		assert.Equal(mt, "Work completed by worker", entry.Lookup("note").StringValue())
	})

	mt.Run("rejects completion when the task was never started", func(mt *mtest.T) {
		useMockCollections(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: complaintID},
				{Key: "user", Value: owner},
				{Key: "assignedWorker", Value: worker},
				{Key: "status", Value: models.Assigned},
			}),
		)

		w := performAs(CompleteTask, worker, models.RoleWorker, http.MethodPost, "/complete", "/complete", body)

		require.Equal(mt, http.StatusBadRequest, w.Code)
		assert.Equal(mt, "Only in-progress tasks can be completed", decodeBody(mt, w)["error"])
	})

	mt.Run("rejects completion by a worker the task is not assigned to", func(mt *mtest.T) {
		useMockCollections(mt)

		other := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: complaintID},
				{Key: "user", Value: owner},
				{Key: "assignedWorker", Value: other},
				{Key: "status", Value: models.InProgress},
			}),
		)

		w := performAs(CompleteTask, worker, models.RoleWorker, http.MethodPost, "/complete", "/complete", body)

		require.Equal(mt, http.StatusForbidden, w.Code)
		assert.Equal(mt, "This task is not assigned to you", decodeBody(mt, w)["error"])
	})
}
