package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trinetra-be/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// useMockCollections points both package collections at the mock deployment
// for the duration of one mt.Run case.
func useMockCollections(mt *mtest.T) {
	complaintCollection = mt.Coll
	userCollection = mt.Coll
	mt.Cleanup(func() {
		complaintCollection = nil
		userCollection = nil
	})
}

func mockNamespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

// performAs runs a handler behind a stub auth middleware that injects the
// given actor, mirroring what AuthMiddleware sets on real requests.
func performAs(handler gin.HandlerFunc, actorID primitive.ObjectID, role models.Role, method, route, target, body string) *httptest.ResponseRecorder {
	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		c.Set("user_id", actorID.Hex())
		c.Set("role", role)
	}, handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t require.TestingT, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// drainStartedEvents pops every captured command-started event.
func drainStartedEvents(mt *mtest.T) []*event.CommandStartedEvent {
	var events []*event.CommandStartedEvent
	for {
		ev := mt.GetStartedEvent()
		if ev == nil {
			return events
		}
		events = append(events, ev)
	}
}

// incAmount digs the $inc value for the credits field out of an update
// command, returning ok=false when the command carries no such increment.
func creditsIncAmount(ev *event.CommandStartedEvent) (int64, bool) {
	if ev.CommandName != "update" {
		return 0, false
	}
	updates, err := ev.Command.LookupErr("updates")
	if err != nil {
		return 0, false
	}
	u, err := updates.Array().Index(0).Value().Document().LookupErr("u")
	if err != nil {
		return 0, false
	}
	inc, err := u.Document().LookupErr("$inc")
	if err != nil {
		return 0, false
	}
	credits, err := inc.Document().LookupErr("credits")
	if err != nil {
		return 0, false
	}
	return credits.AsInt64(), true
}

func TestApproveComplaint(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	admin := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()
	body := `{"complaintId": "` + complaintID.Hex() + `"}`

	mt.Run("awards exactly ten credits on first approval", func(mt *mtest.T) {
		useMockCollections(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: complaintID},
				{Key: "user", Value: owner},
				{Key: "status", Value: models.Completed},
				{Key: "timeline", Value: bson.A{}},
			}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		w := performAs(ApproveComplaint, admin, models.RoleAdmin, http.MethodPost, "/approve", "/approve", body)

		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, decodeBody(mt, w)["message"], "credits added")

		events := drainStartedEvents(mt)
		require.Len(mt, events, 3)
		assert.Equal(mt, "findAndModify", events[0].CommandName)

		amount, ok := creditsIncAmount(events[1])
		require.True(mt, ok, "expected a credits increment command")
		assert.Equal(mt, int64(models.ApprovalCredits), amount)

		// The third write stamps the award marker on the complaint.
		marker := events[2].Command.Lookup("updates").Array().Index(0).Value().Document().
			Lookup("u").Document().Lookup("$set").Document()
		_, err := marker.LookupErr("creditAwardedAt")
		assert.NoError(mt, err)
	})

	mt.Run("replay reports already approved without a second increment", func(mt *mtest.T) {
		useMockCollections(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: complaintID},
				{Key: "user", Value: owner},
				{Key: "status", Value: models.Approved},
				{Key: "creditAwardedAt", Value: time.Now()},
			}),
		)

		w := performAs(ApproveComplaint, admin, models.RoleAdmin, http.MethodPost, "/approve", "/approve", body)

		require.Equal(mt, http.StatusOK, w.Code)
		assert.Equal(mt, "Complaint already approved", decodeBody(mt, w)["message"])

		for _, ev := range drainStartedEvents(mt) {
			if _, ok := creditsIncAmount(ev); ok {
				mt.Errorf("replay must not increment credits again, got %s", ev.Command)
			}
		}
	})

	mt.Run("replay retries a credit award that never landed", func(mt *mtest.T) {
		useMockCollections(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: complaintID},
				{Key: "user", Value: owner},
				{Key: "status", Value: models.Approved},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		w := performAs(ApproveComplaint, admin, models.RoleAdmin, http.MethodPost, "/approve", "/approve", body)

		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, decodeBody(mt, w)["message"], "credits added")

		awarded := false
		for _, ev := range drainStartedEvents(mt) {
			if amount, ok := creditsIncAmount(ev); ok {
				awarded = true
				assert.Equal(mt, int64(models.ApprovalCredits), amount)
			}
		}
		assert.True(mt, awarded, "expected the missed credit award to be retried")
	})

	mt.Run("surfaces a failed credit award instead of reporting success", func(mt *mtest.T) {
		useMockCollections(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: complaintID},
				{Key: "user", Value: owner},
				{Key: "status", Value: models.Completed},
			}}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    1,
				Name:    "InternalError",
				Message: "credit write failed",
			}),
		)

		w := performAs(ApproveComplaint, admin, models.RoleAdmin, http.MethodPost, "/approve", "/approve", body)

		require.Equal(mt, http.StatusInternalServerError, w.Code)
		assert.Contains(mt, decodeBody(mt, w)["error"], "retry")
	})
}

func TestAssignWorkerCountsOnlyMatchedComplaints(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing ids are excluded from the count", func(mt *mtest.T) {
		useMockCollections(mt)

		admin := primitive.NewObjectID()
		worker := primitive.NewObjectID()
		first := primitive.NewObjectID()
		second := primitive.NewObjectID()
		missing := primitive.NewObjectID()

		mt.AddMockResponses(
			// Worker lookup.
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: worker},
				{Key: "name", Value: "Field Worker"},
				{Key: "email", Value: "worker@example.com"},
				{Key: "role", Value: models.RoleWorker},
			}),
			// Only two of the three requested complaints exist.
			mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: first},
					{Key: "status", Value: models.Submitted},
					{Key: "category", Value: models.Drainage},
				},
				bson.D{
					{Key: "_id", Value: second},
					{Key: "status", Value: models.Submitted},
					{Key: "category", Value: models.Trash},
				},
			),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		body := `{"complaintIds": ["` + first.Hex() + `", "` + second.Hex() + `", "` + missing.Hex() + `"], "workerId": "` + worker.Hex() + `"}`
		w := performAs(AssignWorker, admin, models.RoleAdmin, http.MethodPost, "/assign", "/assign", body)

		require.Equal(mt, http.StatusOK, w.Code)
		resp := decodeBody(mt, w)
		assert.Equal(mt, float64(2), resp["assignedCount"])
		assert.Equal(mt, "Worker assigned to complaints successfully", resp["message"])
	})
}
