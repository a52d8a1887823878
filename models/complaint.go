package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category enum
type Category string

const (
	Drainage    Category = "Drainage"
	RoadDamage  Category = "Road_Damage"
	StreetLight Category = "Street_Light"
	Trash       Category = "Trash"
)

// ComplaintStatus enum
type ComplaintStatus string

const (
	Submitted  ComplaintStatus = "Submitted"
	Assigned   ComplaintStatus = "Assigned"
	InProgress ComplaintStatus = "In Progress"
	Completed  ComplaintStatus = "Completed"
	Approved   ComplaintStatus = "Approved"
	Rejected   ComplaintStatus = "Rejected"
)

// Priority enum
type Priority string

const (
	Low    Priority = "Low"
	Medium Priority = "Medium"
	High   Priority = "High"
)

// FeedbackRating enum
type FeedbackRating string

const (
	Good    FeedbackRating = "Good"
	Average FeedbackRating = "Average"
	Poor    FeedbackRating = "Poor"
	Worst   FeedbackRating = "Worst"
)

// ApprovalCredits is awarded to the complaint owner when an admin approves.
const ApprovalCredits = 10

// categoryMap translates lowercase trimmed synonyms to canonical categories.
// Never mutated after init.
var categoryMap = map[string]Category{
	"drainage":     Drainage,
	"road_damage":  RoadDamage,
	"road damage":  RoadDamage,
	"street_light": StreetLight,
	"street light": StreetLight,
	"trash":        Trash,
}

var feedbackRatings = []FeedbackRating{Good, Average, Poor, Worst}

// CanonicalCategory maps a free-form category label to its canonical value.
// The second return is false when the input matches no known synonym; an
// empty input also returns false. Canonical values map to themselves.
func CanonicalCategory(raw string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", false
	}
	canon, ok := categoryMap[normalized]
	return canon, ok
}

// CanonicalCategories returns every canonical category label.
func CanonicalCategories() []Category {
	return []Category{Drainage, RoadDamage, StreetLight, Trash}
}

// NormalizeFeedbackRating matches a rating case-insensitively against the
// four allowed values.
func NormalizeFeedbackRating(raw string) (FeedbackRating, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, rating := range feedbackRatings {
		if strings.ToLower(string(rating)) == normalized {
			return rating, true
		}
	}
	return "", false
}

// ValidPriority reports whether p is one of the allowed priority levels.
func ValidPriority(p string) bool {
	switch Priority(p) {
	case Low, Medium, High:
		return true
	}
	return false
}

// FeedbackAllowed reports whether feedback may be recorded at this status.
func FeedbackAllowed(status ComplaintStatus) bool {
	return status == Completed || status == Approved
}

// Location holds the structured complaint location. Lat/Lng stay nil when
// geocoding fails; an address-only location is valid.
type Location struct {
	Address string   `bson:"address,omitempty" json:"address,omitempty"`
	Lat     *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng     *float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// InlineImage stores the submitted photo as a data URL alongside the
// uploaded copy.
type InlineImage struct {
	Data        string `bson:"data,omitempty" json:"data,omitempty"`
	ContentType string `bson:"contentType,omitempty" json:"contentType,omitempty"`
}

// TimelineEntry is one append-only audit record of a status change.
type TimelineEntry struct {
	Status    ComplaintStatus    `bson:"status" json:"status"`
	UpdatedBy primitive.ObjectID `bson:"updatedBy" json:"updatedBy"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Feedback is the citizen's post-completion rating. Re-submission overwrites.
type Feedback struct {
	Rating      FeedbackRating `bson:"rating" json:"rating"`
	Comment     string         `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt time.Time      `bson:"submittedAt" json:"submittedAt"`
}

// Complaint represents a citizen-reported civic issue with lifecycle status
type Complaint struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID  `bson:"user" json:"user"`
	Description     string              `bson:"description" json:"description"`
	Category        Category            `bson:"category,omitempty" json:"category,omitempty"`
	Priority        Priority            `bson:"priority" json:"priority"`
	Status          ComplaintStatus     `bson:"status" json:"status"`
	AssignedWorker  *primitive.ObjectID `bson:"assignedWorker,omitempty" json:"assignedWorker,omitempty"`
	Location        *Location           `bson:"location,omitempty" json:"location,omitempty"`
	Image           *InlineImage        `bson:"image,omitempty" json:"image,omitempty"`
	ImageURL        string              `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	ProofImageURL   string              `bson:"proofImageUrl,omitempty" json:"proofImageUrl,omitempty"`
	CompletionImage string              `bson:"completionImage,omitempty" json:"completionImage,omitempty"`
	CompletedAt     *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreditAwardedAt *time.Time          `bson:"creditAwardedAt,omitempty" json:"creditAwardedAt,omitempty"`
	Timeline        []TimelineEntry     `bson:"timeline" json:"timeline"`
	Feedback        *Feedback           `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CanStart reports whether the given worker may move the complaint to
// In Progress. The returned string names the failing check for the caller's
// error message.
func (c *Complaint) CanStart(workerID primitive.ObjectID) (bool, string) {
	if c.AssignedWorker == nil || *c.AssignedWorker != workerID {
		return false, "This task is not assigned to you"
	}
	if c.Status != Assigned {
		return false, "Only assigned tasks can be started"
	}
	return true, ""
}

// CanComplete reports whether the given worker may complete the complaint.
func (c *Complaint) CanComplete(workerID primitive.ObjectID, proofImageURL string) (bool, string) {
	if c.AssignedWorker == nil || *c.AssignedWorker != workerID {
		return false, "This task is not assigned to you"
	}
	if c.Status != InProgress {
		return false, "Only in-progress tasks can be completed"
	}
	if strings.TrimSpace(proofImageURL) == "" {
		return false, "Completion photo is required"
	}
	return true, ""
}
