package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// VisitStatus represents the scheduling state of a property showing.
type VisitStatus string

const (
	VisitPending   VisitStatus = "pending"
	VisitConfirmed VisitStatus = "confirmed"
	VisitDone      VisitStatus = "done"
	VisitCancelled VisitStatus = "cancelled"
)

// ParseVisitStatus converts a string into a VisitStatus, rejecting unknown
// literals before they reach the store.
func ParseVisitStatus(s string) (VisitStatus, error) {
	switch VisitStatus(s) {
	case VisitPending, VisitConfirmed, VisitDone, VisitCancelled:
		return VisitStatus(s), nil
	default:
		return "", eris.Errorf("unknown visit status: %q (valid: pending, confirmed, done, cancelled)", s)
	}
}

// Visit represents a scheduled or completed property showing. PropertyID,
// Name, and Phone are always present at creation.
type Visit struct {
	ID            string      `json:"id"`
	PropertyID    string      `json:"property_id"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Email         string      `json:"email"`
	PreferredDate string      `json:"preferred_date"`
	Message       string      `json:"message"`
	Status        VisitStatus `json:"status"`
	AgentNotes    string      `json:"agent_notes"`
	InterestLevel *int        `json:"interest_level"`
	FeedbackTags  []string    `json:"feedback_tags"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// VisitPatch holds a partial operator update. Nil fields are left untouched
// so a patch that only carries agent_notes never clobbers the status.
type VisitPatch struct {
	Status        *VisitStatus `json:"status,omitempty"`
	AgentNotes    *string      `json:"agent_notes,omitempty"`
	InterestLevel *int         `json:"interest_level,omitempty"`
	FeedbackTags  []string     `json:"feedback_tags,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p VisitPatch) IsEmpty() bool {
	return p.Status == nil && p.AgentNotes == nil && p.InterestLevel == nil && p.FeedbackTags == nil
}

// VisitFilter specifies criteria for listing visits.
type VisitFilter struct {
	Status     VisitStatus `json:"status,omitempty"`
	PropertyID string      `json:"property_id,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}
