package entity

import (
	"fmt"
	"time"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewInReview  ReviewStatus = "in_review"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewDiscarded ReviewStatus = "discarded"
	ReviewArchived  ReviewStatus = "archived"
)

const (
	// Items older than this are flagged urgent in the queue view.
	UrgentAfter = 24 * time.Hour
	// Items still non-terminal after this are archived by the sweeper.
	ArchiveAfter = 7 * 24 * time.Hour
)

func (s ReviewStatus) Terminal() bool {
	switch s {
	case ReviewConfirmed, ReviewDiscarded, ReviewArchived:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows moving to the given
// status. Terminal states absorb; archived is reachable from any non-terminal
// state (sweeper only).
func (s ReviewStatus) CanTransition(to ReviewStatus) bool {
	if s.Terminal() {
		return false
	}
	switch to {
	case ReviewInReview:
		return s == ReviewPending
	case ReviewConfirmed, ReviewDiscarded:
		return s == ReviewInReview
	case ReviewArchived:
		return true
	}
	return false
}

type ReviewItem struct {
	ID                string        `json:"id"`
	RecordingID       string        `json:"recording_id"`
	UserID            string        `json:"user_id"`
	Context           CareContext   `json:"context"`
	Transcript        string        `json:"transcript"`
	TranscriptLang    string        `json:"transcript_lang"`
	ExtractedData     ExtractedData `json:"extracted_data"`
	OverallConfidence float64       `json:"overall_confidence"`
	Status            ReviewStatus  `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	ReviewedAt        *time.Time    `json:"reviewed_at,omitempty"`
}

// Urgent is derived, never stored: a non-terminal item older than 24 hours.
func (r ReviewItem) Urgent(now time.Time) bool {
	if r.Status.Terminal() {
		return false
	}
	return now.Sub(r.CreatedAt) > UrgentAfter
}

func (r ReviewItem) ArchiveDue(now time.Time) bool {
	if r.Status.Terminal() {
		return false
	}
	return now.Sub(r.CreatedAt) > ArchiveAfter
}

func (r ReviewItem) Validate() error {
	if r.ID == "" || r.RecordingID == "" || r.UserID == "" {
		return fmt.Errorf("review item missing identifiers")
	}
	if r.OverallConfidence < 0 || r.OverallConfidence > 1 {
		return fmt.Errorf("overall confidence %.3f outside [0,1]", r.OverallConfidence)
	}
	for _, c := range r.ExtractedData.Categories {
		if err := c.CheckShape(); err != nil {
			return err
		}
	}
	return nil
}
