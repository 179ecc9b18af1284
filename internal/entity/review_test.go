package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    ReviewStatus
		to      ReviewStatus
		allowed bool
	}{
		{"pending to in_review", ReviewPending, ReviewInReview, true},
		{"pending to confirmed skips review", ReviewPending, ReviewConfirmed, false},
		{"pending to discarded skips review", ReviewPending, ReviewDiscarded, false},
		{"in_review to confirmed", ReviewInReview, ReviewConfirmed, true},
		{"in_review to discarded", ReviewInReview, ReviewDiscarded, true},
		{"in_review back to pending", ReviewInReview, ReviewPending, false},
		{"pending to archived", ReviewPending, ReviewArchived, true},
		{"in_review to archived", ReviewInReview, ReviewArchived, true},
		{"confirmed is terminal", ReviewConfirmed, ReviewArchived, false},
		{"discarded is terminal", ReviewDiscarded, ReviewInReview, false},
		{"archived is terminal", ReviewArchived, ReviewConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestReviewStatusTerminal(t *testing.T) {
	assert.False(t, ReviewPending.Terminal())
	assert.False(t, ReviewInReview.Terminal())
	assert.True(t, ReviewConfirmed.Terminal())
	assert.True(t, ReviewDiscarded.Terminal())
	assert.True(t, ReviewArchived.Terminal())
}

func TestReviewItemUrgent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	item := ReviewItem{Status: ReviewPending, CreatedAt: now.Add(-23 * time.Hour)}
	assert.False(t, item.Urgent(now), "23h old item is not urgent yet")

	item.CreatedAt = now.Add(-25 * time.Hour)
	assert.True(t, item.Urgent(now), "25h old item is urgent")

	item.Status = ReviewConfirmed
	assert.False(t, item.Urgent(now), "terminal items are never urgent")
}

func TestReviewItemArchiveDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	item := ReviewItem{Status: ReviewInReview, CreatedAt: now.Add(-6 * 24 * time.Hour)}
	assert.False(t, item.ArchiveDue(now))

	item.CreatedAt = now.Add(-8 * 24 * time.Hour)
	assert.True(t, item.ArchiveDue(now))

	item.Status = ReviewDiscarded
	assert.False(t, item.ArchiveDue(now), "terminal items are never swept")
}

func TestReviewItemValidate(t *testing.T) {
	score := 4
	item := ReviewItem{
		ID:                "rev-1",
		RecordingID:       "rec-1",
		UserID:            "user-1",
		OverallConfidence: 0.8,
		Status:            ReviewPending,
		ExtractedData: ExtractedData{Categories: []Category{
			{Type: CategoryPain, Confidence: 0.8, Pain: &PainPayload{Score: &score}},
		}},
	}
	require.NoError(t, item.Validate())

	bad := item
	bad.UserID = ""
	assert.Error(t, bad.Validate())

	bad = item
	bad.OverallConfidence = 1.3
	assert.Error(t, bad.Validate())

	bad = item
	bad.ExtractedData.Categories = []Category{{Type: CategoryPain, Confidence: 0.8}}
	assert.Error(t, bad.Validate(), "category without payload fails shape check")
}
