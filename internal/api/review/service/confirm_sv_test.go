package reviewService

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/review"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/notifier"
)

func confirmableItem(id, userID string) entity.ReviewItem {
	hr := 72
	score := 3
	return entity.ReviewItem{
		ID:          id,
		RecordingID: "rec-" + id,
		UserID:      userID,
		Context:     entity.PatientContext("patient-1"),
		Transcript:  "HR 72, pain 3 out of 10 in the left knee",
		ExtractedData: entity.ExtractedData{Categories: []entity.Category{
			{Type: entity.CategoryVitals, Confidence: 0.9, Vitals: &entity.VitalsPayload{HeartRate: &hr}},
			{Type: entity.CategoryPain, Confidence: 0.8, Pain: &entity.PainPayload{Score: &score, Location: "left knee"}},
		}},
		OverallConfidence: 0.85,
		Status:            entity.ReviewInReview,
		CreatedAt:         time.Now().Add(-time.Hour),
	}
}

func TestConfirmWritesAllCategoriesAtomically(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	fx.reviews.items[item.ID] = item
	fx.reviews.auditEntries = []entity.CategorizationLogEntry{{ID: "log-1", ReviewID: item.ID}}

	result, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "rev-1", result.ReviewID)
	require.Len(t, result.InsertedRecords, 2)
	assert.Equal(t, entity.CategoryVitals, result.InsertedRecords[0].Category)
	assert.Equal(t, entity.CategoryPain, result.InsertedRecords[1].Category)

	stored := fx.reviews.items["rev-1"]
	assert.Equal(t, entity.ReviewConfirmed, stored.Status)
	require.NotNil(t, stored.ReviewedAt)

	require.Len(t, fx.reviews.domainRows, 2)
	assert.Equal(t, 1, fx.reviews.commits)

	require.Len(t, fx.reviews.auditEntries, 1)
	require.NotNil(t, fx.reviews.auditEntries[0].ConfirmedAt)
	assert.Equal(t, "nurse-1", *fx.reviews.auditEntries[0].ConfirmedBy)

	confirmed := fx.notifier.byType(notifier.EventReviewConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "nurse-1", confirmed[0].Channel)
}

func TestConfirmRejectsNonOwner(t *testing.T) {
	fx := newFixture(nil)
	fx.reviews.items["rev-1"] = confirmableItem("rev-1", "nurse-1")

	_, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-2", nil)
	assert.ErrorIs(t, err, review.ErrNotOwner)
	assert.Empty(t, fx.reviews.domainRows)
}

func TestConfirmRequiresInReview(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	item.Status = entity.ReviewPending
	fx.reviews.items["rev-1"] = item

	_, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)
	assert.ErrorIs(t, err, review.ErrNotConfirmable)
}

func TestConfirmTwiceFailsSecondCall(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	fx.reviews.items[item.ID] = item
	fx.reviews.auditEntries = []entity.CategorizationLogEntry{{ID: "log-1", ReviewID: item.ID}}

	_, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)
	require.NoError(t, err)

	_, err = fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)
	assert.ErrorIs(t, err, review.ErrNotConfirmable)
	assert.Len(t, fx.reviews.domainRows, 2, "no extra domain rows from the second confirm")
}

func TestConfirmValidationFailureBlocksTransaction(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	badTemp := 98.6
	item.ExtractedData.Categories[0].Vitals.TemperatureCelsius = &badTemp
	fx.reviews.items[item.ID] = item

	_, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)

	var validationErr *review.ValidationFailedError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Issues, entity.CategoryVitals)

	assert.Equal(t, entity.ReviewInReview, fx.reviews.items["rev-1"].Status, "status untouched")
	assert.Empty(t, fx.reviews.domainRows, "no partial writes")
	assert.Zero(t, fx.reviews.commits)
}

func TestConfirmAppliesEditsBeforeValidation(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	fx.reviews.items[item.ID] = item
	fx.reviews.auditEntries = []entity.CategorizationLogEntry{{ID: "log-1", ReviewID: item.ID}}

	edits := entity.ExtractedData{Categories: []entity.Category{
		{Type: entity.CategoryClinicalNote, Confidence: 0.9,
			ClinicalNote: &entity.ClinicalNotePayload{Text: "resident comfortable"}},
	}}

	result, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", &edits)
	require.NoError(t, err)

	require.Len(t, result.InsertedRecords, 1)
	assert.Equal(t, entity.CategoryClinicalNote, result.InsertedRecords[0].Category)

	// The stored item carries the final payload, not the pre-edit data the
	// domain rows were no longer built from.
	stored := fx.reviews.items["rev-1"]
	assert.Equal(t, []entity.CategoryType{entity.CategoryClinicalNote}, stored.ExtractedData.Types())
	assert.Equal(t, "resident comfortable", stored.ExtractedData.Categories[0].ClinicalNote.Text)
}

func TestConfirmConstraintViolationIsFatal(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	fx.reviews.items[item.ID] = item
	fx.reviews.domainErr = func(c entity.Category) error {
		if c.Type == entity.CategoryPain {
			return &pq.Error{Code: "23503"}
		}
		return nil
	}

	_, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)

	var fatalErr *review.PersistenceFatalError
	require.ErrorAs(t, err, &fatalErr)
	assert.Equal(t, entity.CategoryPain, fatalErr.Category)
	assert.False(t, fatalErr.Retryable())

	// Rollback undid the vitals row and the status flip.
	assert.Empty(t, fx.reviews.domainRows)
	assert.Equal(t, entity.ReviewInReview, fx.reviews.items["rev-1"].Status)
	assert.Zero(t, fx.reviews.commits)
}

func TestConfirmRetriesSerializationFailure(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	fx.reviews.items[item.ID] = item
	fx.reviews.auditEntries = []entity.CategorizationLogEntry{{ID: "log-1", ReviewID: item.ID}}

	failures := 2
	fx.reviews.domainErr = func(c entity.Category) error {
		if failures > 0 && c.Type == entity.CategoryVitals {
			failures--
			return &pq.Error{Code: "40001"}
		}
		return nil
	}

	result, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)
	require.NoError(t, err)
	require.Len(t, result.InsertedRecords, 2)
	assert.Equal(t, 2, fx.reviews.rollbacks, "each failed attempt rolled back")
	assert.Equal(t, 1, fx.reviews.commits)
}

func TestConfirmTransientExhaustionLeavesItemUntouched(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	fx.reviews.items[item.ID] = item
	fx.reviews.domainErr = func(c entity.Category) error {
		return &pq.Error{Code: "40001"}
	}

	_, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)

	var transientErr *review.PersistenceTransientError
	require.ErrorAs(t, err, &transientErr)
	assert.Equal(t, confirmMaxAttempts, transientErr.Attempts)
	assert.True(t, transientErr.Retryable())

	assert.Equal(t, entity.ReviewInReview, fx.reviews.items["rev-1"].Status)
	assert.Empty(t, fx.reviews.domainRows)
}

func TestConfirmEmptyDataNotConfirmable(t *testing.T) {
	fx := newFixture(nil)
	item := confirmableItem("rev-1", "nurse-1")
	item.ExtractedData = entity.ExtractedData{}
	fx.reviews.items[item.ID] = item

	_, err := fx.service.Confirm(context.Background(), "rev-1", "nurse-1", nil)
	assert.ErrorIs(t, err, review.ErrNotConfirmable)
}

func TestConfirmNotFound(t *testing.T) {
	fx := newFixture(nil)
	_, err := fx.service.Confirm(context.Background(), "missing", "nurse-1", nil)
	assert.ErrorIs(t, err, review.ErrReviewNotFound)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&pq.Error{Code: "40001"}))
	assert.True(t, isTransient(&pq.Error{Code: "40P01"}))
	assert.True(t, isTransient(&pq.Error{Code: "08006"}))
	assert.False(t, isTransient(&pq.Error{Code: "23505"}))
	assert.False(t, isTransient(errors.New("plain")))
}
