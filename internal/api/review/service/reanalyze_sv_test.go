package reviewService

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/review"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/categorize"
)

func seededReanalyzeFixture(t *testing.T, categorizer categorize.ICategorizer) *serviceFixture {
	t.Helper()
	fx := newFixture(categorizer)
	item := confirmableItem("rev-1", "nurse-1")
	fx.reviews.items[item.ID] = item
	fx.reviews.auditEntries = []entity.CategorizationLogEntry{
		{ID: "log-1", ReviewID: item.ID, ReanalysisCount: 0},
	}
	return fx
}

func TestReanalyzeReplacesDataWholesale(t *testing.T) {
	temp := 37.9
	scripted := &scriptedCategorizer{
		detected: []categorize.DetectedCategory{{Type: entity.CategoryVitals, Confidence: 0.9}},
		extracted: map[entity.CategoryType]entity.Category{
			entity.CategoryVitals: {
				Type:       entity.CategoryVitals,
				Confidence: 0.9,
				Vitals:     &entity.VitalsPayload{TemperatureCelsius: &temp},
			},
		},
	}
	fx := seededReanalyzeFixture(t, scripted)

	item, err := fx.service.Reanalyze(context.Background(), "rev-1", "nurse-1", "temperature 37.9")
	require.NoError(t, err)

	assert.Equal(t, "temperature 37.9", item.Transcript)
	require.Len(t, item.ExtractedData.Categories, 1)
	assert.Equal(t, entity.CategoryVitals, item.ExtractedData.Categories[0].Type)
	assert.InDelta(t, 0.9, item.OverallConfidence, 1e-9)

	// Old pain and vitals edits are gone from storage too.
	stored := fx.reviews.items["rev-1"]
	assert.Equal(t, []entity.CategoryType{entity.CategoryVitals}, stored.ExtractedData.Types())

	require.Len(t, fx.reviews.auditEntries, 2)
	latest := fx.reviews.auditEntries[1]
	assert.True(t, latest.TranscriptEdited)
	assert.Equal(t, 1, latest.ReanalysisCount)
	assert.Equal(t, 1, fx.reviews.commits, "replace and audit entry land in one transaction")
}

func TestReanalyzeKeepsStatus(t *testing.T) {
	scripted := &scriptedCategorizer{
		detected: []categorize.DetectedCategory{{Type: entity.CategoryClinicalNote, Confidence: 0.7}},
		extracted: map[entity.CategoryType]entity.Category{
			entity.CategoryClinicalNote: {
				Type:         entity.CategoryClinicalNote,
				Confidence:   0.7,
				ClinicalNote: &entity.ClinicalNotePayload{Text: "updated"},
			},
		},
	}
	fx := seededReanalyzeFixture(t, scripted)

	item, err := fx.service.Reanalyze(context.Background(), "rev-1", "nurse-1", "updated note")
	require.NoError(t, err)
	assert.Equal(t, entity.ReviewInReview, item.Status, "reanalysis never changes review status")
}

func TestReanalyzeEmptyTranscriptRejected(t *testing.T) {
	fx := seededReanalyzeFixture(t, &scriptedCategorizer{})

	_, err := fx.service.Reanalyze(context.Background(), "rev-1", "nurse-1", "   ")
	assert.ErrorIs(t, err, review.ErrEmptyTranscript)
}

func TestReanalyzeAfterConcurrentConfirmRejected(t *testing.T) {
	scripted := &scriptedCategorizer{
		detected: []categorize.DetectedCategory{{Type: entity.CategoryClinicalNote, Confidence: 0.7}},
		extracted: map[entity.CategoryType]entity.Category{
			entity.CategoryClinicalNote: {
				Type: entity.CategoryClinicalNote, Confidence: 0.7,
				ClinicalNote: &entity.ClinicalNotePayload{Text: "stale"},
			},
		},
	}
	fx := seededReanalyzeFixture(t, scripted)
	before := fx.reviews.items["rev-1"]

	// The item is confirmed while the model call is still in flight; the
	// pre-check passed but the write must not.
	scripted.detectHook = func() {
		fx.reviews.mu.Lock()
		item := fx.reviews.items["rev-1"]
		item.Status = entity.ReviewConfirmed
		fx.reviews.items["rev-1"] = item
		fx.reviews.mu.Unlock()
	}

	_, err := fx.service.Reanalyze(context.Background(), "rev-1", "nurse-1", "late edit")
	assert.ErrorIs(t, err, review.ErrInvalidTransition)

	stored := fx.reviews.items["rev-1"]
	assert.Equal(t, entity.ReviewConfirmed, stored.Status)
	assert.Equal(t, before.Transcript, stored.Transcript)
	assert.Equal(t, before.ExtractedData.Types(), stored.ExtractedData.Types(),
		"confirmed data is never overwritten by a late reanalysis")
	assert.Len(t, fx.reviews.auditEntries, 1)
}

func TestReanalyzeAuditFailureRollsBackDataReplace(t *testing.T) {
	scripted := &scriptedCategorizer{
		detected: []categorize.DetectedCategory{{Type: entity.CategoryClinicalNote, Confidence: 0.7}},
		extracted: map[entity.CategoryType]entity.Category{
			entity.CategoryClinicalNote: {
				Type: entity.CategoryClinicalNote, Confidence: 0.7,
				ClinicalNote: &entity.ClinicalNotePayload{Text: "updated"},
			},
		},
	}
	fx := seededReanalyzeFixture(t, scripted)
	fx.reviews.auditErr = errors.New("log write failed")
	before := fx.reviews.items["rev-1"]

	_, err := fx.service.Reanalyze(context.Background(), "rev-1", "nurse-1", "updated note")
	require.Error(t, err)

	stored := fx.reviews.items["rev-1"]
	assert.Equal(t, before.Transcript, stored.Transcript)
	assert.Equal(t, before.ExtractedData.Types(), stored.ExtractedData.Types(),
		"data replace rolls back together with its audit entry")
	assert.Equal(t, 1, fx.reviews.rollbacks)
	assert.Zero(t, fx.reviews.commits)
}

func TestReanalyzeTerminalItemRejected(t *testing.T) {
	fx := seededReanalyzeFixture(t, &scriptedCategorizer{})
	item := fx.reviews.items["rev-1"]
	item.Status = entity.ReviewArchived
	fx.reviews.items["rev-1"] = item

	_, err := fx.service.Reanalyze(context.Background(), "rev-1", "nurse-1", "new text")
	assert.ErrorIs(t, err, review.ErrInvalidTransition)
}

func TestReanalyzePartialExtractionKeepsOldData(t *testing.T) {
	scripted := &scriptedCategorizer{
		detected: []categorize.DetectedCategory{
			{Type: entity.CategoryVitals, Confidence: 0.9},
			{Type: entity.CategoryPain, Confidence: 0.8},
		},
		extracted: map[entity.CategoryType]entity.Category{
			entity.CategoryVitals: {
				Type: entity.CategoryVitals, Confidence: 0.9,
				Vitals: &entity.VitalsPayload{},
			},
		},
		extractErr: map[entity.CategoryType]error{
			entity.CategoryPain: categorize.ErrCategorizationUnavailable,
		},
	}
	fx := seededReanalyzeFixture(t, scripted)
	before := fx.reviews.items["rev-1"].ExtractedData

	_, err := fx.service.Reanalyze(context.Background(), "rev-1", "nurse-1", "new transcript")
	assert.ErrorIs(t, err, categorize.ErrCategorizationUnavailable)

	stored := fx.reviews.items["rev-1"]
	assert.Equal(t, before.Types(), stored.ExtractedData.Types(), "partial results never replace existing data")
	assert.Len(t, fx.reviews.auditEntries, 1, "no audit entry for a failed reanalysis")
}

func TestUpdateCategoryFields(t *testing.T) {
	fx := seededReanalyzeFixture(t, nil)

	score := 7
	edited := []entity.Category{
		{Type: entity.CategoryPain, Confidence: 0.8,
			Pain: &entity.PainPayload{Score: &score, Location: "right hip"}},
	}

	item, err := fx.service.UpdateCategoryFields(context.Background(), "rev-1", "nurse-1", edited)
	require.NoError(t, err)

	require.Len(t, item.ExtractedData.Categories, 1)
	assert.Equal(t, 7, *item.ExtractedData.Categories[0].Pain.Score)

	require.Len(t, fx.reviews.auditEntries, 2)
	latest := fx.reviews.auditEntries[1]
	assert.True(t, latest.DataEdited)
	assert.False(t, latest.TranscriptEdited)
	assert.Equal(t, 0, latest.ReanalysisCount)
}

func TestUpdateCategoryFieldsRejectsBadShape(t *testing.T) {
	fx := seededReanalyzeFixture(t, nil)

	_, err := fx.service.UpdateCategoryFields(context.Background(), "rev-1", "nurse-1",
		[]entity.Category{{Type: entity.CategoryPain, Confidence: 0.8}})
	assert.Error(t, err)
	assert.Len(t, fx.reviews.auditEntries, 1, "nothing written")
}
