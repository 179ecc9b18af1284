package reviewService

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/review"
	"github.com/snditnz/verbumcare/internal/entity"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
)

// Reanalyze re-runs the categorization engine on the edited transcript and
// replaces the extracted data wholesale. Earlier field-level edits are
// discarded; the client is told through data_replaced. Status is untouched:
// an item mid-review stays in_review.
func (s *reviewService) Reanalyze(ctx context.Context, reviewID string, userID string, newTranscript string) (entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if strings.TrimSpace(newTranscript) == "" {
		return entity.ReviewItem{}, review.ErrEmptyTranscript
	}

	repo, err := s.reviewRepo.NewClient(false)
	if err != nil {
		return entity.ReviewItem{}, err
	}

	item, err := repo.Review.GetByID(ctx, reviewID)
	if err != nil {
		return entity.ReviewItem{}, err
	}
	if item.UserID != userID {
		return entity.ReviewItem{}, review.ErrNotOwner
	}
	if item.Status.Terminal() {
		return entity.ReviewItem{}, review.ErrInvalidTransition
	}

	lang := s.categorizer.DetectLanguage(newTranscript)

	detected, err := s.categorizer.DetectCategories(ctx, newTranscript, lang)
	if err != nil {
		return entity.ReviewItem{}, err
	}

	data := entity.ExtractedData{}
	var confidenceSum float64
	for _, d := range detected {
		category, err := s.categorizer.ExtractCategory(ctx, newTranscript, d.Type, lang)
		if err != nil {
			// Partial extraction never replaces good data.
			return entity.ReviewItem{}, err
		}
		if category.Confidence == 0 {
			category.Confidence = d.Confidence
		}
		data.Categories = append(data.Categories, category)
		confidenceSum += category.Confidence
	}

	confidence := 0.0
	if len(data.Categories) > 0 {
		confidence = confidenceSum / float64(len(data.Categories))
	}

	// The data replace and its audit row go in one transaction: a crash must
	// never record a re-analysis without the entry documenting it. The UPDATE
	// carries its own status guard, so an item confirmed or discarded while
	// the model was working fails here instead of being overwritten.
	tx, err := s.reviewRepo.NewClient(true)
	if err != nil {
		return entity.ReviewItem{}, err
	}
	defer tx.Rollback()

	if err := tx.Review.UpdateExtractedData(ctx, reviewID, newTranscript, lang, data, confidence); err != nil {
		return entity.ReviewItem{}, err
	}

	latest, err := tx.Audit.LatestForReview(ctx, reviewID)
	if err != nil {
		return entity.ReviewItem{}, err
	}

	auditID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return entity.ReviewItem{}, err
	}

	if err := tx.Audit.CreateEntry(ctx, entity.CategorizationLogEntry{
		ID:                 auditID,
		ReviewID:           reviewID,
		DetectedCategories: data.Types(),
		TranscriptEdited:   true,
		DataEdited:         latest.DataEdited,
		ReanalysisCount:    latest.ReanalysisCount + 1,
		CreatedAt:          time.Now(),
	}); err != nil {
		return entity.ReviewItem{}, err
	}

	if err := tx.Commit(); err != nil {
		return entity.ReviewItem{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":       requestID,
		"review_id":        reviewID,
		"reanalysis_count": latest.ReanalysisCount + 1,
		"categories":       data.Types(),
	}).Info("Review item re-analyzed")

	item.Transcript = newTranscript
	item.TranscriptLang = lang
	item.ExtractedData = data
	item.OverallConfidence = confidence

	return item, nil
}

// UpdateCategoryFields applies the user's field-level edits without touching
// the transcript or triggering re-analysis.
func (s *reviewService) UpdateCategoryFields(ctx context.Context, reviewID string, userID string, categories []entity.Category) (entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(ctx)

	for _, c := range categories {
		if err := c.CheckShape(); err != nil {
			return entity.ReviewItem{}, err
		}
	}

	repo, err := s.reviewRepo.NewClient(false)
	if err != nil {
		return entity.ReviewItem{}, err
	}

	item, err := repo.Review.GetByID(ctx, reviewID)
	if err != nil {
		return entity.ReviewItem{}, err
	}
	if item.UserID != userID {
		return entity.ReviewItem{}, review.ErrNotOwner
	}
	if item.Status.Terminal() {
		return entity.ReviewItem{}, review.ErrInvalidTransition
	}

	data := entity.ExtractedData{Categories: categories}

	tx, err := s.reviewRepo.NewClient(true)
	if err != nil {
		return entity.ReviewItem{}, err
	}
	defer tx.Rollback()

	if err := tx.Review.UpdateExtractedData(ctx, reviewID, item.Transcript, item.TranscriptLang, data, item.OverallConfidence); err != nil {
		return entity.ReviewItem{}, err
	}

	latest, err := tx.Audit.LatestForReview(ctx, reviewID)
	if err != nil {
		return entity.ReviewItem{}, err
	}

	auditID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return entity.ReviewItem{}, err
	}

	if err := tx.Audit.CreateEntry(ctx, entity.CategorizationLogEntry{
		ID:                 auditID,
		ReviewID:           reviewID,
		DetectedCategories: data.Types(),
		TranscriptEdited:   latest.TranscriptEdited,
		DataEdited:         true,
		ReanalysisCount:    latest.ReanalysisCount,
		CreatedAt:          time.Now(),
	}); err != nil {
		return entity.ReviewItem{}, err
	}

	if err := tx.Commit(); err != nil {
		return entity.ReviewItem{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"review_id":  reviewID,
	}).Info("Review item data edited")

	item.ExtractedData = data
	return item, nil
}
