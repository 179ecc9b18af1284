package reviewService

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/review"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/categorize"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
	"github.com/snditnz/verbumcare/pkg/notifier"
	"github.com/snditnz/verbumcare/pkg/retry"
)

const confirmMaxAttempts = 3

// Confirm validates the final payloads, then writes every category's domain
// rows, the status flip and the audit stamp in one transaction. Transient
// conflicts re-run the whole transaction up to 3 times; on exhaustion the
// item is untouched and the caller is told to retry.
func (s *reviewService) Confirm(ctx context.Context, reviewID string, userID string, edits *entity.ExtractedData) (review.ConfirmResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.reviewRepo.NewClient(false)
	if err != nil {
		return review.ConfirmResult{}, err
	}

	item, err := repo.Review.GetByID(ctx, reviewID)
	if err != nil {
		return review.ConfirmResult{}, err
	}
	if item.UserID != userID {
		return review.ConfirmResult{}, review.ErrNotOwner
	}
	if item.Status != entity.ReviewInReview {
		return review.ConfirmResult{}, review.ErrNotConfirmable
	}

	if edits != nil {
		item.ExtractedData = *edits
	}
	if len(item.ExtractedData.Categories) == 0 {
		return review.ConfirmResult{}, review.ErrNotConfirmable
	}

	// All validation happens before any transaction opens.
	issues := make(map[entity.CategoryType][]categorize.ValidationIssue)
	for _, category := range item.ExtractedData.Categories {
		found := s.categorizer.ValidateCategory(category)
		if categorize.HasErrors(found) {
			issues[category.Type] = found
		}
	}
	if len(issues) > 0 {
		return review.ConfirmResult{}, &review.ValidationFailedError{Issues: issues}
	}

	var result review.ConfirmResult
	attempts := 0

	err = retry.Do(ctx, retry.Config{
		MaxAttempts: confirmMaxAttempts,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Retryable:   isTransient,
	}, func(ctx context.Context) error {
		attempts++
		var attemptErr error
		result, attemptErr = s.confirmOnce(ctx, item, userID)
		return attemptErr
	})

	if err != nil {
		if isTransient(err) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"review_id":  reviewID,
				"attempts":   attempts,
				"error":      err.Error(),
			}).Error("Confirm exhausted its transaction retry budget")
			return review.ConfirmResult{}, &review.PersistenceTransientError{Attempts: attempts, Err: err}
		}
		return review.ConfirmResult{}, err
	}

	s.notifier.Publish(ctx, userID, notifier.Event{
		Type:     notifier.EventReviewConfirmed,
		ReviewID: reviewID,
	})

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"review_id":  reviewID,
		"records":    len(result.InsertedRecords),
		"attempts":   attempts,
	}).Info("Review item confirmed")

	return result, nil
}

// confirmOnce is one full transaction attempt. Any error rolls everything
// back, leaving the item in_review with zero domain rows.
func (s *reviewService) confirmOnce(ctx context.Context, item entity.ReviewItem, userID string) (review.ConfirmResult, error) {
	repo, err := s.reviewRepo.NewClient(true)
	if err != nil {
		return review.ConfirmResult{}, err
	}
	defer repo.Rollback()

	now := time.Now()

	// Persist the final payload first, while the row is still in_review, so
	// the stored item matches the domain rows built from it. The UPDATE's own
	// status guard makes this the mutual-exclusion point too: a concurrent
	// confirm that already moved the row leaves zero rows here.
	if err := repo.Review.UpdateExtractedData(ctx, item.ID, item.Transcript,
		item.TranscriptLang, item.ExtractedData, item.OverallConfidence); err != nil {
		if errors.Is(err, review.ErrInvalidTransition) {
			return review.ConfirmResult{}, review.ErrNotConfirmable
		}
		return review.ConfirmResult{}, err
	}

	moved, err := repo.Review.UpdateStatusGuarded(ctx, item.ID,
		[]entity.ReviewStatus{entity.ReviewInReview}, entity.ReviewConfirmed, &now)
	if err != nil {
		return review.ConfirmResult{}, err
	}
	if !moved {
		return review.ConfirmResult{}, review.ErrNotConfirmable
	}

	inserted := make([]review.InsertedRecord, 0, len(item.ExtractedData.Categories))
	for _, category := range item.ExtractedData.Categories {
		recordID, err := s.utils.NewULIDFromTimestamp(now)
		if err != nil {
			return review.ConfirmResult{}, err
		}

		if err := repo.Domain.InsertCategory(ctx, recordID, item, category); err != nil {
			if isConstraintViolation(err) {
				return review.ConfirmResult{}, &review.PersistenceFatalError{Category: category.Type, Err: err}
			}
			return review.ConfirmResult{}, err
		}

		inserted = append(inserted, review.InsertedRecord{Category: category.Type, RecordID: recordID})
	}

	if err := repo.Audit.StampConfirmation(ctx, item.ID, userID, now); err != nil {
		return review.ConfirmResult{}, err
	}

	if err := repo.Commit(); err != nil {
		return review.ConfirmResult{}, err
	}

	return review.ConfirmResult{
		ReviewID:        item.ID,
		InsertedRecords: inserted,
		ConfirmedAt:     now,
	}, nil
}

// isTransient recognizes serialization failures, deadlocks and connection
// drops, the conflicts worth re-running the transaction for.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return true
		}
		return pqErr.Code.Class() == "08"
	}
	return false
}

func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "23"
}
