package reviewService

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/recording"
	"github.com/snditnz/verbumcare/internal/api/review"
	"github.com/snditnz/verbumcare/internal/entity"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
	"github.com/snditnz/verbumcare/pkg/notifier"
)

// CreateReviewItem is called by the pipeline worker once categorization
// completes. The guarded recording flip runs first as the discard check: a
// recording the user discarded mid-flight never gains a review item. If the
// insert then fails, the flip is undone so the worker can still mark the
// recording failed and the requeue scan can pick it up again.
func (s *reviewService) CreateReviewItem(ctx context.Context, rec entity.VoiceRecording, transcript string, lang string, data entity.ExtractedData, confidence float64) (entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(ctx)

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return entity.ReviewItem{}, err
	}

	item := entity.ReviewItem{
		ID:                id,
		RecordingID:       rec.ID,
		UserID:            rec.UserID,
		Context:           rec.Context,
		Transcript:        transcript,
		TranscriptLang:    lang,
		ExtractedData:     data,
		OverallConfidence: confidence,
		Status:            entity.ReviewPending,
		CreatedAt:         time.Now(),
	}

	if err := item.Validate(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"recording_id": rec.ID,
			"error":        err.Error(),
		}).Error("Refusing to create review item with invalid data")
		return entity.ReviewItem{}, err
	}

	repo, err := s.reviewRepo.NewClient(true)
	if err != nil {
		return entity.ReviewItem{}, err
	}
	defer repo.Rollback()

	recordingRepo, err := s.recordingRepo.NewClient(false)
	if err != nil {
		return entity.ReviewItem{}, err
	}

	// Discard check: a recording the user discarded while the pipeline was
	// still working must not produce a review item.
	moved, err := recordingRepo.Recording.UpdateStatusGuarded(ctx, rec.ID,
		[]entity.RecordingStatus{entity.RecordingProcessing}, entity.RecordingReviewReady)
	if err != nil {
		return entity.ReviewItem{}, err
	}
	if !moved {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"recording_id": rec.ID,
		}).Info("Dropping pipeline result for recording no longer processing")
		return entity.ReviewItem{}, recording.ErrRecordingDiscarded
	}

	// Undo the flip if anything below fails. Leaving the recording at
	// review_ready with no review item would strand it: the failed guard
	// only accepts processing and the requeue scan only picks up uploaded.
	revertFlip := func() {
		if _, err := recordingRepo.Recording.UpdateStatusGuarded(ctx, rec.ID,
			[]entity.RecordingStatus{entity.RecordingReviewReady}, entity.RecordingProcessing); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":   requestID,
				"recording_id": rec.ID,
				"error":        err.Error(),
			}).Error("Failed to return recording to processing after review insert failure")
		}
	}

	if err := repo.Review.CreateReviewItem(ctx, item); err != nil {
		revertFlip()
		return entity.ReviewItem{}, err
	}

	auditID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		revertFlip()
		return entity.ReviewItem{}, err
	}

	if err := repo.Audit.CreateEntry(ctx, entity.CategorizationLogEntry{
		ID:                 auditID,
		ReviewID:           item.ID,
		DetectedCategories: data.Types(),
		ReanalysisCount:    0,
		CreatedAt:          time.Now(),
	}); err != nil {
		revertFlip()
		return entity.ReviewItem{}, err
	}

	if err := repo.Commit(); err != nil {
		revertFlip()
		return entity.ReviewItem{}, err
	}

	s.notifier.Publish(ctx, item.UserID, notifier.Event{
		Type:        notifier.EventReviewReady,
		RecordingID: rec.ID,
		ReviewID:    item.ID,
	})

	return item, nil
}

func (s *reviewService) GetQueue(ctx context.Context, userID string) ([]entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.reviewRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, err
	}

	return repo.Review.GetQueue(ctx, userID)
}

// GetReviewItem fetches one item for its owner and moves a pending item to
// in_review on first open.
func (s *reviewService) GetReviewItem(ctx context.Context, reviewID string, userID string) (entity.ReviewItem, error) {
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

	if item.Status == entity.ReviewPending {
		moved, err := repo.Review.UpdateStatusGuarded(ctx, reviewID,
			[]entity.ReviewStatus{entity.ReviewPending}, entity.ReviewInReview, nil)
		if err != nil {
			return entity.ReviewItem{}, err
		}
		if moved {
			item.Status = entity.ReviewInReview
		}
	}

	return item, nil
}

func (s *reviewService) Discard(ctx context.Context, reviewID string, userID string) (entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(ctx)

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

	now := time.Now()
	moved, err := repo.Review.UpdateStatusGuarded(ctx, reviewID,
		[]entity.ReviewStatus{entity.ReviewPending, entity.ReviewInReview},
		entity.ReviewDiscarded, &now)
	if err != nil {
		return entity.ReviewItem{}, err
	}
	if !moved {
		return entity.ReviewItem{}, review.ErrInvalidTransition
	}

	recordingRepo, err := s.recordingRepo.NewClient(false)
	if err == nil {
		if _, err := recordingRepo.Recording.UpdateStatusGuarded(ctx, item.RecordingID,
			[]entity.RecordingStatus{entity.RecordingUploaded, entity.RecordingProcessing, entity.RecordingReviewReady},
			entity.RecordingDiscarded); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":   requestID,
				"recording_id": item.RecordingID,
				"error":        err.Error(),
			}).Warn("Failed to mark recording discarded")
		}
	}

	item.Status = entity.ReviewDiscarded
	item.ReviewedAt = &now

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"review_id":  reviewID,
		"user_id":    userID,
	}).Info("Review item discarded")

	return item, nil
}

// ArchiveExpired is the sweep: non-terminal items older than 7 days become
// archived, and operators are told.
func (s *reviewService) ArchiveExpired(ctx context.Context, now time.Time) (int, error) {
	repo, err := s.reviewRepo.NewClient(false)
	if err != nil {
		return 0, err
	}

	due, err := repo.Review.ListArchiveDue(ctx, now.Add(-entity.ArchiveAfter))
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, item := range due {
		moved, err := repo.Review.UpdateStatusGuarded(ctx, item.ID,
			[]entity.ReviewStatus{entity.ReviewPending, entity.ReviewInReview},
			entity.ReviewArchived, nil)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"review_id": item.ID,
				"error":     err.Error(),
			}).Error("Failed to archive expired review item")
			continue
		}
		if !moved {
			continue
		}

		archived++
		event := notifier.Event{
			Type:     notifier.EventReviewArchived,
			ReviewID: item.ID,
			Message:  "review item expired unreviewed after 7 days",
		}
		s.notifier.Publish(ctx, item.UserID, event)
		s.notifier.Publish(ctx, notifier.OperatorChannel, event)
	}

	if archived > 0 {
		s.log.WithFields(logrus.Fields{
			"count": archived,
		}).Info("Archived expired review items")
	}

	return archived, nil
}
