package reviewService

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	recordingRepository "github.com/snditnz/verbumcare/internal/api/recording/repository"
	"github.com/snditnz/verbumcare/internal/api/review"
	reviewRepository "github.com/snditnz/verbumcare/internal/api/review/repository"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/categorize"
	"github.com/snditnz/verbumcare/pkg/notifier"
	"github.com/snditnz/verbumcare/pkg/utils"
)

type IReviewService interface {
	CreateReviewItem(ctx context.Context, rec entity.VoiceRecording, transcript string, lang string, data entity.ExtractedData, confidence float64) (entity.ReviewItem, error)
	GetQueue(ctx context.Context, userID string) ([]entity.ReviewItem, error)
	GetReviewItem(ctx context.Context, reviewID string, userID string) (entity.ReviewItem, error)
	Reanalyze(ctx context.Context, reviewID string, userID string, newTranscript string) (entity.ReviewItem, error)
	UpdateCategoryFields(ctx context.Context, reviewID string, userID string, categories []entity.Category) (entity.ReviewItem, error)
	Confirm(ctx context.Context, reviewID string, userID string, edits *entity.ExtractedData) (review.ConfirmResult, error)
	Discard(ctx context.Context, reviewID string, userID string) (entity.ReviewItem, error)
	ArchiveExpired(ctx context.Context, now time.Time) (int, error)
}

type reviewService struct {
	log           *logrus.Logger
	reviewRepo    reviewRepository.Repository
	recordingRepo recordingRepository.Repository
	categorizer   categorize.ICategorizer
	notifier      notifier.INotifier
	utils         utils.IUtils
}

func NewReviewService(
	log *logrus.Logger,
	reviewRepo reviewRepository.Repository,
	recordingRepo recordingRepository.Repository,
	categorizer categorize.ICategorizer,
	notify notifier.INotifier,
	utils utils.IUtils,
) IReviewService {
	return &reviewService{
		log:           log,
		reviewRepo:    reviewRepo,
		recordingRepo: recordingRepo,
		categorizer:   categorizer,
		notifier:      notify,
		utils:         utils,
	}
}
