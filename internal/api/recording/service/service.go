package recordingService

import (
	"mime/multipart"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/recording"
	recordingRepository "github.com/snditnz/verbumcare/internal/api/recording/repository"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/notifier"
	"github.com/snditnz/verbumcare/pkg/s3"
	"github.com/snditnz/verbumcare/pkg/utils"
)

type IRecordingService interface {
	Upload(ctx context.Context, req recording.UploadRequest, audio *multipart.FileHeader) (entity.VoiceRecording, error)
	GetRecording(ctx context.Context, recordingID string, userID string) (entity.VoiceRecording, error)
	AudioURL(ctx context.Context, recordingID string, userID string) (string, error)
}

// Enqueuer hands an uploaded recording to the processing pipeline.
type Enqueuer interface {
	Enqueue(recordingID string)
}

type recordingService struct {
	log           *logrus.Logger
	recordingRepo recordingRepository.Repository
	s3            s3.ItfS3
	pipeline      Enqueuer
	notifier      notifier.INotifier
	utils         utils.IUtils
}

func NewRecordingService(
	log *logrus.Logger,
	recordingRepo recordingRepository.Repository,
	s3 s3.ItfS3,
	pipeline Enqueuer,
	notify notifier.INotifier,
	utils utils.IUtils,
) IRecordingService {
	return &recordingService{
		log:           log,
		recordingRepo: recordingRepo,
		s3:            s3,
		pipeline:      pipeline,
		notifier:      notify,
		utils:         utils,
	}
}
