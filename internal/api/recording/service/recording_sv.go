package recordingService

import (
	"database/sql"
	"errors"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/recording"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/notifier"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
)

func (s *recordingService) Upload(ctx context.Context, req recording.UploadRequest, audio *multipart.FileHeader) (entity.VoiceRecording, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if err := s.utils.ValidateAudioFile(audio); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("rejected audio upload")
		return entity.VoiceRecording{}, recording.ErrInvalidAudioFile
	}

	capturedAt := time.Now()
	if req.CapturedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			return entity.VoiceRecording{}, recording.ErrInvalidContext
		}
		capturedAt = parsed
	}

	careContext := entity.FacilityContext()
	if req.PatientID != "" {
		careContext = entity.PatientContext(req.PatientID)
	}

	audioURL, err := s.s3.UploadAudio(audio)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("failed to upload audio to object storage")
		return entity.VoiceRecording{}, recording.ErrAudioUploadFailed
	}

	id, err := s.utils.NewULIDFromTimestamp(capturedAt)
	if err != nil {
		return entity.VoiceRecording{}, err
	}

	rec := entity.VoiceRecording{
		ID:           id,
		UserID:       req.UserID,
		AudioURL:     audioURL,
		Context:      careContext,
		LanguageHint: req.LanguageHint,
		Status:       entity.RecordingUploaded,
		CapturedAt:   capturedAt,
		CreatedAt:    time.Now(),
	}

	client, err := s.recordingRepo.NewClient(false)
	if err != nil {
		return entity.VoiceRecording{}, err
	}

	if err := client.Recording.CreateRecording(ctx, rec); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"recording_id": rec.ID,
			"error":        err.Error(),
		}).Error("failed to persist recording")
		return entity.VoiceRecording{}, err
	}

	s.notifier.Publish(ctx, rec.UserID, notifier.Event{
		Type:        notifier.EventRecordingUploaded,
		RecordingID: rec.ID,
		Timestamp:   time.Now(),
	})

	s.pipeline.Enqueue(rec.ID)

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"recording_id": rec.ID,
		"user_id":      rec.UserID,
	}).Info("recording uploaded and queued for processing")

	return rec, nil
}

func (s *recordingService) GetRecording(ctx context.Context, recordingID string, userID string) (entity.VoiceRecording, error) {
	client, err := s.recordingRepo.NewClient(false)
	if err != nil {
		return entity.VoiceRecording{}, err
	}

	rec, err := client.Recording.GetByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.VoiceRecording{}, recording.ErrRecordingNotFound
		}
		return entity.VoiceRecording{}, err
	}

	if rec.UserID != userID {
		return entity.VoiceRecording{}, recording.ErrRecordingNotFound
	}

	return rec, nil
}

func (s *recordingService) AudioURL(ctx context.Context, recordingID string, userID string) (string, error) {
	rec, err := s.GetRecording(ctx, recordingID, userID)
	if err != nil {
		return "", err
	}

	return s.s3.PresignUrl(rec.AudioURL)
}
