// Package pipeline runs uploaded recordings through transcription and
// categorization with a bounded worker pool, producing pending review items.
package pipeline

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/api/recording"
	recordingRepository "github.com/snditnz/verbumcare/internal/api/recording/repository"
	reviewService "github.com/snditnz/verbumcare/internal/api/review/service"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/categorize"
	"github.com/snditnz/verbumcare/pkg/notifier"
	"github.com/snditnz/verbumcare/pkg/retry"
	"github.com/snditnz/verbumcare/pkg/s3"
	"github.com/snditnz/verbumcare/pkg/whisper"
)

const (
	defaultWorkers = 4
	stageTimeout   = 2 * time.Minute
	requeueEvery   = 5 * time.Minute
	requeueBatch   = 50
)

type Dispatcher struct {
	log           *logrus.Logger
	recordingRepo recordingRepository.Repository
	reviews       reviewService.IReviewService
	whisper       whisper.IWhisper
	storage       s3.ItfS3
	categorizer   categorize.ICategorizer
	notifier      notifier.INotifier

	jobs    chan string
	workers int
	wg      sync.WaitGroup
}

func NewDispatcher(
	log *logrus.Logger,
	recordingRepo recordingRepository.Repository,
	reviews reviewService.IReviewService,
	whisperClient whisper.IWhisper,
	storage s3.ItfS3,
	categorizer categorize.ICategorizer,
	notify notifier.INotifier,
) *Dispatcher {
	workers := defaultWorkers
	if v, err := strconv.Atoi(os.Getenv("PIPELINE_WORKERS")); err == nil && v > 0 {
		workers = v
	}

	return &Dispatcher{
		log:           log,
		recordingRepo: recordingRepo,
		reviews:       reviews,
		whisper:       whisperClient,
		storage:       storage,
		categorizer:   categorizer,
		notifier:      notify,
		jobs:          make(chan string, 256),
		workers:       workers,
	}
}

// Start launches the worker pool and the requeue ticker. Workers drain until
// ctx is cancelled; Stop waits for in-flight work.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case recordingID := <-d.jobs:
					d.process(ctx, recordingID)
				}
			}
		}(i)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.requeueLoop(ctx)
	}()

	d.log.WithFields(logrus.Fields{
		"workers": d.workers,
	}).Info("Pipeline dispatcher started")
}

func (d *Dispatcher) Stop() {
	d.wg.Wait()
}

// Enqueue hands a recording to the pool. A full buffer is not an error: the
// recording stays in uploaded state and the requeue loop picks it up.
func (d *Dispatcher) Enqueue(recordingID string) {
	select {
	case d.jobs <- recordingID:
	default:
		d.log.WithFields(logrus.Fields{
			"recording_id": recordingID,
		}).Warn("Pipeline queue full, deferring to requeue scan")
	}
}

// requeueLoop re-feeds recordings left in uploaded state, which also
// restores work dropped by a restart.
func (d *Dispatcher) requeueLoop(ctx context.Context) {
	ticker := time.NewTicker(requeueEvery)
	defer ticker.Stop()

	d.requeueUploaded(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.requeueUploaded(ctx)
		}
	}
}

func (d *Dispatcher) requeueUploaded(ctx context.Context) {
	repo, err := d.recordingRepo.NewClient(false)
	if err != nil {
		return
	}

	pending, err := repo.Recording.ListByStatus(ctx, entity.RecordingUploaded, requeueBatch)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to scan for unprocessed recordings")
		return
	}

	for _, rec := range pending {
		d.Enqueue(rec.ID)
	}
}

func (d *Dispatcher) process(ctx context.Context, recordingID string) {
	repo, err := d.recordingRepo.NewClient(false)
	if err != nil {
		return
	}

	rec, err := repo.Recording.GetByID(ctx, recordingID)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"recording_id": recordingID,
			"error":        err.Error(),
		}).Error("Pipeline could not load recording")
		return
	}

	// Claim the recording; another worker or a discard wins the race by
	// flipping the status first.
	claimed, err := repo.Recording.UpdateStatusGuarded(ctx, rec.ID,
		[]entity.RecordingStatus{entity.RecordingUploaded}, entity.RecordingProcessing)
	if err != nil || !claimed {
		return
	}

	d.notifier.Publish(ctx, rec.UserID, notifier.Event{
		Type:        notifier.EventTranscriptionStarted,
		RecordingID: rec.ID,
	})

	transcript, err := d.transcribe(ctx, rec)
	if err != nil {
		d.fail(ctx, rec, "transcription failed", err)
		return
	}

	// Store the text before categorization so a downstream failure never
	// loses what the clinician said.
	if err := repo.Recording.StoreTranscription(ctx, rec.ID, transcript.Text, transcript.DurationSeconds); err != nil {
		d.log.WithFields(logrus.Fields{
			"recording_id": rec.ID,
			"error":        err.Error(),
		}).Warn("Failed to store transcription")
	}

	lang := rec.LanguageHint
	if lang == "" {
		lang = transcript.Language
	}

	data, confidence, err := d.categorizeTranscript(ctx, rec, transcript.Text, lang)
	if err != nil {
		d.fail(ctx, rec, "categorization failed", err)
		return
	}

	d.notifier.Publish(ctx, rec.UserID, notifier.Event{
		Type:        notifier.EventCategorizationComplete,
		RecordingID: rec.ID,
	})

	if _, err := d.reviews.CreateReviewItem(ctx, rec, transcript.Text, lang, data, confidence); err != nil {
		if errors.Is(err, recording.ErrRecordingDiscarded) {
			d.log.WithFields(logrus.Fields{
				"recording_id": rec.ID,
			}).Info("Recording discarded mid-pipeline, result dropped")
			return
		}
		d.fail(ctx, rec, "review item creation failed", err)
	}
}

// transcribe re-downloads the audio on every attempt since the reader is
// consumed by the upload.
func (d *Dispatcher) transcribe(ctx context.Context, rec entity.VoiceRecording) (whisper.Transcript, error) {
	var transcript whisper.Transcript

	err := retry.Do(ctx, retry.Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    15 * time.Second,
		Retryable: func(err error) bool {
			return errors.Is(err, whisper.ErrUnavailable) || errors.Is(err, whisper.ErrTimeout)
		},
	}, func(ctx context.Context) error {
		audio, err := d.storage.DownloadAudio(rec.AudioURL)
		if err != nil {
			return err
		}
		defer audio.Close()

		stageCtx, cancel := context.WithTimeout(ctx, stageTimeout)
		defer cancel()

		transcript, err = d.whisper.Transcribe(stageCtx, rec.ID+".wav", audio, rec.LanguageHint)
		return err
	})

	return transcript, err
}

// categorizeTranscript runs detection and per-category extraction. Malformed
// model output gets exactly one more chance; after that the recording still
// reaches the queue as a zero-confidence clinical note needing manual review.
func (d *Dispatcher) categorizeTranscript(ctx context.Context, rec entity.VoiceRecording, transcript string, lang string) (entity.ExtractedData, float64, error) {
	data, confidence, err := d.extractAll(ctx, transcript, lang)
	if errors.Is(err, categorize.ErrMalformedModelOutput) {
		d.log.WithFields(logrus.Fields{
			"recording_id": rec.ID,
		}).Warn("Model output malformed, retrying once")
		data, confidence, err = d.extractAll(ctx, transcript, lang)
	}

	if errors.Is(err, categorize.ErrMalformedModelOutput) {
		d.log.WithFields(logrus.Fields{
			"recording_id": rec.ID,
		}).Error("Model output malformed twice, flagging for manual review")
		fallback := entity.ExtractedData{Categories: []entity.Category{{
			Type:         entity.CategoryClinicalNote,
			Confidence:   0,
			ClinicalNote: &entity.ClinicalNotePayload{Text: transcript},
		}}}
		return fallback, 0, nil
	}
	if err != nil {
		return entity.ExtractedData{}, 0, err
	}

	return data, confidence, nil
}

func (d *Dispatcher) extractAll(ctx context.Context, transcript string, lang string) (entity.ExtractedData, float64, error) {
	stageCtx, cancel := context.WithTimeout(ctx, stageTimeout)
	defer cancel()

	detected, err := d.categorizer.DetectCategories(stageCtx, transcript, lang)
	if err != nil {
		return entity.ExtractedData{}, 0, err
	}

	var data entity.ExtractedData
	var confidenceSum float64
	for _, det := range detected {
		category, err := d.categorizer.ExtractCategory(stageCtx, transcript, det.Type, lang)
		if err != nil {
			return entity.ExtractedData{}, 0, err
		}
		if category.Confidence == 0 {
			category.Confidence = det.Confidence
		}
		data.Categories = append(data.Categories, category)
		confidenceSum += category.Confidence
	}

	confidence := 0.0
	if len(data.Categories) > 0 {
		confidence = confidenceSum / float64(len(data.Categories))
	}

	return data, confidence, nil
}

// fail marks the recording failed and tells the user. The audio and any
// transcript already stored are retained; nothing is deleted on failure.
func (d *Dispatcher) fail(ctx context.Context, rec entity.VoiceRecording, reason string, cause error) {
	d.log.WithFields(logrus.Fields{
		"recording_id": rec.ID,
		"reason":       reason,
		"error":        cause.Error(),
	}).Error("Pipeline stage failed")

	repo, err := d.recordingRepo.NewClient(false)
	if err == nil {
		if _, err := repo.Recording.UpdateStatusGuarded(ctx, rec.ID,
			[]entity.RecordingStatus{entity.RecordingProcessing}, entity.RecordingFailed); err != nil {
			d.log.WithFields(logrus.Fields{
				"recording_id": rec.ID,
				"error":        err.Error(),
			}).Error("Failed to mark recording failed")
		}
	}

	d.notifier.Publish(ctx, rec.UserID, notifier.Event{
		Type:        notifier.EventPipelineFailed,
		RecordingID: rec.ID,
		Message:     reason,
	})
}
