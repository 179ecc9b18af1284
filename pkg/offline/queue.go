// Package offline buffers recordings captured without connectivity on the
// bedside device and replays them in capture order once connectivity
// returns.
package offline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/pkg/retry"
)

const maxUploadAttempts = 5

// Uploader pushes one queued recording to the backend. Implemented by the
// bedside client's HTTP uploader.
type Uploader interface {
	Upload(ctx context.Context, rec QueuedRecording) (recordingID string, err error)
}

type DrainResult struct {
	Uploaded        []string
	StillQueued     int
	FailedPermanent []QueuedRecording
}

type Synchronizer struct {
	mu       sync.Mutex
	path     string
	entries  []QueuedRecording
	uploader Uploader
	log      *logrus.Logger
	retry    retry.Config

	// OnPermanentFailure surfaces an exhausted item to the UI layer.
	OnPermanentFailure func(rec QueuedRecording)
}

func NewSynchronizer(path string, uploader Uploader, log *logrus.Logger) *Synchronizer {
	entries := load(path, log)
	sortByCapture(entries)

	return &Synchronizer{
		path:     path,
		entries:  entries,
		uploader: uploader,
		log:      log,
		retry: retry.Config{
			BaseDelay: 2 * time.Second,
			MaxDelay:  30 * time.Second,
		},
	}
}

func sortByCapture(entries []QueuedRecording) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CaptureTimestamp.Before(entries[j].CaptureTimestamp)
	})
}

// Enqueue appends a recording captured while offline. The context passed in
// is stored as-is and never touched again.
func (s *Synchronizer) Enqueue(rec QueuedRecording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CaptureTimestamp.IsZero() {
		rec.CaptureTimestamp = time.Now()
	}

	s.entries = append(s.entries, rec)
	sortByCapture(s.entries)

	return save(s.path, s.entries)
}

func (s *Synchronizer) Pending() []QueuedRecording {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]QueuedRecording, len(s.entries))
	copy(out, s.entries)
	return out
}

// Drain uploads queued recordings strictly oldest-first. One item failing
// does not block or reorder later items; each carries its own attempt
// budget, after which it is marked failed-permanent and surfaced.
func (s *Synchronizer) Drain(ctx context.Context) (DrainResult, error) {
	s.mu.Lock()
	pending := make([]QueuedRecording, len(s.entries))
	copy(pending, s.entries)
	s.mu.Unlock()

	var result DrainResult

	for _, rec := range pending {
		if ctx.Err() != nil {
			break
		}
		if rec.FailedPermanent {
			continue
		}

		remaining := maxUploadAttempts - rec.AttemptCount
		if remaining < 1 {
			remaining = 1
		}

		attempts := 0
		cfg := s.retry
		cfg.MaxAttempts = remaining

		err := retry.Do(ctx, cfg, func(ctx context.Context) error {
			attempts++
			_, err := s.uploader.Upload(ctx, rec)
			return err
		})

		if err == nil {
			s.remove(rec.ID)
			result.Uploaded = append(result.Uploaded, rec.ID)
			s.log.WithFields(logrus.Fields{
				"recording_id": rec.ID,
				"captured_at":  rec.CaptureTimestamp,
			}).Info("Uploaded buffered recording")
			continue
		}

		rec.AttemptCount += attempts
		rec.LastError = err.Error()

		if rec.AttemptCount >= maxUploadAttempts {
			rec.FailedPermanent = true
			result.FailedPermanent = append(result.FailedPermanent, rec)
			s.log.WithFields(logrus.Fields{
				"recording_id": rec.ID,
				"attempts":     rec.AttemptCount,
				"error":        err.Error(),
			}).Error("Buffered recording failed permanently")
			if s.OnPermanentFailure != nil {
				s.OnPermanentFailure(rec)
			}
		} else {
			s.log.WithFields(logrus.Fields{
				"recording_id": rec.ID,
				"attempts":     rec.AttemptCount,
				"error":        err.Error(),
			}).Warn("Buffered recording upload failed, will retry on next drain")
		}

		s.update(rec)
	}

	s.mu.Lock()
	for _, e := range s.entries {
		if !e.FailedPermanent {
			result.StillQueued++
		}
	}
	saveErr := save(s.path, s.entries)
	s.mu.Unlock()

	return result, saveErr
}

func (s *Synchronizer) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	if err := save(s.path, s.entries); err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Failed to persist offline queue after removal")
	}
}

func (s *Synchronizer) update(rec QueuedRecording) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == rec.ID {
			s.entries[i] = rec
			break
		}
	}
}
