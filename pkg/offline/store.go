package offline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/entity"
)

// QueuedRecording is one entry of the persisted local queue. Context is
// frozen at capture time and never updated, even if the user switches
// patients before the queue drains.
type QueuedRecording struct {
	ID               string             `json:"id"`
	AudioPath        string             `json:"audio_path"`
	Context          entity.CareContext `json:"context"`
	LanguageHint     string             `json:"language_hint,omitempty"`
	CaptureTimestamp time.Time          `json:"capture_timestamp"`
	AttemptCount     int                `json:"attempt_count"`
	FailedPermanent  bool               `json:"failed_permanent,omitempty"`
	LastError        string             `json:"last_error,omitempty"`
}

type queueFile struct {
	Recordings []QueuedRecording `json:"recordings"`
}

// load reads the persisted queue. A corrupt file is discarded and replaced
// with an empty queue; startup must never fail on local queue state.
func load(path string, log *logrus.Logger) []QueuedRecording {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithFields(logrus.Fields{
				"path":  path,
				"error": err.Error(),
			}).Warn("Failed to read offline queue, starting empty")
		}
		return nil
	}

	var file queueFile
	if err := json.Unmarshal(raw, &file); err != nil {
		log.WithFields(logrus.Fields{
			"path":  path,
			"error": err.Error(),
		}).Error("Offline queue file corrupt, resetting to empty")
		return nil
	}

	return file.Recordings
}

// save writes the queue atomically: a partial write must not corrupt the
// previous good state.
func save(path string, recordings []QueuedRecording) error {
	raw, err := json.MarshalIndent(queueFile{Recordings: recordings}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
