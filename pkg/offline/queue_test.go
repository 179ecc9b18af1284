package offline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	uploaded []string
	failIDs  map[string]error
}

func (f *fakeUploader) Upload(ctx context.Context, rec QueuedRecording) (string, error) {
	if err, ok := f.failIDs[rec.ID]; ok && err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, rec.ID)
	return "srv-" + rec.ID, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestSync(t *testing.T, uploader Uploader) (*Synchronizer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.json")
	s := NewSynchronizer(path, uploader, quietLogger())
	s.retry.BaseDelay = time.Millisecond
	s.retry.MaxDelay = time.Millisecond
	return s, path
}

func queuedAt(id string, capturedAt time.Time) QueuedRecording {
	return QueuedRecording{
		ID:               id,
		AudioPath:        "/spool/" + id + ".wav",
		CaptureTimestamp: capturedAt,
	}
}

func TestDrainUploadsInCaptureOrder(t *testing.T) {
	uploader := &fakeUploader{}
	s, _ := newTestSync(t, uploader)

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Enqueue(queuedAt("c", base.Add(2*time.Hour))))
	require.NoError(t, s.Enqueue(queuedAt("a", base)))
	require.NoError(t, s.Enqueue(queuedAt("b", base.Add(time.Hour))))

	result, err := s.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, uploader.uploaded)
	assert.Equal(t, []string{"a", "b", "c"}, result.Uploaded)
	assert.Zero(t, result.StillQueued)
	assert.Empty(t, s.Pending())
}

func TestDrainFailedItemDoesNotBlockOthers(t *testing.T) {
	uploader := &fakeUploader{failIDs: map[string]error{"b": errors.New("network down")}}
	s, _ := newTestSync(t, uploader)

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Enqueue(queuedAt("a", base)))
	require.NoError(t, s.Enqueue(queuedAt("b", base.Add(time.Minute))))
	require.NoError(t, s.Enqueue(queuedAt("c", base.Add(2*time.Minute))))

	result, err := s.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, result.Uploaded)
	assert.Equal(t, 1, result.StillQueued, "the failed item stays queued for the next pass")

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
	assert.False(t, pending[0].FailedPermanent)
	assert.NotEmpty(t, pending[0].LastError)
}

func TestDrainMarksPermanentAfterAttemptBudget(t *testing.T) {
	uploader := &fakeUploader{failIDs: map[string]error{"a": errors.New("rejected")}}
	s, _ := newTestSync(t, uploader)

	var surfaced []QueuedRecording
	s.OnPermanentFailure = func(rec QueuedRecording) { surfaced = append(surfaced, rec) }

	require.NoError(t, s.Enqueue(queuedAt("a", time.Now())))

	result, err := s.Drain(context.Background())
	require.NoError(t, err)

	require.Len(t, result.FailedPermanent, 1)
	assert.Equal(t, "a", result.FailedPermanent[0].ID)
	assert.GreaterOrEqual(t, result.FailedPermanent[0].AttemptCount, maxUploadAttempts)
	require.Len(t, surfaced, 1)

	// A later pass skips it instead of retrying forever.
	result, err = s.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Uploaded)
	assert.Empty(t, result.FailedPermanent)
}

func TestAttemptCountSurvivesRestart(t *testing.T) {
	uploader := &fakeUploader{failIDs: map[string]error{"a": errors.New("down")}}
	s, path := newTestSync(t, uploader)

	require.NoError(t, s.Enqueue(queuedAt("a", time.Now())))
	_, err := s.Drain(context.Background())
	require.NoError(t, err)

	// Simulate a device restart: reload the queue from disk.
	reloaded := NewSynchronizer(path, uploader, quietLogger())
	pending := reloaded.Pending()
	require.Len(t, pending, 1)
	assert.Greater(t, pending[0].AttemptCount, 0, "attempt count persists across restarts")
}

func TestQueueSurvivesRestart(t *testing.T) {
	uploader := &fakeUploader{}
	s, path := newTestSync(t, uploader)

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Enqueue(queuedAt("b", base.Add(time.Hour))))
	require.NoError(t, s.Enqueue(queuedAt("a", base)))

	reloaded := NewSynchronizer(path, uploader, quietLogger())
	pending := reloaded.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID, "capture order restored after reload")
}

func TestCorruptQueueFileResetsToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewSynchronizer(path, &fakeUploader{}, quietLogger())
	assert.Empty(t, s.Pending())

	// The reset queue is usable again.
	require.NoError(t, s.Enqueue(queuedAt("a", time.Now())))
	assert.Len(t, s.Pending(), 1)
}

func TestDrainStopsOnContextCancel(t *testing.T) {
	uploader := &fakeUploader{}
	s, _ := newTestSync(t, uploader)

	require.NoError(t, s.Enqueue(queuedAt("a", time.Now())))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Uploaded)
	assert.Equal(t, 1, result.StillQueued)
}
