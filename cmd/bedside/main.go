// Command bedside is the capture-station sync agent. It watches a local
// spool of recorded audio and pushes it to the review pipeline whenever the
// facility network is reachable, preserving capture order.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/snditnz/verbumcare/pkg/log"
	"github.com/snditnz/verbumcare/pkg/offline"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	var (
		serverURL = flag.String("server", envOr("VERBUMCARE_SERVER_URL", "http://localhost:3000"), "review pipeline base URL")
		userID    = flag.String("user", os.Getenv("VERBUMCARE_USER_ID"), "staff user identifier")
		spoolDir  = flag.String("spool", envOr("VERBUMCARE_SPOOL_DIR", "/var/lib/verbumcare/spool"), "local spool directory")
		interval  = flag.Duration("interval", 30*time.Second, "sync attempt interval")
	)
	flag.Parse()

	if *userID == "" {
		logger.Fatal("user identifier is required (-user or VERBUMCARE_USER_ID)")
	}

	uploader := offline.NewHTTPUploader(*serverURL, *userID)
	queuePath := filepath.Join(*spoolDir, "queue.json")

	sync := offline.NewSynchronizer(queuePath, uploader, logger)
	sync.OnPermanentFailure = func(rec offline.QueuedRecording) {
		logger.WithFields(log.Fields{
			"recording_id": rec.ID,
			"audio_path":   rec.AudioPath,
			"last_error":   rec.LastError,
		}).Error("Recording exhausted its upload attempts, operator intervention needed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.WithFields(log.Fields{
		"server": *serverURL,
		"spool":  *spoolDir,
	}).Info("Bedside sync agent started")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			logger.Info("Shutting down sync agent...")
			return

		case <-ticker.C:
			result, err := sync.Drain(ctx)
			if err != nil {
				logger.Warnf("Sync pass aborted: %v", err)
				continue
			}

			if len(result.Uploaded) > 0 || len(result.FailedPermanent) > 0 {
				logger.WithFields(log.Fields{
					"uploaded":         len(result.Uploaded),
					"still_queued":     result.StillQueued,
					"failed_permanent": len(result.FailedPermanent),
				}).Info("Sync pass finished")
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
