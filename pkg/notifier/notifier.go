// Package notifier carries best-effort pipeline progress events to a user's
// active session over Redis pub/sub. Delivery is fire-and-forget.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventRecordingUploaded      EventType = "recording_uploaded"
	EventTranscriptionStarted   EventType = "transcription_started"
	EventCategorizationComplete EventType = "categorization_complete"
	EventReviewReady            EventType = "review_ready"
	EventPipelineFailed         EventType = "pipeline_failed"
	EventReviewConfirmed        EventType = "review_confirmed"
	EventReviewArchived         EventType = "review_archived"
)

// OperatorChannel receives archival sweep notifications instead of a user
// channel.
const OperatorChannel = "operators"

type Event struct {
	Type        EventType `json:"type"`
	RecordingID string    `json:"recording_id,omitempty"`
	ReviewID    string    `json:"review_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type INotifier interface {
	Publish(ctx context.Context, userID string, event Event)
	Subscribe(ctx context.Context, userID string) (<-chan Event, func())
}

type notifierClient struct {
	client *redis.Client
	log    *logrus.Logger
}

func New(log *logrus.Logger) INotifier {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	log.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &notifierClient{client: client, log: log}
}

func channelFor(userID string) string {
	return "verbumcare:events:" + userID
}

func (n *notifierClient) Publish(ctx context.Context, userID string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Error("Failed to marshal notification event")
		return
	}

	if err := n.client.Publish(ctx, channelFor(userID), payload).Err(); err != nil {
		n.log.WithFields(logrus.Fields{
			"user_id": userID,
			"type":    event.Type,
			"error":   err.Error(),
		}).Warn("Failed to publish notification event")
	}
}

func (n *notifierClient) Subscribe(ctx context.Context, userID string) (<-chan Event, func()) {
	sub := n.client.Subscribe(ctx, channelFor(userID))
	events := make(chan Event, 16)

	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				n.log.WithFields(logrus.Fields{
					"user_id": userID,
					"error":   err.Error(),
				}).Warn("Dropping malformed notification event")
				continue
			}
			select {
			case events <- event:
			default:
				// Slow consumer, best-effort delivery only.
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return events, cancel
}
