package notificationHandler

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

const (
	writeTimeout = 10 * time.Second
	pingEvery    = 30 * time.Second
)

// handleNotifications streams pipeline events for the connected user until
// the client hangs up. Events missed while disconnected are not replayed;
// the review queue itself is the durable record.
func (h *NotificationHandler) handleNotifications(c *websocket.Conn) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		_ = c.Close()
		return
	}

	h.log.WithField("user_id", userID).Info("notification client connected")
	defer h.log.WithField("user_id", userID).Info("notification client disconnected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := h.notifier.Subscribe(ctx, userID)
	defer unsubscribe()

	// Reader goroutine only drains control frames and detects hangup.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}

			if err := c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}

			if err := c.WriteJSON(event); err != nil {
				h.log.WithField("user_id", userID).Warnf("failed to push event: %v", err)
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := c.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}
