package notificationHandler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/middleware"
	"github.com/snditnz/verbumcare/pkg/notifier"
)

type NotificationHandler struct {
	log        *logrus.Logger
	middleware middleware.Middleware
	notifier   notifier.INotifier
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	notify notifier.INotifier,
) *NotificationHandler {
	return &NotificationHandler{
		log:        log,
		middleware: middleware,
		notifier:   notify,
	}
}

func (h *NotificationHandler) Start(srv fiber.Router) {
	ws := srv.Group("/ws")

	ws.Use("/notifications", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		userID := c.Get(middleware.UserIDHeader)
		if userID == "" {
			userID = c.Query("user_id")
		}
		if userID == "" {
			return fiber.ErrUnauthorized
		}

		c.Locals("user_id", userID)
		return c.Next()
	})

	ws.Get("/notifications", websocket.New(h.handleNotifications))
}
