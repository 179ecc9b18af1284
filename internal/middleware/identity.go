package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/snditnz/verbumcare/pkg/log"
)

// UserIDHeader carries the authenticated user's identity, stamped by the
// facility gateway after it has verified the session. Requests reaching
// this service without the header are rejected.
const UserIDHeader = "X-User-ID"

const userIDLocal = "user_id"

func (m *middleware) NewIdentityMiddleware(ctx *fiber.Ctx) error {
	userID := ctx.Get(UserIDHeader)
	if userID == "" {
		m.log.WithFields(log.Fields{
			"request_id": m.GetRequestID(ctx),
			"path":       ctx.Path(),
			"ip":         ctx.IP(),
		}).Warn("request missing gateway identity header")

		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Unauthorized",
			"code":    "UNAUTHORIZED",
		})
	}

	ctx.Locals(userIDLocal, userID)
	return ctx.Next()
}

func (m *middleware) GetUserID(ctx *fiber.Ctx) string {
	userID, ok := ctx.Locals(userIDLocal).(string)
	if !ok {
		return ""
	}
	return userID
}
