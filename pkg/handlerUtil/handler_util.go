package handlerUtil

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/api/recording"
	"github.com/snditnz/verbumcare/internal/api/review"
	"github.com/snditnz/verbumcare/pkg/log"
	"github.com/snditnz/verbumcare/pkg/response"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	var validationErr *review.ValidationFailedError
	if errors.As(err, &validationErr) {
		h.logger.WithFields(fields).Warn("Confirm blocked by category validation")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "One or more categories failed clinical validation",
			"code":    "VALIDATION_FAILED",
			"issues":  validationErr.Issues,
		})
	}

	var transientErr *review.PersistenceTransientError
	if errors.As(err, &transientErr) {
		h.logger.WithFields(fields).Warn("Confirm exhausted transaction retries")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message":   "Could not persist the record right now, please retry",
			"code":      "PERSISTENCE_TRANSIENT",
			"retryable": true,
		})
	}

	var fatalErr *review.PersistenceFatalError
	if errors.As(err, &fatalErr) {
		h.logger.WithFields(fields).Error("Confirm hit a fatal persistence error")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message":   "A category could not be persisted",
			"code":      "PERSISTENCE_FATAL",
			"category":  fatalErr.Category,
			"retryable": false,
		})
	}

	if errors.Is(err, review.ErrReviewNotFound) || errors.Is(err, recording.ErrRecordingNotFound) {
		h.logger.WithFields(fields).Warn("Resource not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not found",
			"code":    "NOT_FOUND",
		})
	}

	h.logger.WithFields(fields).Error("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Request validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request",
		"code":    "INVALID_REQUEST",
		"details": err.Error(),
	})
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
	}).Warn("Unauthorized request")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"code":    "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
		"message": "Request timed out",
		"code":    "REQUEST_TIMEOUT",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, status int, body interface{}) error {
	return c.Status(status).JSON(body)
}
