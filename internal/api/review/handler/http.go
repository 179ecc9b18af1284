package reviewHandler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	reviewService "github.com/snditnz/verbumcare/internal/api/review/service"
	"github.com/snditnz/verbumcare/internal/middleware"
)

type ReviewHandler struct {
	log           *logrus.Logger
	validator     *validator.Validate
	middleware    middleware.Middleware
	reviewService reviewService.IReviewService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	rs reviewService.IReviewService,
) *ReviewHandler {
	return &ReviewHandler{
		log:           log,
		validator:     validate,
		middleware:    middleware,
		reviewService: rs,
	}
}

func (h *ReviewHandler) Start(srv fiber.Router) {
	reviews := srv.Group("/reviews")

	reviews.Use(h.middleware.NewIdentityMiddleware)

	reviews.Get("/", h.GetQueue)
	reviews.Get("/:id", h.GetReviewItem)
	reviews.Post("/:id/reanalyze", h.Reanalyze)
	reviews.Patch("/:id/data", h.UpdateData)
	reviews.Post("/:id/confirm", h.Confirm)
	reviews.Post("/:id/discard", h.Discard)
}
