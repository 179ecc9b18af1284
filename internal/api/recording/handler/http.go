package recordingHandler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	recordingService "github.com/snditnz/verbumcare/internal/api/recording/service"
	"github.com/snditnz/verbumcare/internal/middleware"
)

type RecordingHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	recordingService recordingService.IRecordingService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	rs recordingService.IRecordingService,
) *RecordingHandler {
	return &RecordingHandler{
		log:              log,
		validator:        validate,
		middleware:       middleware,
		recordingService: rs,
	}
}

func (h *RecordingHandler) Start(srv fiber.Router) {
	recordings := srv.Group("/recordings")

	recordings.Use(h.middleware.NewIdentityMiddleware)

	recordings.Post("/", h.UploadRecording)
	recordings.Get("/:id", h.GetRecording)
	recordings.Get("/:id/audio", h.GetRecordingAudio)
}
