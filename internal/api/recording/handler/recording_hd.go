package recordingHandler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/recording"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
	"github.com/snditnz/verbumcare/pkg/handlerUtil"
	"github.com/snditnz/verbumcare/pkg/log"
)

func (h *RecordingHandler) UploadRecording(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 60*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing recording upload")

	userID := h.middleware.GetUserID(ctx)
	if userID == "" {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	audioFile, err := ctx.FormFile("audio")
	if err != nil {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("audio file is required"), ctx.Path())
	}

	req := recording.UploadRequest{
		PatientID:    ctx.FormValue("patient_id"),
		LanguageHint: ctx.FormValue("language_hint"),
		CapturedAt:   ctx.FormValue("captured_at"),
		UserID:       userID,
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	rec, err := h.recordingService.Upload(c, req, audioFile)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "upload_recording")
	}

	res := recording.UploadResponse{
		RecordingID: rec.ID,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusAccepted, res)
	}
}

func (h *RecordingHandler) GetRecording(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userID := h.middleware.GetUserID(ctx)
	if userID == "" {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	rec, err := h.recordingService.GetRecording(c, ctx.Params("id"), userID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_recording")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, recording.MakeRecordingResponse(rec))
	}
}

func (h *RecordingHandler) GetRecordingAudio(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userID := h.middleware.GetUserID(ctx)
	if userID == "" {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	url, err := h.recordingService.AudioURL(c, ctx.Params("id"), userID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_recording_audio")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{"audio_url": url})
	}
}
