package recording

import (
	"time"

	"github.com/snditnz/verbumcare/internal/entity"
)

type UploadRequest struct {
	PatientID    string `form:"patient_id" json:"patient_id,omitempty"`
	LanguageHint string `form:"language_hint" json:"language_hint,omitempty" validate:"omitempty,bcp47_language_tag"`
	CapturedAt   string `form:"captured_at" json:"captured_at,omitempty"`

	UserID string `json:"-"`
}

type UploadResponse struct {
	RecordingID string                 `json:"recording_id"`
	Status      entity.RecordingStatus `json:"status"`
	CreatedAt   string                 `json:"created_at"`
}

type RecordingResponse struct {
	ID              string                 `json:"id"`
	PatientID       *string                `json:"patient_id,omitempty"`
	FacilityWide    bool                   `json:"facility_wide"`
	AudioURL        string                 `json:"audio_url"`
	DurationSeconds float64                `json:"duration_seconds"`
	LanguageHint    string                 `json:"language_hint,omitempty"`
	Status          entity.RecordingStatus `json:"status"`
	CapturedAt      string                 `json:"captured_at"`
	CreatedAt       string                 `json:"created_at"`
}

func MakeRecordingResponse(rec entity.VoiceRecording) RecordingResponse {
	return RecordingResponse{
		ID:              rec.ID,
		PatientID:       rec.Context.PatientID,
		FacilityWide:    !rec.Context.HasPatient(),
		AudioURL:        rec.AudioURL,
		DurationSeconds: rec.DurationSeconds,
		LanguageHint:    rec.LanguageHint,
		Status:          rec.Status,
		CapturedAt:      rec.CapturedAt.Format(time.RFC3339),
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
	}
}
