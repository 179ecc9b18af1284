package entity

import (
	"time"
)

type RecordingStatus string

const (
	RecordingUploaded    RecordingStatus = "uploaded"
	RecordingProcessing  RecordingStatus = "processing"
	RecordingReviewReady RecordingStatus = "review_ready"
	RecordingDiscarded   RecordingStatus = "discarded"
	RecordingFailed      RecordingStatus = "failed"
)

// CareContext is the patient association frozen at capture time.
// A nil PatientID means the recording is facility-wide.
type CareContext struct {
	PatientID    *string `json:"patient_id,omitempty"`
	FacilityWide bool    `json:"facility_wide"`
}

func PatientContext(patientID string) CareContext {
	return CareContext{PatientID: &patientID}
}

func FacilityContext() CareContext {
	return CareContext{FacilityWide: true}
}

func (c CareContext) HasPatient() bool {
	return c.PatientID != nil && *c.PatientID != ""
}

type VoiceRecording struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	AudioURL        string          `json:"audio_url"`
	DurationSeconds float64         `json:"duration_seconds"`
	Transcript      string          `json:"transcript,omitempty"`
	Context         CareContext     `json:"context"`
	LanguageHint    string          `json:"language_hint,omitempty"`
	Status          RecordingStatus `json:"status"`
	CapturedAt      time.Time       `json:"captured_at"`
	CreatedAt       time.Time       `json:"created_at"`
}
