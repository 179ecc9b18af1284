package review

import (
	"time"

	"github.com/snditnz/verbumcare/internal/entity"
)

type QueueItemResponse struct {
	ID                string                `json:"id"`
	RecordingID       string                `json:"recording_id"`
	PatientID         *string               `json:"patient_id,omitempty"`
	CategoryTypes     []entity.CategoryType `json:"category_types"`
	OverallConfidence float64               `json:"overall_confidence"`
	Status            entity.ReviewStatus   `json:"status"`
	Urgent            bool                  `json:"urgent"`
	CreatedAt         string                `json:"created_at"`
}

type ReviewItemResponse struct {
	ID                string               `json:"id"`
	RecordingID       string               `json:"recording_id"`
	PatientID         *string              `json:"patient_id,omitempty"`
	FacilityWide      bool                 `json:"facility_wide"`
	Transcript        string               `json:"transcript"`
	TranscriptLang    string               `json:"transcript_lang"`
	ExtractedData     entity.ExtractedData `json:"extracted_data"`
	OverallConfidence float64              `json:"overall_confidence"`
	Status            entity.ReviewStatus  `json:"status"`
	Urgent            bool                 `json:"urgent"`
	CreatedAt         string               `json:"created_at"`
	ReviewedAt        string               `json:"reviewed_at,omitempty"`
	DataReplaced      bool                 `json:"data_replaced,omitempty"`
}

type ReanalyzeRequest struct {
	Transcript string `json:"transcript" validate:"required,min=1"`
}

type UpdateDataRequest struct {
	Categories []entity.Category `json:"categories" validate:"required,min=1"`
}

type ConfirmRequest struct {
	Edits *entity.ExtractedData `json:"edits,omitempty"`
}

type InsertedRecord struct {
	Category entity.CategoryType `json:"category"`
	RecordID string              `json:"record_id"`
}

type ConfirmResult struct {
	ReviewID        string           `json:"review_id"`
	InsertedRecords []InsertedRecord `json:"inserted_records"`
	ConfirmedAt     time.Time        `json:"confirmed_at"`
}

func MakeQueueItemResponse(item entity.ReviewItem, now time.Time) QueueItemResponse {
	return QueueItemResponse{
		ID:                item.ID,
		RecordingID:       item.RecordingID,
		PatientID:         item.Context.PatientID,
		CategoryTypes:     item.ExtractedData.Types(),
		OverallConfidence: item.OverallConfidence,
		Status:            item.Status,
		Urgent:            item.Urgent(now),
		CreatedAt:         item.CreatedAt.Format(time.RFC3339),
	}
}

func MakeReviewItemResponse(item entity.ReviewItem, now time.Time) ReviewItemResponse {
	resp := ReviewItemResponse{
		ID:                item.ID,
		RecordingID:       item.RecordingID,
		PatientID:         item.Context.PatientID,
		FacilityWide:      !item.Context.HasPatient(),
		Transcript:        item.Transcript,
		TranscriptLang:    item.TranscriptLang,
		ExtractedData:     item.ExtractedData,
		OverallConfidence: item.OverallConfidence,
		Status:            item.Status,
		Urgent:            item.Urgent(now),
		CreatedAt:         item.CreatedAt.Format(time.RFC3339),
	}
	if item.ReviewedAt != nil {
		resp.ReviewedAt = item.ReviewedAt.Format(time.RFC3339)
	}
	return resp
}
