package entity

import (
	"time"
)

// CategorizationLogEntry is append-only: one row per categorization or
// re-analysis event. Confirmation metadata is stamped onto the latest entry
// by the confirm transaction.
type CategorizationLogEntry struct {
	ID                 string         `json:"id"`
	ReviewID           string         `json:"review_id"`
	DetectedCategories []CategoryType `json:"detected_categories"`
	TranscriptEdited   bool           `json:"transcript_edited"`
	DataEdited         bool           `json:"data_edited"`
	ReanalysisCount    int            `json:"reanalysis_count"`
	CreatedAt          time.Time      `json:"created_at"`
	ConfirmedAt        *time.Time     `json:"confirmed_at,omitempty"`
	ConfirmedBy        *string        `json:"confirmed_by,omitempty"`
}
