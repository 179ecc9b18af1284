package categorize

import (
	"context"
	"errors"

	"github.com/snditnz/verbumcare/internal/entity"
)

var (
	// ErrCategorizationUnavailable covers the language model being down or
	// timing out after the engine's own retry budget.
	ErrCategorizationUnavailable = errors.New("categorization service unavailable")
	// ErrMalformedModelOutput covers unparseable model output. The pipeline
	// retries once, then falls back to a low-confidence manual-review item.
	ErrMalformedModelOutput = errors.New("malformed model output")
)

type DetectedCategory struct {
	Type       entity.CategoryType `json:"category"`
	Confidence float64             `json:"confidence"`
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type ValidationIssue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func HasErrors(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

type ICategorizer interface {
	DetectCategories(ctx context.Context, transcript string, languageHint string) ([]DetectedCategory, error)
	ExtractCategory(ctx context.Context, transcript string, categoryType entity.CategoryType, languageHint string) (entity.Category, error)
	ValidateCategory(category entity.Category) []ValidationIssue
	DetectLanguage(transcript string) string
}
