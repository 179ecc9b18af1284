package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/gemini"
	"github.com/snditnz/verbumcare/pkg/retry"
)

const modelCallTimeout = 2 * time.Minute

type engine struct {
	gemini gemini.IGemini
	log    *logrus.Logger
	retry  retry.Config
}

func NewEngine(geminiClient gemini.IGemini, log *logrus.Logger) ICategorizer {
	return &engine{
		gemini: geminiClient,
		log:    log,
		retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			// Malformed output is not the model being down; the caller owns
			// that retry decision.
			Retryable: func(err error) bool {
				return !errors.Is(err, ErrMalformedModelOutput)
			},
		},
	}
}

func (e *engine) generate(ctx context.Context, prompt string) (string, error) {
	var out string

	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, modelCallTimeout)
		defer cancel()

		raw, err := e.gemini.GenerateJSON(callCtx, prompt)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCategorizationUnavailable, err)
		}
		out = raw
		return nil
	})

	return out, err
}

func (e *engine) DetectCategories(ctx context.Context, transcript string, languageHint string) ([]DetectedCategory, error) {
	if languageHint == "" {
		languageHint = e.DetectLanguage(transcript)
	}

	raw, err := e.generate(ctx, detectPrompt(transcript, languageHint))
	if err != nil {
		return nil, err
	}

	var detected []DetectedCategory
	if err := json.Unmarshal([]byte(raw), &detected); err != nil {
		e.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Category detection returned unparseable JSON")
		return nil, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	result := make([]DetectedCategory, 0, len(detected))
	for _, d := range detected {
		if !d.Type.Valid() {
			e.log.WithFields(logrus.Fields{
				"category": d.Type,
			}).Warn("Dropping unknown category from detection output")
			continue
		}
		result = append(result, DetectedCategory{Type: d.Type, Confidence: clamp01(d.Confidence)})
	}

	return result, nil
}

// extractionEnvelope wraps the typed payload with its per-field confidences.
type extractionEnvelope struct {
	Fields           json.RawMessage    `json:"fields"`
	FieldConfidences map[string]float64 `json:"field_confidences"`
}

func (e *engine) ExtractCategory(ctx context.Context, transcript string, categoryType entity.CategoryType, languageHint string) (entity.Category, error) {
	if !categoryType.Valid() {
		return entity.Category{}, fmt.Errorf("unknown category type %q", categoryType)
	}
	if languageHint == "" {
		languageHint = e.DetectLanguage(transcript)
	}

	raw, err := e.generate(ctx, extractPrompt(transcript, categoryType, languageHint))
	if err != nil {
		return entity.Category{}, err
	}

	var envelope extractionEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return entity.Category{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	if len(envelope.Fields) == 0 {
		return entity.Category{}, fmt.Errorf("%w: missing fields object", ErrMalformedModelOutput)
	}

	category := entity.Category{
		Type:             categoryType,
		Confidence:       meanConfidence(envelope.FieldConfidences),
		FieldConfidences: clampConfidences(envelope.FieldConfidences),
	}

	if err := decodePayload(&category, envelope.Fields); err != nil {
		return entity.Category{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	if err := category.CheckShape(); err != nil {
		return entity.Category{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	return category, nil
}

func decodePayload(category *entity.Category, fields json.RawMessage) error {
	switch category.Type {
	case entity.CategoryVitals:
		var p entity.VitalsPayload
		if err := json.Unmarshal(fields, &p); err != nil {
			return err
		}
		category.Vitals = &p
	case entity.CategoryMedication:
		var p entity.MedicationPayload
		if err := json.Unmarshal(fields, &p); err != nil {
			return err
		}
		category.Medication = &p
	case entity.CategoryClinicalNote:
		var p entity.ClinicalNotePayload
		if err := json.Unmarshal(fields, &p); err != nil {
			return err
		}
		category.ClinicalNote = &p
	case entity.CategoryFunctionalAssessment:
		var p entity.FunctionalAssessmentPayload
		if err := json.Unmarshal(fields, &p); err != nil {
			return err
		}
		category.FunctionalAssessment = &p
	case entity.CategoryIncident:
		var p entity.IncidentPayload
		if err := json.Unmarshal(fields, &p); err != nil {
			return err
		}
		category.Incident = &p
	case entity.CategoryCarePlan:
		var p entity.CarePlanPayload
		if err := json.Unmarshal(fields, &p); err != nil {
			return err
		}
		category.CarePlan = &p
	case entity.CategoryPain:
		var p entity.PainPayload
		if err := json.Unmarshal(fields, &p); err != nil {
			return err
		}
		category.Pain = &p
	default:
		return fmt.Errorf("unknown category type %q", category.Type)
	}
	return nil
}

func meanConfidence(fieldConfidences map[string]float64) float64 {
	if len(fieldConfidences) == 0 {
		return 0
	}
	var sum float64
	for _, c := range fieldConfidences {
		sum += clamp01(c)
	}
	return sum / float64(len(fieldConfidences))
}

func clampConfidences(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = clamp01(v)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
