package categorize

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/retry"
)

type fakeGemini struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeGemini) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func newEngineWith(fake *fakeGemini) *engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &engine{
		gemini: fake,
		log:    logger,
		retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Retryable: func(err error) bool {
				return !errors.Is(err, ErrMalformedModelOutput)
			},
		},
	}
}

func TestDetectCategoriesParsesModelOutput(t *testing.T) {
	fake := &fakeGemini{responses: []string{
		`[{"category":"vitals","confidence":0.95},{"category":"pain","confidence":0.7}]`,
	}}
	e := newEngineWith(fake)

	detected, err := e.DetectCategories(context.Background(), "BP 120 over 80, complains of knee pain", "en")
	require.NoError(t, err)

	require.Len(t, detected, 2)
	assert.Equal(t, entity.CategoryVitals, detected[0].Type)
	assert.InDelta(t, 0.95, detected[0].Confidence, 1e-9)
	assert.Equal(t, entity.CategoryPain, detected[1].Type)
}

func TestDetectCategoriesDropsUnknownTypes(t *testing.T) {
	fake := &fakeGemini{responses: []string{
		`[{"category":"vitals","confidence":0.9},{"category":"billing","confidence":0.8}]`,
	}}
	e := newEngineWith(fake)

	detected, err := e.DetectCategories(context.Background(), "BP 120 over 80", "en")
	require.NoError(t, err)

	require.Len(t, detected, 1)
	assert.Equal(t, entity.CategoryVitals, detected[0].Type)
}

func TestDetectCategoriesMalformedOutput(t *testing.T) {
	fake := &fakeGemini{responses: []string{`I found vitals in the transcript.`}}
	e := newEngineWith(fake)

	_, err := e.DetectCategories(context.Background(), "BP 120 over 80", "en")
	assert.ErrorIs(t, err, ErrMalformedModelOutput)
	assert.Equal(t, 1, fake.calls, "malformed output is not retried by the engine")
}

func TestDetectCategoriesRetriesUnavailable(t *testing.T) {
	fake := &fakeGemini{
		errs:      []error{errors.New("503"), errors.New("503")},
		responses: []string{"", "", `[{"category":"clinical_note","confidence":0.8}]`},
	}
	e := newEngineWith(fake)

	detected, err := e.DetectCategories(context.Background(), "resident resting", "en")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
	require.Len(t, detected, 1)
}

func TestDetectCategoriesUnavailableAfterRetries(t *testing.T) {
	fake := &fakeGemini{errs: []error{errors.New("503"), errors.New("503"), errors.New("503")}}
	e := newEngineWith(fake)

	_, err := e.DetectCategories(context.Background(), "resident resting", "en")
	assert.ErrorIs(t, err, ErrCategorizationUnavailable)
	assert.Equal(t, 3, fake.calls)
}

func TestExtractCategoryBuildsTypedPayload(t *testing.T) {
	fake := &fakeGemini{responses: []string{
		`{"fields":{"heart_rate":72,"systolic_bp":120,"diastolic_bp":80},
		  "field_confidences":{"heart_rate":0.9,"systolic_bp":0.8,"diastolic_bp":0.7}}`,
	}}
	e := newEngineWith(fake)

	category, err := e.ExtractCategory(context.Background(), "HR 72, BP 120 over 80", entity.CategoryVitals, "en")
	require.NoError(t, err)

	require.NotNil(t, category.Vitals)
	assert.Equal(t, 72, *category.Vitals.HeartRate)
	assert.InDelta(t, 0.8, category.Confidence, 1e-9, "overall confidence is the mean of field confidences")
	assert.NoError(t, category.CheckShape())
}

func TestExtractCategoryClampsConfidences(t *testing.T) {
	fake := &fakeGemini{responses: []string{
		`{"fields":{"text":"slept well"},"field_confidences":{"text":1.7}}`,
	}}
	e := newEngineWith(fake)

	category, err := e.ExtractCategory(context.Background(), "slept well", entity.CategoryClinicalNote, "en")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, category.Confidence, 1e-9)
	assert.InDelta(t, 1.0, category.FieldConfidences["text"], 1e-9)
}

func TestExtractCategoryMissingFields(t *testing.T) {
	fake := &fakeGemini{responses: []string{`{"field_confidences":{"text":0.9}}`}}
	e := newEngineWith(fake)

	_, err := e.ExtractCategory(context.Background(), "slept well", entity.CategoryClinicalNote, "en")
	assert.ErrorIs(t, err, ErrMalformedModelOutput)
}

func TestExtractCategoryUnknownType(t *testing.T) {
	fake := &fakeGemini{}
	e := newEngineWith(fake)

	_, err := e.ExtractCategory(context.Background(), "text", "diagnosis", "en")
	assert.Error(t, err)
	assert.Equal(t, 0, fake.calls, "the model is never called for an unknown type")
}

func TestLanguageHintFlowsIntoPrompt(t *testing.T) {
	fake := &fakeGemini{responses: []string{`[]`}}
	e := newEngineWith(fake)

	_, err := e.DetectCategories(context.Background(), "体温は36度8分です", "")
	require.NoError(t, err)
	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "ja", "detected language reaches the prompt")
}
