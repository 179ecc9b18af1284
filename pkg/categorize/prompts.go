package categorize

import (
	"fmt"

	"github.com/snditnz/verbumcare/internal/entity"
)

const detectPromptTemplate = `You are a clinical documentation assistant for a care facility.
Classify the following care-staff voice transcript into zero or more of these
categories: vitals, medication, clinical_note, functional_assessment,
incident, care_plan, pain.

Return strict JSON only, an array of objects:
[{"category": "<category>", "confidence": <0.0-1.0>}]

Return [] if the transcript contains no clinical content.
Transcript language: %s

Transcript:
%s`

var extractionSchemas = map[entity.CategoryType]string{
	entity.CategoryVitals: `{"temperature_celsius": number|null, "systolic_bp": int|null, "diastolic_bp": int|null,
"heart_rate": int|null, "respiratory_rate": int|null, "spo2": int|null, "measured_at": "string", "notes": "string"}`,
	entity.CategoryMedication: `{"medication_name": "string", "dose": "string", "route": "string",
"administered_at": "string", "refused": bool, "notes": "string"}`,
	entity.CategoryClinicalNote: `{"note_type": "string", "text": "string"}`,
	entity.CategoryFunctionalAssessment: `{"activity": "string", "assist_level": "string", "observation": "string",
"assessed_scale": "string", "score": int|null}`,
	entity.CategoryIncident: `{"incident_type": "string", "description": "string", "occurred_at": "string",
"location": "string", "injury_seen": bool, "action_taken": "string"}`,
	entity.CategoryCarePlan: `{"goal": "string", "intervention": "string", "target_date": "string", "discipline": "string"}`,
	entity.CategoryPain: `{"score": int|null, "scale": "string", "location": "string", "character": "string",
"relief_given": "string", "notes": "string"}`,
}

const extractPromptTemplate = `You are a clinical documentation assistant for a care facility.
Extract the %s data from the transcript below.

Return strict JSON only, shaped exactly as:
{"fields": %s, "field_confidences": {"<field_name>": <0.0-1.0>}}

Rules:
- Copy quoted or extracted text VERBATIM in its original language. Never translate field values.
- If the transcript mixes languages, keep each field in the language it was spoken in.
- Omit field_confidences entries for fields you leave empty.
- Use null for numeric fields that are not mentioned.
Transcript language: %s

Transcript:
%s`

func detectPrompt(transcript, language string) string {
	if language == "" {
		language = "unknown"
	}
	return fmt.Sprintf(detectPromptTemplate, language, transcript)
}

func extractPrompt(transcript string, categoryType entity.CategoryType, language string) string {
	if language == "" {
		language = "unknown"
	}
	return fmt.Sprintf(extractPromptTemplate, categoryType, extractionSchemas[categoryType], language, transcript)
}
