package entity

import (
	"encoding/json"
	"fmt"
)

type CategoryType string

const (
	CategoryVitals               CategoryType = "vitals"
	CategoryMedication           CategoryType = "medication"
	CategoryClinicalNote         CategoryType = "clinical_note"
	CategoryFunctionalAssessment CategoryType = "functional_assessment"
	CategoryIncident             CategoryType = "incident"
	CategoryCarePlan             CategoryType = "care_plan"
	CategoryPain                 CategoryType = "pain"
)

func AllCategoryTypes() []CategoryType {
	return []CategoryType{
		CategoryVitals,
		CategoryMedication,
		CategoryClinicalNote,
		CategoryFunctionalAssessment,
		CategoryIncident,
		CategoryCarePlan,
		CategoryPain,
	}
}

func (t CategoryType) Valid() bool {
	switch t {
	case CategoryVitals, CategoryMedication, CategoryClinicalNote,
		CategoryFunctionalAssessment, CategoryIncident, CategoryCarePlan, CategoryPain:
		return true
	}
	return false
}

type VitalsPayload struct {
	TemperatureCelsius *float64 `json:"temperature_celsius,omitempty"`
	SystolicBP         *int     `json:"systolic_bp,omitempty"`
	DiastolicBP        *int     `json:"diastolic_bp,omitempty"`
	HeartRate          *int     `json:"heart_rate,omitempty"`
	RespiratoryRate    *int     `json:"respiratory_rate,omitempty"`
	SpO2               *int     `json:"spo2,omitempty"`
	MeasuredAt         string   `json:"measured_at,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

type MedicationPayload struct {
	MedicationName string `json:"medication_name"`
	Dose           string `json:"dose"`
	Route          string `json:"route,omitempty"`
	AdministeredAt string `json:"administered_at,omitempty"`
	Refused        bool   `json:"refused,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type ClinicalNotePayload struct {
	NoteType string `json:"note_type,omitempty"`
	Text     string `json:"text"`
}

type FunctionalAssessmentPayload struct {
	Activity      string `json:"activity"`
	AssistLevel   string `json:"assist_level,omitempty"`
	Observation   string `json:"observation,omitempty"`
	AssessedScale string `json:"assessed_scale,omitempty"`
	Score         *int   `json:"score,omitempty"`
}

type IncidentPayload struct {
	IncidentType string `json:"incident_type"`
	Description  string `json:"description"`
	OccurredAt   string `json:"occurred_at,omitempty"`
	Location     string `json:"location,omitempty"`
	InjurySeen   bool   `json:"injury_seen,omitempty"`
	ActionTaken  string `json:"action_taken,omitempty"`
}

type CarePlanPayload struct {
	Goal         string `json:"goal"`
	Intervention string `json:"intervention,omitempty"`
	TargetDate   string `json:"target_date,omitempty"`
	Discipline   string `json:"discipline,omitempty"`
}

type PainPayload struct {
	Score       *int   `json:"score,omitempty"`
	Scale       string `json:"scale,omitempty"`
	Location    string `json:"location,omitempty"`
	Character   string `json:"character,omitempty"`
	ReliefGiven string `json:"relief_given,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Category is a tagged union: Type selects which of the payload pointers is
// set, and exactly one must be non-nil for the category to be persistable.
type Category struct {
	Type             CategoryType       `json:"type"`
	Confidence       float64            `json:"confidence"`
	FieldConfidences map[string]float64 `json:"field_confidences,omitempty"`

	Vitals               *VitalsPayload               `json:"vitals,omitempty"`
	Medication           *MedicationPayload           `json:"medication,omitempty"`
	ClinicalNote         *ClinicalNotePayload         `json:"clinical_note,omitempty"`
	FunctionalAssessment *FunctionalAssessmentPayload `json:"functional_assessment,omitempty"`
	Incident             *IncidentPayload             `json:"incident,omitempty"`
	CarePlan             *CarePlanPayload             `json:"care_plan,omitempty"`
	Pain                 *PainPayload                 `json:"pain,omitempty"`
}

// Payload returns the variant selected by Type, or nil when it is unset.
func (c Category) Payload() interface{} {
	switch c.Type {
	case CategoryVitals:
		if c.Vitals != nil {
			return c.Vitals
		}
	case CategoryMedication:
		if c.Medication != nil {
			return c.Medication
		}
	case CategoryClinicalNote:
		if c.ClinicalNote != nil {
			return c.ClinicalNote
		}
	case CategoryFunctionalAssessment:
		if c.FunctionalAssessment != nil {
			return c.FunctionalAssessment
		}
	case CategoryIncident:
		if c.Incident != nil {
			return c.Incident
		}
	case CategoryCarePlan:
		if c.CarePlan != nil {
			return c.CarePlan
		}
	case CategoryPain:
		if c.Pain != nil {
			return c.Pain
		}
	}
	return nil
}

// CheckShape verifies the tag matches the populated variant and that no other
// variant is set alongside it.
func (c Category) CheckShape() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown category type %q", c.Type)
	}
	if c.Payload() == nil {
		return fmt.Errorf("category %s has no payload", c.Type)
	}

	set := 0
	for _, p := range []bool{
		c.Vitals != nil,
		c.Medication != nil,
		c.ClinicalNote != nil,
		c.FunctionalAssessment != nil,
		c.Incident != nil,
		c.CarePlan != nil,
		c.Pain != nil,
	} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("category %s has %d payload variants set", c.Type, set)
	}

	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("category %s confidence %.3f outside [0,1]", c.Type, c.Confidence)
	}
	return nil
}

// ExtractedData is the ordered category set attached to one review item.
type ExtractedData struct {
	Categories []Category `json:"categories"`
}

func (d ExtractedData) Types() []CategoryType {
	types := make([]CategoryType, 0, len(d.Categories))
	for _, c := range d.Categories {
		types = append(types, c.Type)
	}
	return types
}

func (d ExtractedData) Find(t CategoryType) (Category, bool) {
	for _, c := range d.Categories {
		if c.Type == t {
			return c, true
		}
	}
	return Category{}, false
}

func (d ExtractedData) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

func UnmarshalExtractedData(raw []byte) (ExtractedData, error) {
	var d ExtractedData
	if err := json.Unmarshal(raw, &d); err != nil {
		return ExtractedData{}, err
	}
	for _, c := range d.Categories {
		if err := c.CheckShape(); err != nil {
			return ExtractedData{}, err
		}
	}
	return d, nil
}
