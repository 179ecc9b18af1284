package categorize

import (
	"fmt"

	"github.com/snditnz/verbumcare/internal/entity"
)

// Physiologically plausible bounds for vitals. Values outside these are
// rejected, not warned: they are transcription or extraction mistakes.
var vitalBounds = struct {
	tempMin, tempMax float64
	sysMin, sysMax   int
	diaMin, diaMax   int
	hrMin, hrMax     int
	rrMin, rrMax     int
	spo2Min, spo2Max int
}{
	tempMin: 30.0, tempMax: 45.0,
	sysMin: 50, sysMax: 260,
	diaMin: 30, diaMax: 160,
	hrMin: 20, hrMax: 300,
	rrMin: 4, rrMax: 80,
	spo2Min: 50, spo2Max: 100,
}

// ValidateCategory applies clinical range and completeness rules. Each
// category validates independently; issues here never block other categories
// in the same review item.
func (e *engine) ValidateCategory(category entity.Category) []ValidationIssue {
	if err := category.CheckShape(); err != nil {
		return []ValidationIssue{{Severity: SeverityError, Field: "type", Message: err.Error()}}
	}

	switch category.Type {
	case entity.CategoryVitals:
		return validateVitals(category.Vitals)
	case entity.CategoryMedication:
		return validateMedication(category.Medication)
	case entity.CategoryClinicalNote:
		return validateClinicalNote(category.ClinicalNote)
	case entity.CategoryFunctionalAssessment:
		return validateFunctionalAssessment(category.FunctionalAssessment)
	case entity.CategoryIncident:
		return validateIncident(category.Incident)
	case entity.CategoryCarePlan:
		return validateCarePlan(category.CarePlan)
	case entity.CategoryPain:
		return validatePain(category.Pain)
	}
	return nil
}

func validateVitals(p *entity.VitalsPayload) []ValidationIssue {
	var issues []ValidationIssue

	if p.TemperatureCelsius == nil && p.SystolicBP == nil && p.DiastolicBP == nil &&
		p.HeartRate == nil && p.RespiratoryRate == nil && p.SpO2 == nil {
		return []ValidationIssue{{
			Severity: SeverityError,
			Field:    "vitals",
			Message:  "no measurements present",
		}}
	}

	issues = append(issues, checkFloatRange("temperature_celsius", p.TemperatureCelsius, vitalBounds.tempMin, vitalBounds.tempMax)...)
	issues = append(issues, checkIntRange("systolic_bp", p.SystolicBP, vitalBounds.sysMin, vitalBounds.sysMax)...)
	issues = append(issues, checkIntRange("diastolic_bp", p.DiastolicBP, vitalBounds.diaMin, vitalBounds.diaMax)...)
	issues = append(issues, checkIntRange("heart_rate", p.HeartRate, vitalBounds.hrMin, vitalBounds.hrMax)...)
	issues = append(issues, checkIntRange("respiratory_rate", p.RespiratoryRate, vitalBounds.rrMin, vitalBounds.rrMax)...)
	issues = append(issues, checkIntRange("spo2", p.SpO2, vitalBounds.spo2Min, vitalBounds.spo2Max)...)

	if p.SystolicBP != nil && p.DiastolicBP != nil && *p.DiastolicBP >= *p.SystolicBP {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Field:    "diastolic_bp",
			Message:  "diastolic must be below systolic",
		})
	}

	if (p.SystolicBP == nil) != (p.DiastolicBP == nil) {
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    "blood_pressure",
			Message:  "only one blood pressure value present",
		})
	}

	return issues
}

func validateMedication(p *entity.MedicationPayload) []ValidationIssue {
	var issues []ValidationIssue
	if p.MedicationName == "" {
		issues = append(issues, required("medication_name"))
	}
	if p.Dose == "" && !p.Refused {
		issues = append(issues, required("dose"))
	}
	if p.Route == "" {
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    "route",
			Message:  "administration route not specified",
		})
	}
	return issues
}

func validateClinicalNote(p *entity.ClinicalNotePayload) []ValidationIssue {
	if p.Text == "" {
		return []ValidationIssue{required("text")}
	}
	return nil
}

func validateFunctionalAssessment(p *entity.FunctionalAssessmentPayload) []ValidationIssue {
	var issues []ValidationIssue
	if p.Activity == "" {
		issues = append(issues, required("activity"))
	}
	if p.Score != nil && *p.Score < 0 {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Field:    "score",
			Message:  "score cannot be negative",
		})
	}
	return issues
}

func validateIncident(p *entity.IncidentPayload) []ValidationIssue {
	var issues []ValidationIssue
	if p.IncidentType == "" {
		issues = append(issues, required("incident_type"))
	}
	if p.Description == "" {
		issues = append(issues, required("description"))
	}
	if p.OccurredAt == "" {
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    "occurred_at",
			Message:  "incident time not specified",
		})
	}
	return issues
}

func validateCarePlan(p *entity.CarePlanPayload) []ValidationIssue {
	if p.Goal == "" {
		return []ValidationIssue{required("goal")}
	}
	return nil
}

func validatePain(p *entity.PainPayload) []ValidationIssue {
	var issues []ValidationIssue
	if p.Score == nil {
		issues = append(issues, required("score"))
	} else if *p.Score < 0 || *p.Score > 10 {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Field:    "score",
			Message:  "pain score must be between 0 and 10",
		})
	}
	if p.Location == "" {
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    "location",
			Message:  "pain location not specified",
		})
	}
	return issues
}

func required(field string) ValidationIssue {
	return ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  fmt.Sprintf("%s is required", field),
	}
}

func checkFloatRange(field string, v *float64, min, max float64) []ValidationIssue {
	if v == nil {
		return nil
	}
	if *v < min || *v > max {
		return []ValidationIssue{{
			Severity: SeverityError,
			Field:    field,
			Message:  fmt.Sprintf("%.1f outside plausible range [%.1f, %.1f]", *v, min, max),
		}}
	}
	return nil
}

func checkIntRange(field string, v *int, min, max int) []ValidationIssue {
	if v == nil {
		return nil
	}
	if *v < min || *v > max {
		return []ValidationIssue{{
			Severity: SeverityError,
			Field:    field,
			Message:  fmt.Sprintf("%d outside plausible range [%d, %d]", *v, min, max),
		}}
	}
	return nil
}
