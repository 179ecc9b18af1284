package reviewRepository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/entity"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
)

// InsertCategory writes one category's final payload into its domain table.
// Every insert binds the patient reference from the review item's context,
// which keeps all rows of one confirm on the same patient association.
func (r *domainRepository) InsertCategory(c context.Context, recordID string, item entity.ReviewItem, category entity.Category) error {
	requestID := contextPkg.GetRequestID(c)

	base := map[string]interface{}{
		"id":           recordID,
		"patient_id":   nullablePatient(item.Context),
		"recording_id": item.RecordingID,
		"created_at":   time.Now(),
	}

	var query string

	switch category.Type {
	case entity.CategoryVitals:
		p := category.Vitals
		query = queryInsertVitals
		base["temperature_celsius"] = p.TemperatureCelsius
		base["systolic_bp"] = p.SystolicBP
		base["diastolic_bp"] = p.DiastolicBP
		base["heart_rate"] = p.HeartRate
		base["respiratory_rate"] = p.RespiratoryRate
		base["spo2"] = p.SpO2
		base["measured_at"] = p.MeasuredAt
		base["notes"] = p.Notes
	case entity.CategoryMedication:
		p := category.Medication
		query = queryInsertMedication
		base["medication_name"] = p.MedicationName
		base["dose"] = p.Dose
		base["route"] = p.Route
		base["administered_at"] = p.AdministeredAt
		base["refused"] = p.Refused
		base["notes"] = p.Notes
	case entity.CategoryClinicalNote:
		p := category.ClinicalNote
		query = queryInsertClinicalNote
		base["note_type"] = p.NoteType
		base["text"] = p.Text
	case entity.CategoryFunctionalAssessment:
		p := category.FunctionalAssessment
		query = queryInsertFunctionalAssessment
		base["activity"] = p.Activity
		base["assist_level"] = p.AssistLevel
		base["observation"] = p.Observation
		base["assessed_scale"] = p.AssessedScale
		base["score"] = p.Score
	case entity.CategoryIncident:
		p := category.Incident
		query = queryInsertIncident
		base["incident_type"] = p.IncidentType
		base["description"] = p.Description
		base["occurred_at"] = p.OccurredAt
		base["location"] = p.Location
		base["injury_seen"] = p.InjurySeen
		base["action_taken"] = p.ActionTaken
	case entity.CategoryCarePlan:
		p := category.CarePlan
		query = queryInsertCarePlan
		base["goal"] = p.Goal
		base["intervention"] = p.Intervention
		base["target_date"] = p.TargetDate
		base["discipline"] = p.Discipline
	case entity.CategoryPain:
		p := category.Pain
		query = queryInsertPain
		base["score"] = p.Score
		base["scale"] = p.Scale
		base["location"] = p.Location
		base["character"] = p.Character
		base["relief_given"] = p.ReliefGiven
		base["notes"] = p.Notes
	default:
		return fmt.Errorf("unknown category type %q", category.Type)
	}

	bound, args, err := sqlx.Named(query, base)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"category":   category.Type,
			"error":      err.Error(),
		}).Error("InsertCategory named query preparation err")
		return err
	}
	bound = r.q.Rebind(bound)

	if _, err := r.q.ExecContext(c, bound, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"category":   category.Type,
			"error":      err.Error(),
		}).Error("InsertCategory execution err")
		return err
	}

	return nil
}
