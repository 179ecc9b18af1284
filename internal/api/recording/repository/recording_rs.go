package recordingRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/api/recording"
	"github.com/snditnz/verbumcare/internal/entity"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
)

type VoiceRecordingDB struct {
	ID              sql.NullString  `db:"id"`
	UserID          sql.NullString  `db:"user_id"`
	AudioURL        sql.NullString  `db:"audio_url"`
	DurationSeconds sql.NullFloat64 `db:"duration_seconds"`
	Transcript      sql.NullString  `db:"transcript"`
	PatientID       sql.NullString  `db:"patient_id"`
	LanguageHint    sql.NullString  `db:"language_hint"`
	Status          sql.NullString  `db:"status"`
	CapturedAt      time.Time       `db:"captured_at"`
	CreatedAt       time.Time       `db:"created_at"`
}

func makeVoiceRecording(row VoiceRecordingDB) entity.VoiceRecording {
	ctx := entity.FacilityContext()
	if row.PatientID.Valid && row.PatientID.String != "" {
		ctx = entity.PatientContext(row.PatientID.String)
	}

	return entity.VoiceRecording{
		ID:              row.ID.String,
		UserID:          row.UserID.String,
		AudioURL:        row.AudioURL.String,
		DurationSeconds: row.DurationSeconds.Float64,
		Transcript:      row.Transcript.String,
		Context:         ctx,
		LanguageHint:    row.LanguageHint.String,
		Status:          entity.RecordingStatus(row.Status.String),
		CapturedAt:      row.CapturedAt,
		CreatedAt:       row.CreatedAt,
	}
}

func (r *recordingRepository) CreateRecording(c context.Context, rec entity.VoiceRecording) error {
	requestID := contextPkg.GetRequestID(c)

	var patientID interface{}
	if rec.Context.HasPatient() {
		patientID = *rec.Context.PatientID
	}

	argsKV := map[string]interface{}{
		"id":               rec.ID,
		"user_id":          rec.UserID,
		"audio_url":        rec.AudioURL,
		"duration_seconds": rec.DurationSeconds,
		"transcript":       rec.Transcript,
		"patient_id":       patientID,
		"language_hint":    rec.LanguageHint,
		"status":           string(rec.Status),
		"captured_at":      rec.CapturedAt,
		"created_at":       rec.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateRecording, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateRecording named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating voice recording")
		return err
	}

	return nil
}

func (r *recordingRepository) GetByID(c context.Context, id string) (entity.VoiceRecording, error) {
	requestID := contextPkg.GetRequestID(c)
	var row VoiceRecordingDB

	query, args, err := sqlx.Named(queryGetRecordingByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID named query preparation err")
		return entity.VoiceRecording{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.VoiceRecording{}, recording.ErrRecordingNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID execution err")
		return entity.VoiceRecording{}, err
	}

	return makeVoiceRecording(row), nil
}

// UpdateStatusGuarded is the only mutation recordings see after creation.
// Guarding on the source statuses keeps a late pipeline result from
// resurrecting a discarded recording.
func (r *recordingRepository) UpdateStatusGuarded(c context.Context, id string, from []entity.RecordingStatus, to entity.RecordingStatus) (bool, error) {
	requestID := contextPkg.GetRequestID(c)

	fromStrs := make([]string, 0, len(from))
	for _, s := range from {
		fromStrs = append(fromStrs, string(s))
	}

	query, args, err := sqlx.In(
		`UPDATE voice_recordings SET status = ? WHERE id = ? AND status IN (?)`,
		string(to), id, fromStrs,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateStatusGuarded query preparation err")
		return false, err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateStatusGuarded execution err")
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *recordingRepository) ListByStatus(c context.Context, status entity.RecordingStatus, limit int) ([]entity.VoiceRecording, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []VoiceRecordingDB

	query, args, err := sqlx.Named(queryListByStatus, map[string]interface{}{
		"status": string(status),
		"limit":  limit,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListByStatus named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListByStatus execution err")
		return nil, err
	}

	recordings := make([]entity.VoiceRecording, 0, len(rows))
	for _, row := range rows {
		recordings = append(recordings, makeVoiceRecording(row))
	}

	return recordings, nil
}

// StoreTranscription persists the transcript alongside the measured duration
// so the text survives even when a later stage marks the recording failed.
func (r *recordingRepository) StoreTranscription(c context.Context, id string, transcript string, seconds float64) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryStoreTranscription, map[string]interface{}{
		"id":               id,
		"transcript":       transcript,
		"duration_seconds": seconds,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("StoreTranscription named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("StoreTranscription execution err")
		return err
	}

	return nil
}
