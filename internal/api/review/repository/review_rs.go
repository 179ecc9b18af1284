package reviewRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/snditnz/verbumcare/internal/api/review"
	"github.com/snditnz/verbumcare/internal/entity"
	contextPkg "github.com/snditnz/verbumcare/pkg/context"
)

type ReviewItemDB struct {
	ID                sql.NullString  `db:"id"`
	RecordingID       sql.NullString  `db:"recording_id"`
	UserID            sql.NullString  `db:"user_id"`
	PatientID         sql.NullString  `db:"patient_id"`
	Transcript        sql.NullString  `db:"transcript"`
	TranscriptLang    sql.NullString  `db:"transcript_lang"`
	ExtractedData     []byte          `db:"extracted_data"`
	OverallConfidence sql.NullFloat64 `db:"overall_confidence"`
	Status            sql.NullString  `db:"status"`
	CreatedAt         time.Time       `db:"created_at"`
	ReviewedAt        *time.Time      `db:"reviewed_at"`
}

func (r *reviewRepository) makeReviewItem(row ReviewItemDB) (entity.ReviewItem, error) {
	data, err := entity.UnmarshalExtractedData(row.ExtractedData)
	if err != nil {
		return entity.ReviewItem{}, err
	}

	ctx := entity.FacilityContext()
	if row.PatientID.Valid && row.PatientID.String != "" {
		ctx = entity.PatientContext(row.PatientID.String)
	}

	return entity.ReviewItem{
		ID:                row.ID.String,
		RecordingID:       row.RecordingID.String,
		UserID:            row.UserID.String,
		Context:           ctx,
		Transcript:        row.Transcript.String,
		TranscriptLang:    row.TranscriptLang.String,
		ExtractedData:     data,
		OverallConfidence: row.OverallConfidence.Float64,
		Status:            entity.ReviewStatus(row.Status.String),
		CreatedAt:         row.CreatedAt,
		ReviewedAt:        row.ReviewedAt,
	}, nil
}

func (r *reviewRepository) CreateReviewItem(c context.Context, item entity.ReviewItem) error {
	requestID := contextPkg.GetRequestID(c)

	raw, err := item.ExtractedData.Marshal()
	if err != nil {
		return err
	}

	argsKV := map[string]interface{}{
		"id":                 item.ID,
		"recording_id":       item.RecordingID,
		"user_id":            item.UserID,
		"patient_id":         nullablePatient(item.Context),
		"transcript":         item.Transcript,
		"transcript_lang":    item.TranscriptLang,
		"extracted_data":     raw,
		"overall_confidence": item.OverallConfidence,
		"status":             string(item.Status),
		"created_at":         item.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateReviewItem, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateReviewItem named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			r.log.WithFields(logrus.Fields{
				"request_id":   requestID,
				"recording_id": item.RecordingID,
			}).Warn("Review item already exists for recording")
			return review.ErrDuplicateReview
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating review item")
		return err
	}

	return nil
}

func (r *reviewRepository) GetByID(c context.Context, id string) (entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(c)
	var row ReviewItemDB

	query, args, err := sqlx.Named(queryGetReviewItemByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID named query preparation err")
		return entity.ReviewItem{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ReviewItem{}, review.ErrReviewNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID execution err")
		return entity.ReviewItem{}, err
	}

	return r.makeReviewItem(row)
}

// GetQueue filters by user inside the query itself: isolation is enforced at
// the database boundary, not by the caller.
func (r *reviewRepository) GetQueue(c context.Context, userID string) ([]entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []ReviewItemDB

	query, args, err := sqlx.Named(queryGetQueueByUserID, map[string]interface{}{"user_id": userID})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetQueue named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetQueue execution err")
		return nil, err
	}

	items := make([]entity.ReviewItem, 0, len(rows))
	for _, row := range rows {
		item, err := r.makeReviewItem(row)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"review_id":  row.ID.String,
				"error":      err.Error(),
			}).Error("Skipping review item with undecodable extracted data")
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// UpdateExtractedData only touches rows still open for review. A slow
// re-analysis landing after a confirm or discard sees zero rows here instead
// of overwriting data the domain tables were already built from.
func (r *reviewRepository) UpdateExtractedData(c context.Context, id string, transcript string, lang string, data entity.ExtractedData, confidence float64) error {
	requestID := contextPkg.GetRequestID(c)

	raw, err := data.Marshal()
	if err != nil {
		return err
	}

	argsKV := map[string]interface{}{
		"id":                 id,
		"transcript":         transcript,
		"transcript_lang":    lang,
		"extracted_data":     raw,
		"overall_confidence": confidence,
	}

	query, args, err := sqlx.Named(queryUpdateExtractedData, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateExtractedData named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateExtractedData execution err")
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return review.ErrInvalidTransition
	}

	return nil
}

// UpdateStatusGuarded applies the state machine as a single atomic update:
// the allowed source statuses are bound into the WHERE clause, so a stale
// caller sees zero rows instead of clobbering a concurrent transition.
func (r *reviewRepository) UpdateStatusGuarded(c context.Context, id string, from []entity.ReviewStatus, to entity.ReviewStatus, reviewedAt *time.Time) (bool, error) {
	requestID := contextPkg.GetRequestID(c)

	fromStrs := make([]string, 0, len(from))
	for _, s := range from {
		fromStrs = append(fromStrs, string(s))
	}

	query, args, err := sqlx.In(
		`UPDATE review_items
		 SET status = ?, reviewed_at = COALESCE(?, reviewed_at)
		 WHERE id = ? AND status IN (?)`,
		string(to), reviewedAt, id, fromStrs,
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

func (r *reviewRepository) ListArchiveDue(c context.Context, cutoff time.Time) ([]entity.ReviewItem, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []ReviewItemDB

	query, args, err := sqlx.Named(queryListArchiveDue, map[string]interface{}{"cutoff": cutoff})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListArchiveDue named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListArchiveDue execution err")
		return nil, err
	}

	items := make([]entity.ReviewItem, 0, len(rows))
	for _, row := range rows {
		item, err := r.makeReviewItem(row)
		if err != nil {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func nullablePatient(ctx entity.CareContext) interface{} {
	if ctx.HasPatient() {
		return *ctx.PatientID
	}
	return nil
}
