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

type AuditEntryDB struct {
	ID                 sql.NullString `db:"id"`
	ReviewID           sql.NullString `db:"review_id"`
	DetectedCategories pq.StringArray `db:"detected_categories"`
	TranscriptEdited   sql.NullBool   `db:"transcript_edited"`
	DataEdited         sql.NullBool   `db:"data_edited"`
	ReanalysisCount    sql.NullInt64  `db:"reanalysis_count"`
	CreatedAt          time.Time      `db:"created_at"`
	ConfirmedAt        *time.Time     `db:"confirmed_at"`
	ConfirmedBy        sql.NullString `db:"confirmed_by"`
}

func makeAuditEntry(row AuditEntryDB) entity.CategorizationLogEntry {
	categories := make([]entity.CategoryType, 0, len(row.DetectedCategories))
	for _, c := range row.DetectedCategories {
		categories = append(categories, entity.CategoryType(c))
	}

	entry := entity.CategorizationLogEntry{
		ID:                 row.ID.String,
		ReviewID:           row.ReviewID.String,
		DetectedCategories: categories,
		TranscriptEdited:   row.TranscriptEdited.Bool,
		DataEdited:         row.DataEdited.Bool,
		ReanalysisCount:    int(row.ReanalysisCount.Int64),
		CreatedAt:          row.CreatedAt,
		ConfirmedAt:        row.ConfirmedAt,
	}
	if row.ConfirmedBy.Valid {
		confirmedBy := row.ConfirmedBy.String
		entry.ConfirmedBy = &confirmedBy
	}
	return entry
}

func (r *auditRepository) CreateEntry(c context.Context, entry entity.CategorizationLogEntry) error {
	requestID := contextPkg.GetRequestID(c)

	categories := make([]string, 0, len(entry.DetectedCategories))
	for _, t := range entry.DetectedCategories {
		categories = append(categories, string(t))
	}

	argsKV := map[string]interface{}{
		"id":                  entry.ID,
		"review_id":           entry.ReviewID,
		"detected_categories": pq.StringArray(categories),
		"transcript_edited":   entry.TranscriptEdited,
		"data_edited":         entry.DataEdited,
		"reanalysis_count":    entry.ReanalysisCount,
		"created_at":          entry.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateAuditEntry, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateEntry named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating categorization log entry")
		return err
	}

	return nil
}

func (r *auditRepository) LatestForReview(c context.Context, reviewID string) (entity.CategorizationLogEntry, error) {
	requestID := contextPkg.GetRequestID(c)
	var row AuditEntryDB

	query, args, err := sqlx.Named(queryLatestAuditForReview, map[string]interface{}{"review_id": reviewID})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("LatestForReview named query preparation err")
		return entity.CategorizationLogEntry{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.CategorizationLogEntry{}, review.ErrReviewNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("LatestForReview execution err")
		return entity.CategorizationLogEntry{}, err
	}

	return makeAuditEntry(row), nil
}

func (r *auditRepository) StampConfirmation(c context.Context, reviewID string, userID string, at time.Time) error {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"review_id":    reviewID,
		"confirmed_at": at,
		"confirmed_by": userID,
	}

	query, args, err := sqlx.Named(queryStampConfirmation, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("StampConfirmation named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("StampConfirmation execution err")
		return err
	}

	return nil
}
