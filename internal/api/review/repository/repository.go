package reviewRepository

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/entity"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

// NewClient with tx=true binds every interface in the returned Client to one
// transaction; the confirm path relies on this for its all-or-nothing
// multi-table write.
func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Review: &reviewRepository{q: sqlExecutor, log: r.log},
		Audit:  &auditRepository{q: sqlExecutor, log: r.log},
		Domain: &domainRepository{q: sqlExecutor, log: r.log},

		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Review interface {
		CreateReviewItem(c context.Context, item entity.ReviewItem) error
		GetByID(c context.Context, id string) (entity.ReviewItem, error)
		GetQueue(c context.Context, userID string) ([]entity.ReviewItem, error)
		UpdateExtractedData(c context.Context, id string, transcript string, lang string, data entity.ExtractedData, confidence float64) error
		UpdateStatusGuarded(c context.Context, id string, from []entity.ReviewStatus, to entity.ReviewStatus, reviewedAt *time.Time) (bool, error)
		ListArchiveDue(c context.Context, cutoff time.Time) ([]entity.ReviewItem, error)
	}

	Audit interface {
		CreateEntry(c context.Context, entry entity.CategorizationLogEntry) error
		LatestForReview(c context.Context, reviewID string) (entity.CategorizationLogEntry, error)
		StampConfirmation(c context.Context, reviewID string, userID string, at time.Time) error
	}

	Domain interface {
		InsertCategory(c context.Context, recordID string, item entity.ReviewItem, category entity.Category) error
	}

	Commit   func() error
	Rollback func() error
}

type reviewRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type auditRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type domainRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
