package recordingRepository

import (
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
		Recording: &recordingRepository{q: sqlExecutor, log: r.log},
		Commit:    commitFunc,
		Rollback:  rollbackFunc,
	}, nil
}

type Client struct {
	Recording interface {
		CreateRecording(c context.Context, rec entity.VoiceRecording) error
		GetByID(c context.Context, id string) (entity.VoiceRecording, error)
		UpdateStatusGuarded(c context.Context, id string, from []entity.RecordingStatus, to entity.RecordingStatus) (bool, error)
		StoreTranscription(c context.Context, id string, transcript string, seconds float64) error
		ListByStatus(c context.Context, status entity.RecordingStatus, limit int) ([]entity.VoiceRecording, error)
	}

	Commit   func() error
	Rollback func() error
}

type recordingRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
