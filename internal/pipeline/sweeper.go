package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	reviewService "github.com/snditnz/verbumcare/internal/api/review/service"
)

const sweepEvery = time.Hour

// Sweeper archives review items that sat non-terminal for over 7 days.
type Sweeper struct {
	log     *logrus.Logger
	reviews reviewService.IReviewService
}

func NewSweeper(log *logrus.Logger, reviews reviewService.IReviewService) *Sweeper {
	return &Sweeper{log: log, reviews: reviews}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()

		s.sweep(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	s.log.Info("Archival sweeper started")
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.reviews.ArchiveExpired(ctx, time.Now()); err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Archival sweep failed")
	}
}
