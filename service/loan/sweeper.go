package loansvc

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs the overdue transition on a timer. The same operation is
// also exposed on demand through the API.
type Sweeper struct {
	svc      Service
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(svc Service, interval time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Run blocks until ctx is canceled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.svc.Sweep(ctx, time.Now().UTC())
			if err != nil {
				s.log.Error("overdue sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.log.Info("overdue sweep", "transitioned", n)
			}
		}
	}
}
