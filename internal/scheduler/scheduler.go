package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/soeholm/vandstand/internal/stations"
	"github.com/soeholm/vandstand/internal/waterlevel"
)

// Scheduler keeps the cache warm by periodically re-running the fetch-and-
// fuse cycle for every registered station, so most requests hit a valid
// entry instead of paying for a fan-out.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *waterlevel.Service
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

func New(service *waterlevel.Service, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the periodic prefetch job. A zero interval disables the
// scheduler; the cache then fills on demand only.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("prefetch disabled; cache fills on demand")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.logger.Debug("prefetch: refreshing all stations")

		var wg sync.WaitGroup
		for _, st := range stations.All() {
			st := st
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
				defer cancel()
				s.service.Prime(ctx, st)
			}()
		}
		wg.Wait()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels all future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
