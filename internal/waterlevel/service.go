package waterlevel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/soeholm/vandstand/internal/observability"
	"github.com/soeholm/vandstand/internal/stations"
)

// Service orchestrates the whole pipeline for a request: cache lookup, the
// concurrent source fan-out, fusion, and the cache write. Sources are held in
// priority order; the first usable reading wins.
type Service struct {
	sources      []Source
	fuser        *Fuser
	store        Store
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
	fetchTimeout time.Duration

	// group serializes the miss -> fetch -> fuse -> write cycle per station,
	// so concurrent misses share one fan-out instead of racing.
	group singleflight.Group
}

func NewService(sources []Source, fuser *Fuser, store Store, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, fetchTimeout time.Duration) *Service {
	return &Service{
		sources:      sources,
		fuser:        fuser,
		store:        store,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		fetchTimeout: fetchTimeout,
	}
}

// WaterLevel returns the fused response for a station, from cache when the
// entry is still inside its TTL. It degrades to simulated data rather than
// failing when every source is down.
func (s *Service) WaterLevel(ctx context.Context, station stations.Station) (FusedResponse, error) {
	if resp, age, ok := s.store.Get(station.Name); ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		resp.Cached = true
		resp.CacheAgeSeconds = int(age.Seconds())
		return resp, nil
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := s.group.Do(station.Name, func() (any, error) {
		return s.refresh(ctx, station), nil
	})
	if err != nil {
		// refresh never returns an error; keep the check for the interface.
		return FusedResponse{}, err
	}
	return v.(FusedResponse), nil
}

// Prime runs a full fetch-and-fuse cycle and overwrites the cache entry
// regardless of TTL. The scheduler uses it to keep the cache warm.
func (s *Service) Prime(ctx context.Context, station stations.Station) {
	_, _, _ = s.group.Do(station.Name, func() (any, error) {
		return s.refresh(ctx, station), nil
	})
}

// refresh is the critical section: one adapter fan-out, one fusion, one
// cache write. The result is both stored and returned.
func (s *Service) refresh(ctx context.Context, station stations.Station) FusedResponse {
	// Detach from the caller so a disconnect does not abort work that will
	// populate the cache for the next request.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
	defer cancel()

	readings := s.fetchAll(fetchCtx, station)
	resp := s.fuser.Fuse(station.Name, readings, s.clock.Now())

	s.metrics.Responses.WithLabelValues(resp.Metadata.Source).Inc()
	s.logger.Info("fused water level",
		"station", station.Name,
		"source", resp.Metadata.Source,
		"current_cm", resp.Current.Value,
	)

	s.store.Put(station.Name, resp)
	return resp
}

// fetchAll queries every source concurrently and returns the successful
// readings in priority order. A slow or failing source cannot delay the
// others beyond the shared deadline, and a panicking one is contained here.
func (s *Service) fetchAll(ctx context.Context, station stations.Station) []Reading {
	results := make([]*Reading, len(s.sources))

	var wg sync.WaitGroup
	for i, src := range s.sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := s.clock.Now()
			reading, err := s.fetchOne(ctx, src, station)
			s.metrics.SourceFetchDuration.WithLabelValues(src.Name()).Observe(s.clock.Since(start).Seconds())

			if err != nil {
				s.metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
				s.logger.Warn("source fetch failed", "source", src.Name(), "station", station.Name, "error", err)
				return
			}
			if !reading.Usable() {
				s.metrics.SourceFetches.WithLabelValues(src.Name(), "empty").Inc()
				s.logger.Debug("source answered without a level", "source", src.Name(), "station", station.Name)
			} else {
				s.metrics.SourceFetches.WithLabelValues(src.Name(), "success").Inc()
			}
			results[i] = &reading
		}()
	}
	wg.Wait()

	readings := make([]Reading, 0, len(results))
	for _, r := range results {
		if r != nil {
			readings = append(readings, *r)
		}
	}
	return readings
}

// fetchOne guards the adapter boundary: a panic inside a scraper becomes an
// ordinary failed fetch instead of taking down the request.
func (s *Service) fetchOne(ctx context.Context, src Source, station stations.Station) (reading Reading, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: source %s panicked: %v", ErrParse, src.Name(), r)
		}
	}()
	return src.Fetch(ctx, station)
}

// Fallback builds a simulated response without touching cache or sources.
// The HTTP error handler uses it so a 500 still carries a valid payload.
func (s *Service) Fallback(station string) FusedResponse {
	return s.fuser.Simulated(station, s.clock.Now())
}

// Invalidate clears the cache entry for one station.
func (s *Service) Invalidate(station string) {
	s.store.Invalidate(station)
}

// InvalidateAll clears every cache entry.
func (s *Service) InvalidateAll() {
	s.store.InvalidateAll()
}

// CacheState reports the cache health for a station: valid, expired or empty.
func (s *Service) CacheState(station string) string {
	return s.store.State(station)
}
