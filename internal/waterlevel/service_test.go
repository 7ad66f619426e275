package waterlevel_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soeholm/vandstand/internal/cache"
	"github.com/soeholm/vandstand/internal/observability"
	"github.com/soeholm/vandstand/internal/stations"
	"github.com/soeholm/vandstand/internal/tide"
	"github.com/soeholm/vandstand/internal/waterlevel"
)

// stubSource is a controllable Source for service tests.
type stubSource struct {
	name  string
	value *int
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, _ stations.Station) (waterlevel.Reading, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return waterlevel.Reading{}, waterlevel.ErrUnreachable
		}
	}
	if s.err != nil {
		return waterlevel.Reading{}, s.err
	}
	return waterlevel.Reading{Source: s.name, ValueCm: s.value, ObservedAt: time.Now().UTC()}, nil
}

type panicSource struct{ name string }

func (p *panicSource) Name() string { return p.name }

func (p *panicSource) Fetch(context.Context, stations.Station) (waterlevel.Reading, error) {
	panic("selector went away")
}

func intp(v int) *int { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(clock clockwork.Clock, ttl time.Duration, srcs ...waterlevel.Source) *waterlevel.Service {
	fuser := waterlevel.NewFuser(tide.NewModel(tide.DefaultConfig()))
	store := cache.NewTTLStore(ttl, clock)
	return waterlevel.NewService(srcs, fuser, store, clock, discardLogger(), observability.NewTestMetrics(), 5*time.Second)
}

func TestWaterLevelCachesWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &stubSource{name: "Esbjerg Havn", value: intp(55)}
	svc := newTestService(clock, 5*time.Minute, src)
	station := stations.Default()

	first, err := svc.WaterLevel(context.Background(), station)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 55, first.Current.Value)

	clock.Advance(90 * time.Second)
	second, err := svc.WaterLevel(context.Background(), station)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 90, second.CacheAgeSeconds)
	assert.Equal(t, int64(1), src.calls.Load(), "cached request must not refetch")

	// Identical payloads apart from the cache stamps.
	second.Cached = false
	second.CacheAgeSeconds = 0
	assert.Equal(t, first, second)
}

func TestWaterLevelRefetchesAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &stubSource{name: "Esbjerg Havn", value: intp(55)}
	svc := newTestService(clock, 5*time.Minute, src)
	station := stations.Default()

	first, err := svc.WaterLevel(context.Background(), station)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	second, err := svc.WaterLevel(context.Background(), station)
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.Equal(t, int64(2), src.calls.Load())
	assert.True(t, second.Metadata.LastUpdate.After(first.Metadata.LastUpdate))
}

func TestWaterLevelPriorityPick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(clock, time.Minute,
		&stubSource{name: "Esbjerg Havn", value: intp(55)},
		&stubSource{name: "DMI Website", value: intp(70)},
	)

	resp, err := svc.WaterLevel(context.Background(), stations.Default())
	require.NoError(t, err)
	assert.Equal(t, 55, resp.Current.Value)
	assert.Equal(t, "Esbjerg Havn", resp.Metadata.Source)
}

func TestWaterLevelFailoverToLowerPriority(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(clock, time.Minute,
		&stubSource{name: "Esbjerg Havn", err: waterlevel.ErrUnreachable},
		&stubSource{name: "DMI Website", err: errors.New("selector drift")},
		&stubSource{name: "DMI Public Data", value: intp(-23)},
	)

	resp, err := svc.WaterLevel(context.Background(), stations.Default())
	require.NoError(t, err)
	assert.Equal(t, -23, resp.Current.Value)
	assert.Equal(t, "DMI Public Data", resp.Metadata.Source)
}

func TestWaterLevelDegradesToSimulated(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(clock, time.Minute,
		&stubSource{name: "Esbjerg Havn", err: waterlevel.ErrUnreachable},
		&stubSource{name: "DMI Website", err: waterlevel.ErrParse},
	)

	resp, err := svc.WaterLevel(context.Background(), stations.Default())
	require.NoError(t, err, "full source failure must not surface as an error")
	assert.Equal(t, waterlevel.SourceSimulated, resp.Metadata.Source)

	model := tide.NewModel(tide.DefaultConfig())
	assert.Equal(t, model.Estimate(clock.Now(), 0), resp.Current.Value)
}

func TestWaterLevelContainsPanickingSource(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(clock, time.Minute,
		&panicSource{name: "Esbjerg Havn"},
		&stubSource{name: "DMI Website", value: intp(70)},
	)

	resp, err := svc.WaterLevel(context.Background(), stations.Default())
	require.NoError(t, err)
	assert.Equal(t, 70, resp.Current.Value)
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &stubSource{name: "Esbjerg Havn", value: intp(55), delay: 100 * time.Millisecond}
	svc := newTestService(clock, time.Minute, src)
	station := stations.Default()

	var wg sync.WaitGroup
	responses := make([]waterlevel.FusedResponse, 2)
	for i := range responses {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.WaterLevel(context.Background(), station)
			assert.NoError(t, err)
			responses[i] = resp
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), src.calls.Load(), "concurrent misses must share one fan-out")

	// One of the two may have been served from cache if the goroutines
	// serialized; the payloads still have to match apart from the stamps.
	for i := range responses {
		responses[i].Cached = false
		responses[i].CacheAgeSeconds = 0
	}
	assert.Equal(t, responses[0], responses[1])
}

func TestPrimeOverwritesValidEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &stubSource{name: "Esbjerg Havn", value: intp(55)}
	svc := newTestService(clock, time.Hour, src)
	station := stations.Default()

	_, err := svc.WaterLevel(context.Background(), station)
	require.NoError(t, err)

	svc.Prime(context.Background(), station)
	assert.Equal(t, int64(2), src.calls.Load(), "prime must refresh regardless of TTL")
}

func TestFallbackNeverTouchesSources(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &stubSource{name: "Esbjerg Havn", value: intp(55)}
	svc := newTestService(clock, time.Minute, src)

	resp := svc.Fallback("Nordby")
	assert.Equal(t, waterlevel.SourceSimulated, resp.Metadata.Source)
	assert.Equal(t, "Nordby", resp.Station)
	assert.Zero(t, src.calls.Load())
}

func TestCacheStateTransitions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(clock, 5*time.Minute, &stubSource{name: "Esbjerg Havn", value: intp(55)})
	station := stations.Default()

	assert.Equal(t, cache.StateEmpty, svc.CacheState(station.Name))

	_, err := svc.WaterLevel(context.Background(), station)
	require.NoError(t, err)
	assert.Equal(t, cache.StateValid, svc.CacheState(station.Name))

	clock.Advance(10 * time.Minute)
	assert.Equal(t, cache.StateExpired, svc.CacheState(station.Name))

	svc.Invalidate(station.Name)
	assert.Equal(t, cache.StateEmpty, svc.CacheState(station.Name))
}
