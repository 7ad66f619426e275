package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soeholm/vandstand/internal/waterlevel"
)

func TestTTLStoreGetWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewTTLStore(5*time.Minute, clock)

	store.Put("Esbjerg Havn I", waterlevel.FusedResponse{Station: "Esbjerg Havn I"})

	clock.Advance(time.Minute)
	resp, age, ok := store.Get("Esbjerg Havn I")
	require.True(t, ok)
	assert.Equal(t, "Esbjerg Havn I", resp.Station)
	assert.Equal(t, time.Minute, age)
}

func TestTTLStoreExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewTTLStore(5*time.Minute, clock)

	store.Put("Esbjerg Havn I", waterlevel.FusedResponse{Station: "Esbjerg Havn I"})
	clock.Advance(5 * time.Minute)

	_, _, ok := store.Get("Esbjerg Havn I")
	assert.False(t, ok)
	assert.Equal(t, StateExpired, store.State("Esbjerg Havn I"))
}

func TestTTLStoreKeysAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewTTLStore(5*time.Minute, clock)

	store.Put("Esbjerg Havn I", waterlevel.FusedResponse{Station: "Esbjerg Havn I"})
	clock.Advance(4 * time.Minute)
	store.Put("Nordby", waterlevel.FusedResponse{Station: "Nordby"})
	clock.Advance(2 * time.Minute)

	_, _, ok := store.Get("Esbjerg Havn I")
	assert.False(t, ok, "older entry should have expired")

	resp, _, ok := store.Get("Nordby")
	require.True(t, ok, "newer entry should still be valid")
	assert.Equal(t, "Nordby", resp.Station)
}

func TestTTLStoreInvalidate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewTTLStore(5*time.Minute, clock)

	store.Put("Esbjerg Havn I", waterlevel.FusedResponse{Station: "Esbjerg Havn I"})
	store.Put("Nordby", waterlevel.FusedResponse{Station: "Nordby"})

	store.Invalidate("Esbjerg Havn I")
	_, _, ok := store.Get("Esbjerg Havn I")
	assert.False(t, ok)
	_, _, ok = store.Get("Nordby")
	assert.True(t, ok)

	store.InvalidateAll()
	_, _, ok = store.Get("Nordby")
	assert.False(t, ok)
	assert.Equal(t, StateEmpty, store.State("Nordby"))
}

func TestTTLStoreState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewTTLStore(5*time.Minute, clock)

	assert.Equal(t, StateEmpty, store.State("Esbjerg Havn I"))

	store.Put("Esbjerg Havn I", waterlevel.FusedResponse{})
	assert.Equal(t, StateValid, store.State("Esbjerg Havn I"))

	clock.Advance(6 * time.Minute)
	assert.Equal(t, StateExpired, store.State("Esbjerg Havn I"))
}

func TestTTLStorePutOverwrites(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewTTLStore(5*time.Minute, clock)

	store.Put("Esbjerg Havn I", waterlevel.FusedResponse{Current: waterlevel.TimedLevel{Value: 1}})
	clock.Advance(4 * time.Minute)
	store.Put("Esbjerg Havn I", waterlevel.FusedResponse{Current: waterlevel.TimedLevel{Value: 2}})

	resp, age, ok := store.Get("Esbjerg Havn I")
	require.True(t, ok)
	assert.Equal(t, 2, resp.Current.Value)
	assert.Equal(t, time.Duration(0), age)
}
