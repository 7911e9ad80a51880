package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hookprof/internal/site/querylog"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeCache struct {
	hits, misses int64
}

func (c *fakeCache) Hits() int64   { return c.hits }
func (c *fakeCache) Misses() int64 { return c.misses }

func enabledLog() *querylog.Log {
	log := querylog.New()
	log.SetEnabled(true)
	return log
}

func TestLogger_QueryDeltaPairing(t *testing.T) {
	clock := newFakeClock()
	log := enabledLog()
	log.Record("SELECT before", time.Millisecond, "")
	log.Record("SELECT before", time.Millisecond, "")

	tracker := NewTracker(clock.Now, log, nil)
	l := tracker.NewLogger(KindSpan)
	l.Start()
	log.Record("SELECT 1", 1*time.Millisecond, "")
	log.Record("SELECT 2", 2*time.Millisecond, "")
	log.Record("SELECT 3", 3*time.Millisecond, "")
	clock.Advance(10 * time.Millisecond)
	l.Stop()

	assert.Equal(t, 3, l.QueryCount)
	assert.Equal(t, 6*time.Millisecond, l.QueryTime)
	assert.Equal(t, []int{2, 3, 4}, l.QueryIndices)
	assert.Equal(t, 10*time.Millisecond, l.Time)
}

func TestLogger_AccumulatesAcrossSpans(t *testing.T) {
	clock := newFakeClock()
	log := enabledLog()
	tracker := NewTracker(clock.Now, log, nil)
	l := tracker.NewLogger(KindSpan)

	for range 2 {
		l.Start()
		log.Record("SELECT 1", time.Millisecond, "")
		clock.Advance(5 * time.Millisecond)
		l.Stop()
		clock.Advance(100 * time.Millisecond)
	}

	assert.Equal(t, 10*time.Millisecond, l.Time)
	assert.Equal(t, 2, l.QueryCount)
	assert.Equal(t, []int{0, 1}, l.QueryIndices)
}

func TestLogger_StopWithoutStart(t *testing.T) {
	tracker := NewTracker(nil, nil, nil)
	l := tracker.NewLogger(KindHook)

	assert.NotPanics(t, func() {
		l.Stop()
		l.StopHookTimer()
		l.StopRequestTimer()
	})
	assert.Zero(t, l.Time)
	assert.Zero(t, l.HookTime)
	assert.Zero(t, l.RequestTime)
	assert.Empty(t, tracker.Active())
}

func TestLogger_StartIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(clock.Now, nil, nil)
	l := tracker.NewLogger(KindHook)

	l.Start()
	clock.Advance(5 * time.Millisecond)
	l.Start()
	clock.Advance(5 * time.Millisecond)
	l.Stop()

	assert.Equal(t, 10*time.Millisecond, l.Time)
	assert.Len(t, tracker.Active(), 0)
}

func TestLogger_HookTimerReentrancy(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		clock := newFakeClock()
		tracker := NewTracker(clock.Now, nil, nil)
		l := tracker.NewLogger(KindStage)

		for range n {
			l.StartHookTimer()
			clock.Advance(time.Millisecond)
		}
		for range n {
			l.StopHookTimer()
			clock.Advance(time.Millisecond)
		}

		// Only the interval from the first start to the last stop counts.
		assert.Equal(t, time.Duration(2*n-1)*time.Millisecond, l.HookTime, "n=%d", n)
		assert.Equal(t, 1, l.HookCount, "n=%d", n)
	}
}

func TestLogger_ExclusiveSubtractsHookTime(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(clock.Now, nil, nil)
	l := tracker.NewLogger(KindCallback)
	l.exclusive = true

	l.Start()
	clock.Advance(10 * time.Millisecond)
	l.StartHookTimer()
	clock.Advance(5 * time.Millisecond)
	l.StopHookTimer()
	clock.Advance(1 * time.Millisecond)
	l.Stop()

	assert.Equal(t, 11*time.Millisecond, l.Time)
	assert.Equal(t, 5*time.Millisecond, l.HookTime)
}

func TestLogger_StopClosesOpenHookTimer(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(clock.Now, nil, nil)
	l := tracker.NewLogger(KindStage)

	l.Start()
	l.StartHookTimer()
	l.StartHookTimer()
	clock.Advance(4 * time.Millisecond)
	l.Stop()

	assert.Equal(t, 4*time.Millisecond, l.HookTime)
	l.StopHookTimer()
	assert.Equal(t, 4*time.Millisecond, l.HookTime)
}

func TestLogger_RequestTimer(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(clock.Now, nil, nil)
	l := tracker.NewLogger(KindSpan)

	l.StartRequestTimer()
	clock.Advance(20 * time.Millisecond)
	l.StopRequestTimer()
	l.StopRequestTimer()

	assert.Equal(t, 1, l.RequestCount)
	assert.Equal(t, 20*time.Millisecond, l.RequestTime)
}

func TestLogger_CacheDeltas(t *testing.T) {
	cache := &fakeCache{hits: 10, misses: 4}
	tracker := NewTracker(nil, nil, cache)
	l := tracker.NewLogger(KindCallback)

	l.Start()
	cache.hits += 3
	cache.misses++
	l.Stop()

	assert.Equal(t, int64(3), l.CacheHits)
	assert.Equal(t, int64(1), l.CacheMisses)
	require.NotNil(t, l.CacheRatio())
	assert.Equal(t, 75.0, *l.CacheRatio())
}

func TestCacheRatio(t *testing.T) {
	tests := []struct {
		name   string
		hits   int64
		misses int64
		want   string
	}{
		{name: "no lookups", want: ""},
		{name: "all hits", hits: 3, want: "100%"},
		{name: "all misses", misses: 3, want: "0%"},
		{name: "one third", hits: 1, misses: 2, want: "33.33%"},
		{name: "two thirds", hits: 2, misses: 1, want: "66.67%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio := CacheRatio(tt.hits, tt.misses)
			if tt.hits+tt.misses == 0 {
				assert.Nil(t, ratio)
			}
			assert.Equal(t, tt.want, FormatRatio(ratio))
		})
	}
}

func TestCacheDelta_ClampsNegative(t *testing.T) {
	hits, misses := CacheDelta(1, 2, 5, 1)
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(1), misses)
}

func TestQueryDelta(t *testing.T) {
	window := []querylog.Query{
		{SQL: "a", Elapsed: time.Millisecond},
		{SQL: "b", Elapsed: 3 * time.Millisecond},
	}
	stats := QueryDelta(window, 7)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 4*time.Millisecond, stats.Time)
	assert.Equal(t, []int{7, 8}, stats.Indices)

	assert.Equal(t, QueryStats{}, QueryDelta(nil, 3))
}

func TestTracker_BroadcastsToActiveLoggers(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(clock.Now, nil, nil)
	a := tracker.NewLogger(KindStage)
	b := tracker.NewLogger(KindHook)
	idle := tracker.NewLogger(KindHook)

	a.Start()
	b.Start()
	b.Start()
	assert.Len(t, tracker.Active(), 2)

	tracker.StartHookTimers()
	clock.Advance(2 * time.Millisecond)
	tracker.StopHookTimers()

	assert.Equal(t, 1, a.HookCount)
	assert.Equal(t, 1, b.HookCount)
	assert.Equal(t, 2*time.Millisecond, b.HookTime)
	assert.Zero(t, idle.HookCount)

	b.Stop()
	tracker.StartHookTimers()
	tracker.StopHookTimers()
	assert.Equal(t, 2, a.HookCount)
	assert.Equal(t, 1, b.HookCount)
}
