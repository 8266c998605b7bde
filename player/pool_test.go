package player

import (
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Strum355/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitSimpleLogger(&log.Config{Output: io.Discard})
	os.Exit(m.Run())
}

type stubPlayer struct {
	mu       sync.Mutex
	status   Status
	stopped  int
	handlers bool
}

func (s *stubPlayer) Play(*Resource) {}
func (s *stubPlayer) Stop(bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	s.status = StatusIdle
	return true
}
func (s *stubPlayer) Pause() bool   { return false }
func (s *stubPlayer) Unpause() bool { return false }
func (s *stubPlayer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
func (s *stubPlayer) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}
func (s *stubPlayer) Subscribe(Sink)   {}
func (s *stubPlayer) Unsubscribe(Sink) {}
func (s *stubPlayer) SetHandlers(func(), func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = true
}
func (s *stubPlayer) ClearHandlers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPool(t *testing.T) (*Pool, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	pool := NewPool(func() Player { return &stubPlayer{} }, WithSweepInterval(time.Hour))
	pool.now = clock.Now
	t.Cleanup(pool.Destroy)
	return pool, clock
}

func TestPool_ReusesPlayer(t *testing.T) {
	pool, _ := newTestPool(t)

	first := pool.GetOrCreatePlayer("guild-1")
	second := pool.GetOrCreatePlayer("guild-1")
	other := pool.GetOrCreatePlayer("guild-2")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

func TestPool_GetPlayerDoesNotCreate(t *testing.T) {
	pool, _ := newTestPool(t)

	_, ok := pool.GetPlayer("guild-1")
	assert.False(t, ok)
	assert.Equal(t, 0, pool.Stats().TotalPlayers)

	created := pool.GetOrCreatePlayer("guild-1")
	got, ok := pool.GetPlayer("guild-1")
	require.True(t, ok)
	assert.Same(t, created, got)
}

func TestPool_RemovePlayer(t *testing.T) {
	pool, _ := newTestPool(t)

	first := pool.GetOrCreatePlayer("guild-1")
	first.SetHandlers(func() {}, nil)

	pool.RemovePlayer("guild-1")

	stub := first.(*stubPlayer)
	assert.Equal(t, 1, stub.stopped)
	assert.False(t, stub.handlers)

	second := pool.GetOrCreatePlayer("guild-1")
	assert.NotSame(t, first, second)

	assert.NotPanics(t, func() {
		pool.RemovePlayer("guild-1")
		pool.RemovePlayer("guild-1")
		pool.RemovePlayer("never-seen")
	})
}

func TestPool_SweepRemovesOnlyExpiredIdlePlayers(t *testing.T) {
	pool, clock := newTestPool(t)

	idleOld := pool.GetOrCreatePlayer("idle-old").(*stubPlayer)
	playingOld := pool.GetOrCreatePlayer("playing-old").(*stubPlayer)
	playingOld.setStatus(StatusPlaying)

	clock.Advance(2 * time.Hour)
	idleFresh := pool.GetOrCreatePlayer("idle-fresh").(*stubPlayer)

	removed := pool.sweep()
	assert.Equal(t, 1, removed)

	_, ok := pool.GetPlayer("idle-old")
	assert.False(t, ok)
	assert.Equal(t, 1, idleOld.stopped)

	_, ok = pool.GetPlayer("playing-old")
	assert.True(t, ok)
	assert.Zero(t, playingOld.stopped)

	_, ok = pool.GetPlayer("idle-fresh")
	assert.True(t, ok)
	assert.Zero(t, idleFresh.stopped)
}

func TestPool_TouchKeepsPlayerAlive(t *testing.T) {
	pool, clock := newTestPool(t)
	pool.GetOrCreatePlayer("guild-1")

	clock.Advance(50 * time.Minute)
	pool.Touch("guild-1")
	clock.Advance(50 * time.Minute)

	assert.Zero(t, pool.sweep())
}

func TestPool_Stats(t *testing.T) {
	pool, _ := newTestPool(t)

	pool.GetOrCreatePlayer("a")
	pool.GetOrCreatePlayer("b").(*stubPlayer).setStatus(StatusPlaying)
	pool.GetOrCreatePlayer("c").(*stubPlayer).setStatus(StatusPaused)

	assert.Equal(t, Stats{TotalPlayers: 3, ActivePlayers: 1, IdlePlayers: 1}, pool.Stats())
}

func TestPool_Destroy(t *testing.T) {
	pool, _ := newTestPool(t)

	a := pool.GetOrCreatePlayer("a").(*stubPlayer)
	b := pool.GetOrCreatePlayer("b").(*stubPlayer)

	pool.Destroy()
	pool.Destroy()

	assert.Equal(t, 1, a.stopped)
	assert.Equal(t, 1, b.stopped)
	assert.Equal(t, 0, pool.Stats().TotalPlayers)
}
