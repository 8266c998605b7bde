package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Nocturne/player"
	"Nocturne/searchy"
	"Nocturne/validation"

	"github.com/Strum355/log"
)

const (
	DefaultSweepInterval = 30 * time.Minute
	DefaultQueueTTL      = time.Hour

	recordTimeout = 5 * time.Second
)

const connectionLostMessage = "⚠️ Lost the voice connection, playback stopped."

type QueueItem struct {
	URL         string    // Source video URL
	Title       string    // Title shown to users
	RequestedBy string    // User ID of who requested the song
	EnqueuedAt  time.Time // Stamped by AddToQueue
}

type State int

const (
	StateEmpty State = iota
	StatePlaying
)

func (s State) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "empty"
}

// GuildQueue is a snapshot of one guild's queue
type GuildQueue struct {
	State       State
	CurrentItem *QueueItem  // Head of the queue while playing
	Items       []QueueItem // Everything queued, current item included
}

// StreamResolver turns a song URL into a fetchable stream, normally *searchy.Client
type StreamResolver interface {
	GetAudioStreamURL(ctx context.Context, songURL string) (*searchy.AudioStream, error)
}

// Fetcher opens a stream URL as a playable resource, normally *player.Fetcher
type Fetcher interface {
	Fetch(ctx context.Context, streamURL, title string) (*player.Resource, error)
}

// Players is the per guild player registry, normally *player.Pool
type Players interface {
	GetOrCreatePlayer(guildID string) player.Player
	RemovePlayer(guildID string)
	Touch(guildID string)
	Stats() player.Stats
	Destroy()
}

// Notifier sends a best effort message back to whoever started playback
type Notifier interface {
	FollowUp(content string, ephemeral bool) error
}

// Recorder is told about every song that starts playing
type Recorder interface {
	Record(ctx context.Context, guildID string, item QueueItem) error
}

type Stats struct {
	TotalQueues   int          `json:"total_queues"`
	PlayingQueues int          `json:"playing_queues"`
	QueuedItems   int          `json:"queued_items"`
	Players       player.Stats `json:"players"`
}

type guildQueue struct {
	items        []QueueItem
	lastActivity time.Time
	state        State
	// generation changes every time the head of the queue is consumed, handlers
	// armed for an older generation are ignored. Unique across guild entries.
	generation uint64
	// started is the generation whose head was handed to the player
	started uint64
	// advance is held by PlayNext and Stop
	advance sync.Mutex
	// ctx bounds stream resolution and playback, cancelled by Stop
	ctx    context.Context
	cancel context.CancelFunc
}

type nextState int

const (
	nextReady nextState = iota
	nextDrained
	nextStale
)

// Manager owns every guild's queue and drives playback from it
type Manager struct {
	mu     sync.Mutex
	queues map[string]*guildQueue
	gen    uint64

	resolver StreamResolver
	fetcher  Fetcher
	players  Players
	recorder Recorder

	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	stop   chan struct{}
	once   sync.Once
}

type Option func(*Manager)

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

func WithSweepInterval(interval time.Duration) Option {
	return func(m *Manager) { m.interval = interval }
}

func NewManager(resolver StreamResolver, fetcher Fetcher, players Players, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		queues:   make(map[string]*guildQueue),
		resolver: resolver,
		fetcher:  fetcher,
		players:  players,
		ttl:      DefaultQueueTTL,
		interval: DefaultSweepInterval,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.sweepLoop()
	return m
}

// AddToQueue appends item to the guild's queue and returns the new queue length
func (m *Manager) AddToQueue(guildID string, item QueueItem) (int, error) {
	if _, err := validation.ValidateGuildID(guildID); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[guildID]
	if !ok {
		q = &guildQueue{}
		q.ctx, q.cancel = context.WithCancel(m.ctx)
		m.bumpLocked(q)
		m.queues[guildID] = q
	}
	item.EnqueuedAt = m.now()
	q.items = append(q.items, item)
	q.lastActivity = item.EnqueuedAt

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"title":    item.Title,
		"position": len(q.items),
	}).Debug("Song added to queue")
	return len(q.items), nil
}

// RemoveFromQueue pops the head of the guild's queue
func (m *Manager) RemoveFromQueue(guildID string) (QueueItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[guildID]
	if !ok || len(q.items) == 0 {
		return QueueItem{}, false
	}
	return m.popLocked(q), true
}

func (m *Manager) popLocked(q *guildQueue) QueueItem {
	item := q.items[0]
	q.items[0] = QueueItem{}
	q.items = q.items[1:]
	m.bumpLocked(q)
	q.lastActivity = m.now()
	return item
}

func (m *Manager) bumpLocked(q *guildQueue) {
	m.gen++
	q.generation = m.gen
}

// GetQueue returns a copy of the guild's queued items, current item first
func (m *Manager) GetQueue(guildID string) []QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[guildID]
	if !ok {
		return []QueueItem{}
	}
	items := make([]QueueItem, len(q.items))
	copy(items, q.items)
	return items
}

// ClearQueue empties the guild's queue but keeps the entry around
func (m *Manager) ClearQueue(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.queues[guildID]; ok {
		m.clearLocked(q)
	}
}

func (m *Manager) clearLocked(q *guildQueue) {
	q.items = nil
	q.state = StateEmpty
	m.bumpLocked(q)
	q.lastActivity = m.now()
}

// Current returns the guild's state along with a copy of its queue
func (m *Manager) Current(guildID string) GuildQueue {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[guildID]
	if !ok {
		return GuildQueue{State: StateEmpty, Items: []QueueItem{}}
	}
	view := GuildQueue{State: q.state, Items: make([]QueueItem, len(q.items))}
	copy(view.Items, q.items)
	if q.state == StatePlaying && len(view.Items) > 0 {
		current := view.Items[0]
		view.CurrentItem = &current
	}
	return view
}

// PlayNext starts the song at the head of the guild's queue, skipping songs that
// fail to resolve. When the queue is empty the connection is destroyed and the
// guild's player released. Songs that finish or error advance the queue on
// their own.
func (m *Manager) PlayNext(guildID string, conn player.Connection, notifier Notifier) {
	q := m.lookup(guildID)
	if q == nil {
		m.release(guildID, conn)
		return
	}

	q.advance.Lock()
	defer q.advance.Unlock()

	for {
		item, gen, state := m.next(guildID, q)
		switch state {
		case nextStale:
			return
		case nextDrained:
			m.release(guildID, conn)
			return
		}

		live, err := rejoin(conn)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"guild_id": guildID}).Error("Voice connection lost")
			m.warn(notifier, connectionLostMessage)
			m.abandon(guildID, gen)
			m.players.RemovePlayer(guildID)
			return
		}
		conn = live

		err = m.start(q, guildID, gen, item, conn, notifier)
		if err == nil {
			return
		}
		if q.ctx.Err() != nil {
			return
		}

		log.WithError(err).WithFields(log.Fields{
			"guild_id": guildID,
			"title":    item.Title,
			"url":      item.URL,
		}).Error("Error playing song")
		m.notify(notifier, err)

		if !m.advanceFrom(guildID, gen) {
			// Queue was skipped, stopped or cleared while this song was resolving
			return
		}
	}
}

// next returns the head of q. An empty queue is cleared in the same step, so a
// song added afterwards is left for the advance that its own enqueue starts.
func (m *Manager) next(guildID string, q *guildQueue) (QueueItem, uint64, nextState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stopped, swept, shut down, or another trigger already started this head
	if q.ctx.Err() != nil || m.queues[guildID] != q || q.started == q.generation {
		return QueueItem{}, 0, nextStale
	}
	if len(q.items) == 0 {
		m.clearLocked(q)
		return QueueItem{}, q.generation, nextDrained
	}
	return q.items[0], q.generation, nextReady
}

// rejoin returns a live connection to play through, replacing conn if it was torn down
func rejoin(conn player.Connection) (player.Connection, error) {
	if conn == nil {
		return nil, player.ErrConnectionClosed
	}
	if !conn.Destroyed() {
		return conn, nil
	}
	if r, ok := conn.(player.Rejoiner); ok {
		return r.Rejoin()
	}
	return nil, player.ErrConnectionClosed
}

// start resolves item and hands it to the guild's player
func (m *Manager) start(q *guildQueue, guildID string, gen uint64, item QueueItem, conn player.Connection, notifier Notifier) error {
	stream, err := m.resolver.GetAudioStreamURL(q.ctx, item.URL)
	if err != nil {
		return err
	}

	title := item.Title
	if title == "" {
		title = stream.Title
	}
	res, err := m.fetcher.Fetch(q.ctx, stream.URL, title)
	if err != nil {
		return err
	}

	m.mu.Lock()
	current := m.isCurrentLocked(guildID, gen)
	if current {
		q.state = StatePlaying
		q.started = gen
	}
	m.mu.Unlock()
	if !current {
		res.Close()
		return nil
	}

	p := m.players.GetOrCreatePlayer(guildID)
	p.ClearHandlers()
	p.Stop(true)
	p.SetHandlers(
		func() { m.onFinished(guildID, gen, conn, notifier) },
		func(err error) {
			log.WithError(err).WithFields(log.Fields{"guild_id": guildID, "title": title}).Error("Player error, skipping song")
			m.onFinished(guildID, gen, conn, notifier)
		},
	)
	p.Play(res)
	conn.Subscribe(p)

	log.WithFields(log.Fields{
		"guild_id":  guildID,
		"title":     title,
		"container": res.Container,
	}).Info("Now playing")

	if m.recorder != nil {
		go m.record(guildID, item)
	}
	return nil
}

func (m *Manager) record(guildID string, item QueueItem) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := m.recorder.Record(ctx, guildID, item); err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": guildID}).Warn("Failed to record play history")
	}
}

// onFinished runs when the song armed with gen ends, naturally or with an error
func (m *Manager) onFinished(guildID string, gen uint64, conn player.Connection, notifier Notifier) {
	if !m.advanceFrom(guildID, gen) {
		return
	}
	m.players.Touch(guildID)
	m.PlayNext(guildID, conn, notifier)
}

// advanceFrom drops the head of the queue if it is still the item armed with gen
func (m *Manager) advanceFrom(guildID string, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isCurrentLocked(guildID, gen) {
		return false
	}
	q := m.queues[guildID]
	if len(q.items) > 0 {
		m.popLocked(q)
	}
	return true
}

// abandon clears the queue unless it moved on since gen
func (m *Manager) abandon(guildID string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isCurrentLocked(guildID, gen) {
		m.clearLocked(m.queues[guildID])
	}
}

func (m *Manager) isCurrentLocked(guildID string, gen uint64) bool {
	q, ok := m.queues[guildID]
	return ok && q.generation == gen
}

// Skip drops the current song and moves on to the next one
func (m *Manager) Skip(guildID string, conn player.Connection, notifier Notifier) (QueueItem, bool) {
	skipped, ok := m.RemoveFromQueue(guildID)
	if !ok {
		return QueueItem{}, false
	}
	log.WithFields(log.Fields{"guild_id": guildID, "title": skipped.Title}).Info("Song skipped")

	m.PlayNext(guildID, conn, notifier)
	return skipped, true
}

// Stop tears down playback for the guild and forgets its queue. A song still
// being resolved is abandoned.
func (m *Manager) Stop(guildID string, conn player.Connection) {
	q := m.lookup(guildID)
	if q == nil {
		m.release(guildID, conn)
		log.WithFields(log.Fields{"guild_id": guildID}).Info("Playback stopped")
		return
	}

	q.cancel()
	q.advance.Lock()
	defer q.advance.Unlock()

	m.release(guildID, conn)

	m.mu.Lock()
	m.clearLocked(q)
	if m.queues[guildID] == q {
		delete(m.queues, guildID)
	}
	m.mu.Unlock()

	log.WithFields(log.Fields{"guild_id": guildID}).Info("Playback stopped")
}

// release disconnects from voice and frees the guild's player
func (m *Manager) release(guildID string, conn player.Connection) {
	if conn != nil && !conn.Destroyed() {
		if err := conn.Destroy(); err != nil {
			log.WithError(err).WithFields(log.Fields{"guild_id": guildID}).Warn("Error while destroying voice connection")
		}
	}
	m.players.RemovePlayer(guildID)
}

func (m *Manager) notify(notifier Notifier, err error) {
	msg, ok := searchy.UserMessage(err)
	if !ok {
		return
	}
	m.warn(notifier, fmt.Sprintf("⚠️ %s", msg))
}

func (m *Manager) warn(notifier Notifier, content string) {
	if notifier == nil {
		return
	}
	if err := notifier.FollowUp(content, true); err != nil {
		log.WithError(err).Warn("Failed to send playback warning")
	}
}

func (m *Manager) lookup(guildID string) *guildQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[guildID]
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	stats := Stats{TotalQueues: len(m.queues)}
	for _, q := range m.queues {
		stats.QueuedItems += len(q.items)
		if q.state == StatePlaying {
			stats.PlayingQueues++
		}
	}
	m.mu.Unlock()

	stats.Players = m.players.Stats()
	return stats
}

// Destroy stops the sweep, forgets every queue and destroys the player pool.
// Call once at shutdown.
func (m *Manager) Destroy() {
	m.once.Do(func() { close(m.stop) })
	m.cancel()

	m.mu.Lock()
	for _, q := range m.queues {
		m.clearLocked(q)
	}
	m.queues = make(map[string]*guildQueue)
	m.mu.Unlock()

	m.players.Destroy()
	log.Info("Queue manager destroyed")
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep forgets empty queues that have not been touched within the TTL
func (m *Manager) sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for guildID, q := range m.queues {
		if len(q.items) > 0 || now.Sub(q.lastActivity) <= m.ttl {
			continue
		}
		m.bumpLocked(q)
		q.cancel()
		delete(m.queues, guildID)
		removed++
	}

	if removed > 0 {
		log.WithFields(log.Fields{
			"cleaned_queues": removed,
			"active_queues":  len(m.queues),
		}).Info("Queue cleanup completed")
	}
	return removed
}
