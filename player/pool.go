package player

import (
	"sync"
	"time"

	"github.com/Strum355/log"
)

const (
	DefaultSweepInterval = 30 * time.Minute
	DefaultPlayerTTL     = time.Hour
)

type Stats struct {
	TotalPlayers  int `json:"total_players"`
	ActivePlayers int `json:"active_players"`
	IdlePlayers   int `json:"idle_players"`
}

type Factory func() Player

type pooledPlayer struct {
	player       Player
	lastActivity time.Time
}

// Pool keeps one reusable Player per guild and sweeps the ones left idle
type Pool struct {
	mu      sync.Mutex
	players map[string]*pooledPlayer

	factory  Factory
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type PoolOption func(*Pool)

func WithTTL(ttl time.Duration) PoolOption {
	return func(p *Pool) { p.ttl = ttl }
}

func WithSweepInterval(interval time.Duration) PoolOption {
	return func(p *Pool) { p.interval = interval }
}

// NewPool creates a Pool and starts its background sweep
func NewPool(factory Factory, opts ...PoolOption) *Pool {
	p := &Pool{
		players:  make(map[string]*pooledPlayer),
		factory:  factory,
		ttl:      DefaultPlayerTTL,
		interval: DefaultSweepInterval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	go p.sweepLoop()
	return p
}

// GetOrCreatePlayer returns the guild's player, creating it on first use
func (p *Pool) GetOrCreatePlayer(guildID string) Player {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.players[guildID]
	if !ok {
		entry = &pooledPlayer{player: p.factory()}
		p.players[guildID] = entry
		log.WithFields(log.Fields{"guild_id": guildID}).Debug("Created new audio player")
	}
	entry.lastActivity = p.now()
	return entry.player
}

func (p *Pool) GetPlayer(guildID string) (Player, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.players[guildID]
	if !ok {
		return nil, false
	}
	return entry.player, true
}

// Touch marks the guild's player as recently used
func (p *Pool) Touch(guildID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.players[guildID]; ok {
		entry.lastActivity = p.now()
	}
}

// RemovePlayer force-stops and forgets the guild's player
func (p *Pool) RemovePlayer(guildID string) {
	p.mu.Lock()
	entry, ok := p.players[guildID]
	delete(p.players, guildID)
	p.mu.Unlock()

	if !ok {
		return
	}
	entry.player.ClearHandlers()
	entry.player.Stop(true)
	log.WithFields(log.Fields{"guild_id": guildID}).Debug("Removed audio player")
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{TotalPlayers: len(p.players)}
	for _, entry := range p.players {
		switch entry.player.Status() {
		case StatusPlaying:
			stats.ActivePlayers++
		case StatusIdle:
			stats.IdlePlayers++
		}
	}
	return stats
}

// Destroy stops the sweep and every player. Call once at shutdown.
func (p *Pool) Destroy() {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	players := p.players
	p.players = make(map[string]*pooledPlayer)
	p.mu.Unlock()

	for guildID, entry := range players {
		entry.player.ClearHandlers()
		entry.player.Stop(true)
		log.WithFields(log.Fields{"guild_id": guildID}).Debug("Stopped player during shutdown")
	}
	log.Info("Audio player pool destroyed")
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep removes players that are idle and have not been used within the TTL
func (p *Pool) sweep() int {
	now := p.now()

	p.mu.Lock()
	var expired []Player
	for guildID, entry := range p.players {
		if now.Sub(entry.lastActivity) <= p.ttl || entry.player.Status() != StatusIdle {
			continue
		}
		expired = append(expired, entry.player)
		delete(p.players, guildID)
		log.WithFields(log.Fields{"guild_id": guildID}).Debug("Cleaned up inactive audio player")
	}
	remaining := len(p.players)
	p.mu.Unlock()

	for _, player := range expired {
		player.ClearHandlers()
		player.Stop(true)
	}

	if len(expired) > 0 {
		log.WithFields(log.Fields{
			"cleaned_players": len(expired),
			"active_players":  remaining,
		}).Info("Audio player cleanup completed")
	}
	return len(expired)
}
