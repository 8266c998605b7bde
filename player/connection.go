package player

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const opusSendTimeout = 100 * time.Millisecond

// DiscordConnection adapts a discordgo voice connection to Connection and Sink
type DiscordConnection struct {
	vc        *discordgo.VoiceConnection
	rejoin    func() (*DiscordConnection, error)
	mu        sync.Mutex
	destroyed bool
}

// NewDiscordConnection wraps vc. rejoin, if set, opens a new connection to the
// same channel once this one has been destroyed.
func NewDiscordConnection(vc *discordgo.VoiceConnection, rejoin func() (*DiscordConnection, error)) *DiscordConnection {
	return &DiscordConnection{vc: vc, rejoin: rejoin}
}

// ChannelID returns the voice channel this connection is in
func (c *DiscordConnection) ChannelID() string {
	return c.vc.ChannelID
}

func (c *DiscordConnection) Subscribe(p Player) {
	p.Subscribe(c)
}

// Destroy disconnects from voice. Calling it again is a no-op.
func (c *DiscordConnection) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	return c.vc.Disconnect()
}

func (c *DiscordConnection) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Rejoin returns c while it is still connected, otherwise a fresh connection
func (c *DiscordConnection) Rejoin() (Connection, error) {
	if !c.Destroyed() {
		return c, nil
	}
	if c.rejoin == nil {
		return nil, ErrConnectionClosed
	}
	conn, err := c.rejoin()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *DiscordConnection) Ready() bool {
	return !c.Destroyed() && c.vc.Ready
}

func (c *DiscordConnection) SendOpus(frame []byte) error {
	select {
	case c.vc.OpusSend <- frame:
		return nil
	case <-time.After(opusSendTimeout):
		return ErrSendTimeout
	}
}

func (c *DiscordConnection) Speaking(speaking bool) {
	c.vc.Speaking(speaking)
}
