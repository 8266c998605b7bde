package player

import "errors"

type Status int

const (
	StatusIdle Status = iota
	StatusBuffering
	StatusPlaying
	StatusPaused
	StatusAutoPaused
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusBuffering:
		return "buffering"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusAutoPaused:
		return "autopaused"
	}
	return "unknown"
}

var (
	ErrSendTimeout      = errors.New("timeout sending opus frame")
	ErrConnectionClosed = errors.New("voice connection closed")
)

// Sink receives encoded Opus frames, normally a voice connection
type Sink interface {
	Ready() bool
	SendOpus(frame []byte) error
	Speaking(speaking bool)
}

// Player plays one Resource at a time. A guild keeps the same Player across songs.
type Player interface {
	// Play replaces whatever is currently playing with res
	Play(res *Resource)
	// Stop ends playback. Returns false if nothing was playing.
	Stop(force bool) bool
	Pause() bool
	Unpause() bool
	Status() Status
	// Subscribe sets the sink audio is sent to. Without one the player auto-pauses.
	Subscribe(sink Sink)
	Unsubscribe(sink Sink)
	// SetHandlers replaces both handlers. onIdle fires at most once per call.
	SetHandlers(onIdle func(), onError func(error))
	ClearHandlers()
}

// Connection is a voice connection a Player can be subscribed to
type Connection interface {
	Subscribe(p Player)
	Destroy() error
	Destroyed() bool
}

// Rejoiner is a Connection that can open a replacement for itself after it was destroyed
type Rejoiner interface {
	Rejoin() (Connection, error)
}
