package commands

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pendingStore holds prompts waiting on a button press. Entries expire after
// their timeout unless taken first.
type pendingStore[T any] struct {
	mu    sync.Mutex
	items map[string]*pendingEntry[T]
}

type pendingEntry[T any] struct {
	value T
	timer *time.Timer
}

func newPendingStore[T any]() *pendingStore[T] {
	return &pendingStore[T]{items: map[string]*pendingEntry[T]{}}
}

// add stores value under a new id and returns it. onExpire runs if nobody takes
// the entry within timeout.
func (p *pendingStore[T]) add(value T, timeout time.Duration, onExpire func(T)) string {
	id := uuid.NewString()

	p.mu.Lock()
	defer p.mu.Unlock()

	entry := &pendingEntry[T]{value: value}
	entry.timer = time.AfterFunc(timeout, func() {
		if v, ok := p.take(id); ok && onExpire != nil {
			onExpire(v)
		}
	})
	p.items[id] = entry
	return id
}

func (p *pendingStore[T]) peek(id string) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return entry.value, true
}

// take removes the entry so only one caller ever acts on it
func (p *pendingStore[T]) take(id string) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(p.items, id)
	entry.timer.Stop()
	return entry.value, true
}

func (p *pendingStore[T]) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Component custom ids look like "<prefix>:<prompt id>:<choice>"

func customID(prefix, id, choice string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, id, choice)
}

func parseCustomID(customID string) (id, choice string, err error) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("malformed custom_id %q", customID)
	}
	return parts[1], parts[2], nil
}
