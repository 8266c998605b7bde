package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	ready    bool
	frames   int
	speaking bool
	failWith error
}

func (s *recordingSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *recordingSink) SendOpus([]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.frames++
	return nil
}

func (s *recordingSink) Speaking(speaking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = speaking
}

func (s *recordingSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

type constEncoder struct{}

func (constEncoder) Encode([]int16, int, int) ([]byte, error) {
	return []byte{0xF8, 0xFF, 0xFE}, nil
}

// blockingReader never returns data until closed
type blockingReader struct {
	closed chan struct{}
	once   sync.Once
}

func (b *blockingReader) Read([]byte) (int, error) {
	<-b.closed
	return 0, errors.New("read on closed pipe")
}

func (b *blockingReader) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

func pcmFrames(n int) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, make([]int16, n*frameSize*channels))
	return buf.Bytes()
}

func newTestAudioPlayer(pcm func() io.ReadCloser) *AudioPlayer {
	p := NewAudioPlayer()
	p.decode = func(*Resource) (io.ReadCloser, func() error, error) {
		return pcm(), nil, nil
	}
	p.newEncoder = func() (frameEncoder, error) { return constEncoder{}, nil }
	return p
}

func testResource() *Resource {
	return NewResource("test", io.NopCloser(bytes.NewReader(nil)), 1)
}

func TestAudioPlayer_PlaysToCompletion(t *testing.T) {
	p := newTestAudioPlayer(func() io.ReadCloser { return io.NopCloser(bytes.NewReader(pcmFrames(5))) })
	sink := &recordingSink{ready: true}
	p.Subscribe(sink)

	idle := make(chan struct{})
	p.SetHandlers(func() { close(idle) }, func(err error) { t.Errorf("unexpected error: %v", err) })
	p.Play(testResource())

	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("idle handler never fired")
	}

	assert.Equal(t, 5, sink.Frames())
	assert.Equal(t, StatusIdle, p.Status())
	assert.False(t, p.Stop(false))
}

func TestAudioPlayer_AutoPausesWithoutSubscriber(t *testing.T) {
	p := newTestAudioPlayer(func() io.ReadCloser { return io.NopCloser(bytes.NewReader(pcmFrames(3))) })

	idle := make(chan struct{})
	p.SetHandlers(func() { close(idle) }, nil)
	p.Play(testResource())

	assert.Eventually(t, func() bool { return p.Status() == StatusAutoPaused }, time.Second, 10*time.Millisecond)

	sink := &recordingSink{ready: true}
	p.Subscribe(sink)

	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("idle handler never fired")
	}
	assert.Equal(t, 3, sink.Frames())
}

func TestAudioPlayer_StopFiresIdle(t *testing.T) {
	p := newTestAudioPlayer(func() io.ReadCloser { return &blockingReader{closed: make(chan struct{})} })
	p.Subscribe(&recordingSink{ready: true})

	idle := make(chan struct{})
	p.SetHandlers(func() { close(idle) }, func(err error) { t.Errorf("unexpected error: %v", err) })
	p.Play(testResource())

	require.True(t, p.Stop(true))
	assert.Equal(t, StatusIdle, p.Status())

	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("idle handler never fired")
	}
}

func TestAudioPlayer_ReplacingResourceDoesNotFireIdle(t *testing.T) {
	calls := 0
	p := newTestAudioPlayer(func() io.ReadCloser {
		calls++
		if calls == 1 {
			return &blockingReader{closed: make(chan struct{})}
		}
		return io.NopCloser(bytes.NewReader(pcmFrames(1)))
	})
	p.Subscribe(&recordingSink{ready: true})

	var mu sync.Mutex
	idleCount := 0
	idle := make(chan struct{}, 2)
	handler := func() {
		mu.Lock()
		idleCount++
		mu.Unlock()
		idle <- struct{}{}
	}

	p.SetHandlers(handler, nil)
	p.Play(testResource())
	assert.Eventually(t, func() bool { return p.Status() == StatusPlaying }, time.Second, 10*time.Millisecond)

	p.SetHandlers(handler, nil)
	p.Play(testResource())

	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("idle handler never fired")
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, idleCount)
}

func TestAudioPlayer_SendFailureFiresError(t *testing.T) {
	p := newTestAudioPlayer(func() io.ReadCloser { return io.NopCloser(bytes.NewReader(pcmFrames(2))) })
	p.Subscribe(&recordingSink{ready: true, failWith: ErrSendTimeout})

	errs := make(chan error, 1)
	p.SetHandlers(func() { t.Error("idle handler should not fire on error") }, func(err error) { errs <- err })
	p.Play(testResource())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrSendTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler never fired")
	}
	assert.Equal(t, StatusIdle, p.Status())
}

func TestAudioPlayer_ClearHandlers(t *testing.T) {
	p := newTestAudioPlayer(func() io.ReadCloser { return io.NopCloser(bytes.NewReader(pcmFrames(1))) })
	sink := &recordingSink{ready: true}
	p.Subscribe(sink)

	p.SetHandlers(func() { t.Error("cleared handler fired") }, nil)
	p.ClearHandlers()
	p.Play(testResource())

	assert.Eventually(t, func() bool { return sink.Frames() == 1 && p.Status() == StatusIdle }, time.Second, 10*time.Millisecond)
}

func TestAudioPlayer_PauseWhenIdle(t *testing.T) {
	p := NewAudioPlayer()

	assert.False(t, p.Pause())
	assert.False(t, p.Unpause())
	assert.Equal(t, StatusIdle, p.Status())
}

func TestAudioPlayer_PauseAndUnpause(t *testing.T) {
	p := newTestAudioPlayer(func() io.ReadCloser { return &blockingReader{closed: make(chan struct{})} })
	p.Subscribe(&recordingSink{ready: true})
	p.Play(testResource())
	defer p.Stop(true)

	require.True(t, p.Pause())
	assert.Equal(t, StatusPaused, p.Status())

	require.True(t, p.Unpause())
	assert.NotEqual(t, StatusPaused, p.Status())
}

func TestAudioPlayer_UnsubscribeOtherSinkIsNoop(t *testing.T) {
	p := NewAudioPlayer()
	a := &recordingSink{}
	b := &recordingSink{}

	p.Subscribe(a)
	p.Unsubscribe(b)
	assert.Equal(t, Sink(a), p.sink)

	p.Unsubscribe(a)
	assert.Nil(t, p.sink)
}
