package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/Strum355/log"
	"layeh.com/gopus"
)

const (
	sampleRate       = 48000
	channels         = 2
	frameSize        = 960
	maxOpusFrameSize = 4000
)

type frameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// decodeFunc turns a resource into a raw s16le 48kHz stereo PCM stream
type decodeFunc func(res *Resource) (pcm io.ReadCloser, wait func() error, err error)

// AudioPlayer decodes resources with ffmpeg and sends Opus frames to its sink
type AudioPlayer struct {
	mu      sync.Mutex
	status  Status
	paused  bool
	sink    Sink
	onIdle  func()
	onError func(error)

	stop chan struct{} // closed to end the current playback
	done chan struct{} // closed once the current playback goroutine exits

	decode     decodeFunc
	newEncoder func() (frameEncoder, error)
}

func NewAudioPlayer() *AudioPlayer {
	return &AudioPlayer{
		decode: ffmpegDecode,
		newEncoder: func() (frameEncoder, error) {
			return gopus.NewEncoder(sampleRate, channels, gopus.Audio)
		},
	}
}

// Play starts streaming res, silently replacing the current resource if any
func (p *AudioPlayer) Play(res *Resource) {
	p.mu.Lock()
	prevStop, prevDone := p.stop, p.done
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop, p.done = stop, done
	p.status = StatusBuffering
	p.paused = false
	p.mu.Unlock()

	if prevStop != nil {
		close(prevStop)
		<-prevDone
	}

	go p.stream(res, stop, done)
}

// Stop ends the current playback and fires the idle handler
func (p *AudioPlayer) Stop(force bool) bool {
	p.mu.Lock()
	stop, done := p.stop, p.done
	if stop == nil {
		p.mu.Unlock()
		return false
	}
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	close(stop)
	if force {
		<-done
	}
	return true
}

func (p *AudioPlayer) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPlaying && p.status != StatusBuffering && p.status != StatusAutoPaused {
		return false
	}
	p.paused = true
	p.status = StatusPaused
	return true
}

func (p *AudioPlayer) Unpause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return false
	}
	p.paused = false
	p.status = StatusPlaying
	return true
}

func (p *AudioPlayer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *AudioPlayer) Subscribe(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

func (p *AudioPlayer) Unsubscribe(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink == sink {
		p.sink = nil
	}
}

func (p *AudioPlayer) SetHandlers(onIdle func(), onError func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onIdle = onIdle
	p.onError = onError
}

func (p *AudioPlayer) ClearHandlers() {
	p.SetHandlers(nil, nil)
}

// stream runs for the lifetime of one resource
func (p *AudioPlayer) stream(res *Resource, stop, done chan struct{}) {
	err := p.pump(res, stop)

	p.mu.Lock()
	superseded := p.stop != nil && p.stop != stop
	if !superseded {
		p.stop, p.done = nil, nil
		p.status = StatusIdle
		p.paused = false
	}
	onIdle, onError := p.onIdle, p.onError
	if !superseded && err == nil {
		p.onIdle = nil
	}
	p.mu.Unlock()
	close(done)

	if superseded {
		return
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"title": res.Title}).Error("Audio player error")
		if onError != nil {
			go onError(err)
		}
		return
	}
	if onIdle != nil {
		go onIdle()
	}
}

// pump decodes and sends frames until the resource ends or stop is closed
func (p *AudioPlayer) pump(res *Resource, stop chan struct{}) error {
	pcm, wait, err := p.decode(res)
	if err != nil {
		res.Close()
		return fmt.Errorf("starting decoder: %w", err)
	}
	defer func() {
		pcm.Close()
		res.Close()
		if wait != nil {
			wait()
		}
	}()

	// Unblock a pending read when playback is stopped mid-frame
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-stop:
			pcm.Close()
			res.Close()
		case <-finished:
		}
	}()

	encoder, err := p.newEncoder()
	if err != nil {
		return fmt.Errorf("creating opus encoder: %w", err)
	}

	var speaking Sink
	defer func() {
		if speaking != nil {
			speaking.Speaking(false)
		}
	}()

	buf := make([]int16, frameSize*channels)
	for {
		if stopped(stop) {
			return nil
		}

		sink, ok := p.waitForSink(stop)
		if !ok {
			return nil
		}
		if sink != speaking {
			if speaking != nil {
				speaking.Speaking(false)
			}
			sink.Speaking(true)
			speaking = sink
		}

		if err := binary.Read(pcm, binary.LittleEndian, buf); err != nil {
			if stopped(stop) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		res.Volume.Apply(buf)

		opus, err := encoder.Encode(buf, frameSize, maxOpusFrameSize)
		if err != nil {
			return err
		}
		if len(opus) == 0 {
			continue
		}
		if err := sink.SendOpus(opus); err != nil {
			if stopped(stop) {
				return nil
			}
			return err
		}
	}
}

// waitForSink blocks while paused or while nothing ready is subscribed
func (p *AudioPlayer) waitForSink(stop chan struct{}) (Sink, bool) {
	for {
		p.mu.Lock()
		sink, paused := p.sink, p.paused
		switch {
		case paused:
		case sink == nil || !sink.Ready():
			p.status = StatusAutoPaused
		default:
			p.status = StatusPlaying
			p.mu.Unlock()
			return sink, true
		}
		p.mu.Unlock()

		select {
		case <-stop:
			return nil, false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func stopped(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func ffmpegDecode(res *Resource) (io.ReadCloser, func() error, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if format := res.Container.ffmpegFormat(); format != "" {
		args = append(args, "-f", format)
	}
	args = append(args,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"pipe:1",
	)

	cmd := exec.Command("ffmpeg", args...)
	cmd.Stdin = res

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	wait := func() error {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		return cmd.Wait()
	}
	return stdout, wait, nil
}
