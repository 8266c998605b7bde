package player

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
)

// Container is the detected format of a fetched stream
type Container string

const (
	ContainerWebM    Container = "webm"
	ContainerOgg     Container = "ogg"
	ContainerMP4     Container = "mp4"
	ContainerMP3     Container = "mp3"
	ContainerUnknown Container = ""
)

// ProbeContainer inspects the leading bytes of a stream
func ProbeContainer(head []byte) Container {
	switch {
	case bytes.HasPrefix(head, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return ContainerWebM
	case bytes.HasPrefix(head, []byte("OggS")):
		return ContainerOgg
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return ContainerMP4
	case bytes.HasPrefix(head, []byte("ID3")), len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return ContainerMP3
	}
	return ContainerUnknown
}

// ffmpegFormat is the demuxer name handed to ffmpeg with -f
func (c Container) ffmpegFormat() string {
	switch c {
	case ContainerWebM:
		return "matroska"
	case ContainerOgg:
		return "ogg"
	case ContainerMP4:
		return "mp4"
	case ContainerMP3:
		return "mp3"
	}
	return ""
}

// Volume is a linear gain applied to PCM samples while playing
type Volume struct {
	mu    sync.RWMutex
	level float64
}

func NewVolume(level float64) *Volume {
	v := &Volume{}
	v.Set(level)
	return v
}

func (v *Volume) Set(level float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.level = math.Max(0, level)
}

func (v *Volume) Level() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.level
}

// Apply scales samples in place, clamping to the int16 range
func (v *Volume) Apply(samples []int16) {
	level := v.Level()
	if level == 1 {
		return
	}
	for i, s := range samples {
		scaled := math.Round(float64(s) * level)
		samples[i] = int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, scaled)))
	}
}

// Resource is a fetched audio stream ready to be handed to a Player
type Resource struct {
	Title     string
	Container Container
	Volume    *Volume

	body io.ReadCloser
}

// NewResource probes the container type of body without consuming it
func NewResource(title string, body io.ReadCloser, volume float64) *Resource {
	br := bufio.NewReaderSize(body, 16384)
	head, _ := br.Peek(12)
	return &Resource{
		Title:     title,
		Container: ProbeContainer(head),
		Volume:    NewVolume(volume),
		body:      readCloser{Reader: br, Closer: body},
	}
}

func (r *Resource) Read(p []byte) (int, error) {
	return r.body.Read(p)
}

func (r *Resource) Close() error {
	return r.body.Close()
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Fetcher downloads stream bytes for playback
type Fetcher struct {
	http   *http.Client
	volume float64
}

func NewFetcher(hc *http.Client, volume float64) *Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Fetcher{http: hc, volume: volume}
}

// Fetch opens streamURL. The returned Resource owns the response body.
func (f *Fetcher) Fetch(ctx context.Context, streamURL, title string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, err
	}

	// Signed stream URLs are long lived downloads, the client timeout would cut songs short
	client := *f.http
	client.Timeout = 0

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching stream: unexpected status %s", resp.Status)
	}
	return NewResource(title, resp.Body, f.volume), nil
}
