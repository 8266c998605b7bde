package searchy

import (
	"Nocturne/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Strum355/log"
	"github.com/avast/retry-go/v4"
	"github.com/kkdai/youtube/v2"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL           string
	MaxResults        int
	RetryAttempts     int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	Timeout           time.Duration
	SearchCacheTTL    time.Duration
}

// streamExpiryMargin keeps cached stream URLs from being handed out right before they expire
const streamExpiryMargin = 60 * time.Second

// Client talks to the search/audio-resolution service
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a Client for the service at cfg.BaseURL
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, max(1, int(cfg.RequestsPerSecond))),
	}
	for _, opt := range opts {
		opt(c)
	}

	log.WithFields(log.Fields{"base_url": cfg.BaseURL}).Info("Searchy client initialised")
	return c
}

// BaseURL returns the configured service address
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// HTTPClient is shared with the audio fetcher so stream downloads get the same transport
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Search returns up to MaxResults songs for query. No results is not an error.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	cacheKey := fmt.Sprintf("searchy:search:%d:%s", c.cfg.MaxResults, strings.ToLower(query))
	if cached, ok := c.cachedSearch(ctx, cacheKey); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprint(c.cfg.MaxResults))
	endpoint := c.cfg.BaseURL + "/search?" + params.Encode()

	var resp searchResponse
	err := c.retry(ctx, "Search", func(ctx context.Context) error {
		resp = searchResponse{}
		return c.getJSON(ctx, endpoint, &resp)
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"query": query}).Error("Search via Searchy failed")
		return nil, &ServiceError{Op: "search", BaseURL: c.cfg.BaseURL, Err: err}
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, item := range resp.Results {
		result := SearchResult{
			URL:      item.URL,
			Title:    item.Title,
			Duration: utils.FormatDuration(secondsToDuration(item.Duration)),
		}
		if item.Thumbnail != nil {
			result.Thumbnail = *item.Thumbnail
		}
		results = append(results, result)
	}

	log.WithFields(log.Fields{"query": query, "results": len(results)}).Debug("Search completed via Searchy")
	c.store(ctx, cacheKey, results, c.cfg.SearchCacheTTL)
	return results, nil
}

// GetAudioStreamURL resolves songURL to a signed audio stream
func (c *Client) GetAudioStreamURL(ctx context.Context, songURL string) (*AudioStream, error) {
	videoID, err := extractVideoID(songURL)
	if err != nil {
		return nil, err
	}

	cacheKey := "searchy:audio:" + videoID
	if data, err := c.lookup(ctx, cacheKey); err == nil {
		var stream AudioStream
		if err := json.Unmarshal(data, &stream); err == nil {
			return &stream, nil
		}
	}

	var resp audioResponse
	err = c.retry(ctx, "Get audio stream", func(ctx context.Context) error {
		resp = audioResponse{}
		err := c.getJSON(ctx, c.cfg.BaseURL+"/audio/"+url.PathEscape(videoID), &resp)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return ErrNotFound
		}
		return err
	})
	if errors.Is(err, ErrNotFound) {
		log.WithError(err).WithFields(log.Fields{"url": songURL}).Error("Video not found via Searchy")
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"url": songURL}).Error("Failed to get audio stream via Searchy")
		return nil, &ServiceError{Op: "get audio stream", BaseURL: c.cfg.BaseURL, Err: err}
	}

	stream := &AudioStream{
		URL:   resp.AudioFormat.URL,
		Title: resp.Title,
		Format: AudioFormat{
			ID:  resp.AudioFormat.FormatID,
			Ext: resp.AudioFormat.Ext,
		},
	}
	if resp.AudioFormat.ACodec != nil {
		stream.Format.Codec = *resp.AudioFormat.ACodec
	}
	if resp.AudioFormat.ABR != nil {
		stream.Format.Bitrate = *resp.AudioFormat.ABR
	}
	if resp.URLExpiresIn != nil {
		stream.ExpiresIn = time.Duration(*resp.URLExpiresIn) * time.Second
	}

	log.WithFields(log.Fields{
		"video_id":  videoID,
		"format_id": stream.Format.ID,
		"codec":     stream.Format.Codec,
		"bitrate":   stream.Format.Bitrate,
	}).Debug("Audio stream URL retrieved via Searchy")

	if ttl := stream.ExpiresIn - streamExpiryMargin; ttl > 0 {
		c.store(ctx, cacheKey, stream, ttl)
	}
	return stream, nil
}

// retry runs fn up to RetryAttempts times, sleeping attempt*RetryDelay between tries
func (c *Client) retry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := uint(c.cfg.RetryAttempts)
	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			return fn(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * c.cfg.RetryDelay
		}),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).WithFields(log.Fields{
				"attempt":  n + 1,
				"attempts": attempts,
			}).Warn(fmt.Sprintf("%s failed, attempt %d/%d", operation, n+1, attempts))
		}),
	)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) cachedSearch(ctx context.Context, key string) ([]SearchResult, bool) {
	if c.cfg.SearchCacheTTL <= 0 {
		return nil, false
	}
	data, err := c.lookup(ctx, key)
	if err != nil {
		return nil, false
	}
	var results []SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false
	}
	return results, true
}

func (c *Client) lookup(ctx context.Context, key string) ([]byte, error) {
	if c.cache == nil {
		return nil, ErrCacheMiss
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		log.WithError(err).WithFields(log.Fields{"key": key}).Warn("Searchy cache read failed")
	}
	return data, err
}

func (c *Client) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.cache == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		log.WithError(err).WithFields(log.Fields{"key": key}).Warn("Searchy cache write failed")
	}
}

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// extractVideoID accepts watch, short and embed links as well as bare ids
func extractVideoID(songURL string) (string, error) {
	id, err := youtube.ExtractVideoID(strings.TrimSpace(songURL))
	if err != nil || !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, songURL)
	}
	return id, nil
}

func secondsToDuration(seconds *float64) time.Duration {
	if seconds == nil {
		return 0
	}
	return time.Duration(*seconds * float64(time.Second))
}
