package searchy

import "time"

// SearchResult is one candidate song offered to the user
type SearchResult struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type AudioFormat struct {
	ID      string  `json:"id"`
	Ext     string  `json:"ext"`
	Codec   string  `json:"codec"`
	Bitrate float64 `json:"bitrate"`
}

// AudioStream is a signed, directly fetchable audio URL for a video
type AudioStream struct {
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Format    AudioFormat   `json:"format"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// Wire types returned by the search service

type searchItem struct {
	VideoID   string   `json:"video_id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Duration  *float64 `json:"duration"`
	Channel   *string  `json:"channel"`
	Thumbnail *string  `json:"thumbnail"`
}

type searchResponse struct {
	Query   string       `json:"query"`
	Results []searchItem `json:"results"`
	Count   int          `json:"count"`
}

type audioFormatInfo struct {
	FormatID string   `json:"format_id"`
	URL      string   `json:"url"`
	Ext      string   `json:"ext"`
	ACodec   *string  `json:"acodec"`
	ABR      *float64 `json:"abr"`
	Filesize *int64   `json:"filesize"`
}

type audioResponse struct {
	VideoID      string          `json:"video_id"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	Duration     *float64        `json:"duration"`
	AudioFormat  audioFormatInfo `json:"audio_format"`
	URLExpiresIn *int            `json:"url_expires_in"`
}
