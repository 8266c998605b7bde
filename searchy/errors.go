package searchy

import (
	"errors"
	"fmt"
)

const ServiceName = "Searchy"

var (
	ErrNotFound   = errors.New("video not found or unavailable")
	ErrInvalidURL = errors.New("invalid YouTube URL")
)

// ServiceError reports that the search service could not be reached or kept failing
type ServiceError struct {
	Op      string
	BaseURL string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("Failed to %s via %s. Please ensure the %s service is running at %s", e.Op, ServiceName, ServiceName, e.BaseURL)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response from the service
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %s", ServiceName, e.Status)
}

// UserMessage returns a message suitable for chat when err is a known service
// or availability condition
func UserMessage(err error) (string, bool) {
	var serr *ServiceError
	switch {
	case errors.Is(err, ErrNotFound):
		return "This video is not available. It may be private, deleted, or restricted in your region.", true
	case errors.Is(err, ErrInvalidURL):
		return "That doesn't look like a valid YouTube link.", true
	case errors.As(err, &serr):
		return serr.Error(), true
	}
	return "", false
}
