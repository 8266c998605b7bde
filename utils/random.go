package utils

import (
	"errors"
	"math/rand/v2"
)

var ErrEmptyCollection = errors.New("input must be a non-empty collection")

// RandomPick returns a uniformly random element of items
func RandomPick[T any](items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyCollection
	}
	return items[rand.IntN(len(items))], nil
}
