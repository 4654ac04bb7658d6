package tiles

import (
	"errors"
	"fmt"
)

var (
	// ErrTileFetch matches every *TileFetchError.
	ErrTileFetch = errors.New("tile fetch failed")
	// ErrStaleFrame is returned by FrameLoader.Load when a newer frame was
	// started before this one resolved.
	ErrStaleFrame = errors.New("stale frame")
)

// TileFetchError is a network or decode failure for a single tile.
type TileFetchError struct {
	Address TileAddress
	URL     string
	Status  int
	Err     error
}

func (e *TileFetchError) Error() string {
	msg := fmt.Sprintf("fetch tile %s", e.Address)
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TileFetchError) Unwrap() error { return e.Err }

func (e *TileFetchError) Is(target error) bool { return target == ErrTileFetch }
