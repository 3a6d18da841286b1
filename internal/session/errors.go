package session

import (
	"errors"
	"fmt"
)

// Phase names the part of a fetch that failed.
type Phase string

const (
	PhaseConnect   Phase = "connect"
	PhasePair      Phase = "pair"
	PhaseIdentity  Phase = "identity"
	PhaseSubscribe Phase = "subscribe"
	PhaseCollect   Phase = "collect"
)

var (
	// ErrConnectionFailed matches any FetchError raised while connecting,
	// pairing, reading identity or subscribing, unless the fetch was canceled.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrTimedOut is returned when the device does not disconnect in time.
	ErrTimedOut = errors.New("timed out waiting for device to disconnect")
)

// FetchError is the single typed failure returned by Session.Fetch.
type FetchError struct {
	Phase Phase
	Err   error

	canceled bool
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports ErrConnectionFailed for link-level phases.
func (e *FetchError) Is(target error) bool {
	if target != ErrConnectionFailed || e.canceled {
		return false
	}
	return e.Phase != PhaseCollect
}
