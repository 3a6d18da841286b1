package session

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds the wait for the device to disconnect after subscribing.
	DefaultTimeout = 120 * time.Second

	// DefaultNotificationBuffer is the number of notifications queued ahead of decoding.
	DefaultNotificationBuffer = 64
)

type options struct {
	timeout          time.Duration
	logger           *logrus.Logger
	stateCallback    StateCallback
	strict           bool
	partialOnTimeout bool
	bufferSize       int
}

// Option configures a Session.
type Option func(*options)

// WithTimeout sets the collection bound. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithStateCallback(cb StateCallback) Option {
	return func(o *options) {
		o.stateCallback = cb
	}
}

// WithStrictDecoding rejects records whose pulse rate range code is undefined
// instead of keeping them with an undefined range.
func WithStrictDecoding(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithPartialOnTimeout makes Fetch return what it collected together with
// ErrTimedOut instead of a nil result.
func WithPartialOnTimeout(partial bool) Option {
	return func(o *options) {
		o.partialOnTimeout = partial
	}
}

// WithNotificationBuffer sets how many notifications may queue before the
// transport callback blocks.
func WithNotificationBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

func defaultOptions() options {
	return options{
		timeout:    DefaultTimeout,
		logger:     logrus.New(),
		bufferSize: DefaultNotificationBuffer,
	}
}
