// Package session drives one SBM69 fetch: connect, pair, read the device
// identity, subscribe to blood pressure measurements and collect them until
// the monitor ends the link.
package session

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/sbm69/internal/bpm"
	"github.com/srg/sbm69/internal/device"
)

// Rejection is a notification that failed to decode.
type Rejection struct {
	Index int // position in arrival order, counting accepted records too
	Raw   []byte
	Err   error
}

// Result is the outcome of a completed fetch.
type Result struct {
	DeviceInfo   DeviceInfo
	Measurements []bpm.Measurement
	Rejected     []Rejection
	Outcome      Outcome
}

// Session fetches stored measurements over links produced by a Connector.
// Fetch calls on one Session are serialized.
type Session struct {
	connector device.Connector
	opts      options
	guard     chan struct{}
}

// New creates a Session. The connector is borrowed and never closed.
func New(connector device.Connector, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{
		connector: connector,
		opts:      o,
		guard:     make(chan struct{}, 1),
	}
}

// Fetch runs one session against the device. It waits for any fetch already
// in flight on s to finish first.
//
// On success the result holds the identity and every measurement in arrival
// order, with Outcome OutcomeOK. A failure is always a *FetchError; a missing
// disconnect within the timeout yields ErrTimedOut and, unless partial results
// were requested, a nil result. Canceling ctx drops anything collected.
func (s *Session) Fetch(ctx context.Context) (*Result, error) {
	select {
	case s.guard <- struct{}{}:
	case <-ctx.Done():
		return nil, &FetchError{Phase: PhaseConnect, Err: ctx.Err(), canceled: true}
	}
	defer func() { <-s.guard }()

	r := &run{
		opts:    &s.opts,
		logger:  s.opts.logger,
		decoder: bpm.Decoder{Strict: s.opts.strict},
	}
	return r.fetch(ctx, s.connector)
}

// run is the state of a single fetch
type run struct {
	opts    *options
	logger  *logrus.Logger
	decoder bpm.Decoder

	state    State
	result   Result
	received int

	// done is closed when collection ends; later notifications are dropped
	done     chan struct{}
	doneOnce sync.Once
}

func (r *run) transition(state State, outcome Outcome) {
	r.logger.WithFields(logrus.Fields{
		"from": r.state,
		"to":   state,
	}).Debug("Session state changed")
	r.state = state
	if r.opts.stateCallback != nil {
		r.opts.stateCallback(state, outcome)
	}
}

func (r *run) fail(ctx context.Context, phase Phase, err error) (*Result, error) {
	ferr := &FetchError{Phase: phase, Err: err}
	if ctxErr := ctx.Err(); ctxErr != nil {
		ferr.Err = ctxErr
		ferr.canceled = true
	}
	r.logger.WithFields(logrus.Fields{
		"phase": phase,
		"error": ferr.Err,
	}).Error("Fetch failed")
	r.transition(Terminated, OutcomeFailed)
	return nil, ferr
}

func (r *run) fetch(ctx context.Context, connector device.Connector) (*Result, error) {
	r.done = make(chan struct{})

	r.transition(Connecting, OutcomeNone)
	link, err := connector.Connect(ctx)
	if err != nil {
		return r.fail(ctx, PhaseConnect, err)
	}

	var notifications chan []byte
	defer func() {
		r.endCollection()
		if err := link.Close(); err != nil {
			r.logger.WithError(err).Warn("Failed to close device link")
		}
		r.discardLeftovers(notifications)
	}()

	if err := link.Pair(ctx); err != nil {
		return r.fail(ctx, PhasePair, err)
	}
	r.transition(Paired, OutcomeNone)

	r.transition(ReadingIdentity, OutcomeNone)
	info, err := readIdentity(ctx, link)
	if err != nil {
		return r.fail(ctx, PhaseIdentity, err)
	}
	r.result.DeviceInfo = info
	r.logger.WithFields(logrus.Fields{
		"manufacturer": info.ManufacturerName,
		"model":        info.ModelNumber,
		"serial":       info.SerialNumber,
	}).Info("Device identity read")

	r.transition(Subscribing, OutcomeNone)
	notifications = make(chan []byte, r.opts.bufferSize)

	handler := func(data []byte) {
		buf := append([]byte(nil), data...)
		select {
		case <-r.done:
			r.dropLate(buf)
			return
		default:
		}
		select {
		case notifications <- buf:
		case <-r.done:
			r.dropLate(buf)
		}
	}
	if err := link.Subscribe(ctx, device.BloodPressureMeasurementUUID, handler); err != nil {
		return r.fail(ctx, PhaseSubscribe, err)
	}

	r.transition(Collecting, OutcomeNone)
	return r.collect(ctx, link, notifications)
}

// collect decodes notifications until the device disconnects, the timeout
// elapses or ctx ends.
func (r *run) collect(ctx context.Context, link device.Link, notifications <-chan []byte) (*Result, error) {
	timer := time.NewTimer(r.opts.timeout)
	defer timer.Stop()

	for {
		select {
		case data := <-notifications:
			r.accept(data)

		case <-link.Disconnected():
			r.endCollection()
			r.drain(notifications)
			r.logger.WithFields(logrus.Fields{
				"measurements": len(r.result.Measurements),
				"rejected":     len(r.result.Rejected),
			}).Info("Device disconnected, fetch complete")
			r.result.Outcome = OutcomeOK
			r.transition(Terminated, OutcomeOK)
			return r.take(), nil

		case <-timer.C:
			r.endCollection()
			r.drain(notifications)
			r.logger.WithFields(logrus.Fields{
				"timeout":      r.opts.timeout,
				"measurements": len(r.result.Measurements),
			}).Warn("Device did not disconnect in time")
			r.result.Outcome = OutcomeTimedOut
			r.transition(Terminated, OutcomeTimedOut)
			err := &FetchError{Phase: PhaseCollect, Err: ErrTimedOut}
			if r.opts.partialOnTimeout {
				return r.take(), err
			}
			return nil, err

		case <-ctx.Done():
			return r.fail(ctx, PhaseCollect, ctx.Err())
		}
	}
}

// endCollection stops the notification handler from queueing
func (r *run) endCollection() {
	r.doneOnce.Do(func() { close(r.done) })
}

// dropLate logs a notification that arrived after collection ended
func (r *run) dropLate(data []byte) {
	r.logger.WithFields(logrus.Fields{
		"raw": hex.EncodeToString(data),
	}).Warn("Measurement record arrived after collection ended, dropped")
}

// discardLeftovers logs records that were queued after the final drain
func (r *run) discardLeftovers(notifications <-chan []byte) {
	left := 0
	for {
		select {
		case <-notifications:
			left++
		default:
			if left > 0 {
				r.logger.WithField("count", left).Warn("Measurement records queued after collection ended, dropped")
			}
			return
		}
	}
}

// drain accepts notifications already queued
func (r *run) drain(notifications <-chan []byte) {
	for {
		select {
		case data := <-notifications:
			r.accept(data)
		default:
			return
		}
	}
}

func (r *run) accept(data []byte) {
	index := r.received
	r.received++

	m, err := r.decoder.Decode(data)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"index": index,
			"raw":   hex.EncodeToString(data),
			"error": err,
		}).Warn("Rejected malformed measurement record")
		r.result.Rejected = append(r.result.Rejected, Rejection{Index: index, Raw: data, Err: err})
		return
	}

	if m.MeasurementStatus != nil && !m.MeasurementStatus.PulseRateRange.Defined() {
		r.logger.WithFields(logrus.Fields{
			"index": index,
			"range": m.MeasurementStatus.PulseRateRange,
		}).Warn("Measurement carries an undefined pulse rate range code")
	}
	r.logger.WithFields(logrus.Fields{
		"index":     index,
		"systolic":  m.Systolic,
		"diastolic": m.Diastolic,
	}).Debug("Measurement received")
	r.result.Measurements = append(r.result.Measurements, m)
}

// take hands the collected result to the caller
func (r *run) take() *Result {
	res := r.result
	r.result = Result{}
	return &res
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimedOut)
}
