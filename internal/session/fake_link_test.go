package session_test

import (
	"context"
	"sync"
	"time"

	"github.com/srg/sbm69/internal/device"
	"github.com/srg/sbm69/internal/session"
	"github.com/srg/sbm69/internal/testutils"
)

// fakeLink is an in-memory device.Link serving the SBM69 identity
type fakeLink struct {
	mu         sync.Mutex
	identity   map[string][]byte
	readErrs   map[string]error
	pairErr    error
	subErr     error
	reads      []string
	handler    device.NotificationHandler
	closeCount int

	subscribed   chan struct{}
	subOnce      sync.Once
	disconnected chan struct{}
	discOnce     sync.Once
}

func newFakeLink() *fakeLink {
	l := &fakeLink{
		identity:     make(map[string][]byte),
		readErrs:     make(map[string]error),
		subscribed:   make(chan struct{}),
		disconnected: make(chan struct{}),
	}
	for uuid, v := range testutils.SBM69Identity {
		l.identity[uuid] = []byte(v)
	}
	return l
}

func (l *fakeLink) Pair(ctx context.Context) error {
	return l.pairErr
}

func (l *fakeLink) Read(ctx context.Context, uuid string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads = append(l.reads, uuid)
	if err := l.readErrs[uuid]; err != nil {
		return nil, err
	}
	return append([]byte(nil), l.identity[uuid]...), nil
}

func (l *fakeLink) Subscribe(ctx context.Context, uuid string, handler device.NotificationHandler) error {
	if l.subErr != nil {
		return l.subErr
	}
	l.mu.Lock()
	l.handler = handler
	l.mu.Unlock()
	l.subOnce.Do(func() { close(l.subscribed) })
	return nil
}

func (l *fakeLink) Disconnected() <-chan struct{} {
	return l.disconnected
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closeCount++
	l.mu.Unlock()
	l.disconnect()
	return nil
}

func (l *fakeLink) disconnect() {
	l.discOnce.Do(func() { close(l.disconnected) })
}

func (l *fakeLink) notify(data []byte) {
	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()
	handler(data)
}

func (l *fakeLink) readOrder() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.reads...)
}

func (l *fakeLink) closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeCount
}

// play waits for the subscription, pushes records and disconnects after delay.
// A negative delay never disconnects.
func (l *fakeLink) play(records [][]byte, delay time.Duration) {
	go func() {
		select {
		case <-l.subscribed:
		case <-l.disconnected:
			return
		}
		for _, rec := range records {
			l.notify(rec)
		}
		if delay < 0 {
			return
		}
		select {
		case <-time.After(delay):
			l.disconnect()
		case <-l.disconnected:
		}
	}()
}

func connectorFor(l *fakeLink) device.Connector {
	return device.ConnectorFunc(func(ctx context.Context) (device.Link, error) {
		return l, nil
	})
}

// stateRecorder collects state callbacks
type stateRecorder struct {
	mu       sync.Mutex
	states   []string
	outcomes []string
}

func (r *stateRecorder) callback(state session.State, outcome session.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state.String())
	r.outcomes = append(r.outcomes, outcome.String())
}

func (r *stateRecorder) get() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...), append([]string(nil), r.outcomes...)
}
