package main

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/srg/sbm69/internal/session"
	"golang.org/x/term"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter displays the current fetch phase with elapsed time.
//
// A ProgressPrinter is single-use: Start at most once, then Stop. A disabled
// printer accepts every call and prints nothing.
type ProgressPrinter struct {
	w         io.Writer
	enabled   bool
	prefix    string
	phase     atomic.Value // string
	startTime time.Time
	ticker    atomic.Pointer[time.Ticker]
	stopChan  chan struct{}
	done      chan struct{}
	started   atomic.Bool
}

// NewProgressPrinter creates a printer writing to w, enabled only when w is a terminal.
func NewProgressPrinter(w io.Writer, prefix string, phase string) *ProgressPrinter {
	p := &ProgressPrinter{
		w:       w,
		enabled: isTerminal(w),
		prefix:  prefix,
	}
	p.phase.Store(phase)
	return p
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start begins displaying progress updates in a background goroutine.
// Panics if called more than once on the same ProgressPrinter instance.
func (p *ProgressPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic("ProgressPrinter.Start called more than once")
	}
	if !p.enabled {
		return
	}

	p.done = make(chan struct{})
	p.stopChan = make(chan struct{})
	p.startTime = time.Now()
	ticker := time.NewTicker(progressUpdateInterval)
	p.ticker.Store(ticker)

	fmt.Fprintf(p.w, "\r%s (%s...)   ", p.prefix, p.phase.Load().(string))

	go func() {
		defer close(p.done)
		for {
			select {
			case <-p.stopChan:
				return
			case <-ticker.C:
				seconds := int(time.Since(p.startTime).Seconds())
				fmt.Fprintf(p.w, "\r%s (%s %ds)   ", p.prefix, p.phase.Load().(string), seconds)
			}
		}
	}()
}

// SetPhase updates the phase shown on the next tick
func (p *ProgressPrinter) SetPhase(phase string) {
	p.phase.Store(phase)
}

// Phase returns the phase currently shown
func (p *ProgressPrinter) Phase() string {
	return p.phase.Load().(string)
}

// StateCallback maps session states to phases and stops the printer once the
// fetch terminates.
func (p *ProgressPrinter) StateCallback() session.StateCallback {
	return func(state session.State, _ session.Outcome) {
		if state == session.Terminated {
			p.Stop()
			return
		}
		if phase, ok := statePhases[state]; ok {
			p.SetPhase(phase)
		}
	}
}

var statePhases = map[session.State]string{
	session.Connecting:      "Connecting",
	session.Paired:          "Paired",
	session.ReadingIdentity: "Reading device information",
	session.Subscribing:     "Subscribing",
	session.Collecting:      "Receiving measurements",
}

// Stop stops the progress display and clears the line.
// Safe to call multiple times and from multiple goroutines.
func (p *ProgressPrinter) Stop() {
	ticker := p.ticker.Swap(nil)
	if ticker == nil {
		return // Already stopped or never started
	}

	ticker.Stop()
	close(p.stopChan)
	<-p.done

	fmt.Fprint(p.w, clearLineSequence)
}
