package session

import "fmt"

// State is a step of one fetch.
type State int

const (
	Idle State = iota
	Connecting
	Paired
	ReadingIdentity
	Subscribing
	Collecting
	Terminated
)

var stateNames = [...]string{
	Idle:            "idle",
	Connecting:      "connecting",
	Paired:          "paired",
	ReadingIdentity: "reading_identity",
	Subscribing:     "subscribing",
	Collecting:      "collecting",
	Terminated:      "terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Outcome tells how a fetch terminated. It is OutcomeNone until Terminated.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeOK
	OutcomeTimedOut
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeOK:
		return "ok"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText renders the outcome name in JSON and YAML reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// StateCallback observes state transitions. outcome is OutcomeNone for every
// state but Terminated. It runs on the fetching goroutine and must not block.
type StateCallback func(state State, outcome Outcome)
