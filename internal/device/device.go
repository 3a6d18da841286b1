package device

import (
	"context"
	"errors"
	"fmt"
)

// NotFoundError represents an error when a BLE resource is not found
type NotFoundError struct {
	Resource string   // "device", "characteristic"
	UUIDs    []string // characteristic UUIDs, or the address/name searched for
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	return fmt.Sprintf("%s %q not found in %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	BluetoothOff     ConnectionState = "bluetooth_off"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrBluetoothOff     = &ConnectionError{State: BluetoothOff}
)

// ErrUnsupported is returned for operations a characteristic does not allow
var ErrUnsupported = errors.New("unsupported")

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// NotificationHandler receives the raw payload of one notification. The
// slice is only valid for the duration of the call.
type NotificationHandler func(data []byte)

// Link is a live GATT connection to one peripheral.
type Link interface {
	// Pair requests pairing with the peripheral.
	Pair(ctx context.Context) error
	// Read returns the current value of the characteristic with the given UUID.
	Read(ctx context.Context, uuid string) ([]byte, error)
	// Subscribe enables notifications on the characteristic with the given UUID.
	// handler may be invoked from a goroutine owned by the transport.
	Subscribe(ctx context.Context, uuid string, handler NotificationHandler) error
	// Disconnected is closed once the link is gone, whichever side ended it.
	Disconnected() <-chan struct{}
	// Close tears the link down. Safe to call more than once.
	Close() error
}

// Connector establishes links to a single, already identified peripheral.
type Connector interface {
	Connect(ctx context.Context) (Link, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Link, error)

// Connect calls f(ctx).
func (f ConnectorFunc) Connect(ctx context.Context) (Link, error) {
	return f(ctx)
}

// Advertisement is the subset of an advertising report used to pick a device.
type Advertisement interface {
	LocalName() string
	Addr() string
	RSSI() int
	Connectable() bool
}
