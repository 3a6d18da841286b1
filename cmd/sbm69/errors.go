package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/srg/sbm69/internal/device"
	"github.com/srg/sbm69/internal/session"
)

// scanError marks a failure of the device search itself
type scanError struct {
	err error
}

func (e *scanError) Error() string { return "scan failed: " + e.err.Error() }
func (e *scanError) Unwrap() error { return e.err }

// FormatUserError turns an error returned by the command into a message for
// the terminal.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var (
		notFound *device.NotFoundError
		scanErr  *scanError
		fetchErr *session.FetchError
	)
	switch {
	case errors.As(err, &notFound) && notFound.Resource == "device":
		return "Device not found."
	case device.IsConnectionState(err, device.BluetoothOff):
		return "Bluetooth is turned off."
	case errors.As(err, &scanErr):
		return fmt.Sprintf("Scan failed: %s", sentence(scanErr.err))
	case errors.Is(err, session.ErrTimedOut):
		return "Timed out: the device did not finish sending measurements."
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Connection failed: %s", sentence(fetchErr))
	default:
		return sentence(err)
	}
}

// sentence renders err as a message ending with a period
func sentence(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" || strings.HasSuffix(msg, ".") {
		return msg
	}
	return msg + "."
}
