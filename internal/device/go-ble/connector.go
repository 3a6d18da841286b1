package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/sbm69/internal/device"
)

const (
	// DefaultConnectAttempts is the number of dial attempts before giving up.
	DefaultConnectAttempts = 2

	// DefaultConnectTimeout bounds a single dial plus profile discovery.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultRetryDelay is the pause between failed dial attempts.
	DefaultRetryDelay = 250 * time.Millisecond
)

// DeviceFactory creates the platform ble.Device (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking as goble.DeviceFactory
var DeviceFactory = func() (ble.Device, error) {
	dev, err := newPlatformDevice()
	if err != nil {
		return nil, NormalizeError(err)
	}
	return dev, nil
}

// ConnectOptions configures how a Connector dials the peripheral
type ConnectOptions struct {
	Attempts       int
	ConnectTimeout time.Duration
	RetryDelay     time.Duration
}

// DefaultConnectOptions returns the options used when none are given
func DefaultConnectOptions() *ConnectOptions {
	return &ConnectOptions{
		Attempts:       DefaultConnectAttempts,
		ConnectTimeout: DefaultConnectTimeout,
		RetryDelay:     DefaultRetryDelay,
	}
}

// Connector dials one peripheral by address through a go-ble device and
// implements device.Connector.
type Connector struct {
	dev     ble.Device
	address string
	opts    ConnectOptions
	logger  *logrus.Logger
}

// NewConnector creates a Connector for address. Zero-valued option fields
// fall back to their defaults.
func NewConnector(dev ble.Device, address string, opts *ConnectOptions, logger *logrus.Logger) *Connector {
	if logger == nil {
		logger = logrus.New()
	}
	o := *DefaultConnectOptions()
	if opts != nil {
		if opts.Attempts > 0 {
			o.Attempts = opts.Attempts
		}
		if opts.ConnectTimeout > 0 {
			o.ConnectTimeout = opts.ConnectTimeout
		}
		if opts.RetryDelay > 0 {
			o.RetryDelay = opts.RetryDelay
		}
	}
	return &Connector{dev: dev, address: address, opts: o, logger: logger}
}

// Connect dials the peripheral and discovers its profile, retrying up to the
// configured number of attempts.
func (c *Connector) Connect(ctx context.Context) (device.Link, error) {
	if strings.TrimSpace(c.address) == "" {
		c.logger.Error("Connection attempt with empty address")
		return nil, fmt.Errorf("device address is empty")
	}
	if c.dev == nil {
		return nil, fmt.Errorf("BLE device is not initialized")
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		logger := c.logger.WithFields(logrus.Fields{
			"address": c.address,
			"attempt": attempt,
			"of":      c.opts.Attempts,
		})
		logger.Info("Connecting to BLE device...")

		link, err := c.dial(ctx)
		if err == nil {
			logger.Info("BLE device connected successfully")
			return link, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Bluetooth being off is not transient.
		if errors.Is(err, device.ErrBluetoothOff) {
			break
		}
		logger.WithError(err).Warn("Connection attempt failed")

		if attempt < c.opts.Attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to device with address %q: %w", c.address, lastErr)
}

// dial performs one connection attempt: dial and profile discovery
func (c *Connector) dial(ctx context.Context) (*Link, error) {
	connCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	c.logger.WithField("address", c.address).Debug("Dialing BLE device...")
	client, err := c.dev.Dial(connCtx, ble.NewAddr(c.address))
	if err != nil {
		return nil, NormalizeError(err)
	}

	c.logger.WithField("address", c.address).Debug("Discovering services and characteristics...")
	profile, err := client.DiscoverProfile(true)
	if err != nil {
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			c.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		return nil, fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	c.logger.WithFields(logrus.Fields{
		"address":  c.address,
		"services": len(profile.Services),
	}).Debug("Profile discovered successfully")

	return newLink(client, profile, c.logger), nil
}
