package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/sbm69/internal/device"
	"github.com/srg/sbm69/internal/groutine"
)

// pairer is implemented by go-ble clients that expose explicit pairing.
// CoreBluetooth and BlueZ pair on demand when an encrypted attribute is
// first accessed, so clients without it are left to do that.
type pairer interface {
	Pair() error
}

// disconnectNotifier is implemented by go-ble clients that report link loss.
type disconnectNotifier interface {
	Disconnected() <-chan struct{}
}

// Link is a connected go-ble client with its discovered profile.
// It implements device.Link.
type Link struct {
	client ble.Client
	chars  map[string]*ble.Characteristic // keyed by normalized UUID
	logger *logrus.Logger

	closeOnce    sync.Once
	closeErr     error
	closed       chan struct{}
	disconnected chan struct{}
}

func newLink(client ble.Client, profile *ble.Profile, logger *logrus.Logger) *Link {
	l := &Link{
		client:       client,
		chars:        make(map[string]*ble.Characteristic),
		logger:       logger,
		closed:       make(chan struct{}),
		disconnected: make(chan struct{}),
	}

	for _, svc := range profile.Services {
		for _, char := range svc.Characteristics {
			uuid := device.NormalizeUUID(char.UUID.String())
			// First occurrence wins when a UUID appears in several services.
			if _, exists := l.chars[uuid]; !exists {
				l.chars[uuid] = char
			}
		}
	}

	var peerGone <-chan struct{}
	if dn, ok := client.(disconnectNotifier); ok {
		peerGone = dn.Disconnected()
	} else {
		logger.Debug("Client does not report disconnection; only Close ends the link")
	}

	groutine.Go(context.Background(), "ble-disconnect-monitor", func(ctx context.Context) {
		defer close(l.disconnected)
		select {
		case <-peerGone:
			logger.Info("BLE device disconnected")
		case <-l.closed:
		}
	})

	return l
}

// characteristic looks up a discovered characteristic by UUID
func (l *Link) characteristic(uuid string) (*ble.Characteristic, error) {
	char, ok := l.chars[device.NormalizeUUID(uuid)]
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{uuid}}
	}
	return char, nil
}

// Pair requests pairing when the client supports it.
func (l *Link) Pair(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := l.client.(pairer)
	if !ok {
		l.logger.Debug("Explicit pairing not supported by client, relying on on-demand pairing")
		return nil
	}
	if err := p.Pair(); err != nil {
		return fmt.Errorf("pairing failed: %w", NormalizeError(err))
	}
	l.logger.Debug("Paired with BLE device")
	return nil
}

type readResult struct {
	data []byte
	err  error
}

// Read reads a characteristic value. If ctx ends first, Read returns
// ctx.Err() and the ATT request is left to finish on its own.
func (l *Link) Read(ctx context.Context, uuid string) ([]byte, error) {
	char, err := l.characteristic(uuid)
	if err != nil {
		return nil, err
	}
	if char.Property&ble.CharRead == 0 {
		return nil, fmt.Errorf("characteristic %s is not readable: %w", uuid, device.ErrUnsupported)
	}

	result := make(chan readResult, 1)
	groutine.Go(ctx, "ble-read-"+uuid, func(context.Context) {
		data, err := l.client.ReadCharacteristic(char)
		result <- readResult{data: data, err: err}
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.disconnected:
		return nil, fmt.Errorf("read %s: %w", uuid, device.ErrNotConnected)
	case r := <-result:
		if r.err != nil {
			return nil, fmt.Errorf("read %s: %w", uuid, NormalizeError(r.err))
		}
		l.logger.WithFields(logrus.Fields{
			"char_uuid": uuid,
			"bytes":     len(r.data),
		}).Debug("Characteristic read")
		return r.data, nil
	}
}

// Subscribe enables notifications on a characteristic.
func (l *Link) Subscribe(ctx context.Context, uuid string, handler device.NotificationHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	char, err := l.characteristic(uuid)
	if err != nil {
		return err
	}
	if char.Property&(ble.CharNotify|ble.CharIndicate) == 0 {
		return fmt.Errorf("characteristic %s does not support notifications: %w", uuid, device.ErrUnsupported)
	}

	indicate := char.Property&ble.CharNotify == 0
	if err := l.client.Subscribe(char, indicate, ble.NotificationHandler(handler)); err != nil {
		l.logger.WithFields(logrus.Fields{
			"char_uuid": uuid,
			"error":     err,
		}).Error("Failed to subscribe to characteristic notifications")
		return fmt.Errorf("subscribe %s: %w", uuid, NormalizeError(err))
	}

	l.logger.WithFields(logrus.Fields{
		"char_uuid": uuid,
		"indicate":  indicate,
	}).Info("Successfully subscribed to characteristic notifications")
	return nil
}

// Disconnected is closed when the peer drops the link or Close is called.
func (l *Link) Disconnected() <-chan struct{} {
	return l.disconnected
}

// Close cancels the connection. Only the first call talks to the device.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		select {
		case <-l.disconnected:
			// Peer already ended the link; nothing to cancel.
		default:
			l.closeErr = NormalizeError(l.client.CancelConnection())
		}
		close(l.closed)
		<-l.disconnected

		if l.closeErr != nil {
			l.logger.WithError(l.closeErr).Warn("BLE device disconnected with errors")
		} else {
			l.logger.Debug("BLE link closed")
		}
	})
	return l.closeErr
}
