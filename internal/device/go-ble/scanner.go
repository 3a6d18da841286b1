package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/sbm69/internal/device"
)

// DefaultScanTimeout bounds a device search.
const DefaultScanTimeout = 10 * time.Second

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// Filter selects the advertisement to stop at. Address wins over Name when set.
type Filter struct {
	Address string
	Name    string
}

func (f Filter) String() string {
	if f.Address != "" {
		return f.Address
	}
	return f.Name
}

func (f Filter) matches(adv ble.Advertisement) bool {
	if f.Address != "" {
		return strings.EqualFold(adv.Addr().String(), f.Address)
	}
	return f.Name != "" && adv.LocalName() == f.Name
}

// Scanner finds a single peripheral by address or advertised name
type Scanner struct {
	dev    ble.Device
	logger *logrus.Logger
}

// NewScanner creates a Scanner on top of a go-ble device
func NewScanner(dev ble.Device, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{dev: dev, logger: logger}
}

// Find scans until an advertisement matches filter, timeout elapses or ctx ends.
// Returns a NotFoundError when nothing matched within timeout.
func (s *Scanner) Find(ctx context.Context, filter Filter, timeout time.Duration, progressCallback ProgressCallback) (device.Advertisement, error) {
	if filter.Address == "" && filter.Name == "" {
		return nil, fmt.Errorf("scan filter needs an address or a name")
	}
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	seen := hashmap.New[string, int]()
	var (
		mu    sync.Mutex
		found ble.Advertisement
	)

	handler := func(adv ble.Advertisement) {
		addr := adv.Addr().String()
		if _, loaded := seen.GetOrInsert(addr, adv.RSSI()); !loaded {
			s.logger.WithFields(logrus.Fields{
				"device":  adv.LocalName(),
				"address": addr,
				"rssi":    adv.RSSI(),
			}).Debug("Discovered new device")
		} else {
			seen.Set(addr, adv.RSSI())
		}

		if filter.matches(adv) {
			mu.Lock()
			if found == nil {
				found = adv
				cancel()
			}
			mu.Unlock()
		}
	}

	s.logger.WithFields(logrus.Fields{
		"filter":  filter.String(),
		"timeout": timeout,
	}).Info("Starting BLE scan...")
	progressCallback("Scanning")

	err := s.dev.Scan(scanCtx, false, handler)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, NormalizeError(err)
	}

	s.logger.WithField("device_count", seen.Len()).Info("BLE scan completed")

	mu.Lock()
	match := found
	mu.Unlock()

	if match != nil {
		progressCallback("Found")
		return NewBLEAdvertisement(match), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	progressCallback("Not found")
	return nil, &device.NotFoundError{Resource: "device", UUIDs: []string{filter.String()}}
}
