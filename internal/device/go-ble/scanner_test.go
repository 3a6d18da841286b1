//go:build test

package goble_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	blelib "github.com/go-ble/ble"
	"github.com/srg/sbm69/internal/device"
	goble "github.com/srg/sbm69/internal/device/go-ble"
	"github.com/srg/sbm69/internal/testutils"
)

type phaseRecorder struct {
	mu     sync.Mutex
	phases []string
}

func (r *phaseRecorder) record(phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
}

func (r *phaseRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.phases...)
}

func (s *GoBLETestSuite) scanPeripheral() *testutils.MockPeripheral {
	return testutils.NewPeripheralDeviceBuilder(s.T()).
		WithScanAdvertisements(
			testutils.CreateMockAdvertisement("Thermometer", "11:22:33:44:55:66", -70).Build(),
			testutils.CreateMockAdvertisement("SBM69", testAddress, -55).Build(),
			testutils.CreateMockAdvertisement("SBM69", "66:55:44:33:22:11", -80).Build(),
		).
		Build()
}

func (s *GoBLETestSuite) TestScannerFind() {
	// GOAL: Verify the scanner stops at the first advertisement matching the filter
	//
	// TEST SCENARIO: Mock scan delivers several advertisements → filter selects one → scan stops early

	s.Run("find by name", func() {
		rec := &phaseRecorder{}
		scanner := goble.NewScanner(s.scanPeripheral().Device, s.Logger)

		adv, err := scanner.Find(context.Background(), goble.Filter{Name: "SBM69"}, s.TestTimeout, rec.record)
		s.Require().NoError(err, "MUST find device by name")
		s.True(strings.EqualFold(testAddress, adv.Addr()), "first matching advertisement MUST win")
		s.Equal("SBM69", adv.LocalName())
		s.Equal(-55, adv.RSSI())
		s.True(adv.Connectable())
		s.Equal([]string{"Scanning", "Found"}, rec.get())
	})

	s.Run("address wins over name", func() {
		scanner := goble.NewScanner(s.scanPeripheral().Device, s.Logger)

		adv, err := scanner.Find(context.Background(), goble.Filter{Address: "66:55:44:33:22:11", Name: "Thermometer"}, s.TestTimeout, nil)
		s.Require().NoError(err)
		s.True(strings.EqualFold("66:55:44:33:22:11", adv.Addr()))
	})

	s.Run("address match ignores case", func() {
		scanner := goble.NewScanner(s.scanPeripheral().Device, s.Logger)

		adv, err := scanner.Find(context.Background(), goble.Filter{Address: strings.ToLower(testAddress)}, s.TestTimeout, nil)
		s.Require().NoError(err)
		s.Equal("SBM69", adv.LocalName())
	})

	s.Run("unwrap returns the go-ble advertisement", func() {
		scanner := goble.NewScanner(s.scanPeripheral().Device, s.Logger)

		adv, err := scanner.Find(context.Background(), goble.Filter{Name: "Thermometer"}, s.TestTimeout, nil)
		s.Require().NoError(err)

		wrapped, ok := adv.(*goble.BLEAdvertisement)
		s.Require().True(ok, "MUST be a BLEAdvertisement")
		var raw blelib.Advertisement = wrapped.Unwrap()
		s.Equal("Thermometer", raw.LocalName())
	})
}

func (s *GoBLETestSuite) TestScannerFailures() {
	// GOAL: Verify the scanner reports missing devices, scan errors and cancellation distinctly
	//
	// TEST SCENARIO: No match, failing scan, canceled context → NotFoundError, normalized error, context error

	s.Run("device not found", func() {
		rec := &phaseRecorder{}
		scanner := goble.NewScanner(s.scanPeripheral().Device, s.Logger)

		adv, err := scanner.Find(context.Background(), goble.Filter{Name: "BM54"}, 30*time.Millisecond, rec.record)
		s.Nil(adv)

		var notFound *device.NotFoundError
		s.Require().ErrorAs(err, &notFound, "MUST return NotFoundError")
		s.Equal("device", notFound.Resource)
		s.Equal(`device "BM54" not found`, err.Error())
		s.Equal([]string{"Scanning", "Not found"}, rec.get())
	})

	s.Run("scan fails", func() {
		p := testutils.NewPeripheralDeviceBuilder(s.T()).
			WithScanError(errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?")).
			Build()
		scanner := goble.NewScanner(p.Device, s.Logger)

		_, err := scanner.Find(context.Background(), goble.Filter{Name: "SBM69"}, s.TestTimeout, nil)
		s.ErrorIs(err, device.ErrBluetoothOff)
	})

	s.Run("parent context canceled", func() {
		scanner := goble.NewScanner(s.scanPeripheral().Device, s.Logger)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := scanner.Find(ctx, goble.Filter{Name: "BM54"}, s.TestTimeout, nil)
		s.ErrorIs(err, context.Canceled)
	})

	s.Run("empty filter", func() {
		scanner := goble.NewScanner(s.scanPeripheral().Device, s.Logger)

		_, err := scanner.Find(context.Background(), goble.Filter{}, s.TestTimeout, nil)
		s.EqualError(err, "scan filter needs an address or a name")
	})
}
