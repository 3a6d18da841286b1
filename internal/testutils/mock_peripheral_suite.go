//go:build test

package testutils

import (
	"time"

	blelib "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	goble "github.com/srg/sbm69/internal/device/go-ble"
	"github.com/stretchr/testify/suite"
)

// MockBLEPeripheralSuite provides a reusable test suite with a mocked SBM69 peripheral.
//
// The suite swaps goble.DeviceFactory for every test and restores it afterward.
// Tests that need a different peripheral configure it before calling the
// parent SetupTest:
//
//	func (s *FetchSuite) SetupTest() {
//	    s.WithPeripheral().WithDialErrors(errors.New("connection refused"))
//	    s.MockBLEPeripheralSuite.SetupTest()
//	}
type MockBLEPeripheralSuite struct {
	suite.Suite

	Helper *TestHelper
	Logger *logrus.Logger

	OriginalDeviceFactory func() (blelib.Device, error)
	TestTimeout           time.Duration

	// PeripheralBuilder configures the device built in SetupTest, SBM69 profile when nil
	PeripheralBuilder *PeripheralDeviceBuilder

	// Peripheral is the device DeviceFactory returns during the current test
	Peripheral *MockPeripheral
}

// SetupSuite runs once before all tests in the suite
func (s *MockBLEPeripheralSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
	s.OriginalDeviceFactory = goble.DeviceFactory
}

// SetupTest builds the peripheral and installs the mocked device factory
func (s *MockBLEPeripheralSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewSBM69PeripheralBuilder(s.T())
	}

	s.Peripheral = s.PeripheralBuilder.Build()
	peripheral := s.Peripheral
	goble.DeviceFactory = func() (blelib.Device, error) {
		return peripheral.Device, nil
	}

	s.Logger.Debug("Test setup completed - ready for execution")
}

// TearDownTest restores the device factory and resets the builder
func (s *MockBLEPeripheralSuite) TearDownTest() {
	if s.Peripheral != nil {
		s.Peripheral.Disconnect()
	}
	goble.DeviceFactory = s.OriginalDeviceFactory
	s.PeripheralBuilder = nil
	s.Peripheral = nil
}

// WithPeripheral returns the builder for the next SetupTest, starting from the SBM69 profile.
func (s *MockBLEPeripheralSuite) WithPeripheral() *PeripheralDeviceBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewSBM69PeripheralBuilder(s.T())
	}
	return s.PeripheralBuilder
}

// WithEmptyPeripheral replaces the builder with one that has no services
func (s *MockBLEPeripheralSuite) WithEmptyPeripheral() *PeripheralDeviceBuilder {
	s.PeripheralBuilder = NewPeripheralDeviceBuilder(s.T())
	return s.PeripheralBuilder
}
