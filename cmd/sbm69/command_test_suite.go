//go:build test

package main

import (
	"bytes"
	"time"

	"github.com/srg/sbm69/internal/device"
	"github.com/srg/sbm69/internal/testutils"
)

const testAddress = "AA:BB:CC:DD:EE:FF"

// CommandTestSuite runs the sbm69 command against a mocked SBM69 peripheral
type CommandTestSuite struct {
	testutils.MockBLEPeripheralSuite
}

// SetupTest makes the mocked peripheral discoverable before the parent setup builds it
func (s *CommandTestSuite) SetupTest() {
	s.WithPeripheral().WithScanAdvertisements(
		testutils.CreateMockAdvertisement("SBM69", testAddress, -60).Build(),
	)
	s.MockBLEPeripheralSuite.SetupTest()
}

// ExecuteCommand runs the root command with args and returns stdout and stderr
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// PlayRecords sends records over the measurement characteristic once the
// command subscribes, then drops the link when disconnect is set. The
// returned channel reports false when the command never subscribed.
func (s *CommandTestSuite) PlayRecords(disconnect bool, records ...[]byte) <-chan bool {
	done := make(chan bool, 1)
	peripheral := s.Peripheral
	go func() {
		if !peripheral.WaitForSubscription(device.BloodPressureMeasurementUUID, s.TestTimeout) {
			done <- false
			return
		}
		for _, r := range records {
			peripheral.Notify(device.BloodPressureMeasurementUUID, r)
			time.Sleep(5 * time.Millisecond)
		}
		if disconnect {
			peripheral.Disconnect()
		}
		done <- true
	}()
	return done
}
