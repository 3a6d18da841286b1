//go:build test

package goble_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/srg/sbm69/internal/device"
	"github.com/srg/sbm69/internal/testutils"
	"github.com/stretchr/testify/mock"
)

func (s *GoBLETestSuite) TestLinkRead() {
	// GOAL: Verify characteristic reads honor properties, peer errors, context and disconnection
	//
	// TEST SCENARIO: Read characteristics in various states → value or typed error returned

	s.Run("read every identity characteristic", func() {
		link := s.connect(testutils.NewSBM69PeripheralBuilder(s.T()).Build())

		for uuid, want := range testutils.SBM69Identity {
			data, err := link.Read(context.Background(), uuid)
			s.Require().NoError(err, "MUST read %s", uuid)
			s.Equal(want, string(data), "value of %s MUST match", uuid)
		}
	})

	s.Run("short lookup on a 128-bit profile", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).Build()
		link := s.connect(p)

		// The mock reports characteristics in 128-bit form, as CoreBluetooth does.
		data, err := link.Read(context.Background(), device.SerialNumberUUID)
		s.Require().NoError(err, "16-bit lookup MUST match a 128-bit characteristic")
		s.Equal("0123456789", string(data))
	})

	s.Run("UUID format does not matter", func() {
		link := s.connect(testutils.NewSBM69PeripheralBuilder(s.T()).Build())

		data, err := link.Read(context.Background(), "00002A24-0000-1000-8000-00805F9B34FB")
		s.Require().NoError(err, "full UUID MUST resolve")
		s.Equal("SBM69", string(data))
	})

	s.Run("missing characteristic", func() {
		link := s.connect(testutils.NewSBM69PeripheralBuilder(s.T()).Build())

		_, err := link.Read(context.Background(), "2a19")

		var notFound *device.NotFoundError
		s.Require().ErrorAs(err, &notFound, "error MUST be NotFoundError")
		s.Equal("characteristic", notFound.Resource)
		s.Equal([]string{"2a19"}, notFound.UUIDs)
	})

	s.Run("characteristic without read property", func() {
		link := s.connect(testutils.NewSBM69PeripheralBuilder(s.T()).Build())

		_, err := link.Read(context.Background(), device.BloodPressureMeasurementUUID)
		s.ErrorIs(err, device.ErrUnsupported, "indicate-only characteristic MUST not be readable")
	})

	s.Run("peer read error", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).
			WithReadError(device.SerialNumberUUID, "insufficient authentication").
			Build()
		link := s.connect(p)

		_, err := link.Read(context.Background(), device.SerialNumberUUID)
		s.Require().Error(err)
		s.Equal("read 2a25: insufficient authentication", err.Error())
	})

	s.Run("context deadline", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).
			WithReadDelay(device.ModelNumberUUID, time.Second).
			Build()
		link := s.connect(p)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := link.Read(ctx, device.ModelNumberUUID)
		s.ErrorIs(err, context.DeadlineExceeded)
	})

	s.Run("peer disconnects during read", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).
			WithReadDelay(device.ModelNumberUUID, time.Second).
			Build()
		link := s.connect(p)

		time.AfterFunc(20*time.Millisecond, p.Disconnect)

		_, err := link.Read(context.Background(), device.ModelNumberUUID)
		s.ErrorIs(err, device.ErrNotConnected)
	})
}

func (s *GoBLETestSuite) TestLinkSubscribe() {
	// GOAL: Verify subscriptions pick notify or indicate and deliver payloads to the handler
	//
	// TEST SCENARIO: Subscribe to characteristics → peer pushes data → handler receives it unchanged

	s.Run("indicate characteristic", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).Build()
		link := s.connect(p)

		var (
			mu  sync.Mutex
			got [][]byte
		)
		err := link.Subscribe(context.Background(), device.BloodPressureMeasurementUUID, func(data []byte) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, append([]byte(nil), data...))
		})
		s.Require().NoError(err, "MUST subscribe")
		s.Require().True(p.Subscribed(device.BloodPressureMeasurementUUID), "handler MUST be registered")
		p.Client.AssertCalled(s.T(), "Subscribe", mock.Anything, true, mock.Anything)

		s.True(p.Notify(device.BloodPressureMeasurementUUID, []byte{0x00, 0x64, 0x00, 0xC8, 0x00, 0x5A, 0x00}))
		s.True(p.Notify(device.BloodPressureMeasurementUUID, []byte{0x00}))

		mu.Lock()
		defer mu.Unlock()
		s.Equal([][]byte{{0x00, 0x64, 0x00, 0xC8, 0x00, 0x5A, 0x00}, {0x00}}, got, "payloads MUST arrive in order")
	})

	s.Run("notify characteristic", func() {
		p := testutils.NewPeripheralDeviceBuilder(s.T()).
			WithService(device.BloodPressureServiceUUID).
			WithCharacteristic(device.BloodPressureMeasurementUUID, "notify", nil).
			Build()
		link := s.connect(p)

		s.Require().NoError(link.Subscribe(context.Background(), device.BloodPressureMeasurementUUID, func([]byte) {}))
		p.Client.AssertCalled(s.T(), "Subscribe", mock.Anything, false, mock.Anything)
	})

	s.Run("characteristic without notifications", func() {
		link := s.connect(testutils.NewSBM69PeripheralBuilder(s.T()).Build())

		err := link.Subscribe(context.Background(), device.ModelNumberUUID, func([]byte) {})
		s.ErrorIs(err, device.ErrUnsupported)
	})

	s.Run("peer rejects subscription", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).
			WithSubscribeError(device.BloodPressureMeasurementUUID, "write descriptor failed").
			Build()
		link := s.connect(p)

		err := link.Subscribe(context.Background(), device.BloodPressureMeasurementUUID, func([]byte) {})
		s.Require().Error(err)
		s.Equal("subscribe 2a35: write descriptor failed", err.Error())
	})

	s.Run("canceled context", func() {
		link := s.connect(testutils.NewSBM69PeripheralBuilder(s.T()).Build())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s.ErrorIs(link.Subscribe(ctx, device.BloodPressureMeasurementUUID, func([]byte) {}), context.Canceled)
	})
}

func (s *GoBLETestSuite) TestLinkPair() {
	// GOAL: Verify pairing uses the client capability when present and is a no-op otherwise
	//
	// TEST SCENARIO: Pair on clients with and without support → nil or wrapped error

	s.Run("client without pairing support", func() {
		link := s.connect(testutils.NewSBM69PeripheralBuilder(s.T()).Build())
		s.NoError(link.Pair(context.Background()))
	})

	s.Run("client pairs", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).WithPairing(nil).Build()
		link := s.connect(p)

		s.NoError(link.Pair(context.Background()))
		p.Client.AssertCalled(s.T(), "Pair")
	})

	s.Run("pairing rejected", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).WithPairing(errors.New("pairing rejected by user")).Build()
		link := s.connect(p)

		err := link.Pair(context.Background())
		s.Require().Error(err)
		s.Equal("pairing failed: pairing rejected by user", err.Error())
	})
}

func (s *GoBLETestSuite) TestLinkClose() {
	// GOAL: Verify Close cancels the connection once and Disconnected reflects either side ending the link
	//
	// TEST SCENARIO: Close or peer disconnect → Disconnected closed → CancelConnection called at most once

	s.Run("close is idempotent", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).Build()
		link := s.connect(p)

		s.NoError(link.Close())
		s.NoError(link.Close())

		select {
		case <-link.Disconnected():
		default:
			s.Fail("Disconnected MUST be closed after Close")
		}
		p.Client.AssertNumberOfCalls(s.T(), "CancelConnection", 1)
	})

	s.Run("peer disconnect", func() {
		p := testutils.NewSBM69PeripheralBuilder(s.T()).Build()
		link := s.connect(p)

		p.Disconnect()

		select {
		case <-link.Disconnected():
		case <-time.After(time.Second):
			s.FailNow("Disconnected MUST close when the peer drops the link")
		}

		s.NoError(link.Close())
		p.Client.AssertNotCalled(s.T(), "CancelConnection")
	})
}
