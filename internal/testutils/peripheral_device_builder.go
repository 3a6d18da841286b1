package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	blelib "github.com/go-ble/ble"
	"github.com/srg/sbm69/internal/device"
	"github.com/srg/sbm69/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
)

// CharacteristicConfig represents a BLE characteristic configuration for mocking
type CharacteristicConfig struct {
	UUID           string        `json:"uuid"`
	Properties     string        `json:"properties,omitempty"` // e.g., "read,notify"
	Value          []byte        `json:"value,omitempty"`
	ReadError      string        `json:"read_error,omitempty"`
	ReadDelay      time.Duration `json:"read_delay,omitempty"`
	SubscribeError string        `json:"subscribe_error,omitempty"`
}

// ServiceConfig represents a BLE service configuration for mocking
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceProfileConfig represents the complete device profile for mocking
type DeviceProfileConfig struct {
	Services []ServiceConfig `json:"services"`
}

// PeripheralDeviceBuilder builds a mocked BLE device with full service/characteristic support
type PeripheralDeviceBuilder struct {
	t       *testing.T
	profile DeviceProfileConfig

	dialErrors         []error
	discoverError      error
	pairing            bool
	pairError          error
	scanAdvertisements []blelib.Advertisement
	scanError          error
}

// NewPeripheralDeviceBuilder creates a new peripheral device builder
func NewPeripheralDeviceBuilder(t *testing.T) *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{
		t:       t,
		profile: DeviceProfileConfig{Services: []ServiceConfig{}},
	}
}

// SBM69Identity holds the Device Information values served by NewSBM69PeripheralBuilder.
var SBM69Identity = map[string]string{
	device.ManufacturerNameUUID: "Sanitas",
	device.ModelNumberUUID:      "SBM69",
	device.SerialNumberUUID:     "0123456789",
	device.HardwareRevisionUUID: "1.0",
	device.FirmwareRevisionUUID: "2.1",
	device.SoftwareRevisionUUID: "3.2",
}

// NewSBM69PeripheralBuilder creates a builder preconfigured with the SBM69 GATT profile:
// Device Information with six readable strings and Blood Pressure with an indicating
// measurement characteristic.
func NewSBM69PeripheralBuilder(t *testing.T) *PeripheralDeviceBuilder {
	b := NewPeripheralDeviceBuilder(t).WithService(device.DeviceInformationServiceUUID)
	for _, uuid := range []string{
		device.ManufacturerNameUUID,
		device.ModelNumberUUID,
		device.SerialNumberUUID,
		device.HardwareRevisionUUID,
		device.FirmwareRevisionUUID,
		device.SoftwareRevisionUUID,
	} {
		b.WithCharacteristic(uuid, "read", []byte(SBM69Identity[uuid]))
	}
	return b.
		WithService(device.BloodPressureServiceUUID).
		WithCharacteristic(device.BloodPressureMeasurementUUID, "indicate", nil)
}

// WithService adds a service to the device profile
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{
		UUID:            uuid,
		Characteristics: []CharacteristicConfig{},
	})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string, value []byte) *PeripheralDeviceBuilder {
	svc := b.lastService("WithCharacteristic")
	svc.Characteristics = append(svc.Characteristics, CharacteristicConfig{
		UUID:       uuid,
		Properties: properties,
		Value:      value,
	})
	return b
}

// WithReadError makes reads of the characteristic uuid fail with msg
func (b *PeripheralDeviceBuilder) WithReadError(uuid, msg string) *PeripheralDeviceBuilder {
	b.characteristic("WithReadError", uuid).ReadError = msg
	return b
}

// WithReadDelay delays every read of the characteristic uuid by d
func (b *PeripheralDeviceBuilder) WithReadDelay(uuid string, d time.Duration) *PeripheralDeviceBuilder {
	b.characteristic("WithReadDelay", uuid).ReadDelay = d
	return b
}

// WithSubscribeError makes subscribing to the characteristic uuid fail with msg
func (b *PeripheralDeviceBuilder) WithSubscribeError(uuid, msg string) *PeripheralDeviceBuilder {
	b.characteristic("WithSubscribeError", uuid).SubscribeError = msg
	return b
}

// WithDialErrors makes the first len(errs) dials fail, in order
func (b *PeripheralDeviceBuilder) WithDialErrors(errs ...error) *PeripheralDeviceBuilder {
	b.dialErrors = append(b.dialErrors, errs...)
	return b
}

// WithDiscoverError makes profile discovery fail
func (b *PeripheralDeviceBuilder) WithDiscoverError(err error) *PeripheralDeviceBuilder {
	b.discoverError = err
	return b
}

// WithPairing makes the client support explicit pairing, answering with err
func (b *PeripheralDeviceBuilder) WithPairing(err error) *PeripheralDeviceBuilder {
	b.pairing = true
	b.pairError = err
	return b
}

// WithScanAdvertisements adds advertisements delivered to every Scan handler
func (b *PeripheralDeviceBuilder) WithScanAdvertisements(ads ...blelib.Advertisement) *PeripheralDeviceBuilder {
	b.scanAdvertisements = append(b.scanAdvertisements, ads...)
	return b
}

// WithScanError makes Scan fail immediately with err
func (b *PeripheralDeviceBuilder) WithScanError(err error) *PeripheralDeviceBuilder {
	b.scanError = err
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralDeviceBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config DeviceProfileConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder.FromJSON: failed to unmarshal: %v", err))
	}

	b.profile = config
	return b
}

// GetServices returns the configured services
func (b *PeripheralDeviceBuilder) GetServices() []ServiceConfig {
	return b.profile.Services
}

func (b *PeripheralDeviceBuilder) lastService(caller string) *ServiceConfig {
	if len(b.profile.Services) == 0 {
		panic(caller + ": no service added yet, call WithService first")
	}
	return &b.profile.Services[len(b.profile.Services)-1]
}

func (b *PeripheralDeviceBuilder) characteristic(caller, uuid string) *CharacteristicConfig {
	want := device.NormalizeUUID(uuid)
	for i := range b.profile.Services {
		svc := &b.profile.Services[i]
		for j := range svc.Characteristics {
			if device.NormalizeUUID(svc.Characteristics[j].UUID) == want {
				return &svc.Characteristics[j]
			}
		}
	}
	panic(fmt.Sprintf("%s: characteristic %s is not configured", caller, uuid))
}

// parseCharacteristicProperties converts a comma separated property list to ble.Property flags
func parseCharacteristicProperties(props string) blelib.Property {
	if props == "" {
		return blelib.CharRead | blelib.CharNotify // default
	}

	var property blelib.Property
	for _, p := range strings.Split(props, ",") {
		switch strings.TrimSpace(p) {
		case "read":
			property |= blelib.CharRead
		case "write":
			property |= blelib.CharWrite
		case "notify":
			property |= blelib.CharNotify
		case "indicate":
			property |= blelib.CharIndicate
		}
	}
	return property
}

// MockPeripheral is a built mock device together with the client it dials into.
// It records subscription handlers so tests can push notifications.
type MockPeripheral struct {
	Device *mocks.MockDevice
	Client *mocks.MockClient

	mu       sync.Mutex
	handlers map[string]blelib.NotificationHandler
}

// Build creates the mocked ble.Device with the configured profile
func (b *PeripheralDeviceBuilder) Build() *MockPeripheral {
	p := &MockPeripheral{
		Device:   &mocks.MockDevice{},
		Client:   mocks.NewMockClient(),
		handlers: make(map[string]blelib.NotificationHandler),
	}
	if b.t != nil {
		b.t.Cleanup(p.Disconnect)
	}

	var client blelib.Client = p.Client
	if b.pairing {
		client = &mocks.MockPairingClient{MockClient: p.Client}
		p.Client.On("Pair").Return(b.pairError).Maybe()
	}

	var bleServices []*blelib.Service
	for _, svcConfig := range b.profile.Services {
		bleService := &blelib.Service{UUID: blelib.MustParse(device.ExpandUUID(svcConfig.UUID))}

		for _, charConfig := range svcConfig.Characteristics {
			char := &blelib.Characteristic{
				UUID:     blelib.MustParse(device.ExpandUUID(charConfig.UUID)),
				Property: parseCharacteristicProperties(charConfig.Properties),
				Value:    charConfig.Value,
			}
			bleService.Characteristics = append(bleService.Characteristics, char)
			b.expectCharacteristic(p, char, charConfig)
		}
		bleServices = append(bleServices, bleService)
	}

	for _, err := range b.dialErrors {
		p.Device.On("Dial", mock.Anything, mock.Anything).Return(nil, err).Once()
	}
	p.Device.On("Dial", mock.Anything, mock.Anything).Return(client, nil).Maybe()

	if b.discoverError != nil {
		p.Client.On("DiscoverProfile", true).Return(nil, b.discoverError).Maybe()
	} else {
		p.Client.On("DiscoverProfile", true).Return(&blelib.Profile{Services: bleServices}, nil).Maybe()
	}
	p.Client.On("CancelConnection").Return(nil).Maybe()

	// Scan delivers every advertisement, then blocks like a real scan until ctx ends.
	scan := p.Device.On("Scan", mock.Anything, mock.Anything, mock.Anything).Maybe()
	if b.scanError != nil {
		scan.Return(b.scanError)
	} else {
		ads := b.scanAdvertisements
		scan.Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			handler := args.Get(2).(blelib.AdvHandler)
			for _, adv := range ads {
				if ctx.Err() != nil {
					return
				}
				handler(adv)
			}
			<-ctx.Done()
		}).Return(nil)
	}
	p.Device.On("Stop").Return(nil).Maybe()

	return p
}

func (b *PeripheralDeviceBuilder) expectCharacteristic(p *MockPeripheral, char *blelib.Characteristic, cfg CharacteristicConfig) {
	read := p.Client.On("ReadCharacteristic", char).Maybe()
	switch {
	case cfg.ReadError != "":
		read.Return(nil, fmt.Errorf("%s", cfg.ReadError))
	case char.Property&blelib.CharRead == 0:
		read.Return(nil, fmt.Errorf("characteristic does not support read"))
	default:
		read.Return(char.Value, nil)
	}
	if cfg.ReadDelay > 0 {
		read.After(cfg.ReadDelay)
	}

	uuid := device.NormalizeUUID(cfg.UUID)
	sub := p.Client.On("Subscribe", char, mock.Anything, mock.Anything).Maybe()
	if cfg.SubscribeError != "" {
		sub.Return(fmt.Errorf("%s", cfg.SubscribeError))
		return
	}
	sub.Run(func(args mock.Arguments) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.handlers[uuid] = args.Get(2).(blelib.NotificationHandler)
	}).Return(nil)
}

// Subscribed reports whether a handler is registered for uuid
func (p *MockPeripheral) Subscribed(uuid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.handlers[device.NormalizeUUID(uuid)]
	return ok
}

// WaitForSubscription waits until a handler is registered for uuid
func (p *MockPeripheral) WaitForSubscription(uuid string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if p.Subscribed(uuid) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return p.Subscribed(uuid)
}

// Notify delivers data to the handler subscribed to uuid.
// Returns false when nothing is subscribed.
func (p *MockPeripheral) Notify(uuid string, data []byte) bool {
	p.mu.Lock()
	handler, ok := p.handlers[device.NormalizeUUID(uuid)]
	p.mu.Unlock()
	if !ok {
		return false
	}
	handler(data)
	return true
}

// Disconnect simulates the peripheral ending the link
func (p *MockPeripheral) Disconnect() {
	p.Client.Disconnect()
}
