package testutils

import (
	"github.com/go-ble/ble"
	"github.com/srg/sbm69/internal/testutils/mocks"
)

// AdvertisementBuilder builds mocked BLE advertisements for testing.
// Only explicitly set fields get mock expectations, and every expectation is
// optional so a scanner may inspect as little as it likes.
type AdvertisementBuilder struct {
	name        string
	address     string
	rssi        int
	connectable bool

	nameSet    bool
	addressSet bool
	rssiSet    bool
}

// NewAdvertisementBuilder creates a new AdvertisementBuilder with connectable=true.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{connectable: true}
}

// WithName sets the local name for the advertisement.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.name = name
	b.nameSet = true
	return b
}

// WithAddress sets the device address for the advertisement.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.address = addr
	b.addressSet = true
	return b
}

// WithRSSI sets the signal strength for the advertisement.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.rssi = rssi
	b.rssiSet = true
	return b
}

// WithConnectable sets whether the device accepts connections.
func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.connectable = c
	return b
}

// Build creates the mocked ble.Advertisement.
func (b *AdvertisementBuilder) Build() *mocks.MockAdvertisement {
	adv := &mocks.MockAdvertisement{}

	if b.addressSet {
		adv.On("Addr").Return(ble.NewAddr(b.address)).Maybe()
	}
	if b.nameSet {
		adv.On("LocalName").Return(b.name).Maybe()
	} else {
		adv.On("LocalName").Return("").Maybe()
	}
	if b.rssiSet {
		adv.On("RSSI").Return(b.rssi).Maybe()
	} else {
		adv.On("RSSI").Return(0).Maybe()
	}
	adv.On("Connectable").Return(b.connectable).Maybe()

	return adv
}
