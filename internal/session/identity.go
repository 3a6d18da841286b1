package session

import (
	"context"
	"fmt"

	"github.com/srg/sbm69/internal/device"
)

// DeviceInfo is the Device Information snapshot read once per fetch.
type DeviceInfo struct {
	ManufacturerName string `json:"manufacturer_name" yaml:"manufacturer_name"`
	ModelNumber      string `json:"model_number" yaml:"model_number"`
	SerialNumber     string `json:"serial_number" yaml:"serial_number"`
	HardwareRevision string `json:"hardware_revision" yaml:"hardware_revision"`
	FirmwareRevision string `json:"firmware_revision" yaml:"firmware_revision"`
	SoftwareRevision string `json:"software_revision" yaml:"software_revision"`
}

// IdentityField is one DeviceInfo value with its snake_case key.
type IdentityField struct {
	Key   string
	UUID  string
	Value string
}

type identityCharacteristic struct {
	key  string
	uuid string
	ref  func(*DeviceInfo) *string
}

// identityCharacteristics lists the fields in the order they are read.
var identityCharacteristics = []identityCharacteristic{
	{"manufacturer_name", device.ManufacturerNameUUID, func(d *DeviceInfo) *string { return &d.ManufacturerName }},
	{"model_number", device.ModelNumberUUID, func(d *DeviceInfo) *string { return &d.ModelNumber }},
	{"serial_number", device.SerialNumberUUID, func(d *DeviceInfo) *string { return &d.SerialNumber }},
	{"hardware_revision", device.HardwareRevisionUUID, func(d *DeviceInfo) *string { return &d.HardwareRevision }},
	{"firmware_revision", device.FirmwareRevisionUUID, func(d *DeviceInfo) *string { return &d.FirmwareRevision }},
	{"software_revision", device.SoftwareRevisionUUID, func(d *DeviceInfo) *string { return &d.SoftwareRevision }},
}

// Fields returns the identity values in read order.
func (d DeviceInfo) Fields() []IdentityField {
	fields := make([]IdentityField, 0, len(identityCharacteristics))
	for _, c := range identityCharacteristics {
		fields = append(fields, IdentityField{Key: c.key, UUID: c.uuid, Value: *c.ref(&d)})
	}
	return fields
}

// bytesToString maps each byte to the code point of the same value.
func bytesToString(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// readIdentity reads the six Device Information strings sequentially and
// stops at the first failure.
func readIdentity(ctx context.Context, link device.Link) (DeviceInfo, error) {
	var info DeviceInfo
	for _, c := range identityCharacteristics {
		data, err := link.Read(ctx, c.uuid)
		if err != nil {
			return DeviceInfo{}, fmt.Errorf("%s: %w", c.key, err)
		}
		*c.ref(&info) = bytesToString(data)
	}
	return info, nil
}
