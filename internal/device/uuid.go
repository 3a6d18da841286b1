package device

import (
	"strings"
)

// bluetoothBaseSuffix is the Bluetooth SIG base UUID with the 16-bit slot removed.
const bluetoothBaseSuffix = "00001000800000805f9b34fb"

// GATT identifiers read by a fetch session, in normalized form.
const (
	DeviceInformationServiceUUID = "180a"
	BloodPressureServiceUUID     = "1810"

	ManufacturerNameUUID         = "2a29"
	ModelNumberUUID              = "2a24"
	SerialNumberUUID             = "2a25"
	HardwareRevisionUUID         = "2a27"
	FirmwareRevisionUUID         = "2a26"
	SoftwareRevisionUUID         = "2a28"
	BloodPressureMeasurementUUID = "2a35"
)

// NormalizeUUID converts a UUID string to the internal format (lowercase, no dashes).
// Also strips 0x prefix if present (e.g., "0x2A35" -> "2a35").
// For full 128-bit UUIDs in Bluetooth SIG base format (0000xxxx-0000-1000-8000-00805f9b34fb),
// extracts the 16-bit short form (xxxx).
// Returns "" when the input is not a 16-, 32- or 128-bit hex UUID.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	switch len(s) {
	case 4, 8, 32:
	default:
		return ""
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return ""
		}
	}

	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, bluetoothBaseSuffix) {
		return s[4:8]
	}
	return s
}

// ExpandUUID returns the dashed 128-bit form of a UUID. Short UUIDs are
// placed into the Bluetooth SIG base UUID.
func ExpandUUID(uuid string) string {
	s := NormalizeUUID(uuid)
	switch len(s) {
	case 4:
		s = "0000" + s + bluetoothBaseSuffix
	case 8:
		s = s + bluetoothBaseSuffix
	case 32:
	default:
		return ""
	}
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}
