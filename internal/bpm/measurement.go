package bpm

import (
	"fmt"
)

// Wire lengths of the record segments.
const (
	mandatoryLength         = 7 // flags + systolic + diastolic + mean arterial pressure
	timeStampLength         = 7
	pulseRateLength         = 2
	userIDLength            = 1
	measurementStatusLength = 2

	// MaxRecordLength is the length of a record with every optional field present.
	MaxRecordLength = mandatoryLength + timeStampLength + pulseRateLength + userIDLength + measurementStatusLength
)

// TimeStamp is the device clock reading attached to a measurement.
// Values are carried as sent; no calendar validation is applied.
type TimeStamp struct {
	Year    uint16 `json:"year" yaml:"year"`
	Month   uint8  `json:"month" yaml:"month"`
	Day     uint8  `json:"day" yaml:"day"`
	Hours   uint8  `json:"hours" yaml:"hours"`
	Minutes uint8  `json:"minutes" yaml:"minutes"`
	Seconds uint8  `json:"seconds" yaml:"seconds"`
}

// String renders the stamp as "YYYY-MM-DD HH:MM:SS" without normalization.
func (ts TimeStamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		ts.Year, ts.Month, ts.Day, ts.Hours, ts.Minutes, ts.Seconds)
}

// PulseRateRange is the 2-bit pulse rate range code of the measurement status.
type PulseRateRange uint8

const (
	PulseRateNotExceeded PulseRateRange = iota
	PulseRateUpperLimitExceeded
	PulseRateLowerLimitExceeded

	// pulseRateUndefined is the only 2-bit code without a defined meaning.
	pulseRateUndefined
)

// Defined reports whether the code has a meaning assigned by the protocol.
func (r PulseRateRange) Defined() bool {
	return r < pulseRateUndefined
}

func (r PulseRateRange) String() string {
	switch r {
	case PulseRateNotExceeded:
		return "not_exceeded"
	case PulseRateUpperLimitExceeded:
		return "upper_limit_exceeded"
	case PulseRateLowerLimitExceeded:
		return "lower_limit_exceeded"
	default:
		return fmt.Sprintf("undefined(%d)", uint8(r))
	}
}

// MarshalText keeps the undefined variant visible in JSON and YAML output.
func (r PulseRateRange) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Measurement status bit layout, least significant bit first.
const (
	statusBodyMovement     = 1 << 0
	statusCuffTooLoose     = 1 << 1
	statusIrregularPulse   = 1 << 2
	statusPulseRangeShift  = 3
	statusPulseRangeMask   = 0x3
	statusImproperPosition = 1 << 5
)

// MeasurementStatus carries the device's assessment of the reading.
type MeasurementStatus struct {
	BodyMovementDetected        bool           `json:"body_movement_detected" yaml:"body_movement_detected"`
	CuffTooLoose                bool           `json:"cuff_too_loose" yaml:"cuff_too_loose"`
	IrregularPulse              bool           `json:"irregular_pulse" yaml:"irregular_pulse"`
	PulseRateRange              PulseRateRange `json:"pulse_rate_range" yaml:"pulse_rate_range"`
	ImproperMeasurementPosition bool           `json:"improper_measurement_position" yaml:"improper_measurement_position"`
}

// ParseMeasurementStatus unpacks the status word. Bits 6..15 are reserved
// and ignored. The pulse rate range code sits in bits 3..4 with bit 3 as its
// least significant bit, so 0x08 is upper limit exceeded and 0x10 lower.
func ParseMeasurementStatus(w uint16) MeasurementStatus {
	return MeasurementStatus{
		BodyMovementDetected:        w&statusBodyMovement != 0,
		CuffTooLoose:                w&statusCuffTooLoose != 0,
		IrregularPulse:              w&statusIrregularPulse != 0,
		PulseRateRange:              PulseRateRange((w >> statusPulseRangeShift) & statusPulseRangeMask),
		ImproperMeasurementPosition: w&statusImproperPosition != 0,
	}
}

// Word packs the status back into its wire form with reserved bits clear.
func (s MeasurementStatus) Word() uint16 {
	var w uint16
	if s.BodyMovementDetected {
		w |= statusBodyMovement
	}
	if s.CuffTooLoose {
		w |= statusCuffTooLoose
	}
	if s.IrregularPulse {
		w |= statusIrregularPulse
	}
	w |= uint16(s.PulseRateRange&statusPulseRangeMask) << statusPulseRangeShift
	if s.ImproperMeasurementPosition {
		w |= statusImproperPosition
	}
	return w
}

// Measurement is one decoded blood pressure record.
//
// Pressures and pulse rate are plain little-endian integers: the SBM69 does
// not use the SFLOAT encoding of the Bluetooth blood pressure profile.
// Optional fields are nil exactly when their flag bit is clear.
type Measurement struct {
	Flags                Flags  `json:"flags" yaml:"flags"`
	Systolic             uint16 `json:"systolic" yaml:"systolic"`
	Diastolic            uint16 `json:"diastolic" yaml:"diastolic"`
	MeanArterialPressure uint16 `json:"mean_arterial_pressure" yaml:"mean_arterial_pressure"`

	TimeStamp         *TimeStamp         `json:"time_stamp,omitempty" yaml:"time_stamp,omitempty"`
	PulseRate         *uint16            `json:"pulse_rate,omitempty" yaml:"pulse_rate,omitempty"`
	UserID            *uint8             `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	MeasurementStatus *MeasurementStatus `json:"measurement_status,omitempty" yaml:"measurement_status,omitempty"`
}
