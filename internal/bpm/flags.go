package bpm

// Flag bit positions within the leading byte of a measurement record.
// Bits 5..7 are reserved and never inspected.
const (
	flagBloodPressureUnits = 1 << iota
	flagTimeStamp
	flagPulseRate
	flagUserID
	flagMeasurementStatus
)

// Flags tells which optional fields follow the mandatory pressures.
type Flags struct {
	// BloodPressureUnits is false for mmHg and true for kPa. The SBM69 always
	// reports mmHg; the bit is carried through untouched.
	BloodPressureUnits bool `json:"blood_pressure_units" yaml:"blood_pressure_units"`
	TimeStamp          bool `json:"time_stamp" yaml:"time_stamp"`
	PulseRate          bool `json:"pulse_rate" yaml:"pulse_rate"`
	UserID             bool `json:"user_id" yaml:"user_id"`
	MeasurementStatus  bool `json:"measurement_status" yaml:"measurement_status"`
}

// ParseFlags unpacks the flags byte, least significant bit first.
func ParseFlags(b byte) Flags {
	return Flags{
		BloodPressureUnits: b&flagBloodPressureUnits != 0,
		TimeStamp:          b&flagTimeStamp != 0,
		PulseRate:          b&flagPulseRate != 0,
		UserID:             b&flagUserID != 0,
		MeasurementStatus:  b&flagMeasurementStatus != 0,
	}
}

// Byte packs the flags back into their wire form with reserved bits clear.
func (f Flags) Byte() byte {
	var b byte
	if f.BloodPressureUnits {
		b |= flagBloodPressureUnits
	}
	if f.TimeStamp {
		b |= flagTimeStamp
	}
	if f.PulseRate {
		b |= flagPulseRate
	}
	if f.UserID {
		b |= flagUserID
	}
	if f.MeasurementStatus {
		b |= flagMeasurementStatus
	}
	return b
}

// recordLength returns the number of bytes a record with these flags occupies.
func (f Flags) recordLength() int {
	n := mandatoryLength
	if f.TimeStamp {
		n += timeStampLength
	}
	if f.PulseRate {
		n += pulseRateLength
	}
	if f.UserID {
		n += userIDLength
	}
	if f.MeasurementStatus {
		n += measurementStatusLength
	}
	return n
}
