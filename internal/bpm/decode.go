// Package bpm decodes SBM69 blood pressure measurement records (GATT
// characteristic 0x2A35).
//
// A record is a flags byte, three mandatory 16-bit pressures and a sequence
// of optional segments selected by the flags:
//
//	| flags | sys | dia | map | time stamp (7) | pulse (2) | user (1) | status (2) |
//
// Multi-byte integers are little-endian and bit fields are numbered from the
// least significant bit. Bytes past the last segment implied by the flags are
// ignored.
package bpm

import (
	"encoding/binary"
)

// Decoder turns raw notification payloads into measurements.
// The zero value is a lenient decoder.
type Decoder struct {
	// Strict rejects records whose pulse rate range carries the undefined
	// code 3. A lenient decoder keeps such records and reports the code as
	// an undefined PulseRateRange.
	Strict bool
}

// Decode decodes buf with a lenient Decoder.
func Decode(buf []byte) (Measurement, error) {
	return Decoder{}.Decode(buf)
}

// Decode parses buf in a single forward pass. On failure the returned
// Measurement is the zero value and the error is a *DecodeError.
func (d Decoder) Decode(buf []byte) (Measurement, error) {
	r := reader{buf: buf}

	if err := r.need("mandatory fields", mandatoryLength); err != nil {
		return Measurement{}, err
	}

	var m Measurement
	m.Flags = ParseFlags(r.u8())
	m.Systolic = r.u16()
	m.Diastolic = r.u16()
	m.MeanArterialPressure = r.u16()

	if m.Flags.TimeStamp {
		if err := r.need("time stamp", timeStampLength); err != nil {
			return Measurement{}, err
		}
		m.TimeStamp = &TimeStamp{
			Year:    r.u16(),
			Month:   r.u8(),
			Day:     r.u8(),
			Hours:   r.u8(),
			Minutes: r.u8(),
			Seconds: r.u8(),
		}
	}

	if m.Flags.PulseRate {
		if err := r.need("pulse rate", pulseRateLength); err != nil {
			return Measurement{}, err
		}
		pr := r.u16()
		m.PulseRate = &pr
	}

	if m.Flags.UserID {
		if err := r.need("user id", userIDLength); err != nil {
			return Measurement{}, err
		}
		id := r.u8()
		m.UserID = &id
	}

	if m.Flags.MeasurementStatus {
		if err := r.need("measurement status", measurementStatusLength); err != nil {
			return Measurement{}, err
		}
		offset := r.off
		status := ParseMeasurementStatus(r.u16())
		if d.Strict && !status.PulseRateRange.Defined() {
			return Measurement{}, &DecodeError{
				Kind:   InvalidEnumCode,
				Field:  "pulse rate range",
				Offset: offset,
				Code:   int(status.PulseRateRange),
			}
		}
		m.MeasurementStatus = &status
	}

	return m, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler with lenient decoding.
func (m *Measurement) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler. The optional flag bits
// are derived from which optional fields are set, so the output always
// decodes back to an equal Measurement.
func (m Measurement) MarshalBinary() ([]byte, error) {
	flags := Flags{
		BloodPressureUnits: m.Flags.BloodPressureUnits,
		TimeStamp:          m.TimeStamp != nil,
		PulseRate:          m.PulseRate != nil,
		UserID:             m.UserID != nil,
		MeasurementStatus:  m.MeasurementStatus != nil,
	}

	buf := make([]byte, 0, flags.recordLength())
	buf = append(buf, flags.Byte())
	buf = binary.LittleEndian.AppendUint16(buf, m.Systolic)
	buf = binary.LittleEndian.AppendUint16(buf, m.Diastolic)
	buf = binary.LittleEndian.AppendUint16(buf, m.MeanArterialPressure)
	if ts := m.TimeStamp; ts != nil {
		buf = binary.LittleEndian.AppendUint16(buf, ts.Year)
		buf = append(buf, ts.Month, ts.Day, ts.Hours, ts.Minutes, ts.Seconds)
	}
	if m.PulseRate != nil {
		buf = binary.LittleEndian.AppendUint16(buf, *m.PulseRate)
	}
	if m.UserID != nil {
		buf = append(buf, *m.UserID)
	}
	if m.MeasurementStatus != nil {
		buf = binary.LittleEndian.AppendUint16(buf, m.MeasurementStatus.Word())
	}
	return buf, nil
}

// reader consumes a buffer left to right. Callers check need before every
// read, so the accessors never run past the end.
type reader struct {
	buf []byte
	off int
}

func (r *reader) need(field string, n int) error {
	if have := len(r.buf) - r.off; have < n {
		return &DecodeError{
			Kind:   TruncatedBuffer,
			Field:  field,
			Offset: r.off,
			Need:   n,
			Have:   have,
		}
	}
	return nil
}

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}
