package bpm_test

import (
	"testing"

	"github.com/srg/sbm69/internal/bpm"
	"github.com/stretchr/testify/assert"
)

func TestParseFlags_BitPositions(t *testing.T) {
	tests := []struct {
		name string
		b    byte
		want bpm.Flags
	}{
		{name: "bit 0 blood pressure units", b: 1 << 0, want: bpm.Flags{BloodPressureUnits: true}},
		{name: "bit 1 time stamp", b: 1 << 1, want: bpm.Flags{TimeStamp: true}},
		{name: "bit 2 pulse rate", b: 1 << 2, want: bpm.Flags{PulseRate: true}},
		{name: "bit 3 user id", b: 1 << 3, want: bpm.Flags{UserID: true}},
		{name: "bit 4 measurement status", b: 1 << 4, want: bpm.Flags{MeasurementStatus: true}},
		{name: "bit 5 reserved", b: 1 << 5, want: bpm.Flags{}},
		{name: "bit 6 reserved", b: 1 << 6, want: bpm.Flags{}},
		{name: "bit 7 reserved", b: 1 << 7, want: bpm.Flags{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bpm.ParseFlags(tt.b))
		})
	}
}

func TestFlags_Byte(t *testing.T) {
	for b := 0; b < 0x100; b++ {
		assert.Equal(t, byte(b)&0x1F, bpm.ParseFlags(byte(b)).Byte(), "flags %#02x", b)
	}
}

func TestParseMeasurementStatus_BitPositions(t *testing.T) {
	tests := []struct {
		name string
		w    uint16
		want bpm.MeasurementStatus
	}{
		{name: "bit 0 body movement", w: 1 << 0, want: bpm.MeasurementStatus{BodyMovementDetected: true}},
		{name: "bit 1 cuff too loose", w: 1 << 1, want: bpm.MeasurementStatus{CuffTooLoose: true}},
		{name: "bit 2 irregular pulse", w: 1 << 2, want: bpm.MeasurementStatus{IrregularPulse: true}},
		{name: "bit 3 pulse range low bit", w: 1 << 3, want: bpm.MeasurementStatus{PulseRateRange: bpm.PulseRateUpperLimitExceeded}},
		{name: "bit 4 pulse range high bit", w: 1 << 4, want: bpm.MeasurementStatus{PulseRateRange: bpm.PulseRateLowerLimitExceeded}},
		{name: "bit 5 improper position", w: 1 << 5, want: bpm.MeasurementStatus{ImproperMeasurementPosition: true}},
		{name: "bit 8 reserved", w: 1 << 8, want: bpm.MeasurementStatus{}},
		{name: "bit 15 reserved", w: 1 << 15, want: bpm.MeasurementStatus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bpm.ParseMeasurementStatus(tt.w))
		})
	}
}

func TestMeasurementStatus_Word(t *testing.T) {
	for w := uint16(0); w < 0x40; w++ {
		assert.Equal(t, w, bpm.ParseMeasurementStatus(w).Word(), "status %#04x", w)
	}
}

func TestPulseRateRange_String(t *testing.T) {
	assert.Equal(t, "not_exceeded", bpm.PulseRateNotExceeded.String())
	assert.Equal(t, "upper_limit_exceeded", bpm.PulseRateUpperLimitExceeded.String())
	assert.Equal(t, "lower_limit_exceeded", bpm.PulseRateLowerLimitExceeded.String())
	assert.Equal(t, "undefined(3)", bpm.PulseRateRange(3).String())

	text, err := bpm.PulseRateRange(3).MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "undefined(3)", string(text))
}

func TestTimeStamp_String(t *testing.T) {
	ts := bpm.TimeStamp{Year: 2023, Month: 12, Day: 1, Hours: 7, Minutes: 5, Seconds: 9}

	assert.Equal(t, "2023-12-01 07:05:09", ts.String())

	invalid := bpm.TimeStamp{Year: 2023, Month: 13, Day: 0}
	assert.Equal(t, "2023-13-00 00:00:00", invalid.String(), "String MUST not normalize")
}

func TestParseMeasurementStatus_PulseRateRangeBitOrder(t *testing.T) {
	// Bit 3 is the low bit of the range code, bit 4 the high bit.
	tests := []struct {
		word uint16
		want bpm.PulseRateRange
	}{
		{0x0000, bpm.PulseRateNotExceeded},
		{0x0008, bpm.PulseRateUpperLimitExceeded},
		{0x0010, bpm.PulseRateLowerLimitExceeded},
		{0x0018, bpm.PulseRateRange(3)},
	}

	for _, tt := range tests {
		got := bpm.ParseMeasurementStatus(tt.word).PulseRateRange
		assert.Equal(t, tt.want, got, "status word 0x%04x", tt.word)
		assert.Equal(t, tt.word, bpm.MeasurementStatus{PulseRateRange: tt.want}.Word(), "Word MUST put the code back at bits 3..4")
	}
	assert.Equal(t, "upper_limit_exceeded", bpm.ParseMeasurementStatus(0x0008).PulseRateRange.String())
	assert.Equal(t, "lower_limit_exceeded", bpm.ParseMeasurementStatus(0x0010).PulseRateRange.String())
}
