package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/srg/sbm69/internal/bpm"
)

// CSVHeader is the column header of WriteCSV output.
var CSVHeader = []string{
	"Time Stamp",
	"Systolic Pressure",
	"Diastolic Pressure",
	"Mean Arterial Pressure",
	"Pulse Rate",
	"User ID",
	"Body Movement",
	"Cuff Too Loose",
	"Irregular Pulse",
	"Pulse Rate Range",
	"Improper Measurement Position",
}

// WriteCSV writes one row per measurement with CRLF line endings.
// Absent optional fields become empty cells.
func WriteCSV(w io.Writer, measurements []bpm.Measurement) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for i := range measurements {
		if err := cw.Write(csvRow(&measurements[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(m *bpm.Measurement) []string {
	row := make([]string, len(CSVHeader))
	if m.TimeStamp != nil {
		row[0] = m.TimeStamp.String()
	}
	row[1] = strconv.FormatUint(uint64(m.Systolic), 10)
	row[2] = strconv.FormatUint(uint64(m.Diastolic), 10)
	row[3] = strconv.FormatUint(uint64(m.MeanArterialPressure), 10)
	if m.PulseRate != nil {
		row[4] = strconv.FormatUint(uint64(*m.PulseRate), 10)
	}
	if m.UserID != nil {
		row[5] = strconv.FormatUint(uint64(*m.UserID), 10)
	}
	if s := m.MeasurementStatus; s != nil {
		row[6] = strconv.FormatBool(s.BodyMovementDetected)
		row[7] = strconv.FormatBool(s.CuffTooLoose)
		row[8] = strconv.FormatBool(s.IrregularPulse)
		row[9] = s.PulseRateRange.String()
		row[10] = strconv.FormatBool(s.ImproperMeasurementPosition)
	}
	return row
}
