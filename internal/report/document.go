package report

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/srg/sbm69/internal/bpm"
	"github.com/srg/sbm69/internal/session"
	"gopkg.in/yaml.v3"
)

// Format selects the measurement output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatYAML}

// ParseFormat accepts a format name in any case; "yml" is an alias of yaml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want csv, json or yaml)", s)
	}
}

// Document is the JSON and YAML shape of a fetch result.
type Document struct {
	Outcome      session.Outcome    `json:"outcome" yaml:"outcome"`
	DeviceInfo   session.DeviceInfo `json:"device_info" yaml:"device_info"`
	Measurements []bpm.Measurement  `json:"measurements" yaml:"measurements"`
	Rejected     []RejectedRecord   `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// RejectedRecord is a notification that could not be decoded.
type RejectedRecord struct {
	Index int    `json:"index" yaml:"index"`
	Raw   string `json:"raw" yaml:"raw"` // hex
	Error string `json:"error" yaml:"error"`
}

// NewDocument converts a result for encoding.
func NewDocument(res *session.Result) Document {
	doc := Document{
		Outcome:      res.Outcome,
		DeviceInfo:   res.DeviceInfo,
		Measurements: res.Measurements,
	}
	if doc.Measurements == nil {
		doc.Measurements = []bpm.Measurement{}
	}
	for _, r := range res.Rejected {
		rec := RejectedRecord{Index: r.Index, Raw: hex.EncodeToString(r.Raw)}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		doc.Rejected = append(doc.Rejected, rec)
	}
	return doc
}

// WriteJSON writes the result as indented JSON.
func WriteJSON(w io.Writer, res *session.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res))
}

// WriteYAML writes the result as a YAML document.
func WriteYAML(w io.Writer, res *session.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(res)); err != nil {
		return err
	}
	return enc.Close()
}

// Write renders res in format. CSV carries measurements only.
func Write(w io.Writer, format Format, res *session.Result) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, res.Measurements)
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatYAML:
		return WriteYAML(w, res)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
