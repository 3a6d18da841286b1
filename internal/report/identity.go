// Package report renders fetch results for people and for other programs.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/srg/sbm69/internal/session"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Humanize turns a snake_case key into a label: "manufacturer_name" becomes
// "Manufacturer name". A trailing "_id" is dropped.
func Humanize(key string) string {
	key = strings.TrimSuffix(key, "_id")
	key = strings.TrimSpace(strings.ReplaceAll(key, "_", " "))
	if key == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(key)
	return string(unicode.ToUpper(r)) + strings.ToLower(key[size:])
}

// IdentityFields maps humanized labels to identity values in read order.
func IdentityFields(info session.DeviceInfo) *orderedmap.OrderedMap[string, string] {
	fields := orderedmap.New[string, string]()
	for _, f := range info.Fields() {
		fields.Set(Humanize(f.Key), f.Value)
	}
	return fields
}

// WriteIdentity prints one "Label : value" line per identity field.
func WriteIdentity(w io.Writer, info session.DeviceInfo, colored bool) error {
	label := color.New(color.FgCyan, color.Bold)
	if colored {
		label.EnableColor()
	} else {
		label.DisableColor()
	}

	for pair := IdentityFields(info).Oldest(); pair != nil; pair = pair.Next() {
		if _, err := fmt.Fprintf(w, "%s : %s\n", label.Sprint(pair.Key), pair.Value); err != nil {
			return err
		}
	}
	return nil
}
