// Package report renders starred repository sizes as an aligned text table.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/docker/go-units"

	"github.com/Sternrassler/star-sizes/pkg/stars"
)

// NoStarsMessage replaces the table when the collection is empty.
const NoStarsMessage = "no starred repositories found"

// Column widths. The name column is a minimum width; longer names are
// printed in full.
const (
	NameWidth = 60
	SizeWidth = 12
)

// iecUnits are the binary prefixes used by HumanSize, smallest first.
var iecUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// HumanSize formats a byte count with IEC binary prefixes and one decimal,
// e.g. 1536 -> "1.5KiB".
func HumanSize(bytes int64) string {
	return units.CustomSize("%.1f%s", float64(bytes), 1024.0, iecUnits)
}

// Sort returns a copy of records ordered by size descending, then by name
// ascending for equal sizes.
func Sort(records []stars.Record) []stars.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b stars.Record) int {
		if c := cmp.Compare(b.SizeBytes, a.SizeBytes); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return sorted
}

// FormatLine renders one table row.
func FormatLine(r stars.Record) string {
	return fmt.Sprintf("%-*s %*s", NameWidth, r.Name, SizeWidth, HumanSize(r.SizeBytes))
}

// Lines returns the display lines for records: the sorted table, or the
// single informational line when records is empty.
func Lines(records []stars.Record) []string {
	if len(records) == 0 {
		return []string{NoStarsMessage}
	}

	sorted := Sort(records)
	lines := make([]string, 0, len(sorted))
	for _, r := range sorted {
		lines = append(lines, FormatLine(r))
	}
	return lines
}

// Render writes Lines(records) to w, one per line.
func Render(w io.Writer, records []stars.Record) error {
	for _, line := range Lines(records) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
