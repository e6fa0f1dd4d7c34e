package risklayer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// placeholderCell marks a suppressed figure in the sheet.
const placeholderCell = "S"

// RawRows holds the columns of one fetch, index-aligned by sheet row.
type RawRows struct {
	Names    []string
	Areas    []string // empty unless the area column is configured
	NewCases []int64
	Entered  []bool
	Links    []string
}

// Len is the number of region rows.
func (r RawRows) Len() int { return len(r.Names) }

// Total sums NewCases.
func (r RawRows) Total() int64 {
	var sum int64
	for _, n := range r.NewCases {
		sum += n
	}
	return sum
}

// ParseCount parses a new-case cell. Thousands separators (whitespace,
// non-breaking space or '.') are ignored; empty and placeholder cells count
// as zero.
func ParseCount(cell string) (int64, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '.' {
			return -1
		}
		return r
	}, cell)
	if s == "" || strings.EqualFold(s, placeholderCell) {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", cell, err)
	}
	return n, nil
}

// PadMarkers converts the contributor column into flags and pads it to rows
// entries. The API omits trailing empty rows, so a short column means the
// missing regions have not entered their figure yet.
func PadMarkers(col [][]string, rows int) []bool {
	n := rows
	if len(col) > n {
		n = len(col)
	}
	out := make([]bool, n)
	for i, row := range col {
		out[i] = firstCell(row) != ""
	}
	return out
}

// padStrings flattens a single-column range and pads it to rows entries.
func padStrings(col [][]string, rows int) []string {
	n := rows
	if len(col) > n {
		n = len(col)
	}
	out := make([]string, n)
	for i, row := range col {
		out[i] = firstCell(row)
	}
	return out
}

func firstCell(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[0])
}

// Assemble validates and aligns the fetched columns. Every column is
// padded because the source drops trailing empty rows; a missing case cell
// counts as zero. A column reaching past the last name is a shape error.
func Assemble(names, cases, markers, links, areas [][]string, rows int) (RawRows, error) {
	for _, col := range []struct {
		name  string
		cells [][]string
	}{{"case", cases}, {"marker", markers}, {"link", links}, {"area", areas}} {
		if len(col.cells) > len(names) {
			return RawRows{}, fmt.Errorf("%w: %d names but %d %s cells", ErrFetch, len(names), len(col.cells), col.name)
		}
	}
	if len(names) > rows {
		return RawRows{}, fmt.Errorf("%w: more than %d rows returned", ErrFetch, rows)
	}

	n := len(names)
	out := RawRows{
		Names:    make([]string, n),
		NewCases: make([]int64, n),
	}
	for i := range names {
		out.Names[i] = firstCell(names[i])
		if out.Names[i] == "" {
			return RawRows{}, fmt.Errorf("%w: row %d has no region name", ErrFetch, i)
		}
		var cell string
		if i < len(cases) {
			cell = firstCell(cases[i])
		}
		c, err := ParseCount(cell)
		if err != nil {
			return RawRows{}, fmt.Errorf("%w: row %d: %v", ErrFetch, i, err)
		}
		out.NewCases[i] = c
	}
	out.Entered = PadMarkers(markers, rows)[:n]
	out.Links = padStrings(links, rows)[:n]
	if areas != nil {
		out.Areas = padStrings(areas, rows)[:n]
	}
	return out, nil
}
