package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// LabelFormat selects how slot labels print their numbers.
type LabelFormat string

const (
	// FormatRaw prints the shortest decimal that round-trips, with no
	// rounding, so 1/3 of a GiB shows every digit.
	FormatRaw LabelFormat = "raw"
	// FormatFixed prints one decimal place.
	FormatFixed LabelFormat = "fixed"
	// FormatHuman prints memory in IEC units (GiB, MiB).
	FormatHuman LabelFormat = "human"
)

var labelFormats = []LabelFormat{FormatRaw, FormatFixed, FormatHuman}

func ParseLabelFormat(name string) (LabelFormat, error) {
	for _, format := range labelFormats {
		if string(format) == name {
			return format, nil
		}
	}
	return "", fmt.Errorf("unknown label format %q (want raw, fixed or human)", name)
}

// Next returns the format after f in cycle order.
func (f LabelFormat) Next() LabelFormat {
	for i, format := range labelFormats {
		if format == f {
			return labelFormats[(i+1)%len(labelFormats)]
		}
	}
	return FormatRaw
}

func (f LabelFormat) number(v float64) string {
	if f == FormatRaw {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Percent renders a processor load label such as "12.5%".
func (f LabelFormat) Percent(v float64) string {
	return f.number(v) + "%"
}

const bytesPerGiB = 1 << 30

// Memory renders "<used>GB / <total>GB (<pct>%)". An unavailable
// percentage (zero total) prints as "n/a".
func (f LabelFormat) Memory(used, total uint64, pct float64, available bool) string {
	pctText := "n/a"
	if available {
		pctText = f.Percent(pct)
	}
	if f == FormatHuman {
		return fmt.Sprintf("%s / %s (%s)", humanize.IBytes(used), humanize.IBytes(total), pctText)
	}
	usedGB := float64(used) / bytesPerGiB
	totalGB := float64(total) / bytesPerGiB
	return fmt.Sprintf("%sGB / %sGB (%s)", f.number(usedGB), f.number(totalGB), pctText)
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
