// Package normalize parses the loosely-formatted scalars the upstream site
// emits (human sizes, booleans, dates) into the strict Go types the rest of
// the pipeline works with.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sunerpy/indexproxy/models"
)

// decimal and binary suffixes, longest first so e.g. "KiB" isn't matched
// as "B" by a naive suffix scan.
var sizeUnits = []struct {
	suffix string
	factor uint64
}{
	{"PiB", 1 << 50},
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"PB", 1_000_000_000_000_000},
	{"TB", 1_000_000_000_000},
	{"GB", 1_000_000_000},
	{"MB", 1_000_000},
	{"KB", 1_000},
	{"BYTES", 1},
	{"B", 1},
}

// ParseSize parses a human-readable size such as "205.9 MiB" or "1,024 B"
// into a byte count. An empty string yields zero. Unknown suffixes or a
// non-numeric mantissa fail with ErrParseSize.
func ParseSize(s string) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, nil
	}
	normalized := strings.ToUpper(strings.ReplaceAll(trimmed, ",", ""))

	for _, u := range sizeUnits {
		suffix := strings.ToUpper(u.suffix)
		if strings.HasSuffix(normalized, suffix) {
			mantissa := strings.TrimSpace(strings.TrimSuffix(normalized, suffix))
			if mantissa == "" {
				continue
			}
			f, err := strconv.ParseFloat(mantissa, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %v", models.ErrParseSize, s, err)
			}
			if f < 0 {
				return 0, fmt.Errorf("%w: %q: negative size", models.ErrParseSize, s)
			}
			return uint64(f * float64(u.factor)), nil
		}
	}
	return 0, fmt.Errorf("%w: %q: unrecognized suffix", models.ErrParseSize, s)
}

// FormatSize renders bytes using binary (IEC) units, the canonical
// formatter whose round trip through ParseSize is exercised by the
// size-formatting property test. humanize.IBytes rounds to a tenth of the
// unit and then prints whole units from 10 upward, which rounds twice;
// bytes in that range are first rounded to a whole unit here, so the
// output stays within half of its last printed digit.
func FormatSize(bytes uint64) string {
	unit := uint64(1)
	for bytes/unit >= 1024 {
		unit *= 1024
	}
	if q := bytes / unit; unit > 1 && q >= 10 {
		if bytes%unit >= unit/2 && q < math.MaxUint64/unit {
			q++
		}
		bytes = q * unit
	}
	return humanize.IBytes(bytes)
}
