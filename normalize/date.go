package normalize

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sunerpy/indexproxy/models"
)

// ParseUnixTimestamp parses the integer epoch-seconds string carried in
// HTML data-timestamp attributes.
func ParseUnixTimestamp(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", models.ErrParseTime, s, err)
	}
	return time.Unix(n, 0).UTC(), nil
}

// ParseRFC2822 parses the pubDate format the feed uses, normalized to UTC.
func ParseRFC2822(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC1123Z, s)
	if err != nil {
		if t2, err2 := time.Parse("Mon, 2 Jan 2006 15:04:05 -0700", s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("%w: %q: %v", models.ErrParseDate, s, err)
	}
	return t.UTC(), nil
}
