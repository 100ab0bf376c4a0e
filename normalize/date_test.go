package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRFC2822(t *testing.T) {
	got, err := ParseRFC2822("Sat, 29 Mar 2025 06:51:19 -0000")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 29, 6, 51, 19, 0, time.UTC), got)
}

func TestParseRFC2822_SingleDigitDay(t *testing.T) {
	got, err := ParseRFC2822("Sun, 2 Mar 2025 00:00:00 -0000")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestParseUnixTimestamp(t *testing.T) {
	got, err := ParseUnixTimestamp("1743239642")
	require.NoError(t, err)
	require.Equal(t, int64(1743239642), got.Unix())
	require.Equal(t, time.UTC, got.Location())
}

func TestParseUnixTimestamp_Invalid(t *testing.T) {
	_, err := ParseUnixTimestamp("not-a-number")
	require.Error(t, err)
}
