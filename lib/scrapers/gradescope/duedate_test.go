package gradescope

import (
	"fmt"
	"testing"
	"time"

	"duesoon-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestParseDueTextAppendsCurrentYear(t *testing.T) {
	year := timezone.Now().Year()

	testCases := []struct {
		text     string
		expected time.Time
	}{
		{
			text:     "Jan 27 at 11:59PM",
			expected: time.Date(year, time.January, 27, 23, 59, 0, 0, timezone.Location),
		},
		{
			text:     "Jan 27 11:59PM",
			expected: time.Date(year, time.January, 27, 23, 59, 0, 0, timezone.Location),
		},
		{
			text:     "  Feb 3   at  8:00AM ",
			expected: time.Date(year, time.February, 3, 8, 0, 0, 0, timezone.Location),
		},
		{
			text:     "Dec 12 at 11:59pm",
			expected: time.Date(year, time.December, 12, 23, 59, 0, 0, timezone.Location),
		},
		{
			text:     fmt.Sprintf("Mar 1, %d 5:30PM", year+1),
			expected: time.Date(year+1, time.March, 1, 17, 30, 0, 0, timezone.Location),
		},
	}

	for _, test := range testCases {
		got, ok := ParseDue(test.text, "")
		require.True(t, ok, "text: %q", test.text)
		require.True(t, got.Equal(test.expected), "text: %q got: %s", test.text, got)
	}
}

func TestParseDueStructuredOffsetForms(t *testing.T) {
	// the spaced-offset attribute form must mean the same instant as the
	// colon-separated RFC3339 form
	spaced, ok := ParseDue("", "2026-01-27 23:59:00 -0500")
	require.True(t, ok)
	rfc, ok := ParseDue("", "2026-01-27T23:59:00-05:00")
	require.True(t, ok)
	require.True(t, spaced.Equal(rfc))

	// offsetless RFC3339 falls back to the pinned location
	local, ok := ParseDue("", "2026-01-27T23:59:00")
	require.True(t, ok)
	require.True(t, local.Equal(time.Date(2026, time.January, 27, 23, 59, 0, 0, timezone.Location)))
}

func TestParseDuePrefersText(t *testing.T) {
	year := timezone.Now().Year()

	// the structured value can come from a misleading element; the
	// readable due line wins when both are present
	got, ok := ParseDue("Jan 27 at 11:59PM", "2020-09-01 00:00:00 -0400")
	require.True(t, ok)
	require.Equal(t, year, got.Year())
	require.Equal(t, time.January, got.Month())
	require.Equal(t, 27, got.Day())
}

func TestParseDueUnparseable(t *testing.T) {
	for _, input := range []struct{ text, structured string }{
		{"", ""},
		{"No due date", ""},
		{"sometime soon", "n/a"},
		{"", "27/01/2026"},
	} {
		_, ok := ParseDue(input.text, input.structured)
		require.False(t, ok, "input: %+v", input)
	}
}

func TestParseDueRoundTrip(t *testing.T) {
	got, ok := ParseDue("", "2026-01-27 23:59:00 -0500")
	require.True(t, ok)

	// canonical text form must parse back to the same instant
	back, err := time.Parse(time.RFC3339, got.Format(time.RFC3339))
	require.NoError(t, err)
	require.True(t, back.Equal(got))
}
