package gradescope

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"duesoon-backend/lib/textutil"
	"duesoon-backend/lib/timezone"
)

var (
	fourDigitYearRegex = regexp.MustCompile(`\b20\d{2}\b`)
	atConnectorRegex   = regexp.MustCompile(`(?i)\bat\b`)
	meridiemRegex      = regexp.MustCompile(`(?i)\b(am|pm)\b`)
	rfc3339ShapeRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
	spacedOffsetRegex  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})\s+([+-])(\d{2})(\d{2})$`)
)

// layouts the human-readable due line can take once the year has been
// appended and the "at" connector stripped. Month names parse in any
// case, but the PM token does not, hence the meridiem normalization in
// parseDueText.
var dueTextLayouts = []string{
	"Jan 2 3:04PM 2006",
	"Jan 2 3:04 PM 2006",
	"January 2 3:04PM 2006",
	"January 2 3:04 PM 2006",
	"Jan 2, 2006 3:04PM",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04PM",
	"January 2, 2006 3:04 PM",
	"Jan 2 2006 3:04PM",
	"Jan 2 2006 3:04 PM",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDue converts the two due-date representations a scrape can carry
// into a canonical instant. The human-readable text wins when it parses,
// since the structured attribute on some layouts belongs to a "Released"
// or "Late Due Date" timestamp. Malformed input degrades to ok=false,
// never an error.
func ParseDue(dueText, dueStructured string) (time.Time, bool) {
	if t, ok := parseDueText(dueText); ok {
		return t, true
	}
	if t, ok := parseDueStructured(dueStructured); ok {
		return t, true
	}
	return time.Time{}, false
}

func parseDueText(text string) (time.Time, bool) {
	text = textutil.CollapseWhitespace(text)
	if text == "" {
		return time.Time{}, false
	}

	// due lines usually omit the year; assume the current one. This is
	// known to be ambiguous near year boundaries ("Jan 3" scraped in
	// December) and intentionally left as-is.
	if !fourDigitYearRegex.MatchString(text) {
		text = fmt.Sprintf("%s %d", text, timezone.Now().Year())
	}
	text = atConnectorRegex.ReplaceAllString(text, " ")
	text = meridiemRegex.ReplaceAllStringFunc(text, strings.ToUpper)
	text = textutil.CollapseWhitespace(text)

	for _, layout := range dueTextLayouts {
		t, err := time.ParseInLocation(layout, text, timezone.Location)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDueStructured(s string) (time.Time, bool) {
	s = textutil.CollapseWhitespace(s)
	if s == "" {
		return time.Time{}, false
	}

	// already RFC3339, with or without an explicit offset
	if rfc3339ShapeRegex.MatchString(s) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, timezone.Location); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	// "2026-01-27 23:59:00 -0500" -> "2026-01-27T23:59:00-05:00"
	if m := spacedOffsetRegex.FindStringSubmatch(s); m != nil {
		rewritten := fmt.Sprintf("%sT%s%s%s:%s", m[1], m[2], m[3], m[4], m[5])
		if t, err := time.Parse(time.RFC3339, rewritten); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	// best-effort: offsetless "date space time"
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, timezone.Location); err == nil {
		return t, true
	}
	return time.Time{}, false
}
