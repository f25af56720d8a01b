package domain

import (
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the textual timestamp format for persisted events.
// Fixed width, UTC only, so lexicographic order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout (forced to UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp back into a UTC time.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// FormatTimeShort renders t as "MM-DD HH:MM" for report lines.
func FormatTimeShort(t time.Time) string {
	return t.UTC().Format("01-02 15:04")
}

// DisplayName composes a human display name: first name, then last name,
// then "(@username)". When all three are empty the numeric ID is used.
func DisplayName(first, last, username string, id int64) string {
	display := first
	if last != "" {
		if display != "" {
			display += " " + last
		} else {
			display = last
		}
	}
	if username != "" {
		at := "@" + username
		if display != "" {
			display += " (" + at + ")"
		} else {
			display = at
		}
	}
	if display == "" {
		display = strconv.FormatInt(id, 10)
	}
	return display
}

// InfoBits joins the profile annotations shown next to a display name,
// e.g. "ru/premium/bot". Empty string when there is nothing to show.
func InfoBits(lang string, premium, bot bool) string {
	var bits []string
	if lang != "" {
		bits = append(bits, lang)
	}
	if premium {
		bits = append(bits, "premium")
	}
	if bot {
		bits = append(bits, "bot")
	}
	return strings.Join(bits, "/")
}
