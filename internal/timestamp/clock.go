// Package timestamp parses the per-entry clock token of the chat log and
// anchors it to a calendar date.
package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// clockRegex matches tokens like "[ 0時  0分 59秒]".
var clockRegex = regexp.MustCompile(`^\s*\[\s*(\d{1,2})\s*時\s*(\d{1,2})\s*分\s*(\d{1,2})\s*秒\s*\]\s*$`)

// rollbackThreshold is how far in the future a naive same-day
// reconstruction may land before it is treated as belonging to yesterday.
const rollbackThreshold = 12 * time.Hour

// Clock is a time of day without a date.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Parse extracts a Clock from an entry's timestamp token.
func Parse(token string) (Clock, bool) {
	m := clockRegex.FindStringSubmatch(token)
	if m == nil {
		return Clock{}, false
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	if h > 23 || mi > 59 || s > 59 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: mi, Second: s}, true
}

// Reconstruct places c on the calendar date of now, in now's location.
// A result more than twelve hours after now straddled midnight and is moved
// back one day.
func Reconstruct(c Clock, now time.Time) time.Time {
	y, mo, d := now.Date()
	t := time.Date(y, mo, d, c.Hour, c.Minute, c.Second, 0, now.Location())
	if t.Sub(now) > rollbackThreshold {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
