package lifecycle

import "time"

const day = 24 * time.Hour

// lateDays counts the started 24h periods between due and returned. A
// book back on or before due is zero days late.
func lateDays(due, returned time.Time) int64 {
	if !returned.After(due) {
		return 0
	}
	d := returned.Sub(due)
	n := int64(d / day)
	if d%day != 0 {
		n++
	}
	return n
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
