// Package streak implements day bucketing and streak computation. All
// functions are pure: they operate on already-loaded data and a
// caller-supplied clock value, and perform no I/O.
package streak

import "time"

// DayMillis is the length of one day in epoch milliseconds. Consecutive-day
// arithmetic uses this fixed span; daylight-saving transitions are not
// adjusted for.
const DayMillis = 86_400_000

// DayKey normalizes a timestamp to its local midnight and returns it as
// epoch milliseconds. Two timestamps share a day key iff they fall on the
// same local calendar day.
func DayKey(t time.Time) int64 {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).UnixMilli()
}

// IsConsecutiveDay reports whether day key a is exactly one day after b.
func IsConsecutiveDay(a, b int64) bool {
	return a-b == DayMillis
}

// Today returns the day key of the current local day.
func Today(now time.Time) int64 {
	return DayKey(now)
}

// Yesterday returns the day key of the previous local calendar day.
func Yesterday(now time.Time) int64 {
	return DayKey(now.AddDate(0, 0, -1))
}
