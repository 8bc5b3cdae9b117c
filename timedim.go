package starpipe

import "time"

// TimeRow derives the time dimension row for an event timestamp given
// in epoch milliseconds. The timestamp is interpreted as UTC and
// truncated to the second; events landing in the same second collapse
// to a single row. Week is the ISO week number and Weekday the ISO
// weekday (1=Monday .. 7=Sunday).
func TimeRow(tsMillis int64) TimeRecord {
	t := time.UnixMilli(tsMillis).UTC().Truncate(time.Second)
	_, week := t.ISOWeek()
	return TimeRecord{
		StartTime: t,
		Hour:      int64(t.Hour()),
		Day:       int64(t.Day()),
		Week:      int64(week),
		Month:     int64(t.Month()),
		Year:      int64(t.Year()),
		Weekday:   int64((int(t.Weekday())+6)%7 + 1),
	}
}
