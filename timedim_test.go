package starpipe

import (
	"testing"
	"time"
)

func TestTimeRow(t *testing.T) {
	// 2018-11-15 is a Thursday in ISO week 46.
	ts := time.Date(2018, time.November, 15, 21, 30, 26, 0, time.UTC).UnixMilli()
	row := TimeRow(ts)
	if !row.StartTime.Equal(time.Date(2018, time.November, 15, 21, 30, 26, 0, time.UTC)) {
		t.Fatalf("unexpected start time: %v", row.StartTime)
	}
	if row.Hour != 21 || row.Day != 15 || row.Month != 11 || row.Year != 2018 {
		t.Fatalf("unexpected calendar fields: %+v", row)
	}
	if row.Week != 46 {
		t.Fatalf("expected ISO week 46, got %d", row.Week)
	}
	if row.Weekday != 4 {
		t.Fatalf("expected ISO weekday 4 (Thursday), got %d", row.Weekday)
	}
}

func TestTimeRowWeekdayRange(t *testing.T) {
	// Monday 2018-11-12 through Sunday 2018-11-18 map to 1..7.
	for i := 0; i < 7; i++ {
		ts := time.Date(2018, time.November, 12+i, 12, 0, 0, 0, time.UTC).UnixMilli()
		row := TimeRow(ts)
		if row.Weekday != int64(i+1) {
			t.Fatalf("day %d: expected weekday %d, got %d", 12+i, i+1, row.Weekday)
		}
	}
}

func TestTimeRowTruncatesMillis(t *testing.T) {
	base := time.Date(2018, time.November, 15, 21, 30, 26, 0, time.UTC).UnixMilli()
	a := TimeRow(base + 1)
	b := TimeRow(base + 999)
	if a.Key() != b.Key() {
		t.Fatalf("timestamps in the same second should share a key: %v vs %v", a.Key(), b.Key())
	}
	if !a.StartTime.Equal(b.StartTime) {
		t.Fatalf("expected equal start times, got %v and %v", a.StartTime, b.StartTime)
	}
}
