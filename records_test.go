package starpipe

import (
	"testing"
	"time"
)

func TestParseCatalogRecord(t *testing.T) {
	rec := map[string]interface{}{
		"song_id":          "SOUPIRU12A6D4FA1E1",
		"title":            "Der Kleine Dompfaff",
		"artist_id":        "ARJIE2Y1187B994AB7",
		"artist_name":      "Line Renaud",
		"artist_location":  "Paris",
		"artist_latitude":  48.85,
		"artist_longitude": 2.35,
		"year":             float64(0),
		"duration":         152.92036,
	}
	song, artist, err := ParseCatalogRecord(rec)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if song.SongID != "SOUPIRU12A6D4FA1E1" || song.Title != "Der Kleine Dompfaff" {
		t.Fatalf("unexpected song: %+v", song)
	}
	if song.Duration != 152.92036 || song.Year != 0 {
		t.Fatalf("unexpected song: %+v", song)
	}
	if artist.ArtistID != "ARJIE2Y1187B994AB7" || artist.Name != "Line Renaud" {
		t.Fatalf("unexpected artist: %+v", artist)
	}
	if artist.Latitude == nil || *artist.Latitude != 48.85 {
		t.Fatalf("unexpected latitude: %+v", artist)
	}

	// Coordinates are optional and null in most dumps.
	rec["artist_latitude"] = nil
	delete(rec, "artist_longitude")
	_, artist, err = ParseCatalogRecord(rec)
	if err != nil {
		t.Fatalf("parsing without coords: %v", err)
	}
	if artist.Latitude != nil || artist.Longitude != nil {
		t.Fatalf("expected nil coords: %+v", artist)
	}
}

func TestParseCatalogRecordMalformed(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]interface{}
	}{
		{"missing title", map[string]interface{}{
			"song_id": "SO1", "artist_id": "AR1", "artist_name": "X", "duration": 1.0}},
		{"missing song_id", map[string]interface{}{
			"title": "T", "artist_id": "AR1", "artist_name": "X", "duration": 1.0}},
		{"missing artist_name", map[string]interface{}{
			"song_id": "SO1", "title": "T", "artist_id": "AR1", "duration": 1.0}},
		{"zero duration", map[string]interface{}{
			"song_id": "SO1", "title": "T", "artist_id": "AR1", "artist_name": "X", "duration": 0.0}},
		{"negative duration", map[string]interface{}{
			"song_id": "SO1", "title": "T", "artist_id": "AR1", "artist_name": "X", "duration": -3.0}},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			_, _, err := ParseCatalogRecord(tst.rec)
			if !IsMalformed(err) {
				t.Fatalf("expected malformed error, got %v", err)
			}
		})
	}
}

func TestParsePlayEvent(t *testing.T) {
	rec := map[string]interface{}{
		"page":      "NextSong",
		"ts":        float64(1542296032796),
		"userId":    "26",
		"firstName": "Ryan",
		"lastName":  "Smith",
		"gender":    "M",
		"level":     "free",
		"song":      "You Gotta Be",
		"artist":    "Des'ree",
		"length":    246.30812,
		"sessionId": float64(169),
		"location":  "San Jose-Sunnyvale-Santa Clara, CA",
		"userAgent": `"Mozilla/5.0"`,
	}
	ev, err := ParsePlayEvent(rec)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if ev.TS != 1542296032796 || ev.UserID != 26 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Song != "You Gotta Be" || ev.Length != 246.30812 || ev.SessionID != 169 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// The join key into the time dimension drops sub-second precision.
	exp := time.Date(2018, time.November, 15, 15, 33, 52, 0, time.UTC)
	if !ev.StartTime().Equal(exp) {
		t.Fatalf("expected start time %v, got %v", exp, ev.StartTime())
	}
}

func TestParsePlayEventMalformed(t *testing.T) {
	if _, err := ParsePlayEvent(map[string]interface{}{"userId": "26"}); !IsMalformed(err) {
		t.Fatalf("expected malformed for missing ts, got %v", err)
	}
	if _, err := ParsePlayEvent(map[string]interface{}{"ts": float64(-5), "userId": "26"}); !IsMalformed(err) {
		t.Fatalf("expected malformed for negative ts, got %v", err)
	}
	if _, err := ParsePlayEvent(map[string]interface{}{"ts": float64(1542296032796)}); !IsMalformed(err) {
		t.Fatalf("expected malformed for missing userId, got %v", err)
	}
	if _, err := ParsePlayEvent(map[string]interface{}{"ts": float64(1542296032796), "userId": ""}); !IsMalformed(err) {
		t.Fatalf("expected malformed for empty userId, got %v", err)
	}
}

func TestFieldCoercion(t *testing.T) {
	rec := map[string]interface{}{
		"fstr": "3.5", "istr": "42", "f": 3.5, "i": float64(42), "frac": 1.5,
	}
	if f, ok := fieldFloat(rec, "fstr"); !ok || f != 3.5 {
		t.Fatalf("fieldFloat from string: %v %v", f, ok)
	}
	if i, ok := fieldInt(rec, "istr"); !ok || i != 42 {
		t.Fatalf("fieldInt from string: %v %v", i, ok)
	}
	if i, ok := fieldInt(rec, "i"); !ok || i != 42 {
		t.Fatalf("fieldInt from float: %v %v", i, ok)
	}
	if _, ok := fieldInt(rec, "frac"); ok {
		t.Fatal("fieldInt accepted a fractional float")
	}
	if _, ok := fieldFloat(rec, "missing"); ok {
		t.Fatal("fieldFloat accepted a missing field")
	}
}
