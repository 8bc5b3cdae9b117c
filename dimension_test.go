package starpipe

import "testing"

func TestAddCatalogGeohash(t *testing.T) {
	sink := NewMemSink()
	r := NewDimensionResolver(sink)
	lat, lon := 37.3316, -122.0302
	artist := ArtistRecord{ArtistID: "ARAAA", Name: "The Band", Latitude: &lat, Longitude: &lon}
	song := SongRecord{SongID: "SOAAA", Title: "T", ArtistID: "ARAAA", Duration: 1}
	songIns, artistIns, err := r.AddCatalog(song, artist)
	if err != nil {
		t.Fatalf("adding catalog: %v", err)
	}
	if !songIns || !artistIns {
		t.Fatalf("expected both inserts, got %v %v", songIns, artistIns)
	}
	row, ok, err := sink.Get(TableArtists, "ARAAA")
	if err != nil || !ok {
		t.Fatalf("getting artist: %v %v", ok, err)
	}
	gh, _ := row["geohash"].(string)
	if len(gh) != 12 {
		t.Fatalf("expected 12 char geohash, got %q", gh)
	}
	if gh[0] != '9' {
		t.Fatalf("expected a geohash near Cupertino (9q...), got %q", gh)
	}

	// Without both coordinates the geohash stays null.
	artist2 := ArtistRecord{ArtistID: "ARBBB", Name: "Solo", Latitude: &lat}
	song2 := SongRecord{SongID: "SOBBB", Title: "U", ArtistID: "ARBBB", Duration: 2}
	if _, _, err := r.AddCatalog(song2, artist2); err != nil {
		t.Fatalf("adding catalog: %v", err)
	}
	row, _, err = sink.Get(TableArtists, "ARBBB")
	if err != nil {
		t.Fatalf("getting artist: %v", err)
	}
	if row["geohash"] != nil {
		t.Fatalf("expected null geohash, got %v", row["geohash"])
	}
}

func TestAddUserInsertThenUpdate(t *testing.T) {
	sink := NewMemSink()
	r := NewDimensionResolver(sink)

	inserted, updated, err := r.AddUser(PlayEvent{TS: 1000, UserID: 7, Level: "free"})
	if err != nil || !inserted || updated {
		t.Fatalf("first event: inserted=%v updated=%v err=%v", inserted, updated, err)
	}

	// Newer event with a different level updates.
	inserted, updated, err = r.AddUser(PlayEvent{TS: 2000, UserID: 7, Level: "paid"})
	if err != nil || inserted || !updated {
		t.Fatalf("newer event: inserted=%v updated=%v err=%v", inserted, updated, err)
	}

	// Older event loses even though it arrives last.
	inserted, updated, err = r.AddUser(PlayEvent{TS: 1500, UserID: 7, Level: "free"})
	if err != nil || inserted || updated {
		t.Fatalf("older event: inserted=%v updated=%v err=%v", inserted, updated, err)
	}
	row, _, err := sink.Get(TableUsers, "7")
	if err != nil {
		t.Fatalf("getting user: %v", err)
	}
	if row["level"] != "paid" {
		t.Fatalf("expected level paid, got %v", row["level"])
	}

	// Newer event with the same level advances level_ts but doesn't
	// count as an update.
	inserted, updated, err = r.AddUser(PlayEvent{TS: 3000, UserID: 7, Level: "paid"})
	if err != nil || inserted || updated {
		t.Fatalf("same-level event: inserted=%v updated=%v err=%v", inserted, updated, err)
	}
	row, _, _ = sink.Get(TableUsers, "7")
	if ts, _ := fieldInt(row, "level_ts"); ts != 3000 {
		t.Fatalf("expected level_ts 3000, got %v", ts)
	}
}

func TestAddTimeDedup(t *testing.T) {
	sink := NewMemSink()
	r := NewDimensionResolver(sink)
	ins, err := r.AddTime(PlayEvent{TS: 1542296032796})
	if err != nil || !ins {
		t.Fatalf("first add: ins=%v err=%v", ins, err)
	}
	// Same second, different millisecond.
	ins, err = r.AddTime(PlayEvent{TS: 1542296032004})
	if err != nil || ins {
		t.Fatalf("duplicate add: ins=%v err=%v", ins, err)
	}
	if got := sink.Count(TableTime); got != 1 {
		t.Fatalf("expected 1 time row, got %d", got)
	}
}
