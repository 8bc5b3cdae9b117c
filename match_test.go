package starpipe

import "testing"

func matcherSink(t *testing.T) *MemSink {
	t.Helper()
	sink := NewMemSink()
	songs := []SongRecord{
		{SongID: "SOAAA", Title: "Greatest Hit", ArtistID: "ARAAA", Duration: 200.5},
		{SongID: "SOBBB", Title: "Deep Cut", ArtistID: "ARAAA", Duration: 99.0},
		{SongID: "SOORPH", Title: "Orphan Song", ArtistID: "ARGONE", Duration: 50.0},
	}
	for _, s := range songs {
		if _, err := sink.Upsert(TableSongs, s.Key(), s.Row()); err != nil {
			t.Fatalf("seeding song: %v", err)
		}
	}
	a := ArtistRecord{ArtistID: "ARAAA", Name: "The Band"}
	if _, err := sink.Upsert(TableArtists, a.Key(), a.Row()); err != nil {
		t.Fatalf("seeding artist: %v", err)
	}
	return sink
}

func TestExactMatcher(t *testing.T) {
	m, err := NewExactMatcher(matcherSink(t))
	if err != nil {
		t.Fatalf("building matcher: %v", err)
	}

	songID, artistID, ok := m.Resolve(PlayEvent{Song: "Greatest Hit", Artist: "The Band", Length: 200.5})
	if !ok || songID != "SOAAA" || artistID != "ARAAA" {
		t.Fatalf("expected SOAAA/ARAAA, got %v/%v ok=%v", songID, artistID, ok)
	}

	// All three fields must match exactly - no duration tolerance, no
	// case folding.
	if _, _, ok := m.Resolve(PlayEvent{Song: "Greatest Hit", Artist: "The Band", Length: 200.51}); ok {
		t.Fatal("matched despite duration mismatch")
	}
	if _, _, ok := m.Resolve(PlayEvent{Song: "greatest hit", Artist: "The Band", Length: 200.5}); ok {
		t.Fatal("matched despite title case mismatch")
	}

	// A song whose artist row is missing can't be matched by name.
	if _, _, ok := m.Resolve(PlayEvent{Song: "Orphan Song", Artist: "", Length: 50.0}); ok {
		t.Fatal("matched a song with no artist row")
	}
}

func TestExactMatcherTiebreak(t *testing.T) {
	sink := matcherSink(t)
	// A duplicate catalog entry under a different song_id. The
	// lexicographically smallest id must win deterministically.
	dup := SongRecord{SongID: "SO0000", Title: "Greatest Hit", ArtistID: "ARAAA", Duration: 200.5}
	if _, err := sink.Upsert(TableSongs, dup.Key(), dup.Row()); err != nil {
		t.Fatalf("seeding song: %v", err)
	}
	m, err := NewExactMatcher(sink)
	if err != nil {
		t.Fatalf("building matcher: %v", err)
	}
	songID, _, ok := m.Resolve(PlayEvent{Song: "Greatest Hit", Artist: "The Band", Length: 200.5})
	if !ok || songID != "SO0000" {
		t.Fatalf("expected smallest song_id SO0000, got %v ok=%v", songID, ok)
	}
}
