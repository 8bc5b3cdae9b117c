package starpipe

import "testing"

type stubMatcher struct {
	songID, artistID string
	ok               bool
}

func (m stubMatcher) Resolve(ev PlayEvent) (string, string, bool) {
	return m.songID, m.artistID, m.ok
}

func TestAssemble(t *testing.T) {
	a := NewFactAssembler(stubMatcher{songID: "SOAAA", artistID: "ARAAA", ok: true})
	ev := PlayEvent{TS: 1542296032796, UserID: 26, Level: "free", SessionID: 169}
	f1 := a.Assemble(ev)
	f2 := a.Assemble(ev)
	if f1.SongplayID == "" || f1.SongplayID == f2.SongplayID {
		t.Fatalf("expected distinct surrogate keys, got %q and %q", f1.SongplayID, f2.SongplayID)
	}
	if f1.SongID != "SOAAA" || f1.ArtistID != "ARAAA" || f1.UserID != 26 {
		t.Fatalf("unexpected fact: %+v", f1)
	}
	if !f1.StartTime.Equal(ev.StartTime()) {
		t.Fatalf("expected start time %v, got %v", ev.StartTime(), f1.StartTime)
	}
}

func TestAssembleUnmatched(t *testing.T) {
	a := NewFactAssembler(stubMatcher{})
	f := a.Assemble(PlayEvent{TS: 1542296032796, UserID: 26})
	if f.SongID != "" || f.ArtistID != "" {
		t.Fatalf("expected empty dimension keys, got %+v", f)
	}
	row := f.Row()
	if row["song_id"] != nil || row["artist_id"] != nil {
		t.Fatalf("expected null keys in row, got %v", row)
	}
}
