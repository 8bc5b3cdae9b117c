package leveldb

import (
	"testing"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/test"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	s, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatalf("opening sink: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSinkUpsert(t *testing.T) {
	s := newTestSink(t)
	ins, err := s.Upsert(starpipe.TableSongs, "SO1", starpipe.Row{"song_id": "SO1", "title": "first"})
	test.ErrNil(t, err, "first upsert")
	test.MustBe(t, ins, true)
	ins, err = s.Upsert(starpipe.TableSongs, "SO1", starpipe.Row{"song_id": "SO1", "title": "second"})
	test.ErrNil(t, err, "second upsert")
	test.MustBe(t, ins, false)

	row, ok, err := s.Get(starpipe.TableSongs, "SO1")
	test.ErrNil(t, err, "get")
	test.MustBe(t, ok, true)
	test.MustBe(t, row["title"], "first")

	_, ok, err = s.Get(starpipe.TableSongs, "missing")
	test.ErrNil(t, err, "get missing")
	test.MustBe(t, ok, false)
}

func TestSinkTablesAreDisjoint(t *testing.T) {
	s := newTestSink(t)
	test.ErrNil(t, s.Put(starpipe.TableSongs, "X", starpipe.Row{"song_id": "X"}), "put song")
	test.ErrNil(t, s.Put(starpipe.TableArtists, "X", starpipe.Row{"artist_id": "X"}), "put artist")

	var count int
	err := s.Scan(starpipe.TableSongs, func(key string, row starpipe.Row) error {
		count++
		test.MustBe(t, key, "X")
		if _, ok := row["artist_id"]; ok {
			t.Fatalf("artist row leaked into songs scan: %v", row)
		}
		return nil
	})
	test.ErrNil(t, err, "scan")
	test.MustBe(t, count, 1)
}

func TestSinkBulkLoadAndScan(t *testing.T) {
	s := newTestSink(t)
	rows := []starpipe.Row{
		{"songplay_id": "c"},
		{"songplay_id": "a"},
		{"songplay_id": "b"},
	}
	test.ErrNil(t, s.BulkLoad(starpipe.TableSongplays, rows), "bulk load")

	var keys []string
	err := s.Scan(starpipe.TableSongplays, func(key string, row starpipe.Row) error {
		keys = append(keys, key)
		return nil
	})
	test.ErrNil(t, err, "scan")
	test.MustBe(t, keys, []string{"a", "b", "c"})
}
