package boltdb

import (
	"path/filepath"
	"testing"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/test"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	s, err := NewSink(filepath.Join(t.TempDir(), "test.db"))
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

func TestSinkPutOverwrites(t *testing.T) {
	s := newTestSink(t)
	test.ErrNil(t, s.Put(starpipe.TableUsers, "7", starpipe.Row{"user_id": float64(7), "level": "free"}), "put")
	test.ErrNil(t, s.Put(starpipe.TableUsers, "7", starpipe.Row{"user_id": float64(7), "level": "paid"}), "put again")
	row, ok, err := s.Get(starpipe.TableUsers, "7")
	test.ErrNil(t, err, "get")
	test.MustBe(t, ok, true)
	test.MustBe(t, row["level"], "paid")
}

func TestSinkBulkLoadAndScan(t *testing.T) {
	s := newTestSink(t)
	rows := []starpipe.Row{
		{"songplay_id": "c", "level": "free"},
		{"songplay_id": "a", "level": "paid"},
		{"songplay_id": "b", "level": "free"},
	}
	test.ErrNil(t, s.BulkLoad(starpipe.TableSongplays, rows), "bulk load")

	var keys []string
	err := s.Scan(starpipe.TableSongplays, func(key string, row starpipe.Row) error {
		keys = append(keys, key)
		return nil
	})
	test.ErrNil(t, err, "scan")
	test.MustBe(t, keys, []string{"a", "b", "c"})

	// Scanning an absent table visits nothing.
	err = s.Scan(starpipe.TableTime, func(key string, row starpipe.Row) error {
		t.Fatalf("unexpected row %s", key)
		return nil
	})
	test.ErrNil(t, err, "scanning empty table")
}
