package starpipe

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Sink is the load target for dimension and fact rows. Rows are keyed
// by their primary key within a table; Upsert is the idempotence
// primitive. Implementations of Sink should be thread safe.
type Sink interface {
	// Upsert writes row under key unless the key already exists, and
	// reports whether the row was inserted. This is the
	// first-write-wins primitive.
	Upsert(table, key string, row Row) (bool, error)

	// Put writes row under key unconditionally. It is only used under
	// the user-dimension read-modify-write, where the caller holds the
	// per-key lock.
	Put(table, key string, row Row) error

	// Get reads the committed row under key.
	Get(table, key string) (Row, bool, error)

	// BulkLoad appends rows to a table. Rows must carry their key
	// column; implementations may assume keys do not collide within
	// one call.
	BulkLoad(table string, rows []Row) error

	// Scan calls fn for each committed row of table in key order.
	Scan(table string, fn func(key string, row Row) error) error

	Close() error
}

// KeyColumn returns the primary key column for each star schema table.
func KeyColumn(table string) string {
	switch table {
	case TableSongs:
		return "song_id"
	case TableArtists:
		return "artist_id"
	case TableUsers:
		return "user_id"
	case TableTime:
		return "start_time"
	case TableSongplays:
		return "songplay_id"
	}
	return ""
}

// RowKey derives the string sink key from a row's primary key column.
func RowKey(table string, row Row) string {
	switch v := row[KeyColumn(table)].(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return TimeKey(v)
	}
	return ""
}

// MemSink is an in-memory Sink for tests and dry runs.
type MemSink struct {
	mu     sync.RWMutex
	tables map[string]map[string]Row
}

// NewMemSink gets an empty MemSink.
func NewMemSink() *MemSink {
	return &MemSink{tables: make(map[string]map[string]Row)}
}

func (s *MemSink) table(name string) map[string]Row {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[string]Row)
		s.tables[name] = t
	}
	return t
}

// Upsert implements Sink.
func (s *MemSink) Upsert(table, key string, row Row) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)
	if _, ok := t[key]; ok {
		return false, nil
	}
	t[key] = row
	return true, nil
}

// Put implements Sink.
func (s *MemSink) Put(table, key string, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(table)[key] = row
	return nil
}

// Get implements Sink.
func (s *MemSink) Get(table, key string) (Row, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[table][key]
	return row, ok, nil
}

// BulkLoad implements Sink.
func (s *MemSink) BulkLoad(table string, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)
	for _, row := range rows {
		t[RowKey(table, row)] = row
	}
	return nil
}

// Scan implements Sink.
func (s *MemSink) Scan(table string, fn func(key string, row Row) error) error {
	s.mu.RLock()
	t := s.tables[table]
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	for _, k := range keys {
		s.mu.RLock()
		row := t[k]
		s.mu.RUnlock()
		if err := fn(k, row); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Sink.
func (s *MemSink) Close() error { return nil }

// Count returns the number of rows in a table.
func (s *MemSink) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}
