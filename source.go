package starpipe

import (
	"io"
	"sync"
)

// Source is the interface for getting raw records one at a time. A
// record is a decoded JSON-ish object. Record returns io.EOF once the
// source is exhausted; Sources are finite and a fresh Source must be
// constructed for each run. Implementations of Source should be thread
// safe.
type Source interface {
	Record() (map[string]interface{}, error)
}

// RawSource is an interface for getting raw readers of data, one per
// underlying file or object. Sources which are backed by multiple
// files (local directories, S3 prefixes) implement their file handling
// as a RawSource and chain a record decoder on top.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// NamedReadCloser is an io.ReadCloser which also reports the name of
// the underlying file or object.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// SliceSource is a Source backed by an in-memory slice of records. It
// is useful in tests and as a buffer for records which have already
// been read.
type SliceSource struct {
	mu      sync.Mutex
	records []map[string]interface{}
	idx     int
}

// NewSliceSource gets a SliceSource which will return each record in
// recs once, in order.
func NewSliceSource(recs ...map[string]interface{}) *SliceSource {
	return &SliceSource{records: recs}
}

// Record implements Source.
func (s *SliceSource) Record() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.idx]
	s.idx++
	return rec, nil
}
