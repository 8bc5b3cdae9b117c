package json

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/pilosa/starpipe"
	"github.com/pkg/errors"
)

// Source is a starpipe.Source for reading line separated json data.
type Source struct {
	mu  sync.Mutex
	dec *json.Decoder
}

// NewSource gets a new json source which will decode from the given
// reader.
func NewSource(r io.Reader) *Source {
	return &Source{
		dec: json.NewDecoder(r),
	}
}

// Record implements starpipe.Source. It returns the next json object
// that can be decoded from the reader.
func (s *Source) Record() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res map[string]interface{}
	err := s.dec.Decode(&res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type rawSourceSource struct {
	rs starpipe.RawSource

	mu sync.Mutex
	s  *Source
}

// NewSourceFromRawSource chains a json decoder onto each reader
// produced by rs, so a multi-file backend yields one flat stream of
// records.
func NewSourceFromRawSource(rs starpipe.RawSource) starpipe.Source {
	return &rawSourceSource{rs: rs}
}

func (r *rawSourceSource) Record() (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record()
}

func (r *rawSourceSource) record() (map[string]interface{}, error) {
	if r.s == nil {
		reader, err := r.rs.NextReader()
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "getting next reader")
		} else if err == io.EOF {
			return nil, err
		}
		r.s = NewSource(reader)
	}
	rec, err := r.s.Record()
	if err == io.EOF {
		r.s = nil
		return r.record()
	} else if err != nil {
		return rec, err
	}
	return rec, err
}
