package csv

import (
	"bufio"
	"strings"
	"sync"

	"github.com/pilosa/starpipe"
	"github.com/pkg/errors"
)

// Source is a starpipe.Source which reads headered CSV data, one file
// at a time, from a RawSource. Catalog dumps staged for warehouse COPY
// loads arrive in this shape. Every field value is a string; the
// record parsers coerce numerics.
type Source struct {
	rs starpipe.RawSource

	mu     sync.Mutex
	cur    starpipe.NamedReadCloser
	scan   *bufio.Scanner
	header []string
	line   int
}

// NewSourceFromRawSource gets a Source reading each file produced by
// rs. The first line of each file is its header.
func NewSourceFromRawSource(rs starpipe.RawSource) *Source {
	return &Source{
		rs: rs,
	}
}

// Record implements starpipe.Source.
func (s *Source) Record() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record()
}

func (s *Source) record() (map[string]interface{}, error) {
	if s.cur == nil {
		var err error
		s.cur, err = s.rs.NextReader()
		if err != nil {
			return nil, err
		}
		s.scan = bufio.NewScanner(s.cur)
		s.line = 0
		if s.scan.Scan() {
			s.header = strings.Split(s.scan.Text(), ",")
			if err := validateHeader(s.header); err != nil {
				s.cur.Close()
				s.cur = nil
				s.scan = nil
				return nil, errors.Wrap(err, "validating header")
			}
		}
	}
	for s.scan.Scan() {
		s.line++
		if err := s.scan.Err(); err != nil {
			return nil, err
		}
		txt := s.scan.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}
		rec, err := parseRecord(s.header, strings.Split(txt, ","))
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", s.cur.Name(), s.line)
		}
		return rec, nil
	}
	if err := s.scan.Err(); err != nil {
		return nil, err
	}
	s.cur.Close()
	s.cur = nil
	return s.record()
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}

func parseRecord(header []string, row []string) (map[string]interface{}, error) {
	if len(row) < len(header) {
		return nil, errors.Errorf("header/row len mismatch: %d vs %d", len(header), len(row))
	}
	rec := make(map[string]interface{}, len(header))
	for i, h := range header {
		rec[h] = row[i]
	}
	return rec, nil
}
