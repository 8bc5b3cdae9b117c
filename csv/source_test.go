package csv

import (
	"io"
	"strings"
	"testing"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/test"
)

type stringsRawSource struct {
	files  []string
	idx    int
	closes int
}

func (r *stringsRawSource) NextReader() (starpipe.NamedReadCloser, error) {
	if r.idx >= len(r.files) {
		return nil, io.EOF
	}
	f := r.files[r.idx]
	r.idx++
	return &stringReadCloser{Reader: strings.NewReader(f), src: r}, nil
}

type stringReadCloser struct {
	io.Reader
	src *stringsRawSource
}

func (s *stringReadCloser) Close() error {
	s.src.closes++
	return nil
}

func (s *stringReadCloser) Name() string { return "test.csv" }

func TestSource(t *testing.T) {
	rs := &stringsRawSource{files: []string{
		"song_id,title,duration\nSOAAA,Greatest Hit,200.5\n\nSOBBB,Deep Cut,99\n",
		"song_id,title,duration\nSOCCC,Late Addition,50\n",
	}}
	s := NewSourceFromRawSource(rs)

	rec, err := s.Record()
	test.ErrNil(t, err, "first record")
	test.MustBe(t, rec["song_id"], "SOAAA")
	test.MustBe(t, rec["duration"], "200.5")

	rec, err = s.Record()
	test.ErrNil(t, err, "second record")
	test.MustBe(t, rec["title"], "Deep Cut")

	// Second file re-reads its own header.
	rec, err = s.Record()
	test.ErrNil(t, err, "third record")
	test.MustBe(t, rec["song_id"], "SOCCC")

	if _, err := s.Record(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSourceBadHeader(t *testing.T) {
	rs := &stringsRawSource{files: []string{"a,b,a\n1,2,3\n"}}
	s := NewSourceFromRawSource(rs)
	if _, err := s.Record(); err == nil {
		t.Fatal("expected duplicate header error")
	}
	// The rejected file's reader must not leak.
	test.MustBe(t, rs.closes, 1)

	rs = &stringsRawSource{files: []string{"a,,c\n1,2,3\n"}}
	s = NewSourceFromRawSource(rs)
	if _, err := s.Record(); err == nil {
		t.Fatal("expected empty header error")
	}
	test.MustBe(t, rs.closes, 1)
}

func TestSourceShortRow(t *testing.T) {
	rs := &stringsRawSource{files: []string{"a,b,c\n1,2\n"}}
	s := NewSourceFromRawSource(rs)
	if _, err := s.Record(); err == nil {
		t.Fatal("expected header/row mismatch error")
	}
}
