package file

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/json"
	"github.com/pkg/errors"
)

// Source is a starpipe.Source which reads json records from files on
// disk - either a single file, or every .json file under a directory
// tree. The original play logs and catalog dumps are laid out as
// nested directories of line separated json files, so the walk is
// recursive.
type Source struct {
	rawSource *RawSource
	records   chan record
}

// SrcOption is a functional option for the file Source.
type SrcOption func(s *Source) error

// OptSrcPath sets the path name for the file or directory to use for
// source data.
func OptSrcPath(pathname string) SrcOption {
	return func(s *Source) (err error) {
		s.rawSource, err = NewRawSource(pathname)
		if err != nil {
			return errors.Wrap(err, "getting raw source")
		}
		return nil
	}
}

// OptSrcRawSource sets an already constructed RawSource.
func OptSrcRawSource(rs *RawSource) SrcOption {
	return func(s *Source) error {
		s.rawSource = rs
		return nil
	}
}

func (s *Source) run() {
	reader, err := s.rawSource.NextReader()
	for ; err == nil; reader, err = s.rawSource.NextReader() {
		src := json.NewSource(reader)
		r := record{}
		for {
			r.data, r.err = src.Record()
			if r.err == io.EOF {
				break
			}
			s.records <- r
			// A json.Decoder sticks on a syntax error; report it once
			// and move to the next file rather than looping on it.
			if r.err != nil {
				break
			}
		}
		reader.Close()
	}
	if err != io.EOF {
		s.records <- record{err: errors.Wrap(err, "getting next reader")}
	}

	close(s.records)
}

// NewSource gets a new file source which will read json records from a
// file or all json files under a directory.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{
		records: make(chan record, 100),
	}
	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}
	if s.rawSource == nil {
		return nil, errors.New("file source requires a path")
	}
	go s.run()
	return s, nil
}

// Record implements starpipe.Source returning each json object in the
// source files.
func (s *Source) Record() (map[string]interface{}, error) {
	rec, ok := <-s.records
	if !ok {
		return nil, io.EOF
	}
	return rec.data, rec.err
}

type record struct {
	data map[string]interface{}
	err  error
}

// RawSource produces one reader per source file.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource gets a RawSource over pathname. A directory is walked
// recursively; only files with a .json extension are included.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if info.IsDir() {
		err := filepath.Walk(pathname, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(p, ".json") {
				s.files = append(s.files, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "walking directory")
		}
	} else {
		s.files = []string{pathname}
	}
	return s, nil
}

// NumFiles returns how many files the source will read.
func (s *RawSource) NumFiles() int { return len(s.files) }

type metaFile struct {
	*os.File
}

func (m *metaFile) Name() string {
	return path.Base(m.File.Name())
}

// NextReader implements starpipe.RawSource.
func (s *RawSource) NextReader() (starpipe.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}

	mf := metaFile{file}
	return &mf, nil
}
