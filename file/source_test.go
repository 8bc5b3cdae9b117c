package file

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pilosa/starpipe/test"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("making dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestSourceWalksDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A", "B", "one.json"), `{"n": 1}`+"\n"+`{"n": 2}`+"\n")
	writeFile(t, filepath.Join(dir, "A", "two.json"), `{"n": 3}`+"\n")
	writeFile(t, filepath.Join(dir, "ignored.txt"), "not json\n")

	raw, err := NewRawSource(dir)
	test.ErrNil(t, err, "getting raw source")
	test.MustBe(t, raw.NumFiles(), 2)

	s, err := NewSource(OptSrcRawSource(raw))
	test.ErrNil(t, err, "getting source")

	sum := 0.0
	count := 0
	for {
		rec, err := s.Record()
		if err == io.EOF {
			break
		}
		test.ErrNil(t, err, "reading record")
		sum += rec["n"].(float64)
		count++
	}
	test.MustBe(t, count, 3)
	test.MustBe(t, sum, 6.0)
}

func TestSourceSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.json")
	writeFile(t, path, `{"song_id": "SOAAA"}`+"\n")

	s, err := NewSource(OptSrcPath(path))
	test.ErrNil(t, err, "getting source")
	rec, err := s.Record()
	test.ErrNil(t, err, "reading record")
	test.MustBe(t, rec["song_id"], "SOAAA")
	if _, err := s.Record(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSourceMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), `{"n": 1}`+"\nnot json at all\n")
	writeFile(t, filepath.Join(dir, "b.json"), `{"n": 2}`+"\n")

	s, err := NewSource(OptSrcPath(dir))
	test.ErrNil(t, err, "getting source")

	rec, err := s.Record()
	test.ErrNil(t, err, "first record")
	test.MustBe(t, rec["n"], float64(1))

	// The syntax error is reported once; the decoder is stuck, so the
	// source must move on to the next file instead of repeating it.
	if _, err := s.Record(); err == nil || err == io.EOF {
		t.Fatalf("expected decode error, got %v", err)
	}

	rec, err = s.Record()
	test.ErrNil(t, err, "record after bad file")
	test.MustBe(t, rec["n"], float64(2))

	if _, err := s.Record(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSourceMissingPath(t *testing.T) {
	if _, err := NewSource(OptSrcPath("/does/not/exist")); err == nil {
		t.Fatal("expected error for missing path")
	}
	if _, err := NewSource(); err == nil {
		t.Fatal("expected error for no path")
	}
}
