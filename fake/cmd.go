package fake

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Main contains the configuration for generating a sample data set on
// disk: a directory of catalog json and a directory of log json, in
// the layout the file command reads.
type Main struct {
	Dir    string `help:"Directory to write the sample data set into."`
	Songs  int    `help:"Number of catalog records to generate."`
	Events int    `help:"Number of log events to generate."`
	Seed   int64  `help:"Random seed; the same seed gives the same data."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Dir:    "data",
		Songs:  100,
		Events: 1000,
		Seed:   0,
	}
}

// Run generates the data set.
func (m *Main) Run() error {
	g := NewGenerator(m.Seed)
	err := writeRecords(filepath.Join(m.Dir, "song_data", "songs.json"), m.Songs, func() map[string]interface{} {
		return g.CatalogRecord()
	})
	if err != nil {
		return errors.Wrap(err, "writing catalog")
	}
	err = writeRecords(filepath.Join(m.Dir, "log_data", "events.json"), m.Events, func() map[string]interface{} {
		return g.Event()
	})
	if err != nil {
		return errors.Wrap(err, "writing events")
	}
	log.Printf("wrote %d catalog records and %d events under %s", m.Songs, m.Events, m.Dir)
	return nil
}

func writeRecords(path string, n int, gen func() map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "making directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer f.Close()
	if err := encodeRecords(f, n, gen); err != nil {
		return err
	}
	return errors.Wrap(f.Close(), "closing file")
}

func encodeRecords(w io.Writer, n int, gen func() map[string]interface{}) error {
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if err := enc.Encode(gen()); err != nil {
			return errors.Wrap(err, "encoding record")
		}
	}
	return nil
}
