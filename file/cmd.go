package file

import (
	"log"
	"os"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/sinks"
	"github.com/pilosa/starpipe/termstat"
	"github.com/pkg/errors"
)

// Main contains the configuration for a load reading catalog and log
// json files from local disk.
type Main struct {
	CatalogPath string `help:"File or directory tree of song catalog json files."`
	EventPath   string `help:"File or directory tree of play log json files."`
	Sink        string `help:"Sink kind: memory, bolt, leveldb, or postgres."`
	SinkDSN     string `help:"Sink location - db file, directory, or connection url."`
	Concurrency int    `help:"Number of transform goroutines per source."`
	BatchSize   int    `help:"Fact rows per bulk load (latency/throughput tradeoff)."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		CatalogPath: "data/song_data",
		EventPath:   "data/log_data",
		Sink:        "bolt",
		SinkDSN:     "starpipe.db",
		Concurrency: 4,
		BatchSize:   1000,
	}
}

// Run runs the load.
func (m *Main) Run() error {
	catalogRaw, err := NewRawSource(m.CatalogPath)
	if err != nil {
		return errors.Wrap(err, "getting catalog raw source")
	}
	eventRaw, err := NewRawSource(m.EventPath)
	if err != nil {
		return errors.Wrap(err, "getting event raw source")
	}
	log.Printf("%d catalog files found in %s, %d log files in %s",
		catalogRaw.NumFiles(), m.CatalogPath, eventRaw.NumFiles(), m.EventPath)
	catalog, err := NewSource(OptSrcRawSource(catalogRaw))
	if err != nil {
		return errors.Wrap(err, "getting catalog source")
	}
	events, err := NewSource(OptSrcRawSource(eventRaw))
	if err != nil {
		return errors.Wrap(err, "getting event source")
	}

	sink, err := sinks.Open(m.Sink, m.SinkDSN)
	if err != nil {
		return errors.Wrap(err, "opening sink")
	}
	defer sink.Close()

	pipeline := starpipe.NewPipeline()
	pipeline.Concurrency = m.Concurrency
	pipeline.BatchSize = m.BatchSize
	pipeline.Stats = termstat.NewCollector(os.Stdout)
	summary, err := pipeline.Run(catalog, events, sink)
	log.Printf("run %v: read=%d inserted=%d updated=%d rejected=%d tables=%v",
		summary.Phase, summary.RecordsRead, summary.RowsInserted, summary.RowsUpdated, summary.RowsRejected, summary.Tables)
	return errors.Wrap(err, "running pipeline")
}
