package kafka

import (
	"log"
	"os"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/file"
	"github.com/pilosa/starpipe/sinks"
	"github.com/pilosa/starpipe/termstat"
	"github.com/pkg/errors"
)

// Main contains the configuration for a load consuming play events
// from kafka. The song catalog still comes from files - catalogs are
// published as dumps, not streams.
type Main struct {
	Hosts       []string `help:"Comma separated list of kafka hosts and ports."`
	Topics      []string `help:"Comma separated list of topics to consume play events from."`
	Group       string   `help:"Kafka consumer group id."`
	MaxMsgs     int      `help:"Stop after this many messages; the load needs a finite input set."`
	CatalogPath string   `help:"File or directory tree of song catalog json files."`
	Sink        string   `help:"Sink kind: memory, bolt, leveldb, or postgres."`
	SinkDSN     string   `help:"Sink location - db file, directory, or connection url."`
	Concurrency int      `help:"Number of transform goroutines per source."`
	BatchSize   int      `help:"Fact rows per bulk load (latency/throughput tradeoff)."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Hosts:       []string{"localhost:9092"},
		Topics:      []string{"playevents"},
		Group:       "group0",
		MaxMsgs:     100000,
		CatalogPath: "data/song_data",
		Sink:        "bolt",
		SinkDSN:     "starpipe.db",
		Concurrency: 4,
		BatchSize:   1000,
	}
}

// Run runs the load.
func (m *Main) Run() error {
	catalog, err := file.NewSource(file.OptSrcPath(m.CatalogPath))
	if err != nil {
		return errors.Wrap(err, "getting catalog source")
	}
	events := NewSource()
	events.Hosts = m.Hosts
	events.Topics = m.Topics
	events.Group = m.Group
	events.MaxMsgs = m.MaxMsgs
	if err := events.Open(); err != nil {
		return errors.Wrap(err, "opening kafka source")
	}
	defer events.Close()

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
