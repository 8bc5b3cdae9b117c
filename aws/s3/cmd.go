// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package s3

import (
	"log"
	"os"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/sinks"
	"github.com/pilosa/starpipe/termstat"
	"github.com/pkg/errors"
)

// Main contains the configuration for a load reading catalog and log
// objects from an S3 bucket.
type Main struct {
	Bucket        string `help:"S3 bucket name from which to read objects."`
	CatalogPrefix string `help:"Prefix of the song catalog objects."`
	EventPrefix   string `help:"Prefix of the play log objects."`
	Region        string `help:"AWS region to use."`
	Sink          string `help:"Sink kind: memory, bolt, leveldb, or postgres."`
	SinkDSN       string `help:"Sink location - db file, directory, or connection url."`
	Concurrency   int    `help:"Number of transform goroutines per source."`
	BatchSize     int    `help:"Fact rows per bulk load (latency/throughput tradeoff)."`
	BufSize       int    `help:"Number of records to buffer per source."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Bucket:        "udacity-dend",
		CatalogPrefix: "song_data/",
		EventPrefix:   "log_data/",
		Region:        "us-west-2",
		Sink:          "bolt",
		SinkDSN:       "starpipe.db",
		Concurrency:   4,
		BatchSize:     1000,
		BufSize:       1000,
	}
}

// Run runs the load.
func (m *Main) Run() error {
	catalog, err := NewSource(
		OptSrcBucket(m.Bucket),
		OptSrcPrefix(m.CatalogPrefix),
		OptSrcRegion(m.Region),
		OptSrcBufSize(m.BufSize),
	)
	if err != nil {
		return errors.Wrap(err, "getting catalog source")
	}
	events, err := NewSource(
		OptSrcBucket(m.Bucket),
		OptSrcPrefix(m.EventPrefix),
		OptSrcRegion(m.Region),
		OptSrcBufSize(m.BufSize),
	)
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
