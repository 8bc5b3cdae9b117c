package starpipe

import (
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Phase is the pipeline's load phase. Facts may not be loaded until
// the dimension phase has committed for the run's full input set.
type Phase int32

// Pipeline phases, in order. PhaseFailed is reachable from either load
// phase on an unrecoverable sink error.
const (
	PhaseInit Phase = iota
	PhaseLoadDimensions
	PhaseLoadFacts
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseLoadDimensions:
		return "LOAD_DIMENSIONS"
	case PhaseLoadFacts:
		return "LOAD_FACTS"
	case PhaseDone:
		return "DONE"
	case PhaseFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Summary is the user-visible result of a run. On a failed run it
// carries the counts completed before the failure - there is no silent
// partial success.
type Summary struct {
	RecordsRead  int64
	RowsInserted int64
	RowsUpdated  int64
	RowsRejected int64
	Tables       map[string]int64
	Phase        Phase
}

// Pipeline transforms catalog records and play events into star schema
// rows and loads them into a Sink in two phases: all dimension rows
// first, then facts. The fields may be set before calling Run;
// afterward the Pipeline must not be reused.
type Pipeline struct {
	// Concurrency is the number of goroutines transforming records
	// from each source.
	Concurrency int

	// BatchSize is the number of fact rows per BulkLoad call.
	BatchSize int

	Log   Logger
	Stats Statter

	phase    int32
	sink     Sink
	resolver *DimensionResolver

	mu       sync.Mutex
	retained []PlayEvent
	fatal    error

	recordsRead  int64
	rowsInserted int64
	rowsUpdated  int64
	rowsRejected int64
	tableCounts  map[string]*int64
}

// NewPipeline gets a Pipeline with the default configuration.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Concurrency: 1,
		BatchSize:   1000,
		Log:         StdLogger{log.New(os.Stderr, "", log.LstdFlags)},
		Stats:       NopStatter{},
	}
}

// Run executes the full load: catalog records and play events are read
// from their sources, dimension rows committed to sink, and only then
// fact rows computed against the committed dimension state. It returns
// the run summary; on a fatal sink error the summary carries the
// partial counts and the error is non-nil.
func (p *Pipeline) Run(catalog, events Source, sink Sink) (Summary, error) {
	p.sink = sink
	p.resolver = NewDimensionResolver(sink)
	p.tableCounts = map[string]*int64{
		TableSongs:     new(int64),
		TableArtists:   new(int64),
		TableUsers:     new(int64),
		TableTime:      new(int64),
		TableSongplays: new(int64),
	}

	p.setPhase(PhaseLoadDimensions)
	p.forEach(catalog, p.catalogRecord)
	p.forEach(events, p.eventRecord)
	if err := p.fatalErr(); err != nil {
		p.setPhase(PhaseFailed)
		return p.summary(), err
	}

	p.setPhase(PhaseLoadFacts)
	if err := p.loadFacts(); err != nil {
		p.setPhase(PhaseFailed)
		return p.summary(), err
	}

	p.setPhase(PhaseDone)
	return p.summary(), nil
}

// forEach feeds every record of src through fn using p.Concurrency
// goroutines. Malformed records are counted and skipped; any other
// error from fn is fatal and stops all workers.
func (p *Pipeline) forEach(src Source, fn func(rec map[string]interface{}) error) {
	var wg sync.WaitGroup
	for i := 0; i < p.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p.fatalErr() == nil {
				rec, err := src.Record()
				if err == io.EOF {
					return
				}
				if err != nil {
					p.setFatal(errors.Wrap(err, "reading record"))
					return
				}
				atomic.AddInt64(&p.recordsRead, 1)
				p.Stats.Count("recordsRead", 1, 1)
				if err := fn(rec); err != nil {
					if IsMalformed(err) {
						atomic.AddInt64(&p.rowsRejected, 1)
						p.Stats.Count("rowsRejected", 1, 1)
						p.Log.Debugf("skipping record: %v", err)
						continue
					}
					p.setFatal(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func (p *Pipeline) catalogRecord(rec map[string]interface{}) error {
	song, artist, err := ParseCatalogRecord(rec)
	if err != nil {
		return err
	}
	songIns, artistIns, err := p.resolver.AddCatalog(song, artist)
	if err != nil {
		return err
	}
	if songIns {
		p.countInsert(TableSongs)
	}
	if artistIns {
		p.countInsert(TableArtists)
	}
	return nil
}

func (p *Pipeline) eventRecord(rec map[string]interface{}) error {
	if Page(rec) != PageNextSong {
		return nil
	}
	ev, err := ParsePlayEvent(rec)
	if err != nil {
		return err
	}
	inserted, updated, err := p.resolver.AddUser(ev)
	if err != nil {
		return err
	}
	if inserted {
		p.countInsert(TableUsers)
	}
	if updated {
		atomic.AddInt64(&p.rowsUpdated, 1)
		p.Stats.Count("rowsUpdated", 1, 1)
	}
	timeIns, err := p.resolver.AddTime(ev)
	if err != nil {
		return err
	}
	if timeIns {
		p.countInsert(TableTime)
	}
	p.mu.Lock()
	p.retained = append(p.retained, ev)
	p.mu.Unlock()
	return nil
}

// loadFacts builds the matcher from committed dimension state and bulk
// loads one fact row per retained event. Calling it in any phase other
// than LOAD_FACTS is a programming error.
func (p *Pipeline) loadFacts() error {
	if p.Phase() != PhaseLoadFacts {
		return ErrOrderingViolation
	}
	matcher, err := NewExactMatcher(p.sink)
	if err != nil {
		return errors.Wrap(err, "building matcher")
	}
	assembler := NewFactAssembler(matcher)

	// Replay in timestamp order so fact output is stable across runs
	// with the same input set.
	p.mu.Lock()
	events := p.retained
	p.retained = nil
	p.mu.Unlock()
	sort.SliceStable(events, func(i, j int) bool { return events[i].TS < events[j].TS })

	batch := make([]Row, 0, p.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.sink.BulkLoad(TableSongplays, batch); err != nil {
			return errors.Wrap(err, "bulk loading songplays")
		}
		for range batch {
			p.countInsert(TableSongplays)
		}
		batch = batch[:0]
		return nil
	}
	for _, ev := range events {
		batch = append(batch, assembler.Assemble(ev).Row())
		if len(batch) >= p.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Phase returns the pipeline's current phase.
func (p *Pipeline) Phase() Phase {
	return Phase(atomic.LoadInt32(&p.phase))
}

func (p *Pipeline) setPhase(ph Phase) {
	atomic.StoreInt32(&p.phase, int32(ph))
	p.Log.Debugf("phase %v", ph)
}

func (p *Pipeline) setFatal(err error) {
	p.mu.Lock()
	if p.fatal == nil {
		p.fatal = err
	}
	p.mu.Unlock()
}

func (p *Pipeline) fatalErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fatal
}

func (p *Pipeline) countInsert(table string) {
	atomic.AddInt64(&p.rowsInserted, 1)
	atomic.AddInt64(p.tableCounts[table], 1)
	p.Stats.Count("rowsInserted", 1, 1, "table:"+table)
}

func (p *Pipeline) summary() Summary {
	s := Summary{
		RecordsRead:  atomic.LoadInt64(&p.recordsRead),
		RowsInserted: atomic.LoadInt64(&p.rowsInserted),
		RowsUpdated:  atomic.LoadInt64(&p.rowsUpdated),
		RowsRejected: atomic.LoadInt64(&p.rowsRejected),
		Tables:       make(map[string]int64, len(p.tableCounts)),
		Phase:        p.Phase(),
	}
	for table, n := range p.tableCounts {
		s.Tables[table] = atomic.LoadInt64(n)
	}
	return s
}

// Run is the library entry point for a one-shot load with the default
// pipeline configuration.
func Run(catalog, events Source, sink Sink) (Summary, error) {
	return NewPipeline().Run(catalog, events, sink)
}
