package fake

import (
	"io"
	"sync"
)

// Source is a starpipe.Source which generates fake records - catalog
// records when events is false, log events when true. It produces n
// records and then io.EOF.
type Source struct {
	mu     sync.Mutex
	g      *Generator
	events bool
	n      int
}

// NewCatalogSource gets a Source producing n catalog records.
func NewCatalogSource(g *Generator, n int) *Source {
	return &Source{g: g, n: n}
}

// NewEventSource gets a Source producing n log events.
func NewEventSource(g *Generator, n int) *Source {
	return &Source{g: g, events: true, n: n}
}

// Record implements starpipe.Source.
func (s *Source) Record() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n <= 0 {
		return nil, io.EOF
	}
	s.n--
	if s.events {
		return s.g.Event(), nil
	}
	return s.g.CatalogRecord(), nil
}
