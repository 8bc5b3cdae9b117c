// Package sinks opens a starpipe.Sink by name, so every command can
// share one --sink/--sink-dsn flag pair.
package sinks

import (
	"context"

	"github.com/pilosa/starpipe"
	"github.com/pilosa/starpipe/boltdb"
	"github.com/pilosa/starpipe/leveldb"
	"github.com/pilosa/starpipe/postgres"
	"github.com/pkg/errors"
)

// Open returns a ready Sink. Supported kinds:
//
//	memory            dsn ignored
//	bolt              dsn is the db file path
//	leveldb           dsn is the db directory
//	postgres          dsn is a connection url; tables are created if
//	                  missing
func Open(kind, dsn string) (starpipe.Sink, error) {
	switch kind {
	case "memory":
		return starpipe.NewMemSink(), nil
	case "bolt":
		return boltdb.NewSink(dsn)
	case "leveldb":
		return leveldb.NewSink(dsn)
	case "postgres":
		sink, err := postgres.NewSink(context.Background(), dsn)
		if err != nil {
			return nil, err
		}
		if err := sink.EnsureSchema(context.Background()); err != nil {
			sink.Close()
			return nil, err
		}
		return sink, nil
	}
	return nil, errors.Errorf("unknown sink kind '%v'", kind)
}
