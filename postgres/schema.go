package postgres

import (
	"context"

	"github.com/pilosa/starpipe"
	"github.com/pkg/errors"
)

var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS songs (
		song_id text PRIMARY KEY,
		title text NOT NULL,
		artist_id text NOT NULL,
		year bigint NOT NULL,
		duration double precision NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS artists (
		artist_id text PRIMARY KEY,
		name text NOT NULL,
		location text,
		latitude double precision,
		longitude double precision,
		geohash text
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id bigint PRIMARY KEY,
		first_name text,
		last_name text,
		gender text,
		level text NOT NULL,
		level_ts bigint NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS time (
		start_time timestamptz PRIMARY KEY,
		hour bigint NOT NULL,
		day bigint NOT NULL,
		week bigint NOT NULL,
		month bigint NOT NULL,
		year bigint NOT NULL,
		weekday bigint NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS songplays (
		songplay_id text PRIMARY KEY,
		start_time timestamptz NOT NULL,
		user_id bigint NOT NULL,
		level text NOT NULL,
		song_id text,
		artist_id text,
		session_id bigint NOT NULL,
		location text,
		user_agent text
	)`,
}

var dropTableStatements = []string{
	`DROP TABLE IF EXISTS songplays`,
	`DROP TABLE IF EXISTS time`,
	`DROP TABLE IF EXISTS users`,
	`DROP TABLE IF EXISTS artists`,
	`DROP TABLE IF EXISTS songs`,
}

// tableColumns lists each table's columns in insert order; the primary
// key column comes first.
var tableColumns = map[string][]string{
	starpipe.TableSongs:     {"song_id", "title", "artist_id", "year", "duration"},
	starpipe.TableArtists:   {"artist_id", "name", "location", "latitude", "longitude", "geohash"},
	starpipe.TableUsers:     {"user_id", "first_name", "last_name", "gender", "level", "level_ts"},
	starpipe.TableTime:      {"start_time", "hour", "day", "week", "month", "year", "weekday"},
	starpipe.TableSongplays: {"songplay_id", "start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent"},
}

// EnsureSchema creates the star schema tables if they do not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range createTableStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(starpipe.ErrSinkUnavailable, "creating tables: %v", err)
		}
	}
	return nil
}

// DropSchema drops the star schema tables.
func (s *Sink) DropSchema(ctx context.Context) error {
	for _, stmt := range dropTableStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(starpipe.ErrSinkUnavailable, "dropping tables: %v", err)
		}
	}
	return nil
}
