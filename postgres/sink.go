// Package postgres provides a starpipe.Sink writing the star schema
// to Postgres tables, using INSERT ... ON CONFLICT for the idempotent
// upsert semantics.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pilosa/starpipe"
	"github.com/pkg/errors"
)

// Sink is a starpipe.Sink backed by a Postgres database.
type Sink struct {
	pool *pgxpool.Pool
}

// NewSink connects to the database at url and verifies the connection.
// Call EnsureSchema before the first load.
func NewSink(ctx context.Context, url string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(starpipe.ErrSinkUnavailable, "creating pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(starpipe.ErrSinkUnavailable, "pinging database: %v", err)
	}
	return &Sink{pool: pool}, nil
}

func insertSQL(table string, conflictAction string) string {
	cols := tableColumns[table]
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		starpipe.KeyColumn(table),
		conflictAction)
}

func updateAction(table string) string {
	cols := tableColumns[table]
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return "DO UPDATE SET " + strings.Join(sets, ", ")
}

func rowArgs(table string, row starpipe.Row) []interface{} {
	cols := tableColumns[table]
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	return args
}

// keyArg converts a sink key string to the native type of the table's
// primary key column.
func keyArg(table, key string) (interface{}, error) {
	switch table {
	case starpipe.TableUsers:
		id, err := strconv.ParseInt(key, 10, 64)
		return id, errors.Wrapf(err, "parsing user key %q", key)
	case starpipe.TableTime:
		t, err := time.Parse(time.RFC3339, key)
		return t, errors.Wrapf(err, "parsing time key %q", key)
	}
	return key, nil
}

// Upsert implements starpipe.Sink - insert-if-absent via ON CONFLICT
// DO NOTHING, which makes the check-and-write atomic on the server.
func (s *Sink) Upsert(table, key string, row starpipe.Row) (bool, error) {
	tag, err := s.pool.Exec(context.Background(), insertSQL(table, "DO NOTHING"), rowArgs(table, row)...)
	if err != nil {
		return false, errors.Wrapf(starpipe.ErrSinkUnavailable, "upserting %s/%s: %v", table, key, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Put implements starpipe.Sink - insert-or-replace.
func (s *Sink) Put(table, key string, row starpipe.Row) error {
	_, err := s.pool.Exec(context.Background(), insertSQL(table, updateAction(table)), rowArgs(table, row)...)
	if err != nil {
		return errors.Wrapf(starpipe.ErrSinkUnavailable, "putting %s/%s: %v", table, key, err)
	}
	return nil
}

// Get implements starpipe.Sink.
func (s *Sink) Get(table, key string) (starpipe.Row, bool, error) {
	arg, err := keyArg(table, key)
	if err != nil {
		return nil, false, err
	}
	cols := tableColumns[table]
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(cols, ", "), table, starpipe.KeyColumn(table))
	rows, err := s.pool.Query(context.Background(), q, arg)
	if err != nil {
		return nil, false, errors.Wrapf(starpipe.ErrSinkUnavailable, "getting %s/%s: %v", table, key, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, errors.Wrapf(rows.Err(), "getting %s/%s", table, key)
	}
	row, err := scanRow(cols, rows)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// BulkLoad implements starpipe.Sink. Fact rows go through a pipelined
// batch; a songplay_id collision is ignored rather than duplicated.
func (s *Sink) BulkLoad(table string, rows []starpipe.Row) error {
	if len(rows) == 0 {
		return nil
	}
	q := insertSQL(table, "DO NOTHING")
	batch := new(pgx.Batch)
	for _, row := range rows {
		batch.Queue(q, rowArgs(table, row)...)
	}
	err := s.pool.SendBatch(context.Background(), batch).Close()
	if err != nil {
		return errors.Wrapf(starpipe.ErrSinkUnavailable, "bulk loading %s: %v", table, err)
	}
	return nil
}

// Scan implements starpipe.Sink.
func (s *Sink) Scan(table string, fn func(key string, row starpipe.Row) error) error {
	cols := tableColumns[table]
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), table, starpipe.KeyColumn(table))
	rows, err := s.pool.Query(context.Background(), q)
	if err != nil {
		return errors.Wrapf(starpipe.ErrSinkUnavailable, "scanning %s: %v", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		row, err := scanRow(cols, rows)
		if err != nil {
			return err
		}
		if err := fn(starpipe.RowKey(table, row), row); err != nil {
			return err
		}
	}
	return errors.Wrapf(rows.Err(), "scanning %s", table)
}

// Close releases the connection pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func scanRow(cols []string, rows pgx.Rows) (starpipe.Row, error) {
	vals, err := rows.Values()
	if err != nil {
		return nil, errors.Wrap(err, "reading row values")
	}
	row := make(starpipe.Row, len(cols))
	for i, c := range cols {
		row[c] = vals[i]
	}
	return row, nil
}
