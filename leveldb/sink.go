package leveldb

import (
	"encoding/json"

	"github.com/pilosa/starpipe"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Sink is a starpipe.Sink backed by a leveldb directory. Rows are
// stored as json under table-prefixed keys, so a prefix iterator
// yields one table in key order.
type Sink struct {
	db *leveldb.DB
}

// NewSink opens (creating if necessary) a leveldb sink under dirname.
func NewSink(dirname string) (*Sink, error) {
	db, err := leveldb.OpenFile(dirname, nil)
	if err != nil {
		return nil, errors.Wrapf(starpipe.ErrSinkUnavailable, "opening leveldb at '%v': %v", dirname, err)
	}
	return &Sink{db: db}, nil
}

// rowKey builds the table-prefixed storage key. The NUL separator
// cannot appear in table names or primary keys.
func rowKey(table, key string) []byte {
	k := make([]byte, 0, len(table)+len(key)+1)
	k = append(k, table...)
	k = append(k, 0)
	k = append(k, key...)
	return k
}

// Upsert implements starpipe.Sink. Leveldb has no transactions, but
// the pipeline serializes writers per key, so has-then-put is safe.
func (s *Sink) Upsert(table, key string, row starpipe.Row) (bool, error) {
	k := rowKey(table, key)
	ok, err := s.db.Has(k, nil)
	if err != nil {
		return false, errors.Wrapf(starpipe.ErrSinkUnavailable, "checking %s/%s: %v", table, key, err)
	}
	if ok {
		return false, nil
	}
	buf, err := json.Marshal(row)
	if err != nil {
		return false, errors.Wrap(err, "encoding row")
	}
	if err := s.db.Put(k, buf, nil); err != nil {
		return false, errors.Wrapf(starpipe.ErrSinkUnavailable, "putting %s/%s: %v", table, key, err)
	}
	return true, nil
}

// Put implements starpipe.Sink.
func (s *Sink) Put(table, key string, row starpipe.Row) error {
	buf, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "encoding row")
	}
	if err := s.db.Put(rowKey(table, key), buf, nil); err != nil {
		return errors.Wrapf(starpipe.ErrSinkUnavailable, "putting %s/%s: %v", table, key, err)
	}
	return nil
}

// Get implements starpipe.Sink.
func (s *Sink) Get(table, key string) (starpipe.Row, bool, error) {
	buf, err := s.db.Get(rowKey(table, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(starpipe.ErrSinkUnavailable, "getting %s/%s: %v", table, key, err)
	}
	var row starpipe.Row
	if err := json.Unmarshal(buf, &row); err != nil {
		return nil, false, errors.Wrap(err, "decoding row")
	}
	return row, true, nil
}

// BulkLoad implements starpipe.Sink using a write batch.
func (s *Sink) BulkLoad(table string, rows []starpipe.Row) error {
	batch := new(leveldb.Batch)
	for _, row := range rows {
		buf, err := json.Marshal(row)
		if err != nil {
			return errors.Wrap(err, "encoding row")
		}
		batch.Put(rowKey(table, starpipe.RowKey(table, row)), buf)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrapf(starpipe.ErrSinkUnavailable, "bulk loading %s: %v", table, err)
	}
	return nil
}

// Scan implements starpipe.Sink.
func (s *Sink) Scan(table string, fn func(key string, row starpipe.Row) error) error {
	iter := s.db.NewIterator(util.BytesPrefix(rowKey(table, "")), nil)
	defer iter.Release()
	prefixLen := len(table) + 1
	for iter.Next() {
		var row starpipe.Row
		if err := json.Unmarshal(iter.Value(), &row); err != nil {
			return errors.Wrap(err, "decoding row")
		}
		if err := fn(string(iter.Key()[prefixLen:]), row); err != nil {
			return err
		}
	}
	return errors.Wrapf(iter.Error(), "scanning %s", table)
}

// Close closes the underlying db.
func (s *Sink) Close() error {
	return s.db.Close()
}
