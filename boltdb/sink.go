package boltdb

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/starpipe"
	"github.com/pkg/errors"
)

// Sink is a starpipe.Sink backed by a single bolt file, one bucket per
// table, rows stored as json. Bolt's single-writer transactions give
// us the insert-if-absent primitive for free.
type Sink struct {
	db *bolt.DB
}

// NewSink opens (creating if necessary) a bolt sink at filename.
func NewSink(filename string) (*Sink, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(starpipe.ErrSinkUnavailable, "opening db file '%v': %v", filename, err)
	}
	return &Sink{db: db}, nil
}

// Upsert implements starpipe.Sink - insert-if-absent.
func (s *Sink) Upsert(table, key string, row starpipe.Row) (bool, error) {
	inserted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return errors.Wrap(err, "creating bucket")
		}
		if b.Get([]byte(key)) != nil {
			return nil
		}
		buf, err := encodeRow(row)
		if err != nil {
			return err
		}
		inserted = true
		return b.Put([]byte(key), buf)
	})
	if err != nil {
		return false, errors.Wrapf(starpipe.ErrSinkUnavailable, "upserting %s/%s: %v", table, key, err)
	}
	return inserted, nil
}

// Put implements starpipe.Sink - unconditional write.
func (s *Sink) Put(table, key string, row starpipe.Row) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return errors.Wrap(err, "creating bucket")
		}
		buf, err := encodeRow(row)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), buf)
	})
	if err != nil {
		return errors.Wrapf(starpipe.ErrSinkUnavailable, "putting %s/%s: %v", table, key, err)
	}
	return nil
}

// Get implements starpipe.Sink.
func (s *Sink) Get(table, key string) (starpipe.Row, bool, error) {
	var row starpipe.Row
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		buf := b.Get([]byte(key))
		if buf == nil {
			return nil
		}
		found = true
		var err error
		row, err = decodeRow(buf)
		return err
	})
	if err != nil {
		return nil, false, errors.Wrapf(starpipe.ErrSinkUnavailable, "getting %s/%s: %v", table, key, err)
	}
	return row, found, nil
}

// BulkLoad implements starpipe.Sink. All rows land in one transaction.
func (s *Sink) BulkLoad(table string, rows []starpipe.Row) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return errors.Wrap(err, "creating bucket")
		}
		for _, row := range rows {
			buf, err := encodeRow(row)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(starpipe.RowKey(table, row)), buf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(starpipe.ErrSinkUnavailable, "bulk loading %s: %v", table, err)
	}
	return nil
}

// Scan implements starpipe.Sink. Bolt iterates keys in byte order.
func (s *Sink) Scan(table string, fn func(key string, row starpipe.Row) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			row, err := decodeRow(v)
			if err != nil {
				return err
			}
			return fn(string(k), row)
		})
	})
	return errors.Wrapf(err, "scanning %s", table)
}

// Close syncs and closes the underlying db.
func (s *Sink) Close() error {
	return s.db.Close()
}

func encodeRow(row starpipe.Row) ([]byte, error) {
	buf, err := json.Marshal(row)
	return buf, errors.Wrap(err, "encoding row")
}

func decodeRow(buf []byte) (starpipe.Row, error) {
	var row starpipe.Row
	err := json.Unmarshal(buf, &row)
	return row, errors.Wrap(err, "decoding row")
}
