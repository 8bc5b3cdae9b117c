package starpipe

import (
	"hash/fnv"
	"sync"

	"github.com/mmcloughlin/geohash"
	"github.com/pkg/errors"
)

// geohashChars is the precision of the derived artist location
// geohash.
const geohashChars = 12

// lockStripes bounds the number of distinct per-key mutexes. Two
// writers for the same key always serialize; writers for different
// keys rarely do.
const lockStripes = 64

// DimensionResolver writes dimension rows to a Sink applying the dedup
// and update-precedence rules: songs and artists are first-write-wins,
// users are last-write-wins on subscription level ordered by event
// timestamp, time rows are deduplicated by start time. A
// DimensionResolver is safe for concurrent use.
type DimensionResolver struct {
	sink  Sink
	locks [lockStripes]sync.Mutex
}

// NewDimensionResolver gets a DimensionResolver writing to sink.
func NewDimensionResolver(sink Sink) *DimensionResolver {
	return &DimensionResolver{sink: sink}
}

// AddCatalog upserts the song and artist halves of a catalog record,
// reporting which of the two rows were actually inserted - a key
// which already exists in the sink is skipped, never updated.
func (r *DimensionResolver) AddCatalog(song SongRecord, artist ArtistRecord) (songIns, artistIns bool, err error) {
	if artist.Latitude != nil && artist.Longitude != nil {
		artist.Geohash = geohash.EncodeWithPrecision(*artist.Latitude, *artist.Longitude, geohashChars)
	}
	songIns, err = r.upsert(TableSongs, song.Key(), song.Row())
	if err != nil {
		return songIns, false, errors.Wrap(err, "upserting song")
	}
	artistIns, err = r.upsert(TableArtists, artist.Key(), artist.Row())
	if err != nil {
		return songIns, artistIns, errors.Wrap(err, "upserting artist")
	}
	return songIns, artistIns, nil
}

// upsert serializes insert-if-absent per key so sinks whose Upsert is
// a non-atomic check-then-put still behave under concurrent batches.
func (r *DimensionResolver) upsert(table, key string, row Row) (bool, error) {
	lock := &r.locks[stripe(table+"/"+key)]
	lock.Lock()
	defer lock.Unlock()
	return r.sink.Upsert(table, key, row)
}

// AddUser applies a play event to the users dimension. The persisted
// level always reflects the event with the greatest timestamp applied
// so far, regardless of the order in which events arrive: the update
// is a read-modify-write under a per-key lock, comparing the stored
// level_ts against the incoming event. Returns whether a row was
// inserted and whether an existing row's level changed.
func (r *DimensionResolver) AddUser(ev PlayEvent) (inserted, updated bool, err error) {
	u := UserRecord{
		UserID:    ev.UserID,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
		Gender:    ev.Gender,
		Level:     ev.Level,
		LevelTS:   ev.TS,
	}
	key := u.Key()

	lock := &r.locks[stripe(TableUsers+"/"+key)]
	lock.Lock()
	defer lock.Unlock()

	existing, ok, err := r.sink.Get(TableUsers, key)
	if err != nil {
		return false, false, errors.Wrap(err, "reading user")
	}
	if !ok {
		if err := r.sink.Put(TableUsers, key, u.Row()); err != nil {
			return false, false, errors.Wrap(err, "inserting user")
		}
		return true, false, nil
	}
	prevTS, _ := fieldInt(existing, "level_ts")
	if ev.TS <= prevTS {
		return false, false, nil
	}
	updated = fieldString(existing, "level") != ev.Level
	if err := r.sink.Put(TableUsers, key, u.Row()); err != nil {
		return false, false, errors.Wrap(err, "updating user")
	}
	return false, updated, nil
}

// AddTime upserts the time dimension row for an event, reporting
// whether a new row was inserted.
func (r *DimensionResolver) AddTime(ev PlayEvent) (bool, error) {
	t := TimeRow(ev.TS)
	ok, err := r.upsert(TableTime, t.Key(), t.Row())
	return ok, errors.Wrap(err, "upserting time")
}

func stripe(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % lockStripes
}
