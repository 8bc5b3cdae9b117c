package starpipe

import (
	"sort"

	"github.com/pkg/errors"
)

// Matcher resolves a play event to its song and artist dimension keys.
// Implementations define the matching strategy; the rest of the
// pipeline only sees the resolved pair. ok is false when no catalog
// entry matches - the event is still recorded, with null keys.
type Matcher interface {
	Resolve(ev PlayEvent) (songID, artistID string, ok bool)
}

type matchKey struct {
	title    string
	artist   string
	duration float64
}

type matchHit struct {
	songID   string
	artistID string
}

// ExactMatcher matches a play event against the committed catalog by
// exact equality on (title, artist name, duration). Title and artist
// name are case sensitive and duration has no tolerance window - the
// catalog and the logs are assumed to round consistently. When more
// than one song matches, the lexicographically smallest song_id wins
// so results are reproducible.
type ExactMatcher struct {
	index map[matchKey]matchHit
}

// NewExactMatcher builds an ExactMatcher from the committed songs and
// artists tables of sink. It must only be called after the dimension
// load has committed; it reads sink state, not in-memory pipeline
// intermediates.
func NewExactMatcher(sink Sink) (*ExactMatcher, error) {
	names := make(map[string]string)
	err := sink.Scan(TableArtists, func(key string, row Row) error {
		names[key] = fieldString(row, "name")
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning artists")
	}

	byKey := make(map[matchKey][]matchHit)
	err = sink.Scan(TableSongs, func(key string, row Row) error {
		artistID := fieldString(row, "artist_id")
		name, ok := names[artistID]
		if !ok || name == "" {
			// A song whose artist row never arrived can't be matched
			// by artist name.
			return nil
		}
		dur, ok := fieldFloat(row, "duration")
		if !ok {
			return nil
		}
		k := matchKey{
			title:    fieldString(row, "title"),
			artist:   name,
			duration: dur,
		}
		byKey[k] = append(byKey[k], matchHit{songID: key, artistID: artistID})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning songs")
	}

	index := make(map[matchKey]matchHit, len(byKey))
	for k, hits := range byKey {
		sort.Slice(hits, func(i, j int) bool { return hits[i].songID < hits[j].songID })
		index[k] = hits[0]
	}
	return &ExactMatcher{index: index}, nil
}

// Resolve implements Matcher.
func (m *ExactMatcher) Resolve(ev PlayEvent) (songID, artistID string, ok bool) {
	hit, ok := m.index[matchKey{title: ev.Song, artist: ev.Artist, duration: ev.Length}]
	if !ok {
		return "", "", false
	}
	return hit.songID, hit.artistID, true
}
