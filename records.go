package starpipe

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Row is a single table row keyed by column name, as delivered to a
// Sink. Values are strings, int64s, float64s, time.Times, or nil for
// SQL-null columns.
type Row map[string]interface{}

// Table names for the star schema.
const (
	TableSongs     = "songs"
	TableArtists   = "artists"
	TableUsers     = "users"
	TableTime      = "time"
	TableSongplays = "songplays"
)

// PageNextSong is the event page value identifying an actual song
// play. Events with any other page are dropped before transformation.
const PageNextSong = "NextSong"

// SongRecord is a row of the songs dimension. Songs are immutable once
// ingested - later catalog records with the same SongID are ignored.
type SongRecord struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int64 // 0 means unknown
	Duration float64
}

// Key returns the song's primary key.
func (s SongRecord) Key() string { return s.SongID }

// Row returns the sink row for the song.
func (s SongRecord) Row() Row {
	return Row{
		"song_id":   s.SongID,
		"title":     s.Title,
		"artist_id": s.ArtistID,
		"year":      s.Year,
		"duration":  s.Duration,
	}
}

// ArtistRecord is a row of the artists dimension. First write wins per
// ArtistID. Geohash is derived from Latitude/Longitude when both are
// present.
type ArtistRecord struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
	Geohash   string
}

// Key returns the artist's primary key.
func (a ArtistRecord) Key() string { return a.ArtistID }

// Row returns the sink row for the artist.
func (a ArtistRecord) Row() Row {
	r := Row{
		"artist_id": a.ArtistID,
		"name":      a.Name,
		"location":  nullString(a.Location),
		"latitude":  nil,
		"longitude": nil,
		"geohash":   nullString(a.Geohash),
	}
	if a.Latitude != nil {
		r["latitude"] = *a.Latitude
	}
	if a.Longitude != nil {
		r["longitude"] = *a.Longitude
	}
	return r
}

// PlayEvent is a single entry from the play log. It is never persisted
// directly; it is consumed to produce user and time dimension rows and
// one songplay fact row.
type PlayEvent struct {
	TS        int64 // epoch milliseconds
	Page      string
	Song      string
	Artist    string
	Length    float64
	UserID    int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
	SessionID int64
	Location  string
	UserAgent string
}

// StartTime returns the event timestamp as a UTC time truncated to the
// second. This is the join key into the time dimension.
func (e PlayEvent) StartTime() time.Time {
	return time.UnixMilli(e.TS).UTC().Truncate(time.Second)
}

// UserRecord is a row of the users dimension. Level reflects the most
// recent event for the user; LevelTS records the timestamp of the
// event that set it so that overlapping batches and re-runs resolve
// deterministically.
type UserRecord struct {
	UserID    int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
	LevelTS   int64
}

// Key returns the user's primary key.
func (u UserRecord) Key() string { return strconv.FormatInt(u.UserID, 10) }

// Row returns the sink row for the user.
func (u UserRecord) Row() Row {
	return Row{
		"user_id":    u.UserID,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"gender":     u.Gender,
		"level":      u.Level,
		"level_ts":   u.LevelTS,
	}
}

// TimeRecord is a row of the time dimension - calendar attributes
// derived from an event start time. One row exists per distinct
// StartTime. Weekday is the ISO weekday, 1 (Monday) through 7
// (Sunday).
type TimeRecord struct {
	StartTime time.Time
	Hour      int64
	Day       int64
	Week      int64
	Month     int64
	Year      int64
	Weekday   int64
}

// Key returns the time row's primary key.
func (t TimeRecord) Key() string { return TimeKey(t.StartTime) }

// Row returns the sink row for the time record.
func (t TimeRecord) Row() Row {
	return Row{
		"start_time": t.StartTime,
		"hour":       t.Hour,
		"day":        t.Day,
		"week":       t.Week,
		"month":      t.Month,
		"year":       t.Year,
		"weekday":    t.Weekday,
	}
}

// TimeKey returns the sink key for a time dimension row.
func TimeKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SongplayFact is a row of the songplays fact table. SongID and
// ArtistID are empty when the play could not be matched against the
// catalog; the row is still recorded.
type SongplayFact struct {
	SongplayID string
	StartTime  time.Time
	UserID     int64
	Level      string
	SongID     string
	ArtistID   string
	SessionID  int64
	Location   string
	UserAgent  string
}

// Key returns the fact's surrogate key.
func (f SongplayFact) Key() string { return f.SongplayID }

// Row returns the sink row for the fact.
func (f SongplayFact) Row() Row {
	return Row{
		"songplay_id": f.SongplayID,
		"start_time":  f.StartTime,
		"user_id":     f.UserID,
		"level":       f.Level,
		"song_id":     nullString(f.SongID),
		"artist_id":   nullString(f.ArtistID),
		"session_id":  f.SessionID,
		"location":    f.Location,
		"user_agent":  f.UserAgent,
	}
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ParseCatalogRecord parses a raw song-catalog record into its song
// and artist halves. The raw record embeds both, as produced by the
// catalog dumps (song_id/title/year/duration plus the artist_*
// fields). A missing required field makes the whole record malformed.
func ParseCatalogRecord(rec map[string]interface{}) (SongRecord, ArtistRecord, error) {
	var song SongRecord
	var artist ArtistRecord

	song.SongID = fieldString(rec, "song_id")
	song.Title = fieldString(rec, "title")
	song.ArtistID = fieldString(rec, "artist_id")
	song.Year, _ = fieldInt(rec, "year")
	artist.ArtistID = song.ArtistID
	artist.Name = fieldString(rec, "artist_name")
	artist.Location = fieldString(rec, "artist_location")

	if song.SongID == "" || song.Title == "" || song.ArtistID == "" || artist.Name == "" {
		return song, artist, malformedf("catalog record missing required field: %v", rec)
	}
	dur, ok := fieldFloat(rec, "duration")
	if !ok || dur <= 0 {
		return song, artist, malformedf("catalog record has invalid duration: %v", rec["duration"])
	}
	song.Duration = dur

	if lat, ok := fieldFloat(rec, "artist_latitude"); ok {
		artist.Latitude = &lat
	}
	if lon, ok := fieldFloat(rec, "artist_longitude"); ok {
		artist.Longitude = &lon
	}
	return song, artist, nil
}

// ParsePlayEvent parses a raw log record into a PlayEvent. Callers
// filter on page == PageNextSong before parsing; for retained events a
// missing timestamp or user id is malformed, since every fact row must
// carry both.
func ParsePlayEvent(rec map[string]interface{}) (PlayEvent, error) {
	var ev PlayEvent
	ev.Page = fieldString(rec, "page")

	ts, ok := fieldInt(rec, "ts")
	if !ok || ts <= 0 {
		return ev, malformedf("event has invalid ts: %v", rec["ts"])
	}
	ev.TS = ts

	uid, ok := fieldInt(rec, "userId")
	if !ok {
		return ev, malformedf("event has invalid userId: %v", rec["userId"])
	}
	ev.UserID = uid

	ev.Song = fieldString(rec, "song")
	ev.Artist = fieldString(rec, "artist")
	ev.Length, _ = fieldFloat(rec, "length")
	ev.FirstName = fieldString(rec, "firstName")
	ev.LastName = fieldString(rec, "lastName")
	ev.Gender = fieldString(rec, "gender")
	ev.Level = fieldString(rec, "level")
	ev.SessionID, _ = fieldInt(rec, "sessionId")
	ev.Location = fieldString(rec, "location")
	ev.UserAgent = fieldString(rec, "userAgent")
	return ev, nil
}

// Page returns the page field of a raw log record without fully
// parsing it, so non-plays can be dropped cheaply.
func Page(rec map[string]interface{}) string {
	return fieldString(rec, "page")
}

// fieldString fetches a string field from a raw record, tolerating
// absent and null values.
func fieldString(rec map[string]interface{}, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// fieldFloat fetches a numeric field. JSON decoding yields float64,
// CSV sources yield strings, and sink round-trips may yield ints, so
// all three are accepted.
func fieldFloat(rec map[string]interface{}, key string) (float64, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, false
	}
	switch vt := v.(type) {
	case float64:
		return vt, true
	case int64:
		return float64(vt), true
	case int:
		return float64(vt), true
	case string:
		if strings.TrimSpace(vt) == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(vt, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// fieldInt fetches an integral field with the same tolerance as
// fieldFloat. Floats with a fractional part are rejected rather than
// silently truncated.
func fieldInt(rec map[string]interface{}, key string) (int64, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, false
	}
	switch vt := v.(type) {
	case int64:
		return vt, true
	case int:
		return int64(vt), true
	case float64:
		i := int64(vt)
		if float64(i) != vt {
			return 0, false
		}
		return i, true
	case string:
		if strings.TrimSpace(vt) == "" {
			return 0, false
		}
		i, err := strconv.ParseInt(vt, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func malformedf(format string, args ...interface{}) error {
	return &MalformedRecordError{reason: errors.Errorf(format, args...).Error()}
}
