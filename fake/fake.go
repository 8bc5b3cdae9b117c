// Package fake generates random catalog records and play events in
// the shape the pipeline ingests. It is used for tests and for
// producing sample data sets with the fakegen command. The same seed
// gives the same series of records on a given version of Go.
package fake

import (
	"fmt"
	"math/rand"
	"time"
)

var (
	words = []string{
		"Midnight", "River", "Golden", "Echo", "Paper", "Violet",
		"Thunder", "Glass", "Northern", "Silver", "Hollow", "Wild",
		"Morning", "Neon", "Quiet", "Burning", "Lost", "Electric",
	}
	firstNames = []string{"Ava", "Liam", "Noah", "Mia", "Zoe", "Eli", "Ivy", "Max"}
	lastNames  = []string{"Reed", "Hart", "Cole", "Lane", "Fox", "Shaw", "Page", "Dean"}
	locations  = []string{
		"San Jose-Sunnyvale-Santa Clara, CA",
		"Portland-South Portland, ME",
		"Chicago-Naperville-Elgin, IL-IN-WI",
		"Atlanta-Sandy Springs-Roswell, GA",
	}
	userAgents = []string{
		`"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_4)"`,
		`"Mozilla/5.0 (Windows NT 6.1; WOW64; rv:31.0)"`,
		`"Mozilla/5.0 (iPhone; CPU iPhone OS 7_1_2 like Mac OS X)"`,
	}
	otherPages = []string{"Home", "Logout", "Settings", "Help", "Upgrade"}
)

type catalogEntry struct {
	title    string
	artist   string
	duration float64
}

// Generator generates random catalog records and play events. Not
// threadsafe.
type Generator struct {
	r       *rand.Rand
	catalog []catalogEntry
	nextTS  int64
}

// NewGenerator gets a Generator for the given seed. Event timestamps
// start at the start of 2018 and advance a few seconds per event.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		r:      rand.New(rand.NewSource(seed)),
		nextTS: time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func (g *Generator) title() string {
	return words[g.r.Intn(len(words))] + " " + words[g.r.Intn(len(words))]
}

// CatalogRecord generates a random song catalog record. Generated
// songs are remembered so that later events can reference them.
func (g *Generator) CatalogRecord() map[string]interface{} {
	n := len(g.catalog)
	e := catalogEntry{
		title:    g.title(),
		artist:   "The " + words[g.r.Intn(len(words))] + "s",
		duration: float64(g.r.Intn(300000)+60000) / 1000.0,
	}
	g.catalog = append(g.catalog, e)
	rec := map[string]interface{}{
		"song_id":         fmt.Sprintf("SO%08d", n),
		"title":           e.title,
		"artist_id":       fmt.Sprintf("AR%08d", n),
		"artist_name":     e.artist,
		"artist_location": locations[g.r.Intn(len(locations))],
		"year":            float64(1960 + g.r.Intn(60)),
		"duration":        e.duration,
		"num_songs":       float64(1),
	}
	if g.r.Intn(2) == 0 {
		rec["artist_latitude"] = g.r.Float64()*180 - 90
		rec["artist_longitude"] = g.r.Float64()*360 - 180
	}
	return rec
}

// Event generates a random log event. Most events are NextSong plays;
// of those, most reference a previously generated catalog record and
// the rest name songs the catalog has never seen, so generated data
// exercises the unmatched-play path.
func (g *Generator) Event() map[string]interface{} {
	g.nextTS += int64(g.r.Intn(10000))
	uid := g.r.Intn(50) + 1
	level := "free"
	if g.r.Intn(4) == 0 {
		level = "paid"
	}
	ev := map[string]interface{}{
		"ts":        float64(g.nextTS),
		"userId":    fmt.Sprintf("%d", uid),
		"firstName": firstNames[uid%len(firstNames)],
		"lastName":  lastNames[uid%len(lastNames)],
		"gender":    []string{"F", "M"}[uid%2],
		"level":     level,
		"sessionId": float64(g.r.Intn(1000)),
		"location":  locations[uid%len(locations)],
		"userAgent": userAgents[uid%len(userAgents)],
	}
	if g.r.Intn(10) == 0 || len(g.catalog) == 0 {
		ev["page"] = otherPages[g.r.Intn(len(otherPages))]
		return ev
	}
	ev["page"] = "NextSong"
	if g.r.Intn(4) == 0 {
		ev["song"] = g.title()
		ev["artist"] = "Unknown " + words[g.r.Intn(len(words))]
		ev["length"] = float64(g.r.Intn(300000)) / 1000.0
	} else {
		e := g.catalog[g.r.Intn(len(g.catalog))]
		ev["song"] = e.title
		ev["artist"] = e.artist
		ev["length"] = e.duration
	}
	return ev
}
