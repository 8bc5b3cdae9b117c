package starpipe

import "github.com/google/uuid"

// FactAssembler combines a retained play event with its catalog match
// into a songplay fact row. It mutates nothing; each call produces one
// row with a fresh surrogate key.
type FactAssembler struct {
	matcher Matcher
}

// NewFactAssembler gets a FactAssembler resolving against matcher.
func NewFactAssembler(matcher Matcher) *FactAssembler {
	return &FactAssembler{matcher: matcher}
}

// Assemble produces the fact row for a play event. The surrogate
// songplay_id is a random UUID - globally unique, carrying no ordering
// meaning.
func (a *FactAssembler) Assemble(ev PlayEvent) SongplayFact {
	songID, artistID, _ := a.matcher.Resolve(ev)
	return SongplayFact{
		SongplayID: uuid.NewString(),
		StartTime:  ev.StartTime(),
		UserID:     ev.UserID,
		Level:      ev.Level,
		SongID:     songID,
		ArtistID:   artistID,
		SessionID:  ev.SessionID,
		Location:   ev.Location,
		UserAgent:  ev.UserAgent,
	}
}
