// Package conversation holds the shared, durable conversation feed that the
// translation stage writes and every viewer reads.
package conversation

import (
	"time"

	"github.com/foxseedlab/interviewfeed/internal/speaker"
)

// Turn is one finalized, role-normalized utterance. Immutable once published.
type Turn struct {
	ID                  string       `json:"id"`
	Role                speaker.Role `json:"speaker"`
	OriginalText        string       `json:"originalText"`
	OriginalLanguage    string       `json:"originalLanguage"`
	InvestigatorDisplay string       `json:"investigatorDisplay"`
	ParticipantDisplay  string       `json:"participantDisplay"`
	Timestamp           time.Time    `json:"timestamp"`
}

type Languages struct {
	Investigator string
	Participant  string
}

// Record is the payload persisted in the shared slot. It is always
// replaced wholesale.
type Record struct {
	Translations         []Turn `json:"translations"`
	LastUpdated          string `json:"lastUpdated"`
	InvestigatorLanguage string `json:"investigatorLanguage"`
	ParticipantLanguage  string `json:"participantLanguage"`
	Generation           uint64 `json:"generation"`
}

func emptyRecord() Record {
	return Record{Translations: []Turn{}}
}

func (r Record) sameAs(other Record) bool {
	return r.Generation == other.Generation &&
		r.LastUpdated == other.LastUpdated &&
		len(r.Translations) == len(other.Translations)
}
