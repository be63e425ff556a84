package conversation

import (
	"strings"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/speaker"
)

type Viewer string

const (
	ViewerInvestigator Viewer = "investigator"
	ViewerParticipant  Viewer = "participant"
)

// ParseViewer accepts "witness" as an alias of the participant view.
func ParseViewer(s string) (Viewer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ViewerInvestigator):
		return ViewerInvestigator, true
	case string(ViewerParticipant), "witness":
		return ViewerParticipant, true
	default:
		return "", false
	}
}

// ViewTurn is what a single viewer is allowed to see of a Turn.
type ViewTurn struct {
	ID        string       `json:"id"`
	Speaker   speaker.Role `json:"speaker"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
}

func Project(rec Record, viewer Viewer) []ViewTurn {
	out := make([]ViewTurn, 0, len(rec.Translations))
	for _, t := range rec.Translations {
		text := t.ParticipantDisplay
		if viewer == ViewerInvestigator {
			text = t.InvestigatorDisplay
		}
		out = append(out, ViewTurn{
			ID:        t.ID,
			Speaker:   t.Role,
			Text:      text,
			Timestamp: t.Timestamp,
		})
	}
	return out
}
