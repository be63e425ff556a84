package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/webhook"
)

// 変更容易性を高めるため、time.DateTime をあえて指定していない
const transcriptTimeLayout = "2006-01-02 15:04:05"

func buildTranscriptText(sessionID string, rec conversation.Record, startedAt time.Time, timezone string, loc *time.Location) []byte {
	turns := rec.Translations
	if startedAt.IsZero() && len(turns) > 0 {
		startedAt = turns[0].Timestamp
	}

	lines := []string{
		fmt.Sprintf("Session: %s", sessionID),
		fmt.Sprintf("Started: %s (%s)", startedAt.In(safeLocation(loc)).Format(transcriptTimeLayout), timezone),
		fmt.Sprintf("Languages: investigator=%s participant=%s", rec.InvestigatorLanguage, rec.ParticipantLanguage),
		"",
	}
	for _, turn := range turns {
		elapsed := turn.Timestamp.Sub(startedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", formatElapsedHMS(elapsed), turn.Role, turn.OriginalText))
		if translated := translationOf(turn); translated != "" {
			lines = append(lines, fmt.Sprintf("         > %s", translated))
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// translationOf returns the display text that differs from the original,
// or "" when the turn was not translated.
func translationOf(turn conversation.Turn) string {
	for _, display := range []string{turn.InvestigatorDisplay, turn.ParticipantDisplay} {
		if display != "" && display != turn.OriginalText {
			return display
		}
	}
	return ""
}

func buildTranscriptWebhookPayload(s *Session, turns []conversation.Turn, endedAt time.Time, timezone string, loc *time.Location) webhook.TranscriptWebhookPayload {
	loc = safeLocation(loc)
	transcriptLines := make([]string, 0, len(turns))
	for _, turn := range turns {
		transcriptLines = append(transcriptLines, fmt.Sprintf("%s: %s", turn.Role, turn.OriginalText))
	}

	durationSeconds := int64(endedAt.Sub(s.StartedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	return webhook.TranscriptWebhookPayload{
		SchemaVersion:        webhook.TranscriptWebhookSchemaVersion,
		SessionID:            s.ID,
		StartAt:              s.StartedAt.In(loc).Format(time.RFC3339),
		EndAt:                endedAt.In(loc).Format(time.RFC3339),
		Timezone:             timezone,
		DurationSeconds:      durationSeconds,
		InvestigatorLanguage: s.Languages.Investigator,
		ParticipantLanguage:  s.Languages.Participant,
		TurnCount:            len(turns),
		Turns:                buildTranscriptWebhookTurns(turns, endedAt, loc),
		Transcript:           strings.Join(transcriptLines, "\n"),
	}
}

func buildTranscriptWebhookTurns(turns []conversation.Turn, sessionEndedAt time.Time, loc *time.Location) []webhook.TranscriptWebhookTurn {
	out := make([]webhook.TranscriptWebhookTurn, 0, len(turns))
	for i, turn := range turns {
		turnEnd := sessionEndedAt
		if i+1 < len(turns) {
			turnEnd = turns[i+1].Timestamp
		}
		if turnEnd.Before(turn.Timestamp) {
			turnEnd = turn.Timestamp
		}
		out = append(out, webhook.TranscriptWebhookTurn{
			Index:               i,
			ID:                  turn.ID,
			Speaker:             string(turn.Role),
			StartAt:             turn.Timestamp.In(loc).Format(time.RFC3339),
			EndAt:               turnEnd.In(loc).Format(time.RFC3339),
			OriginalText:        turn.OriginalText,
			OriginalLanguage:    turn.OriginalLanguage,
			InvestigatorDisplay: turn.InvestigatorDisplay,
			ParticipantDisplay:  turn.ParticipantDisplay,
		})
	}
	return out
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
