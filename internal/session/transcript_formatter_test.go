package session

import (
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/speaker"
)

func sampleTurns(start time.Time) []conversation.Turn {
	return []conversation.Turn{
		{
			ID:                  "t1",
			Role:                speaker.Investigator,
			OriginalText:        "Where were you?",
			OriginalLanguage:    "en",
			InvestigatorDisplay: "Where were you?",
			ParticipantDisplay:  "أين كنت؟",
			Timestamp:           start.Add(5 * time.Second),
		},
		{
			ID:                  "t2",
			Role:                speaker.Witness,
			OriginalText:        "Home",
			OriginalLanguage:    "en",
			InvestigatorDisplay: "Home",
			ParticipantDisplay:  "Home",
			Timestamp:           start.Add(time.Hour + 2*time.Minute + 3*time.Second),
		},
	}
}

func TestBuildTranscriptText(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := conversation.Record{
		Translations:         sampleTurns(start),
		InvestigatorLanguage: "en-US",
		ParticipantLanguage:  "ar-SA",
	}
	got := string(buildTranscriptText("s1", rec, start, "UTC", time.UTC))

	for _, want := range []string{
		"Session: s1",
		"Started: 2026-03-01 10:00:00 (UTC)",
		"Languages: investigator=en-US participant=ar-SA",
		"00:00:05 Investigator: Where were you?",
		"> أين كنت؟",
		"01:02:03 Witness: Home",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("transcript missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, ">") != 1 {
		t.Fatalf("untranslated turn should not carry a translation line:\n%s", got)
	}
}

func TestBuildTranscriptWebhookPayload(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	s := &Session{ID: "s1", StartedAt: start, Languages: enAr}

	payload := buildTranscriptWebhookPayload(s, sampleTurns(start), end, "UTC", nil)
	if payload.DurationSeconds != 7200 {
		t.Fatalf("duration = %d", payload.DurationSeconds)
	}
	if payload.TurnCount != 2 || len(payload.Turns) != 2 {
		t.Fatalf("turn count = %d/%d", payload.TurnCount, len(payload.Turns))
	}
	if payload.Turns[0].EndAt != payload.Turns[1].StartAt {
		t.Fatalf("turn 0 should end when turn 1 starts: %+v", payload.Turns)
	}
	if payload.Turns[1].EndAt != end.Format(time.RFC3339) {
		t.Fatalf("last turn should end with the session, got %s", payload.Turns[1].EndAt)
	}
	if payload.Transcript != "Investigator: Where were you?\nWitness: Home" {
		t.Fatalf("transcript = %q", payload.Transcript)
	}
	if payload.InvestigatorLanguage != "en-US" || payload.ParticipantLanguage != "ar-SA" {
		t.Fatalf("languages = %q/%q", payload.InvestigatorLanguage, payload.ParticipantLanguage)
	}
}

func TestFormatElapsedHMS(t *testing.T) {
	if got := formatElapsedHMS(3*time.Hour + 4*time.Minute + 5*time.Second); got != "03:04:05" {
		t.Fatalf("got %s", got)
	}
}
