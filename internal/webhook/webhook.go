package webhook

import "context"

const TranscriptWebhookSchemaVersion = "1"

type TranscriptWebhookTurn struct {
	Index               int    `json:"index"`
	ID                  string `json:"id"`
	Speaker             string `json:"speaker"`
	StartAt             string `json:"start_at"`
	EndAt               string `json:"end_at"`
	OriginalText        string `json:"original_text"`
	OriginalLanguage    string `json:"original_language"`
	InvestigatorDisplay string `json:"investigator_display"`
	ParticipantDisplay  string `json:"participant_display"`
}

type TranscriptWebhookPayload struct {
	SchemaVersion        string                  `json:"schema_version"`
	SessionID            string                  `json:"session_id"`
	StartAt              string                  `json:"start_at"`
	EndAt                string                  `json:"end_at"`
	Timezone             string                  `json:"timezone"`
	DurationSeconds      int64                   `json:"duration_seconds"`
	InvestigatorLanguage string                  `json:"investigator_language"`
	ParticipantLanguage  string                  `json:"participant_language"`
	TurnCount            int                     `json:"turn_count"`
	Turns                []TranscriptWebhookTurn `json:"turns"`
	Transcript           string                  `json:"transcript"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptWebhookPayload) error
}
