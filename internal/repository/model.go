package repository

import "time"

type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
)

type Session struct {
	ID                   string
	InvestigatorLanguage string
	ParticipantLanguage  string
	ParticipantRole      string
	StartedAt            time.Time
	EndedAt              *time.Time
	Status               SessionStatus
	TurnCount            int
}
