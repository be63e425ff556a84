// Package events defines the downstream notification emitted for every
// published conversation turn.
package events

import (
	"context"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
)

type TurnEvent struct {
	SessionID            string            `json:"sessionId"`
	Generation           uint64            `json:"generation"`
	Index                int               `json:"index"`
	InvestigatorLanguage string            `json:"investigatorLanguage"`
	ParticipantLanguage  string            `json:"participantLanguage"`
	Turn                 conversation.Turn `json:"turn"`
}

type Publisher interface {
	PublishTurn(ctx context.Context, event TurnEvent) error
	Close() error
}
