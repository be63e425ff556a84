package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// slotChangedChannel carries the key of every saved conversation slot.
const slotChangedChannel = "conversation_changed"

// invalidTextRepresentation is reported for malformed UUIDs.
const invalidTextRepresentation = "22P02"

type PostgresRepository struct {
	pool     *pgxpool.Pool
	listener *slotListener
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool:     pool,
		listener: newSlotListener(pool),
	}
}

func (r *PostgresRepository) Shutdown() {
	r.listener.stop()
	r.pool.Close()
}

// notFoundOr maps lookups that cannot match any row to ErrNotFound.
func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return repository.ErrNotFound
	}
	return err
}

const sessionColumns = `id, investigator_language, participant_language, participant_role, started_at, ended_at, status, turn_count`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	var endedAt *time.Time
	var status string
	err := row.Scan(&s.ID, &s.InvestigatorLanguage, &s.ParticipantLanguage, &s.ParticipantRole, &s.StartedAt, &endedAt, &status, &s.TurnCount)
	if err != nil {
		return nil, err
	}
	s.EndedAt = endedAt
	s.Status = repository.SessionStatus(status)
	return &s, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO interview_sessions (investigator_language, participant_language, participant_role, started_at, status)
		 VALUES ($1, $2, $3, $4, 'running')
		 RETURNING `+sessionColumns,
		input.InvestigatorLanguage, input.ParticipantLanguage, input.ParticipantRole, input.StartedAt)
	return scanSession(row)
}

func (r *PostgresRepository) UpdateSessionCompleted(ctx context.Context, input repository.CompleteSessionInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions SET status = 'completed', ended_at = $2, turn_count = $3 WHERE id = $1`,
		input.SessionID, input.EndedAt, input.TurnCount)
	if err != nil {
		return notFoundOr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`,
		sessionID)
	s, err := scanSession(row)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return s, nil
}

func (r *PostgresRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM conversation_slots WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conversation.ErrSlotEmpty
		}
		return nil, err
	}
	return []byte(value), nil
}

// Save upserts the slot and notifies listeners when the transaction commits.
func (r *PostgresRepository) Save(ctx context.Context, key string, value []byte) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_slots (key, value, updated_at) VALUES ($1, $2, NOW())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			key, string(value)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, slotChangedChannel, key)
		return err
	})
}

// Watch subscribes to change notifications for key. All watchers share the
// repository's single LISTEN connection; the channel is closed when ctx ends.
func (r *PostgresRepository) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	r.listener.start()
	ch := r.listener.hub.subscribe(key)
	go func() {
		<-ctx.Done()
		r.listener.hub.unsubscribe(key, ch)
	}()
	return ch, nil
}
