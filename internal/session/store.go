package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
)

// ErrSessionNotFound is returned when a caller supplies a session id that is
// not known. A missing id is not an error; it means a new call.
var ErrSessionNotFound = errors.New("call session not found")

// Store persists call sessions and their append-only interaction logs.
//
// Turns within one session are sequential because the telephony transport
// delivers one request at a time per call. The latest-entry lookups below are
// the only guard against duplicated transport requests; that risk is accepted,
// not mitigated.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LookupOrCreate returns the session with the given id, or creates a fresh
// one bound to the service when no id is supplied. A supplied but unknown id
// fails with ErrSessionNotFound.
func (s *Store) LookupOrCreate(ctx context.Context, svc *ivr.VoiceService, sessionID string) (*CallSession, error) {
	if sessionID == "" {
		sess := &CallSession{
			ID:        uuid.New(),
			ServiceID: svc.ID,
			Language:  svc.DefaultLanguage,
			CreatedAt: time.Now(),
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO call_sessions (id, service_id, language, created_at)
			VALUES ($1,$2,$3,$4)`,
			sess.ID, sess.ServiceID, sess.Language, sess.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		return sess, nil
	}

	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return s.Get(ctx, id)
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*CallSession, error) {
	var sess CallSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, service_id, language, created_at
		FROM call_sessions WHERE id = $1`, id).Scan(
		&sess.ID, &sess.ServiceID, &sess.Language, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// RecordStep appends a visit of the given element to the step log.
func (s *Store) RecordStep(ctx context.Context, sess *CallSession, elementID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_session_steps (session_id, element_id, created_at)
		VALUES ($1,$2,$3)`, sess.ID, elementID, time.Now())
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// RecordChoice appends the selected option of a choice element.
func (s *Store) RecordChoice(ctx context.Context, sess *CallSession, choiceElementID, optionID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_session_choices (session_id, choice_element_id, choice_option_id, created_at)
		VALUES ($1,$2,$3,$4)`, sess.ID, choiceElementID, optionID, time.Now())
	if err != nil {
		return fmt.Errorf("record choice: %w", err)
	}
	return nil
}

// RecordInput appends a spoken recording made at a record element.
func (s *Store) RecordInput(ctx context.Context, sess *CallSession, recordElementID uuid.UUID, audioURL string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spoken_user_inputs (session_id, record_element_id, audio_url, created_at)
		VALUES ($1,$2,$3,$4)`, sess.ID, recordElementID, audioURL, time.Now())
	if err != nil {
		return fmt.Errorf("record input: %w", err)
	}
	return nil
}

// IterationStart returns the timestamp of the latest visit to the service's
// start element, the boundary since which current-call state is considered.
// The zero time means the start element was never stepped on; callers treat
// that as "no constraint".
func (s *Store) IterationStart(ctx context.Context, sessionID, startElementID uuid.UUID) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at FROM call_session_steps
		WHERE session_id = $1 AND element_id = $2
		ORDER BY created_at DESC, id DESC LIMIT 1`, sessionID, startElementID).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("iteration start: %w", err)
	}
	return t, nil
}

// LatestChoice returns the most recent choice entry for (session, element),
// restricted to entries at or after since when since is non-zero. It returns
// (nil, nil) when no entry qualifies.
func (s *Store) LatestChoice(ctx context.Context, sessionID, choiceElementID uuid.UUID, since time.Time) (*ChoiceEntry, error) {
	query := `
		SELECT c.id, c.session_id, c.choice_element_id, c.choice_option_id, o.voice_label_id, c.user_report_id, c.created_at
		FROM call_session_choices c
		JOIN choice_options o ON o.id = c.choice_option_id
		WHERE c.session_id = $1 AND c.choice_element_id = $2`
	args := []any{sessionID, choiceElementID}
	if !since.IsZero() {
		query += ` AND c.created_at >= $3`
		args = append(args, since)
	}
	query += ` ORDER BY c.created_at DESC, c.id DESC LIMIT 1`

	var e ChoiceEntry
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&e.ID, &e.SessionID, &e.ChoiceElementID, &e.OptionID, &e.OptionLabelID, &e.UserReportID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest choice: %w", err)
	}
	return &e, nil
}

// LatestInput returns the most recent spoken input for (session, element),
// restricted to entries at or after since when since is non-zero. It returns
// (nil, nil) when no entry qualifies.
func (s *Store) LatestInput(ctx context.Context, sessionID, recordElementID uuid.UUID, since time.Time) (*InputEntry, error) {
	query := `
		SELECT id, session_id, record_element_id, audio_url, user_report_id, created_at
		FROM spoken_user_inputs
		WHERE session_id = $1 AND record_element_id = $2`
	args := []any{sessionID, recordElementID}
	if !since.IsZero() {
		query += ` AND created_at >= $3`
		args = append(args, since)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	var e InputEntry
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&e.ID, &e.SessionID, &e.RecordElementID, &e.AudioURL, &e.UserReportID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest input: %w", err)
	}
	return &e, nil
}
