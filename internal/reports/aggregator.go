// Package reports builds point-in-time summaries of a call session's logged
// answers, snapshots them into immutable user reports on confirmation, and
// re-derives filtered views over historical reports.
package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/session"
	"github.com/fieldvoice/ivr-platform/internal/voice"
	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

// SessionLog is the slice of the session store the report components read.
type SessionLog interface {
	IterationStart(ctx context.Context, sessionID, startElementID uuid.UUID) (time.Time, error)
	LatestChoice(ctx context.Context, sessionID, choiceElementID uuid.UUID, since time.Time) (*session.ChoiceEntry, error)
	LatestInput(ctx context.Context, sessionID, recordElementID uuid.UUID, since time.Time) (*session.InputEntry, error)
}

// LabelResolver resolves voice labels to audio URLs.
type LabelResolver interface {
	Resolve(ctx context.Context, labelID uuid.UUID, language string) (string, error)
	ResolveRef(ctx context.Context, ref uuid.NullUUID, language string) (string, error)
}

// Aggregator builds report summaries and commits confirmed submissions.
type Aggregator struct {
	db       *sql.DB
	sessions SessionLog
	labels   LabelResolver
	logger   *logging.Logger
}

func NewAggregator(db *sql.DB, sessions SessionLog, labels LabelResolver, logger *logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{db: db, sessions: sessions, labels: labels, logger: logger}
}

// Summary resolves, in declaration order, the latest logged answer for every
// content of the report since the iteration boundary. Unanswered contents are
// silently omitted. since may be the zero time, meaning no boundary.
func (a *Aggregator) Summary(ctx context.Context, report *ivr.Element, sess *session.CallSession, since time.Time) ([]voice.Line, error) {
	var lines []voice.Line
	for _, rc := range report.Contents {
		switch rc.ContentKind {
		case ivr.KindChoice:
			entry, err := a.sessions.LatestChoice(ctx, sess.ID, rc.ContentElementID, since)
			if err != nil {
				return nil, err
			}
			if entry == nil {
				continue
			}
			label, err := a.labels.ResolveRef(ctx, rc.VoiceLabelID, sess.Language)
			if err != nil {
				return nil, fmt.Errorf("summary label for %s: %w", rc.Name, err)
			}
			value, err := a.labels.ResolveRef(ctx, entry.OptionLabelID, sess.Language)
			if err != nil {
				return nil, fmt.Errorf("summary value for %s: %w", rc.Name, err)
			}
			lines = append(lines, voice.Line{LabelURL: label, ValueURL: value})
		case ivr.KindRecord:
			entry, err := a.sessions.LatestInput(ctx, sess.ID, rc.ContentElementID, since)
			if err != nil {
				return nil, err
			}
			if entry == nil {
				continue
			}
			label, err := a.labels.ResolveRef(ctx, rc.VoiceLabelID, sess.Language)
			if err != nil {
				return nil, fmt.Errorf("summary label for %s: %w", rc.Name, err)
			}
			lines = append(lines, voice.Line{LabelURL: label, ValueURL: entry.AudioURL})
		default:
			// Validators reject other kinds at authoring time.
			a.logger.Warn("report content of unexpected kind skipped",
				"report", report.Name, "content", rc.Name, "kind", rc.ContentKind)
		}
	}
	return lines, nil
}

// Commit creates a UserReport and claims the latest answer per content by
// repointing that log entry's report reference at the new report. The entry
// is reassigned, not copied: it becomes the permanent record of the answer.
// Earlier answers for the same content stay orphaned with no audit trail.
// The insert and every reattachment happen in one transaction.
func (a *Aggregator) Commit(ctx context.Context, report *ivr.Element, sess *session.CallSession, since time.Time) (*session.UserReport, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("commit report: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ur := &session.UserReport{
		ID:              uuid.New(),
		SessionID:       sess.ID,
		ReportElementID: report.ID,
		CreatedAt:       time.Now(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_reports (id, session_id, report_element_id, created_at)
		VALUES ($1,$2,$3,$4)`,
		ur.ID, ur.SessionID, ur.ReportElementID, ur.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user report: %w", err)
	}

	for _, rc := range report.Contents {
		var table, column string
		switch rc.ContentKind {
		case ivr.KindChoice:
			table, column = "call_session_choices", "choice_element_id"
		case ivr.KindRecord:
			table, column = "spoken_user_inputs", "record_element_id"
		default:
			continue
		}
		query := fmt.Sprintf(`
			UPDATE %[1]s SET user_report_id = $1
			WHERE id = (
				SELECT id FROM %[1]s
				WHERE session_id = $2 AND %[2]s = $3`, table, column)
		args := []any{ur.ID, sess.ID, rc.ContentElementID}
		if !since.IsZero() {
			query += ` AND created_at >= $4`
			args = append(args, since)
		}
		query += `
				ORDER BY created_at DESC, id DESC LIMIT 1)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("attach %s to report: %w", rc.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit report: %w", err)
	}
	a.logger.Info("user report created",
		"user_report_id", ur.ID, "session_id", sess.ID, "report", report.Name)
	return ur, nil
}
