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

// Retrieved is the outcome of a retrieve-reports turn: the filter answers
// echoed back to the caller and the surviving reports, newest first, each a
// list of label/value audio pairs.
type Retrieved struct {
	FilterSelections []voice.Line
	Reports          [][]voice.Line
}

// Retriever re-derives the set of past user reports matching the caller's
// current-iteration filter answers.
type Retriever struct {
	db       *sql.DB
	sessions SessionLog
	labels   LabelResolver
	logger   *logging.Logger
}

func NewRetriever(db *sql.DB, sessions SessionLog, labels LabelResolver, logger *logging.Logger) *Retriever {
	if logger == nil {
		logger = logging.Default()
	}
	return &Retriever{db: db, sessions: sessions, labels: labels, logger: logger}
}

type filterConstraint struct {
	choiceElementID uuid.UUID
	optionID        uuid.UUID
}

// Retrieve applies the element's filters against the session's answers since
// the iteration boundary t0 and returns the matching user reports of the
// target report element, newest first, truncated to the element's maximum.
// A filter whose choice was not answered this iteration applies no
// constraint; filters that do apply combine with logical AND.
func (r *Retriever) Retrieve(ctx context.Context, retrieve, reportElement *ivr.Element, sess *session.CallSession, t0 time.Time) (*Retrieved, error) {
	contentLabels := make(map[uuid.UUID]uuid.NullUUID, len(reportElement.Contents))
	for _, rc := range reportElement.Contents {
		contentLabels[rc.ContentElementID] = rc.VoiceLabelID
	}

	out := &Retrieved{}
	var constraints []filterConstraint
	filtered := make(map[uuid.UUID]bool, len(retrieve.Filters))

	for _, f := range retrieve.Filters {
		entry, err := r.sessions.LatestChoice(ctx, sess.ID, f.ChoiceElementID, t0)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		constraints = append(constraints, filterConstraint{
			choiceElementID: f.ChoiceElementID,
			optionID:        entry.OptionID,
		})
		filtered[f.ChoiceElementID] = true

		label, err := r.labels.ResolveRef(ctx, contentLabels[f.ChoiceElementID], sess.Language)
		if err != nil {
			return nil, fmt.Errorf("filter label: %w", err)
		}
		value, err := r.labels.ResolveRef(ctx, entry.OptionLabelID, sess.Language)
		if err != nil {
			return nil, fmt.Errorf("filter value: %w", err)
		}
		out.FilterSelections = append(out.FilterSelections, voice.Line{LabelURL: label, ValueURL: value})
	}

	candidates, err := r.candidateReports(ctx, reportElement.ID, constraints, retrieve.MaxAmount)
	if err != nil {
		return nil, err
	}

	for _, id := range candidates {
		lines, err := r.renderReport(ctx, id, contentLabels, filtered, sess.Language)
		if err != nil {
			return nil, err
		}
		out.Reports = append(out.Reports, lines)
	}
	return out, nil
}

func (r *Retriever) candidateReports(ctx context.Context, reportElementID uuid.UUID, constraints []filterConstraint, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT ur.id FROM user_reports ur
		WHERE ur.report_element_id = $1`
	args := []any{reportElementID}
	for _, c := range constraints {
		query += fmt.Sprintf(`
		AND EXISTS (
			SELECT 1 FROM call_session_choices cc
			WHERE cc.user_report_id = ur.id
			  AND cc.choice_element_id = $%d AND cc.choice_option_id = $%d)`,
			len(args)+1, len(args)+2)
		args = append(args, c.choiceElementID, c.optionID)
	}
	query += fmt.Sprintf(`
		ORDER BY ur.created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate reports: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// renderReport resolves every answer attached to one user report: choice
// answers first (excluding filter echoes), then recordings. Answers whose
// element is not declared as report content have no label to speak and are
// skipped.
func (r *Retriever) renderReport(ctx context.Context, userReportID uuid.UUID, contentLabels map[uuid.UUID]uuid.NullUUID, filtered map[uuid.UUID]bool, language string) ([]voice.Line, error) {
	var lines []voice.Line

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.choice_element_id, o.voice_label_id
		FROM call_session_choices c
		JOIN choice_options o ON o.id = c.choice_option_id
		WHERE c.user_report_id = $1 ORDER BY c.id ASC`, userReportID)
	if err != nil {
		return nil, fmt.Errorf("report choices: %w", err)
	}
	defer rows.Close()

	type choiceRow struct {
		elementID uuid.UUID
		labelID   uuid.NullUUID
	}
	var choiceRows []choiceRow
	for rows.Next() {
		var cr choiceRow
		if err := rows.Scan(&cr.elementID, &cr.labelID); err != nil {
			return nil, err
		}
		choiceRows = append(choiceRows, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, cr := range choiceRows {
		if filtered[cr.elementID] {
			continue
		}
		contentLabel, ok := contentLabels[cr.elementID]
		if !ok {
			r.logger.Warn("attached choice has no report content label", "element_id", cr.elementID)
			continue
		}
		label, err := r.labels.ResolveRef(ctx, contentLabel, language)
		if err != nil {
			return nil, fmt.Errorf("report choice label: %w", err)
		}
		value, err := r.labels.ResolveRef(ctx, cr.labelID, language)
		if err != nil {
			return nil, fmt.Errorf("report choice value: %w", err)
		}
		lines = append(lines, voice.Line{LabelURL: label, ValueURL: value})
	}

	recRows, err := r.db.QueryContext(ctx, `
		SELECT record_element_id, audio_url
		FROM spoken_user_inputs
		WHERE user_report_id = $1 ORDER BY id ASC`, userReportID)
	if err != nil {
		return nil, fmt.Errorf("report recordings: %w", err)
	}
	defer recRows.Close()

	for recRows.Next() {
		var elementID uuid.UUID
		var audioURL string
		if err := recRows.Scan(&elementID, &audioURL); err != nil {
			return nil, err
		}
		contentLabel, ok := contentLabels[elementID]
		if !ok {
			r.logger.Warn("attached recording has no report content label", "element_id", elementID)
			continue
		}
		label, err := r.labels.ResolveRef(ctx, contentLabel, language)
		if err != nil {
			return nil, fmt.Errorf("report recording label: %w", err)
		}
		lines = append(lines, voice.Line{LabelURL: label, ValueURL: audioURL})
	}
	return lines, recRows.Err()
}
