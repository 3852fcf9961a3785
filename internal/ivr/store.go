package ivr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrServiceNotFound is returned when a voice service id is unknown.
	ErrServiceNotFound = errors.New("voice service not found")
	// ErrElementNotFound is returned when an element id is unknown or a
	// graph reference points at a deleted element.
	ErrElementNotFound = errors.New("voice service element not found")
)

// Store reads and writes the admin-authored element graph.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetService loads a voice service by id.
func (s *Store) GetService(ctx context.Context, id uuid.UUID) (*VoiceService, error) {
	var svc VoiceService
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, start_element_id, default_language, active
		FROM voice_services WHERE id = $1`, id).Scan(
		&svc.ID, &svc.Name, &svc.Description, &svc.StartElementID, &svc.DefaultLanguage, &svc.Active)
	if err == sql.ErrNoRows {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

// GetElement loads an element and, depending on its kind, its options,
// report contents, or retrieve filters.
func (s *Store) GetElement(ctx context.Context, id uuid.UUID) (*Element, error) {
	var e Element
	err := s.db.QueryRowContext(ctx, `
		SELECT id, service_id, kind, name, description, voice_label_id, redirect_element_id,
		       ask_confirmation_label_id, redirect_yes_id, redirect_no_id,
		       report_element_id, max_amount, pre_report_label_id, no_reports_label_id
		FROM voice_service_elements WHERE id = $1`, id).Scan(
		&e.ID, &e.ServiceID, &e.Kind, &e.Name, &e.Description, &e.VoiceLabelID, &e.RedirectID,
		&e.AskConfirmationLabelID, &e.RedirectYesID, &e.RedirectNoID,
		&e.ReportElementID, &e.MaxAmount, &e.PreReportLabelID, &e.NoReportsLabelID)
	if err == sql.ErrNoRows {
		return nil, ErrElementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get element: %w", err)
	}

	switch e.Kind {
	case KindChoice:
		if e.Options, err = s.listOptions(ctx, e.ID); err != nil {
			return nil, err
		}
	case KindReport:
		if e.Contents, err = s.listContents(ctx, e.ID); err != nil {
			return nil, err
		}
	case KindRetrieveReports:
		if e.Filters, err = s.listFilters(ctx, e.ID); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// GetElementOfKind loads an element and fails with ErrElementNotFound when it
// exists but is of a different variant. Handlers use this so a choice URL
// hit with a report id behaves like a missing element.
func (s *Store) GetElementOfKind(ctx context.Context, id uuid.UUID, kind Kind) (*Element, error) {
	e, err := s.GetElement(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Kind != kind {
		return nil, ErrElementNotFound
	}
	return e, nil
}

func (s *Store) listOptions(ctx context.Context, choiceID uuid.UUID) ([]ChoiceOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, choice_id, name, voice_label_id, redirect_element_id, position
		FROM choice_options WHERE choice_id = $1 ORDER BY position ASC`, choiceID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	var out []ChoiceOption
	for rows.Next() {
		var o ChoiceOption
		if err := rows.Scan(&o.ID, &o.ChoiceID, &o.Name, &o.VoiceLabelID, &o.RedirectID, &o.Position); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) listContents(ctx context.Context, reportID uuid.UUID) ([]ReportContent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rc.id, rc.report_id, rc.content_element_id, e.kind, rc.name, rc.voice_label_id, rc.position
		FROM report_contents rc
		JOIN voice_service_elements e ON e.id = rc.content_element_id
		WHERE rc.report_id = $1 ORDER BY rc.position ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list report contents: %w", err)
	}
	defer rows.Close()

	var out []ReportContent
	for rows.Next() {
		var rc ReportContent
		if err := rows.Scan(&rc.ID, &rc.ReportID, &rc.ContentElementID, &rc.ContentKind, &rc.Name, &rc.VoiceLabelID, &rc.Position); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *Store) listFilters(ctx context.Context, retrieveID uuid.UUID) ([]RetrieveFilter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, retrieve_id, choice_element_id, position
		FROM retrieve_reports_filters WHERE retrieve_id = $1 ORDER BY position ASC`, retrieveID)
	if err != nil {
		return nil, fmt.Errorf("list retrieve filters: %w", err)
	}
	defer rows.Close()

	var out []RetrieveFilter
	for rows.Next() {
		var f RetrieveFilter
		if err := rows.Scan(&f.ID, &f.RetrieveID, &f.ChoiceElementID, &f.Position); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SaveGraph upserts a whole authored graph in one transaction. Child rows
// (options, contents, filters, fragments) are replaced wholesale so removed
// entries do not linger.
func (s *Store) SaveGraph(ctx context.Context, g *Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO voice_services (id, name, description, start_element_id, default_language, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
		ON CONFLICT (id) DO UPDATE SET
		    name=EXCLUDED.name, description=EXCLUDED.description, start_element_id=EXCLUDED.start_element_id,
		    default_language=EXCLUDED.default_language, active=EXCLUDED.active, updated_at=$7`,
		g.Service.ID, g.Service.Name, g.Service.Description, g.Service.StartElementID,
		g.Service.DefaultLanguage, g.Service.Active, now)
	if err != nil {
		return fmt.Errorf("save service: %w", err)
	}

	for _, l := range g.Labels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO voice_labels (id, name, description)
			VALUES ($1,$2,$3)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description`,
			l.ID, l.Name, l.Description); err != nil {
			return fmt.Errorf("save label %s: %w", l.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM voice_fragments WHERE voice_label_id = $1`, l.ID); err != nil {
			return fmt.Errorf("clear fragments of %s: %w", l.Name, err)
		}
		for _, f := range l.Fragments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO voice_fragments (voice_label_id, language, audio_url)
				VALUES ($1,$2,$3)`, l.ID, f.Language, f.AudioURL); err != nil {
				return fmt.Errorf("save fragment of %s: %w", l.Name, err)
			}
		}
	}

	for _, e := range g.Elements {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO voice_service_elements (id, service_id, kind, name, description, voice_label_id,
			    redirect_element_id, ask_confirmation_label_id, redirect_yes_id, redirect_no_id,
			    report_element_id, max_amount, pre_report_label_id, no_reports_label_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
			ON CONFLICT (id) DO UPDATE SET
			    service_id=EXCLUDED.service_id, kind=EXCLUDED.kind, name=EXCLUDED.name,
			    description=EXCLUDED.description, voice_label_id=EXCLUDED.voice_label_id,
			    redirect_element_id=EXCLUDED.redirect_element_id,
			    ask_confirmation_label_id=EXCLUDED.ask_confirmation_label_id,
			    redirect_yes_id=EXCLUDED.redirect_yes_id, redirect_no_id=EXCLUDED.redirect_no_id,
			    report_element_id=EXCLUDED.report_element_id, max_amount=EXCLUDED.max_amount,
			    pre_report_label_id=EXCLUDED.pre_report_label_id, no_reports_label_id=EXCLUDED.no_reports_label_id,
			    updated_at=$15`,
			e.ID, e.ServiceID, e.Kind, e.Name, e.Description, e.VoiceLabelID,
			e.RedirectID, e.AskConfirmationLabelID, e.RedirectYesID, e.RedirectNoID,
			e.ReportElementID, e.MaxAmount, e.PreReportLabelID, e.NoReportsLabelID, now); err != nil {
			return fmt.Errorf("save element %s: %w", e.Name, err)
		}
	}

	// Children after all elements exist, so cross-references resolve.
	for _, e := range g.Elements {
		switch e.Kind {
		case KindChoice:
			if _, err := tx.ExecContext(ctx, `DELETE FROM choice_options WHERE choice_id = $1`, e.ID); err != nil {
				return fmt.Errorf("clear options of %s: %w", e.Name, err)
			}
			for _, o := range e.Options {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO choice_options (id, choice_id, name, voice_label_id, redirect_element_id, position)
					VALUES ($1,$2,$3,$4,$5,$6)`,
					o.ID, e.ID, o.Name, o.VoiceLabelID, o.RedirectID, o.Position); err != nil {
					return fmt.Errorf("save option %s: %w", o.Name, err)
				}
			}
		case KindReport:
			if _, err := tx.ExecContext(ctx, `DELETE FROM report_contents WHERE report_id = $1`, e.ID); err != nil {
				return fmt.Errorf("clear contents of %s: %w", e.Name, err)
			}
			for _, rc := range e.Contents {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO report_contents (id, report_id, content_element_id, name, voice_label_id, position)
					VALUES ($1,$2,$3,$4,$5,$6)`,
					rc.ID, e.ID, rc.ContentElementID, rc.Name, rc.VoiceLabelID, rc.Position); err != nil {
					return fmt.Errorf("save content %s: %w", rc.Name, err)
				}
			}
		case KindRetrieveReports:
			if _, err := tx.ExecContext(ctx, `DELETE FROM retrieve_reports_filters WHERE retrieve_id = $1`, e.ID); err != nil {
				return fmt.Errorf("clear filters of %s: %w", e.Name, err)
			}
			for _, f := range e.Filters {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO retrieve_reports_filters (id, retrieve_id, choice_element_id, position)
					VALUES ($1,$2,$3,$4)`,
					f.ID, e.ID, f.ChoiceElementID, f.Position); err != nil {
					return fmt.Errorf("save filter of %s: %w", e.Name, err)
				}
			}
		}
	}

	return tx.Commit()
}
