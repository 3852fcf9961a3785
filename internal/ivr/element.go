package ivr

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind discriminates the closed set of voice service element variants.
type Kind string

const (
	KindChoice          Kind = "choice"
	KindRecord          Kind = "record"
	KindReport          Kind = "report"
	KindRetrieveReports Kind = "retrieve_reports"
)

// MaxRetrieveAmount bounds how many user reports a retrieve element may play back.
const (
	MinRetrieveAmount = 1
	MaxRetrieveAmount = 9
)

// VoiceService is one admin-authored IVR service: a named entry point into a
// graph of elements.
type VoiceService struct {
	ID              uuid.UUID
	Name            string
	Description     string
	StartElementID  uuid.NullUUID
	DefaultLanguage string
	Active          bool
}

// Element is one node in a voice service graph. The Kind field selects which
// of the variant fields are meaningful; resolving a reference to its concrete
// variant is a switch on Kind, never a second lookup.
type Element struct {
	ID           uuid.UUID
	ServiceID    uuid.UUID
	Kind         Kind
	Name         string
	Description  string
	VoiceLabelID uuid.NullUUID

	// RedirectID is the next element for record and retrieve_reports variants.
	RedirectID uuid.NullUUID

	// Choice variant.
	Options []ChoiceOption

	// Report variant.
	AskConfirmationLabelID uuid.NullUUID
	RedirectYesID          uuid.NullUUID
	RedirectNoID           uuid.NullUUID
	Contents               []ReportContent

	// RetrieveReports variant.
	ReportElementID  uuid.NullUUID
	MaxAmount        int
	PreReportLabelID uuid.NullUUID
	NoReportsLabelID uuid.NullUUID
	Filters          []RetrieveFilter
}

// ChoiceOption is one selectable answer of a choice element. Options are
// ordered by Position; the caller selects one by its one-based digit.
type ChoiceOption struct {
	ID           uuid.UUID
	ChoiceID     uuid.UUID
	Name         string
	VoiceLabelID uuid.NullUUID
	RedirectID   uuid.NullUUID
	Position     int
}

// ReportContent names one prior answer a report bundles: the content element
// (a choice or record) and the voice label spoken before its value.
type ReportContent struct {
	ID               uuid.UUID
	ReportID         uuid.UUID
	ContentElementID uuid.UUID
	ContentKind      Kind
	Name             string
	VoiceLabelID     uuid.NullUUID
	Position         int
}

// RetrieveFilter constrains retrieved user reports to those whose attached
// answer for ChoiceElementID matches the caller's current-iteration answer.
type RetrieveFilter struct {
	ID              uuid.UUID
	RetrieveID      uuid.UUID
	ChoiceElementID uuid.UUID
	Position        int
}

// Option returns the option with the given id, or nil when it does not belong
// to this choice element.
func (e *Element) Option(id uuid.UUID) *ChoiceOption {
	for i := range e.Options {
		if e.Options[i].ID == id {
			return &e.Options[i]
		}
	}
	return nil
}

// Path returns the request path serving this element for the given session.
func (e *Element) Path(sessionID uuid.UUID) string {
	return fmt.Sprintf("/ivr/%s/%s/%s", e.Kind, e.ID, sessionID)
}

// IsValid reports whether the element's configuration passes all validators.
func (e *Element) IsValid(resolve func(uuid.UUID) *Element) bool {
	return len(e.Validate(resolve)) == 0
}

// Validate returns admin-facing configuration problems. resolve maps an
// element id to its definition for cross-reference checks and may be nil,
// in which case reference targets are not inspected.
func (e *Element) Validate(resolve func(uuid.UUID) *Element) []string {
	var errs []string
	if !e.VoiceLabelID.Valid {
		errs = append(errs, fmt.Sprintf("element %s does not have a voice label", e.Name))
	}

	switch e.Kind {
	case KindChoice:
		if len(e.Options) == 0 {
			errs = append(errs, fmt.Sprintf("choice %s does not have any options", e.Name))
		}
		for _, opt := range e.Options {
			if !opt.RedirectID.Valid {
				errs = append(errs, fmt.Sprintf("option %s of choice %s does not have a redirect element", opt.Name, e.Name))
			}
		}
	case KindRecord:
		if !e.RedirectID.Valid {
			errs = append(errs, fmt.Sprintf("record %s does not have a redirect element", e.Name))
		}
	case KindReport:
		if !e.AskConfirmationLabelID.Valid {
			errs = append(errs, fmt.Sprintf("report %s does not have an ask-for-confirmation voice label", e.Name))
		}
		if !e.RedirectYesID.Valid {
			errs = append(errs, fmt.Sprintf(`report %s does not have a redirect element for "yes"`, e.Name))
		}
		if !e.RedirectNoID.Valid {
			errs = append(errs, fmt.Sprintf(`report %s does not have a redirect element for "no"`, e.Name))
		}
		for _, rc := range e.Contents {
			if rc.ContentKind != KindChoice && rc.ContentKind != KindRecord {
				errs = append(errs, fmt.Sprintf("content %s of report %s is not a choice or record element", rc.Name, e.Name))
			}
		}
	case KindRetrieveReports:
		if !e.ReportElementID.Valid {
			errs = append(errs, fmt.Sprintf("retrieve-reports %s does not have a report element", e.Name))
		} else if resolve != nil {
			if target := resolve(e.ReportElementID.UUID); target == nil || target.Kind != KindReport {
				errs = append(errs, fmt.Sprintf("retrieve-reports %s does not reference a report element", e.Name))
			}
		}
		if !e.RedirectID.Valid {
			errs = append(errs, fmt.Sprintf("retrieve-reports %s does not have a redirect element", e.Name))
		}
		if e.MaxAmount < MinRetrieveAmount || e.MaxAmount > MaxRetrieveAmount {
			errs = append(errs, fmt.Sprintf("retrieve-reports %s maximum amount must be between %d and %d", e.Name, MinRetrieveAmount, MaxRetrieveAmount))
		}
		if !e.NoReportsLabelID.Valid {
			errs = append(errs, fmt.Sprintf("retrieve-reports %s does not have a no-reports voice label", e.Name))
		}
		if resolve != nil {
			for _, f := range e.Filters {
				if target := resolve(f.ChoiceElementID); target == nil || target.Kind != KindChoice {
					errs = append(errs, fmt.Sprintf("filter of retrieve-reports %s does not reference a choice element", e.Name))
				}
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("element %s has unknown kind %q", e.Name, e.Kind))
	}
	return errs
}
