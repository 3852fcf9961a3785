package main

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
)

// The seed file is a name-based description of one voice service graph.
// Every id is derived deterministically from the service and item names, so
// re-running the seed updates rows in place instead of duplicating them.

type seedFile struct {
	Service  seedService   `yaml:"service"`
	Labels   []seedLabel   `yaml:"labels"`
	Elements []seedElement `yaml:"elements"`
}

type seedService struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	Start       string `yaml:"start"`
	Active      *bool  `yaml:"active"`
}

type seedLabel struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Fragments   map[string]string `yaml:"fragments"`
}

type seedElement struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
	Label       string `yaml:"label"`
	Redirect    string `yaml:"redirect"`

	// choice
	Options []seedOption `yaml:"options"`

	// report
	ConfirmLabel string        `yaml:"confirm_label"`
	RedirectYes  string        `yaml:"redirect_yes"`
	RedirectNo   string        `yaml:"redirect_no"`
	Contents     []seedContent `yaml:"contents"`

	// retrieve_reports
	Report         string   `yaml:"report"`
	MaxAmount      int      `yaml:"max_amount"`
	PreReportLabel string   `yaml:"pre_report_label"`
	NoReportsLabel string   `yaml:"no_reports_label"`
	Filters        []string `yaml:"filters"`
}

type seedOption struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Redirect string `yaml:"redirect"`
}

type seedContent struct {
	Name    string `yaml:"name"`
	Element string `yaml:"element"`
	Label   string `yaml:"label"`
}

// ids derives stable UUIDs inside one service's namespace.
type ids struct {
	ns uuid.UUID
}

func newIDs(serviceName string) ids {
	return ids{ns: uuid.NewSHA1(uuid.NameSpaceOID, []byte("ivr-platform:"+serviceName))}
}

func (g ids) service() uuid.UUID { return uuid.NewSHA1(g.ns, []byte("service")) }

func (g ids) label(name string) uuid.UUID {
	return uuid.NewSHA1(g.ns, []byte("label:"+name))
}
func (g ids) element(name string) uuid.UUID {
	return uuid.NewSHA1(g.ns, []byte("element:"+name))
}
func (g ids) option(choice, name string) uuid.UUID {
	return uuid.NewSHA1(g.ns, []byte("option:"+choice+":"+name))
}
func (g ids) content(report, name string) uuid.UUID {
	return uuid.NewSHA1(g.ns, []byte("content:"+report+":"+name))
}
func (g ids) filter(retrieve, choice string) uuid.UUID {
	return uuid.NewSHA1(g.ns, []byte("filter:"+retrieve+":"+choice))
}

// buildGraph converts the parsed seed file into a persistable graph. Name
// references are resolved eagerly so a typo fails the seed run instead of
// producing a dangling reference.
func buildGraph(data []byte) (*ivr.Graph, error) {
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if sf.Service.Name == "" {
		return nil, fmt.Errorf("seed file has no service name")
	}

	gen := newIDs(sf.Service.Name)

	labelIDs := make(map[string]uuid.UUID, len(sf.Labels))
	for _, l := range sf.Labels {
		labelIDs[l.Name] = gen.label(l.Name)
	}
	elementIDs := make(map[string]uuid.UUID, len(sf.Elements))
	for _, e := range sf.Elements {
		elementIDs[e.Name] = gen.element(e.Name)
	}

	labelRef := func(name string) (uuid.NullUUID, error) {
		if name == "" {
			return uuid.NullUUID{}, nil
		}
		id, ok := labelIDs[name]
		if !ok {
			return uuid.NullUUID{}, fmt.Errorf("unknown label %q", name)
		}
		return uuid.NullUUID{UUID: id, Valid: true}, nil
	}
	elementRef := func(name string) (uuid.NullUUID, error) {
		if name == "" {
			return uuid.NullUUID{}, nil
		}
		id, ok := elementIDs[name]
		if !ok {
			return uuid.NullUUID{}, fmt.Errorf("unknown element %q", name)
		}
		return uuid.NullUUID{UUID: id, Valid: true}, nil
	}

	language := sf.Service.Language
	if language == "" {
		language = "en"
	}
	active := true
	if sf.Service.Active != nil {
		active = *sf.Service.Active
	}
	start, err := elementRef(sf.Service.Start)
	if err != nil {
		return nil, fmt.Errorf("service start: %w", err)
	}

	g := &ivr.Graph{
		Service: ivr.VoiceService{
			ID:              gen.service(),
			Name:            sf.Service.Name,
			Description:     sf.Service.Description,
			StartElementID:  start,
			DefaultLanguage: language,
			Active:          active,
		},
	}

	for _, l := range sf.Labels {
		label := ivr.VoiceLabel{
			ID:          labelIDs[l.Name],
			Name:        l.Name,
			Description: l.Description,
		}
		for lang, audioURL := range l.Fragments {
			label.Fragments = append(label.Fragments, ivr.VoiceFragment{
				LabelID:  label.ID,
				Language: lang,
				AudioURL: audioURL,
			})
		}
		g.Labels = append(g.Labels, label)
	}

	for _, se := range sf.Elements {
		e := &ivr.Element{
			ID:          elementIDs[se.Name],
			ServiceID:   g.Service.ID,
			Kind:        ivr.Kind(se.Kind),
			Name:        se.Name,
			Description: se.Description,
		}
		if e.VoiceLabelID, err = labelRef(se.Label); err != nil {
			return nil, fmt.Errorf("element %s: %w", se.Name, err)
		}
		if e.RedirectID, err = elementRef(se.Redirect); err != nil {
			return nil, fmt.Errorf("element %s: %w", se.Name, err)
		}

		switch e.Kind {
		case ivr.KindChoice:
			for i, o := range se.Options {
				opt := ivr.ChoiceOption{
					ID:       gen.option(se.Name, o.Name),
					ChoiceID: e.ID,
					Name:     o.Name,
					Position: i,
				}
				if opt.VoiceLabelID, err = labelRef(o.Label); err != nil {
					return nil, fmt.Errorf("option %s of %s: %w", o.Name, se.Name, err)
				}
				if opt.RedirectID, err = elementRef(o.Redirect); err != nil {
					return nil, fmt.Errorf("option %s of %s: %w", o.Name, se.Name, err)
				}
				e.Options = append(e.Options, opt)
			}
		case ivr.KindReport:
			if e.AskConfirmationLabelID, err = labelRef(se.ConfirmLabel); err != nil {
				return nil, fmt.Errorf("element %s: %w", se.Name, err)
			}
			if e.RedirectYesID, err = elementRef(se.RedirectYes); err != nil {
				return nil, fmt.Errorf("element %s: %w", se.Name, err)
			}
			if e.RedirectNoID, err = elementRef(se.RedirectNo); err != nil {
				return nil, fmt.Errorf("element %s: %w", se.Name, err)
			}
			for i, c := range se.Contents {
				content := ivr.ReportContent{
					ID:       gen.content(se.Name, c.Name),
					ReportID: e.ID,
					Name:     c.Name,
					Position: i,
				}
				ref, err := elementRef(c.Element)
				if err != nil || !ref.Valid {
					return nil, fmt.Errorf("content %s of %s: unknown element %q", c.Name, se.Name, c.Element)
				}
				content.ContentElementID = ref.UUID
				if content.VoiceLabelID, err = labelRef(c.Label); err != nil {
					return nil, fmt.Errorf("content %s of %s: %w", c.Name, se.Name, err)
				}
				e.Contents = append(e.Contents, content)
			}
		case ivr.KindRetrieveReports:
			if e.ReportElementID, err = elementRef(se.Report); err != nil {
				return nil, fmt.Errorf("element %s: %w", se.Name, err)
			}
			e.MaxAmount = se.MaxAmount
			if e.PreReportLabelID, err = labelRef(se.PreReportLabel); err != nil {
				return nil, fmt.Errorf("element %s: %w", se.Name, err)
			}
			if e.NoReportsLabelID, err = labelRef(se.NoReportsLabel); err != nil {
				return nil, fmt.Errorf("element %s: %w", se.Name, err)
			}
			for i, fname := range se.Filters {
				ref, err := elementRef(fname)
				if err != nil || !ref.Valid {
					return nil, fmt.Errorf("filter of %s: unknown element %q", se.Name, fname)
				}
				e.Filters = append(e.Filters, ivr.RetrieveFilter{
					ID:              gen.filter(se.Name, fname),
					RetrieveID:      e.ID,
					ChoiceElementID: ref.UUID,
					Position:        i,
				})
			}
		}
		g.Elements = append(g.Elements, e)
	}

	return g, nil
}
