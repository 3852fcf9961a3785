package ivr

import (
	"fmt"

	"github.com/google/uuid"
)

// VoiceLabel is a named reference to localized spoken audio content.
type VoiceLabel struct {
	ID          uuid.UUID
	Name        string
	Description string
	Fragments   []VoiceFragment
}

// VoiceFragment is the audio realization of a label in one language.
type VoiceFragment struct {
	LabelID  uuid.UUID
	Language string
	AudioURL string
}

// Graph is a fully loaded voice service with all of its elements and labels,
// as authored. It is the unit the seed loader builds and the store persists.
type Graph struct {
	Service  VoiceService
	Labels   []VoiceLabel
	Elements []*Element
}

// Resolve returns the element with the given id, or nil.
func (g *Graph) Resolve(id uuid.UUID) *Element {
	for _, e := range g.Elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Validate runs every element validator plus the service-level checks and
// returns all configuration problems found.
func (g *Graph) Validate() []string {
	var errs []string
	if !g.Service.StartElementID.Valid {
		errs = append(errs, fmt.Sprintf("service %s does not have a start element", g.Service.Name))
	} else if g.Resolve(g.Service.StartElementID.UUID) == nil {
		errs = append(errs, fmt.Sprintf("service %s start element does not exist", g.Service.Name))
	}
	for _, e := range g.Elements {
		errs = append(errs, e.Validate(g.Resolve)...)
	}
	return errs
}
