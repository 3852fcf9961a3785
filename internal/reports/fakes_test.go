package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvoice/ivr-platform/internal/session"
)

// fakeLog serves canned latest entries and records the boundary each lookup
// was given.
type fakeLog struct {
	iterationStart time.Time
	choices        map[uuid.UUID]*session.ChoiceEntry
	inputs         map[uuid.UUID]*session.InputEntry
	sinceSeen      []time.Time
}

func (f *fakeLog) IterationStart(ctx context.Context, sessionID, startElementID uuid.UUID) (time.Time, error) {
	return f.iterationStart, nil
}

func (f *fakeLog) LatestChoice(ctx context.Context, sessionID, choiceElementID uuid.UUID, since time.Time) (*session.ChoiceEntry, error) {
	f.sinceSeen = append(f.sinceSeen, since)
	return f.choices[choiceElementID], nil
}

func (f *fakeLog) LatestInput(ctx context.Context, sessionID, recordElementID uuid.UUID, since time.Time) (*session.InputEntry, error) {
	f.sinceSeen = append(f.sinceSeen, since)
	return f.inputs[recordElementID], nil
}

// fakeLabels resolves labels from a fixed map.
type fakeLabels struct {
	urls map[uuid.UUID]string
}

func (f *fakeLabels) Resolve(ctx context.Context, labelID uuid.UUID, language string) (string, error) {
	url, ok := f.urls[labelID]
	if !ok {
		return "", fmt.Errorf("no fragment for %s", labelID)
	}
	return url, nil
}

func (f *fakeLabels) ResolveRef(ctx context.Context, ref uuid.NullUUID, language string) (string, error) {
	if !ref.Valid {
		return "", fmt.Errorf("unset label reference")
	}
	return f.Resolve(ctx, ref.UUID, language)
}
