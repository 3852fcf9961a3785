package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/reports"
	"github.com/fieldvoice/ivr-platform/internal/session"
	"github.com/fieldvoice/ivr-platform/internal/voice"
	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

type fakeGraph struct {
	services map[uuid.UUID]*ivr.VoiceService
	elements map[uuid.UUID]*ivr.Element
}

func (f *fakeGraph) GetService(ctx context.Context, id uuid.UUID) (*ivr.VoiceService, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, ivr.ErrServiceNotFound
	}
	return svc, nil
}

func (f *fakeGraph) GetElement(ctx context.Context, id uuid.UUID) (*ivr.Element, error) {
	e, ok := f.elements[id]
	if !ok {
		return nil, ivr.ErrElementNotFound
	}
	return e, nil
}

func (f *fakeGraph) GetElementOfKind(ctx context.Context, id uuid.UUID, kind ivr.Kind) (*ivr.Element, error) {
	e, err := f.GetElement(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Kind != kind {
		return nil, ivr.ErrElementNotFound
	}
	return e, nil
}

type recordedChoice struct {
	elementID uuid.UUID
	optionID  uuid.UUID
}

type recordedInput struct {
	elementID uuid.UUID
	audioURL  string
}

type fakeSessions struct {
	sessions  map[uuid.UUID]*session.CallSession
	iterStart time.Time

	created *session.CallSession
	steps   []uuid.UUID
	choices []recordedChoice
	inputs  []recordedInput
}

func (f *fakeSessions) LookupOrCreate(ctx context.Context, svc *ivr.VoiceService, sessionID string) (*session.CallSession, error) {
	if sessionID == "" {
		f.created = &session.CallSession{ID: uuid.New(), ServiceID: svc.ID, Language: svc.DefaultLanguage, CreatedAt: time.Now()}
		return f.created, nil
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, session.ErrSessionNotFound
	}
	return f.Get(ctx, id)
}

func (f *fakeSessions) Get(ctx context.Context, id uuid.UUID) (*session.CallSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return sess, nil
}

func (f *fakeSessions) RecordStep(ctx context.Context, sess *session.CallSession, elementID uuid.UUID) error {
	f.steps = append(f.steps, elementID)
	return nil
}

func (f *fakeSessions) RecordChoice(ctx context.Context, sess *session.CallSession, choiceElementID, optionID uuid.UUID) error {
	f.choices = append(f.choices, recordedChoice{choiceElementID, optionID})
	return nil
}

func (f *fakeSessions) RecordInput(ctx context.Context, sess *session.CallSession, recordElementID uuid.UUID, audioURL string) error {
	f.inputs = append(f.inputs, recordedInput{recordElementID, audioURL})
	return nil
}

func (f *fakeSessions) IterationStart(ctx context.Context, sessionID, startElementID uuid.UUID) (time.Time, error) {
	return f.iterStart, nil
}

type fakeAggregator struct {
	summary []voice.Line

	commits   int
	lastSince time.Time
	lastYes   *session.UserReport
}

func (f *fakeAggregator) Summary(ctx context.Context, report *ivr.Element, sess *session.CallSession, since time.Time) ([]voice.Line, error) {
	f.lastSince = since
	return f.summary, nil
}

func (f *fakeAggregator) Commit(ctx context.Context, report *ivr.Element, sess *session.CallSession, since time.Time) (*session.UserReport, error) {
	f.commits++
	f.lastSince = since
	f.lastYes = &session.UserReport{ID: uuid.New(), SessionID: sess.ID, ReportElementID: report.ID, CreatedAt: time.Now()}
	return f.lastYes, nil
}

type fakeRetriever struct {
	result *reports.Retrieved
	lastT0 time.Time
}

func (f *fakeRetriever) Retrieve(ctx context.Context, retrieve, reportElement *ivr.Element, sess *session.CallSession, t0 time.Time) (*reports.Retrieved, error) {
	f.lastT0 = t0
	if f.result == nil {
		return &reports.Retrieved{}, nil
	}
	return f.result, nil
}

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
		return "", voice.ErrFragmentNotFound
	}
	return f.Resolve(ctx, ref.UUID, language)
}

// newTestRouter mounts the handler on the real route shapes.
func newTestRouter(h *VoiceHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/ivr/start/{serviceID}", h.StartService)
	r.Get("/ivr/choice/{elementID}/{sessionID}", h.ShowChoice)
	r.Post("/ivr/choice/{elementID}/{sessionID}", h.SubmitChoice)
	r.Get("/ivr/record/{elementID}/{sessionID}", h.ShowRecord)
	r.Post("/ivr/record/{elementID}/{sessionID}", h.SubmitRecord)
	r.Get("/ivr/report/{elementID}/{sessionID}", h.ShowReport)
	r.Post("/ivr/report/{elementID}/{sessionID}", h.SubmitReport)
	r.Get("/ivr/retrieve_reports/{elementID}/{sessionID}", h.ShowRetrieveReports)
	return r
}

func newHandler(graph *fakeGraph, sessions *fakeSessions, agg *fakeAggregator, ret *fakeRetriever, labels *fakeLabels) *VoiceHandler {
	return NewVoiceHandler(graph, sessions, agg, ret, labels, nil, logging.Default())
}
