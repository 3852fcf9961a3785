// Package handlers serves the voice turns of a call: each request resolves
// the current element and session, appends to the interaction log, and either
// renders a voice-markup document (GET) or commits caller input and redirects
// to the next element (POST).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/observability/metrics"
	"github.com/fieldvoice/ivr-platform/internal/reports"
	"github.com/fieldvoice/ivr-platform/internal/session"
	"github.com/fieldvoice/ivr-platform/internal/voice"
	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

var turnTracer = otel.Tracer("ivr/handlers")

// GraphStore loads the admin-authored element graph.
type GraphStore interface {
	GetService(ctx context.Context, id uuid.UUID) (*ivr.VoiceService, error)
	GetElement(ctx context.Context, id uuid.UUID) (*ivr.Element, error)
	GetElementOfKind(ctx context.Context, id uuid.UUID, kind ivr.Kind) (*ivr.Element, error)
}

// SessionStore persists call sessions and their interaction logs.
type SessionStore interface {
	LookupOrCreate(ctx context.Context, svc *ivr.VoiceService, sessionID string) (*session.CallSession, error)
	Get(ctx context.Context, id uuid.UUID) (*session.CallSession, error)
	RecordStep(ctx context.Context, sess *session.CallSession, elementID uuid.UUID) error
	RecordChoice(ctx context.Context, sess *session.CallSession, choiceElementID, optionID uuid.UUID) error
	RecordInput(ctx context.Context, sess *session.CallSession, recordElementID uuid.UUID, audioURL string) error
	IterationStart(ctx context.Context, sessionID, startElementID uuid.UUID) (time.Time, error)
}

// Summarizer builds and commits report submissions.
type Summarizer interface {
	Summary(ctx context.Context, report *ivr.Element, sess *session.CallSession, since time.Time) ([]voice.Line, error)
	Commit(ctx context.Context, report *ivr.Element, sess *session.CallSession, since time.Time) (*session.UserReport, error)
}

// Retriever re-derives filtered past reports.
type Retriever interface {
	Retrieve(ctx context.Context, retrieve, reportElement *ivr.Element, sess *session.CallSession, t0 time.Time) (*reports.Retrieved, error)
}

// Labels resolves voice labels to audio URLs.
type Labels interface {
	Resolve(ctx context.Context, labelID uuid.UUID, language string) (string, error)
	ResolveRef(ctx context.Context, ref uuid.NullUUID, language string) (string, error)
}

// VoiceHandler serves every element turn of the IVR surface.
type VoiceHandler struct {
	graph      GraphStore
	sessions   SessionStore
	aggregator Summarizer
	retriever  Retriever
	labels     Labels
	metrics    *metrics.CallMetrics
	logger     *logging.Logger
}

func NewVoiceHandler(graph GraphStore, sessions SessionStore, aggregator Summarizer, retriever Retriever, labels Labels, m *metrics.CallMetrics, logger *logging.Logger) *VoiceHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &VoiceHandler{
		graph:      graph,
		sessions:   sessions,
		aggregator: aggregator,
		retriever:  retriever,
		labels:     labels,
		metrics:    m,
		logger:     logger,
	}
}

// StartService handles GET /ivr/start/{serviceID}: it creates (or looks up)
// the call session and redirects to the service's start element. The start
// element's own turn records the step that marks the iteration boundary.
func (h *VoiceHandler) StartService(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.start")
	defer span.End()

	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	svc, err := h.graph.GetService(ctx, serviceID)
	if err != nil {
		h.fail(w, err, "load service")
		return
	}
	if !svc.Active {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	sess, err := h.sessions.LookupOrCreate(ctx, svc, r.URL.Query().Get("session"))
	if err != nil {
		h.fail(w, err, "lookup session")
		return
	}
	span.SetAttributes(
		attribute.String("ivr.service_id", svc.ID.String()),
		attribute.String("ivr.session_id", sess.ID.String()),
	)

	if !svc.StartElementID.Valid {
		h.logger.Error("service has no start element", "service", svc.Name)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	start, err := h.graph.GetElement(ctx, svc.StartElementID.UUID)
	if err != nil {
		h.fail(w, err, "load start element")
		return
	}
	h.logger.Info("call started", "service", svc.Name, "session_id", sess.ID)
	http.Redirect(w, r, start.Path(sess.ID), http.StatusSeeOther)
}

// loadTurn resolves the element and session named in the request path. On
// failure it has already written the response and returns ok=false.
func (h *VoiceHandler) loadTurn(ctx context.Context, w http.ResponseWriter, r *http.Request, kind ivr.Kind) (*ivr.Element, *session.CallSession, bool) {
	elementID, err := uuid.Parse(chi.URLParam(r, "elementID"))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, nil, false
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, nil, false
	}
	elem, err := h.graph.GetElementOfKind(ctx, elementID, kind)
	if err != nil {
		h.fail(w, err, "load element")
		return nil, nil, false
	}
	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		h.fail(w, err, "load session")
		return nil, nil, false
	}
	return elem, sess, true
}

// redirectToElement issues the 303 that moves the caller to the referenced
// next element. An unset or dangling reference is a missing element.
func (h *VoiceHandler) redirectToElement(ctx context.Context, w http.ResponseWriter, r *http.Request, ref uuid.NullUUID, sess *session.CallSession) {
	if !ref.Valid {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	target, err := h.graph.GetElement(ctx, ref.UUID)
	if err != nil {
		h.fail(w, err, "load redirect target")
		return
	}
	http.Redirect(w, r, target.Path(sess.ID), http.StatusSeeOther)
}

// iterationStart computes the session's current iteration boundary: the
// latest visit to the service's start element. Computed once per request and
// threaded through every lookup that follows.
func (h *VoiceHandler) iterationStart(ctx context.Context, sess *session.CallSession) (time.Time, error) {
	svc, err := h.graph.GetService(ctx, sess.ServiceID)
	if err != nil {
		return time.Time{}, err
	}
	if !svc.StartElementID.Valid {
		return time.Time{}, nil
	}
	return h.sessions.IterationStart(ctx, sess.ID, svc.StartElementID.UUID)
}

func (h *VoiceHandler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ivr.ErrElementNotFound) ||
		errors.Is(err, ivr.ErrServiceNotFound) ||
		errors.Is(err, session.ErrSessionNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	h.logger.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *VoiceHandler) observe(kind ivr.Kind, method string, start time.Time, status string) {
	h.metrics.ObserveTurn(string(kind), method, status)
	h.metrics.ObserveTurnLatency(string(kind), time.Since(start).Seconds())
}
