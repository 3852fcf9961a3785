package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/voice"
)

// ShowChoice handles GET /ivr/choice/{elementID}/{sessionID}: plays the
// choice prompt and its options.
func (h *VoiceHandler) ShowChoice(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.choice.show")
	defer span.End()
	start := time.Now()

	elem, sess, ok := h.loadTurn(ctx, w, r, ivr.KindChoice)
	if !ok {
		h.metrics.ObserveTurn(string(ivr.KindChoice), r.Method, "not_found")
		return
	}
	span.SetAttributes(attribute.String("ivr.element", elem.Name))

	if err := h.sessions.RecordStep(ctx, sess, elem.ID); err != nil {
		// Step logging is fire-and-forget; the turn still renders.
		h.logger.Warn("record step failed", "error", err, "element", elem.Name)
	}

	promptURL, err := h.labels.ResolveRef(ctx, elem.VoiceLabelID, sess.Language)
	if err != nil {
		h.fail(w, err, "resolve choice prompt")
		return
	}
	var options []voice.ChoiceOptionView
	for i, opt := range elem.Options {
		audioURL, err := h.labels.ResolveRef(ctx, opt.VoiceLabelID, sess.Language)
		if err != nil {
			h.fail(w, err, "resolve option prompt")
			return
		}
		options = append(options, voice.ChoiceOptionView{
			DTMF:     strconv.Itoa(i + 1),
			Value:    opt.ID.String(),
			AudioURL: audioURL,
		})
	}

	doc := voice.ChoiceDocument(sess.Language, promptURL, options, elem.Path(sess.ID))
	if err := voice.WriteDocument(w, doc); err != nil {
		h.logger.Error("write choice document", "error", err)
		return
	}
	h.observe(ivr.KindChoice, r.Method, start, "ok")
}

// SubmitChoice handles POST /ivr/choice/{elementID}/{sessionID}: records the
// selected option and redirects to that option's target. An option id that
// does not belong to the displayed choice is NotFound.
func (h *VoiceHandler) SubmitChoice(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.choice.submit")
	defer span.End()
	start := time.Now()

	elem, sess, ok := h.loadTurn(ctx, w, r, ivr.KindChoice)
	if !ok {
		h.metrics.ObserveTurn(string(ivr.KindChoice), r.Method, "not_found")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	optionID, err := uuid.Parse(r.FormValue("option"))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	opt := elem.Option(optionID)
	if opt == nil {
		h.metrics.ObserveTurn(string(ivr.KindChoice), r.Method, "not_found")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := h.sessions.RecordChoice(ctx, sess, elem.ID, opt.ID); err != nil {
		h.fail(w, err, "record choice")
		return
	}
	span.SetAttributes(
		attribute.String("ivr.element", elem.Name),
		attribute.String("ivr.option", opt.Name),
	)
	h.observe(ivr.KindChoice, r.Method, start, "ok")
	h.redirectToElement(ctx, w, r, opt.RedirectID, sess)
}
