package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/voice"
)

// ShowRecord handles GET /ivr/record/{elementID}/{sessionID}: prompts the
// caller to speak after the beep.
func (h *VoiceHandler) ShowRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.record.show")
	defer span.End()
	start := time.Now()

	elem, sess, ok := h.loadTurn(ctx, w, r, ivr.KindRecord)
	if !ok {
		h.metrics.ObserveTurn(string(ivr.KindRecord), r.Method, "not_found")
		return
	}
	span.SetAttributes(attribute.String("ivr.element", elem.Name))

	if err := h.sessions.RecordStep(ctx, sess, elem.ID); err != nil {
		h.logger.Warn("record step failed", "error", err, "element", elem.Name)
	}

	promptURL, err := h.labels.ResolveRef(ctx, elem.VoiceLabelID, sess.Language)
	if err != nil {
		h.fail(w, err, "resolve record prompt")
		return
	}
	doc := voice.RecordDocument(sess.Language, promptURL, elem.Path(sess.ID))
	if err := voice.WriteDocument(w, doc); err != nil {
		h.logger.Error("write record document", "error", err)
		return
	}
	h.observe(ivr.KindRecord, r.Method, start, "ok")
}

// SubmitRecord handles POST /ivr/record/{elementID}/{sessionID}: logs the
// recording reference the gateway captured and redirects onward.
func (h *VoiceHandler) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.record.submit")
	defer span.End()
	start := time.Now()

	elem, sess, ok := h.loadTurn(ctx, w, r, ivr.KindRecord)
	if !ok {
		h.metrics.ObserveTurn(string(ivr.KindRecord), r.Method, "not_found")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	recording := strings.TrimSpace(r.FormValue("recording"))
	if recording == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.sessions.RecordInput(ctx, sess, elem.ID, recording); err != nil {
		h.fail(w, err, "record input")
		return
	}
	span.SetAttributes(attribute.String("ivr.element", elem.Name))
	h.observe(ivr.KindRecord, r.Method, start, "ok")
	h.redirectToElement(ctx, w, r, elem.RedirectID, sess)
}
