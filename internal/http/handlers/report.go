package handlers

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/voice"
)

// ShowReport handles GET /ivr/report/{elementID}/{sessionID}: plays back the
// answers about to be stored and asks the caller to confirm or discard.
func (h *VoiceHandler) ShowReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.report.show")
	defer span.End()
	start := time.Now()

	elem, sess, ok := h.loadTurn(ctx, w, r, ivr.KindReport)
	if !ok {
		h.metrics.ObserveTurn(string(ivr.KindReport), r.Method, "not_found")
		return
	}
	span.SetAttributes(attribute.String("ivr.element", elem.Name))

	if err := h.sessions.RecordStep(ctx, sess, elem.ID); err != nil {
		h.logger.Warn("record step failed", "error", err, "element", elem.Name)
	}

	t0, err := h.iterationStart(ctx, sess)
	if err != nil {
		h.fail(w, err, "iteration start")
		return
	}
	summary, err := h.aggregator.Summary(ctx, elem, sess, t0)
	if err != nil {
		h.fail(w, err, "build summary")
		return
	}
	promptURL, err := h.labels.ResolveRef(ctx, elem.VoiceLabelID, sess.Language)
	if err != nil {
		h.fail(w, err, "resolve report prompt")
		return
	}
	confirmURL, err := h.labels.ResolveRef(ctx, elem.AskConfirmationLabelID, sess.Language)
	if err != nil {
		h.fail(w, err, "resolve confirmation prompt")
		return
	}

	doc := voice.ReportDocument(sess.Language, promptURL, summary, confirmURL, elem.Path(sess.ID))
	if err := voice.WriteDocument(w, doc); err != nil {
		h.logger.Error("write report document", "error", err)
		return
	}
	h.observe(ivr.KindReport, r.Method, start, "ok")
}

// SubmitReport handles POST /ivr/report/{elementID}/{sessionID}. On "yes" a
// UserReport is created and the latest answers are attached to it; on "no"
// nothing beyond the step history is kept. Either way the caller is
// redirected to the matching configured element.
func (h *VoiceHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.report.submit")
	defer span.End()
	start := time.Now()

	elem, sess, ok := h.loadTurn(ctx, w, r, ivr.KindReport)
	if !ok {
		h.metrics.ObserveTurn(string(ivr.KindReport), r.Method, "not_found")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("ivr.element", elem.Name))

	switch r.FormValue("confirm") {
	case "yes":
		t0, err := h.iterationStart(ctx, sess)
		if err != nil {
			h.fail(w, err, "iteration start")
			return
		}
		ur, err := h.aggregator.Commit(ctx, elem, sess, t0)
		if err != nil {
			h.fail(w, err, "commit report")
			return
		}
		span.SetAttributes(attribute.String("ivr.user_report_id", ur.ID.String()))
		h.metrics.ObserveReportSubmitted()
		h.observe(ivr.KindReport, r.Method, start, "ok")
		h.redirectToElement(ctx, w, r, elem.RedirectYesID, sess)
	case "no":
		h.observe(ivr.KindReport, r.Method, start, "ok")
		h.redirectToElement(ctx, w, r, elem.RedirectNoID, sess)
	default:
		http.Error(w, "Bad Request", http.StatusBadRequest)
	}
}
