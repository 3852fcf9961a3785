package handlers

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/voice"
)

// ShowRetrieveReports handles GET /ivr/retrieve_reports/{elementID}/{sessionID}:
// plays back past user reports matching the caller's current-iteration filter
// answers, then sends the caller on to the configured redirect.
func (h *VoiceHandler) ShowRetrieveReports(w http.ResponseWriter, r *http.Request) {
	ctx, span := turnTracer.Start(r.Context(), "ivr.retrieve_reports.show")
	defer span.End()
	start := time.Now()

	elem, sess, ok := h.loadTurn(ctx, w, r, ivr.KindRetrieveReports)
	if !ok {
		h.metrics.ObserveTurn(string(ivr.KindRetrieveReports), r.Method, "not_found")
		return
	}
	span.SetAttributes(attribute.String("ivr.element", elem.Name))

	if err := h.sessions.RecordStep(ctx, sess, elem.ID); err != nil {
		h.logger.Warn("record step failed", "error", err, "element", elem.Name)
	}

	if !elem.ReportElementID.Valid {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	reportElement, err := h.graph.GetElementOfKind(ctx, elem.ReportElementID.UUID, ivr.KindReport)
	if err != nil {
		h.fail(w, err, "load target report")
		return
	}

	t0, err := h.iterationStart(ctx, sess)
	if err != nil {
		h.fail(w, err, "iteration start")
		return
	}
	result, err := h.retriever.Retrieve(ctx, elem, reportElement, sess, t0)
	if err != nil {
		h.fail(w, err, "retrieve reports")
		return
	}
	span.SetAttributes(attribute.Int("ivr.reports_returned", len(result.Reports)))
	h.metrics.ObserveRetrieveResults(len(result.Reports))

	promptURL, err := h.labels.ResolveRef(ctx, elem.VoiceLabelID, sess.Language)
	if err != nil {
		h.fail(w, err, "resolve retrieve prompt")
		return
	}
	noReportsURL, err := h.labels.ResolveRef(ctx, elem.NoReportsLabelID, sess.Language)
	if err != nil {
		h.fail(w, err, "resolve no-reports label")
		return
	}
	// The pre-report label is optional authoring sugar.
	preReportURL := ""
	if elem.PreReportLabelID.Valid {
		preReportURL, err = h.labels.Resolve(ctx, elem.PreReportLabelID.UUID, sess.Language)
		if err != nil {
			h.fail(w, err, "resolve pre-report label")
			return
		}
	}

	if !elem.RedirectID.Valid {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	redirectTarget, err := h.graph.GetElement(ctx, elem.RedirectID.UUID)
	if err != nil {
		h.fail(w, err, "load redirect target")
		return
	}

	doc := voice.RetrieveDocument(sess.Language, promptURL,
		result.FilterSelections, result.Reports,
		preReportURL, noReportsURL, redirectTarget.Path(sess.ID))
	if err := voice.WriteDocument(w, doc); err != nil {
		h.logger.Error("write retrieve document", "error", err)
		return
	}
	h.observe(ivr.KindRetrieveReports, r.Method, start, "ok")
}
