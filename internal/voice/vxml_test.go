package voice

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChoiceDocument(t *testing.T) {
	doc := ChoiceDocument("en", "https://cdn/choice.wav", []ChoiceOptionView{
		{DTMF: "1", Value: "opt-a", AudioURL: "https://cdn/a.wav"},
		{DTMF: "2", Value: "opt-b", AudioURL: "https://cdn/b.wav"},
	}, "/ivr/choice/e/s")

	rec := httptest.NewRecorder()
	if err := WriteDocument(rec, doc); err != nil {
		t.Fatalf("write: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("unexpected content type %s", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<?xml`,
		`version="2.1"`,
		`src="https://cdn/choice.wav"`,
		`dtmf="1"`,
		`value="opt-a"`,
		`dtmf="2"`,
		`value="opt-b"`,
		`next="/ivr/choice/e/s"`,
		`namelist="option"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRecordDocument(t *testing.T) {
	doc := RecordDocument("sw", "https://cdn/speak.wav", "/ivr/record/e/s")
	rec := httptest.NewRecorder()
	if err := WriteDocument(rec, doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	body := rec.Body.String()
	for _, want := range []string{`beep="true"`, `namelist="recording"`, `src="https://cdn/speak.wav"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestReportDocumentPreservesSummaryOrder(t *testing.T) {
	doc := ReportDocument("en", "https://cdn/report.wav", []Line{
		{LabelURL: "https://cdn/q1.wav", ValueURL: "https://cdn/a1.wav"},
		{LabelURL: "https://cdn/q2.wav", ValueURL: "https://cdn/a2.wav"},
	}, "https://cdn/confirm.wav", "/ivr/report/e/s")

	rec := httptest.NewRecorder()
	if err := WriteDocument(rec, doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	body := rec.Body.String()

	// Declaration order, not recency order.
	q1 := strings.Index(body, "q1.wav")
	a1 := strings.Index(body, "a1.wav")
	q2 := strings.Index(body, "q2.wav")
	confirm := strings.Index(body, "confirm.wav")
	if q1 < 0 || a1 < 0 || q2 < 0 || confirm < 0 {
		t.Fatalf("missing audio refs:\n%s", body)
	}
	if !(q1 < a1 && a1 < q2 && q2 < confirm) {
		t.Fatalf("summary audio out of order:\n%s", body)
	}
	if !strings.Contains(body, `value="yes"`) || !strings.Contains(body, `value="no"`) {
		t.Fatalf("confirmation options missing:\n%s", body)
	}
}

func TestRetrieveDocumentEmpty(t *testing.T) {
	doc := RetrieveDocument("en", "https://cdn/retrieve.wav", nil, nil,
		"https://cdn/pre.wav", "https://cdn/none.wav", "/ivr/choice/next/s")

	rec := httptest.NewRecorder()
	if err := WriteDocument(rec, doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "none.wav") {
		t.Fatalf("no-reports label missing:\n%s", body)
	}
	if strings.Contains(body, "pre.wav") {
		t.Fatalf("pre-report label should not play when there are no reports:\n%s", body)
	}
	if !strings.Contains(body, `next="/ivr/choice/next/s"`) {
		t.Fatalf("redirect goto missing:\n%s", body)
	}
}

func TestRetrieveDocumentWithReports(t *testing.T) {
	doc := RetrieveDocument("en", "https://cdn/retrieve.wav",
		[]Line{{LabelURL: "https://cdn/region.wav", ValueURL: "https://cdn/north.wav"}},
		[][]Line{
			{{LabelURL: "https://cdn/crop.wav", ValueURL: "https://cdn/maize.wav"}},
			{{LabelURL: "https://cdn/crop.wav", ValueURL: "https://cdn/beans.wav"}},
		},
		"https://cdn/pre.wav", "https://cdn/none.wav", "/next")

	rec := httptest.NewRecorder()
	if err := WriteDocument(rec, doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "none.wav") {
		t.Fatalf("no-reports label should not play:\n%s", body)
	}
	if strings.Count(body, "pre.wav") != 2 {
		t.Fatalf("pre-report label should play once per report:\n%s", body)
	}
	if !strings.Contains(body, "north.wav") {
		t.Fatalf("filter echo missing:\n%s", body)
	}
}
