package voice

import (
	"encoding/xml"
	"net/http"
)

// Line pairs a spoken label with the spoken value that follows it, both as
// audio URLs.
type Line struct {
	LabelURL string
	ValueURL string
}

// Document is a minimal VoiceXML document: the voice-markup equivalent of a
// rendered page, one per call turn.
type Document struct {
	XMLName xml.Name `xml:"vxml"`
	Version string   `xml:"version,attr"`
	Lang    string   `xml:"xml:lang,attr,omitempty"`
	Forms   []Form   `xml:"form"`
}

type Form struct {
	ID      string        `xml:"id,attr,omitempty"`
	Blocks  []Block       `xml:"block,omitempty"`
	Fields  []Field       `xml:"field,omitempty"`
	Records []RecordField `xml:"record,omitempty"`
}

type Block struct {
	Audios []Audio `xml:"audio,omitempty"`
	Goto   *Goto   `xml:"goto,omitempty"`
}

type Audio struct {
	Src string `xml:"src,attr"`
}

type Field struct {
	Name    string   `xml:"name,attr"`
	Prompts []Prompt `xml:"prompt,omitempty"`
	Options []Option `xml:"option,omitempty"`
	Filled  *Filled  `xml:"filled,omitempty"`
}

type RecordField struct {
	Name    string   `xml:"name,attr"`
	Beep    bool     `xml:"beep,attr"`
	Prompts []Prompt `xml:"prompt,omitempty"`
	Filled  *Filled  `xml:"filled,omitempty"`
}

type Prompt struct {
	Audios []Audio `xml:"audio,omitempty"`
}

type Option struct {
	DTMF  string `xml:"dtmf,attr"`
	Value string `xml:"value,attr"`
}

type Filled struct {
	Submit *Submit `xml:"submit,omitempty"`
}

type Submit struct {
	Next     string `xml:"next,attr"`
	Method   string `xml:"method,attr,omitempty"`
	NameList string `xml:"namelist,attr,omitempty"`
}

type Goto struct {
	Next string `xml:"next,attr"`
}

func newDocument(lang string, forms ...Form) *Document {
	return &Document{Version: "2.1", Lang: lang, Forms: forms}
}

func lineAudios(lines []Line) []Audio {
	var out []Audio
	for _, l := range lines {
		out = append(out, Audio{Src: l.LabelURL}, Audio{Src: l.ValueURL})
	}
	return out
}

// ChoiceOptionView is one selectable option as rendered: its DTMF digit, the
// option id submitted back, and the option's audio prompt.
type ChoiceOptionView struct {
	DTMF     string
	Value    string
	AudioURL string
}

// ChoiceDocument prompts the caller with a choice and its options; the
// selected option id is posted back to submitURL.
func ChoiceDocument(lang, promptURL string, options []ChoiceOptionView, submitURL string) *Document {
	prompt := Prompt{Audios: []Audio{{Src: promptURL}}}
	field := Field{
		Name:    "option",
		Prompts: []Prompt{prompt},
		Filled:  &Filled{Submit: &Submit{Next: submitURL, Method: "post", NameList: "option"}},
	}
	for _, o := range options {
		field.Prompts = append(field.Prompts, Prompt{Audios: []Audio{{Src: o.AudioURL}}})
		field.Options = append(field.Options, Option{DTMF: o.DTMF, Value: o.Value})
	}
	return newDocument(lang, Form{ID: "choice", Fields: []Field{field}})
}

// RecordDocument prompts the caller to speak after the beep; the recording
// reference is posted back to submitURL.
func RecordDocument(lang, promptURL, submitURL string) *Document {
	rec := RecordField{
		Name:    "recording",
		Beep:    true,
		Prompts: []Prompt{{Audios: []Audio{{Src: promptURL}}}},
		Filled:  &Filled{Submit: &Submit{Next: submitURL, Method: "post", NameList: "recording"}},
	}
	return newDocument(lang, Form{ID: "record", Records: []RecordField{rec}})
}

// ReportDocument plays the summary of answers about to be stored and asks
// for a yes/no confirmation, posted back to submitURL.
func ReportDocument(lang, promptURL string, summary []Line, confirmURL, submitURL string) *Document {
	audios := []Audio{{Src: promptURL}}
	audios = append(audios, lineAudios(summary)...)
	audios = append(audios, Audio{Src: confirmURL})
	field := Field{
		Name:    "confirm",
		Prompts: []Prompt{{Audios: audios}},
		Options: []Option{
			{DTMF: "1", Value: "yes"},
			{DTMF: "2", Value: "no"},
		},
		Filled: &Filled{Submit: &Submit{Next: submitURL, Method: "post", NameList: "confirm"}},
	}
	return newDocument(lang, Form{ID: "report", Fields: []Field{field}})
}

// RetrieveDocument plays back retrieved reports (or the no-reports label when
// none survive the filters) and then moves the caller on to redirectURL.
func RetrieveDocument(lang, promptURL string, filterSelections []Line, reports [][]Line, preReportURL, noReportsURL, redirectURL string) *Document {
	intro := Block{Audios: []Audio{{Src: promptURL}}}
	intro.Audios = append(intro.Audios, lineAudios(filterSelections)...)

	blocks := []Block{intro}
	if len(reports) == 0 {
		blocks = append(blocks, Block{Audios: []Audio{{Src: noReportsURL}}})
	} else {
		for _, report := range reports {
			audios := []Audio{}
			if preReportURL != "" {
				audios = append(audios, Audio{Src: preReportURL})
			}
			audios = append(audios, lineAudios(report)...)
			blocks = append(blocks, Block{Audios: audios})
		}
	}
	blocks = append(blocks, Block{Goto: &Goto{Next: redirectURL}})
	return newDocument(lang, Form{ID: "retrieve", Blocks: blocks})
}

// WriteDocument renders a document as a voice-markup response.
func WriteDocument(w http.ResponseWriter, doc *Document) error {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
