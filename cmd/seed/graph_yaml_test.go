package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvoice/ivr-platform/internal/ivr"
)

const seedYAML = `
service:
  name: road-damage
  description: Citizens report road damage by phone.
  language: en
  start: main-menu
labels:
  - name: menu-prompt
    fragments:
      en: menu.wav
      nl: menu-nl.wav
  - name: opt-report
    fragments: {en: opt-report.wav}
  - name: opt-listen
    fragments: {en: opt-listen.wav}
  - name: describe-prompt
    fragments: {en: describe.wav}
  - name: summary-intro
    fragments: {en: summary.wav}
  - name: confirm-prompt
    fragments: {en: confirm.wav}
  - name: q-damage
    fragments: {en: q-damage.wav}
  - name: playback-intro
    fragments: {en: playback.wav}
  - name: none
    fragments: {en: none.wav}
elements:
  - name: main-menu
    kind: choice
    label: menu-prompt
    options:
      - name: report
        label: opt-report
        redirect: describe
      - name: listen
        label: opt-listen
        redirect: playback
  - name: describe
    kind: record
    label: describe-prompt
    redirect: confirm
  - name: confirm
    kind: report
    label: summary-intro
    confirm_label: confirm-prompt
    redirect_yes: main-menu
    redirect_no: main-menu
    contents:
      - name: damage
        element: describe
        label: q-damage
  - name: playback
    kind: retrieve_reports
    label: playback-intro
    report: confirm
    max_amount: 3
    no_reports_label: none
    redirect: main-menu
    filters: [main-menu]
`

func TestBuildGraphResolvesNames(t *testing.T) {
	g, err := buildGraph([]byte(seedYAML))
	require.NoError(t, err)

	require.Len(t, g.Elements, 4)
	require.Len(t, g.Labels, 9)
	assert.Empty(t, g.Validate())

	menu := g.Elements[0]
	require.Equal(t, ivr.KindChoice, menu.Kind)
	require.Len(t, menu.Options, 2)
	require.True(t, g.Service.StartElementID.Valid)
	assert.Equal(t, menu.ID, g.Service.StartElementID.UUID)

	describe := g.Elements[1]
	assert.Equal(t, ivr.KindRecord, describe.Kind)
	require.True(t, menu.Options[0].RedirectID.Valid)
	assert.Equal(t, describe.ID, menu.Options[0].RedirectID.UUID)

	confirm := g.Elements[2]
	require.Len(t, confirm.Contents, 1)
	assert.Equal(t, describe.ID, confirm.Contents[0].ContentElementID)

	playback := g.Elements[3]
	require.True(t, playback.ReportElementID.Valid)
	assert.Equal(t, confirm.ID, playback.ReportElementID.UUID)
	assert.Equal(t, 3, playback.MaxAmount)
	require.Len(t, playback.Filters, 1)
	assert.Equal(t, menu.ID, playback.Filters[0].ChoiceElementID)
}

func TestBuildGraphIsDeterministic(t *testing.T) {
	a, err := buildGraph([]byte(seedYAML))
	require.NoError(t, err)
	b, err := buildGraph([]byte(seedYAML))
	require.NoError(t, err)

	assert.Equal(t, a.Service.ID, b.Service.ID)
	for i := range a.Elements {
		assert.Equal(t, a.Elements[i].ID, b.Elements[i].ID)
	}
}

func TestBuildGraphRejectsUnknownReference(t *testing.T) {
	broken := `
service:
  name: road-damage
  start: main-menu
elements:
  - name: main-menu
    kind: choice
    options:
      - name: report
        redirect: does-not-exist
`
	_, err := buildGraph([]byte(broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestBuildGraphLanguageDefaultsToEnglish(t *testing.T) {
	g, err := buildGraph([]byte("service:\n  name: bare\n"))
	require.NoError(t, err)
	assert.Equal(t, "en", g.Service.DefaultLanguage)
	assert.True(t, g.Service.Active)
}
