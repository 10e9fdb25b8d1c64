// Package render maps an AnalysisResult onto widget view-models for the
// embedded frontend: a table for classification, gauges for scores, and
// expandable key/value sections for the text fields. Actual drawing
// happens client-side; this layer only decides which widget shows which
// field and fills placeholders for anything the backend omitted.
package render

import (
	"fmt"
	"sort"

	"github.com/pwin-ai/pdf-analyzer/internal/models"
)

// Gauge color bands, as percentages of the 0-100 range.
const (
	bandLowEnd  = 50
	bandMidEnd  = 75
	bandHighEnd = 100

	colorLow  = "#d62728"
	colorMid  = "#e7c419"
	colorHigh = "#2ca02c"
)

// sectionGaugeOrder fixes the display order of the per-section gauges.
var sectionGaugeOrder = []string{"scope", "objectives", "tasks", "deliverables"}

// PlaceholderText is rendered for optional fields the backend omitted.
const PlaceholderText = "Not provided by the analysis service."

// ViewModel is the full renderable state for one analysis.
type ViewModel struct {
	Classification *ClassificationView `json:"classification,omitempty"`
	Evaluation     *EvaluationView     `json:"evaluation,omitempty"`
	Readiness      *ReadinessView      `json:"readiness,omitempty"`
	Halt           *HaltView           `json:"halt,omitempty"`
}

// ClassificationView renders as a plain table.
type ClassificationView struct {
	Table Table `json:"table"`
}

// Table is a column/row grid.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// EvaluationView renders the requirement verdict plus expandable sections.
type EvaluationView struct {
	RequirementMet bool      `json:"requirementMet"`
	SOWFiles       string    `json:"sowFiles"`
	SOWElements    []KeyText `json:"sowElements"`
	Coverage       []KeyText `json:"coverage"`
}

// ReadinessView renders the overall gauge, reasons and section gauges.
type ReadinessView struct {
	Gauge         *Gauge    `json:"gauge,omitempty"`
	Placeholder   string    `json:"placeholder,omitempty"`
	Reasons       []KeyText `json:"reasons"`
	SectionGauges []Gauge   `json:"sectionGauges,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// HaltView carries the user-facing message for a gated stop.
type HaltView struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Gauge describes a dial from 0 to 100 with colored bands.
type Gauge struct {
	Title string  `json:"title"`
	Value float64 `json:"value"`
	Bands []Band  `json:"bands"`
}

// Band is one colored segment of a gauge.
type Band struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

// KeyText is a titled block of text inside an expander.
type KeyText struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Build converts a result into its view-model. Nil-safe throughout:
// missing optional fields become placeholders, never a panic.
func Build(result *models.AnalysisResult) *ViewModel {
	if result == nil {
		return &ViewModel{}
	}

	vm := &ViewModel{}
	if result.Classifications != nil {
		vm.Classification = buildClassification(result.Classifications)
	}
	if result.Evaluation != nil {
		vm.Evaluation = buildEvaluation(result.Evaluation)
	}
	if result.Readiness != nil {
		vm.Readiness = buildReadiness(result.Readiness)
	}
	if result.Halt != nil {
		vm.Halt = &HaltView{
			Stage:   string(result.Halt.Stage),
			Message: result.Halt.Message,
		}
	}
	return vm
}

// buildClassification drops the content column: extracted text is backend
// plumbing, not something to display.
func buildClassification(classifications []models.Classification) *ClassificationView {
	rows := make([][]string, 0, len(classifications))
	for _, c := range classifications {
		docType := c.DocType
		if docType == "" {
			docType = PlaceholderText
		}
		rows = append(rows, []string{c.FileName, docType})
	}
	return &ClassificationView{
		Table: Table{
			Columns: []string{"File Name", "Classification"},
			Rows:    rows,
		},
	}
}

func buildEvaluation(eval *models.RFPEvaluation) *EvaluationView {
	view := &EvaluationView{
		RequirementMet: eval.RequirementMet,
		SOWFiles:       eval.SOWElementsFileName,
		SOWElements:    sortedKeyTexts(eval.SOWElements),
		Coverage:       sortedKeyTexts(eval.Coverage),
	}
	if view.SOWFiles == "" {
		view.SOWFiles = PlaceholderText
	}
	return view
}

func buildReadiness(report *models.ReadinessReport) *ReadinessView {
	view := &ReadinessView{
		Reasons: sortedKeyTexts(report.Reason),
		Message: report.Message,
	}

	if report.Score != nil {
		view.Gauge = newGauge("Readiness Score", *report.Score)
	} else {
		view.Placeholder = PlaceholderText
	}

	// Section gauges only make sense when the backend scored all four
	// SOW dimensions; otherwise the message (if any) stands in.
	if len(report.SectionScores) > 3 {
		for _, section := range sectionGaugeOrder {
			score, ok := report.SectionScores[section]
			if !ok {
				continue
			}
			view.SectionGauges = append(view.SectionGauges, *newGauge(titleCase(section), score))
		}
	}

	return view
}

// newGauge scales a [0,1] score to percent and attaches the color bands.
func newGauge(title string, score float64) *Gauge {
	value := score * 100
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return &Gauge{
		Title: title,
		Value: value,
		Bands: []Band{
			{From: 0, To: bandLowEnd, Color: colorLow},
			{From: bandLowEnd, To: bandMidEnd, Color: colorMid},
			{From: bandMidEnd, To: bandHighEnd, Color: colorHigh},
		},
	}
}

func sortedKeyTexts(m map[string]string) []KeyText {
	if len(m) == 0 {
		return []KeyText{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]KeyText, 0, len(keys))
	for _, k := range keys {
		text := m[k]
		if text == "" {
			text = PlaceholderText
		}
		out = append(out, KeyText{Key: titleCase(k), Text: text})
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return fmt.Sprintf("%c%s", s[0]-'a'+'A', s[1:])
	}
	return s
}
