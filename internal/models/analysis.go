package models

import "fmt"

// Operation selects which backend analyses to perform on an upload.
type Operation string

const (
	OpClassify       Operation = "classify"
	OpEvaluateRFP    Operation = "evaluate-rfp"
	OpReadinessScore Operation = "readiness-score"
)

// AllOperations lists every operation in pipeline order.
var AllOperations = []Operation{OpClassify, OpEvaluateRFP, OpReadinessScore}

// ParseOperation validates a client-supplied operation name.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpClassify, OpEvaluateRFP, OpReadinessScore:
		return Operation(s), nil
	}
	return "", fmt.Errorf("unknown operation: %q", s)
}

// Classification is one entry of the backend classify response.
// Content is the extracted document text; it is forwarded to the later
// backend calls but never rendered.
type Classification struct {
	FileName string `json:"file_name" msgpack:"file_name"`
	DocType  string `json:"doc_type" msgpack:"doc_type"`
	Content  string `json:"content,omitempty" msgpack:"content"`
}

// DocTypeRFP is the classification label that gates the evaluate and
// score stages.
const DocTypeRFP = "RFP"

// RFPEvaluation is the backend extract response: whether the uploaded set
// covers scope, objectives, tasks and deliverables, and where.
type RFPEvaluation struct {
	RequirementMet      bool              `json:"requirement_met" msgpack:"requirement_met"`
	SOWElementsFileName string            `json:"sow_elements_file_name,omitempty" msgpack:"sow_elements_file_name"`
	SOWElements         map[string]string `json:"sow_elements,omitempty" msgpack:"sow_elements"`
	Coverage            map[string]string `json:"coverage,omitempty" msgpack:"coverage"`
}

// ReadinessReport is the backend score response. Score is in [0,1] and
// optional: some backends return only a message when there is not enough
// material to score.
type ReadinessReport struct {
	Score         *float64           `json:"readiness_score,omitempty" msgpack:"readiness_score"`
	Reason        map[string]string  `json:"reason,omitempty" msgpack:"reason"`
	SectionScores map[string]float64 `json:"section_scores,omitempty" msgpack:"section_scores"`
	Message       string             `json:"message,omitempty" msgpack:"message"`
}

// Halt records a pipeline stop that is a user problem rather than a
// backend failure (no RFP in the upload, requirement not met).
type Halt struct {
	Stage   Operation `json:"stage" msgpack:"stage"`
	Message string    `json:"message" msgpack:"message"`
}

// AnalysisResult holds everything one analyze action produced. Sections
// for operations that were not selected (or not reached) are nil. A
// session holds at most one of these; a new upload replaces it wholesale.
type AnalysisResult struct {
	Operations      []Operation      `json:"operations" msgpack:"operations"`
	Classifications []Classification `json:"classifications,omitempty" msgpack:"classifications"`
	Evaluation      *RFPEvaluation   `json:"evaluation,omitempty" msgpack:"evaluation"`
	Readiness       *ReadinessReport `json:"readiness,omitempty" msgpack:"readiness"`
	Halt            *Halt            `json:"halt,omitempty" msgpack:"halt"`
}

// HasOperation reports whether op was requested for this result.
func (r *AnalysisResult) HasOperation(op Operation) bool {
	for _, o := range r.Operations {
		if o == op {
			return true
		}
	}
	return false
}
