package models

import "time"

// SessionStatus represents the state of an analysis session.
type SessionStatus string

const (
	SessionStatusReady     SessionStatus = "ready"     // documents uploaded, nothing analyzed yet
	SessionStatusAnalyzing SessionStatus = "analyzing" // an analyze request is in flight
	SessionStatusComplete  SessionStatus = "complete"
	SessionStatusError     SessionStatus = "error"
)

// AnalysisSession ties the current upload to its (at most one) result.
type AnalysisSession struct {
	ID        string              `json:"id"`
	Documents []*UploadedDocument `json:"documents"`
	Status    SessionStatus       `json:"status"`
	Result    *AnalysisResult     `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// NewAnalysisSession creates a session in ready status.
func NewAnalysisSession(id string, docs []*UploadedDocument) *AnalysisSession {
	return &AnalysisSession{
		ID:        id,
		Documents: docs,
		Status:    SessionStatusReady,
		CreatedAt: time.Now(),
	}
}
