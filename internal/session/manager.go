// Package session tracks the current upload/result pair per browser
// session. A session holds at most one AnalysisResult; uploading again
// replaces the session and deletes the previous documents and result.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pwin-ai/pdf-analyzer/internal/models"
	"github.com/pwin-ai/pdf-analyzer/internal/storage"
)

// MaxSessions caps concurrent sessions to bound temp-dir usage.
const MaxSessions = 50

// DefaultMaxAge is how long an idle session survives before cleanup.
const DefaultMaxAge = 30 * time.Minute

type sessionState struct {
	session      *models.AnalysisSession
	lastAccessed time.Time
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	store    storage.Store
}

// NewManager creates a session manager backed by the given store.
func NewManager(store storage.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*sessionState),
		store:    store,
	}
}

// Create starts a new session for the uploaded documents. The id is
// normally allocated by the caller (it keys the storage directory); an
// empty id gets a fresh uuid. When replacesID names an existing session,
// that session and its files are removed first, so no stale result can
// outlive a re-upload.
func (m *Manager) Create(id string, docs []*models.UploadedDocument, replacesID string) *models.AnalysisSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if replacesID != "" {
		m.removeLocked(replacesID)
	}
	m.evictOldestLocked()

	if id == "" {
		id = uuid.New().String()
	}
	sess := models.NewAnalysisSession(id, docs)
	m.sessions[sess.ID] = &sessionState{
		session:      sess,
		lastAccessed: time.Now(),
	}
	return sess
}

// Get returns a session by ID and refreshes its idle timer.
func (m *Manager) Get(id string) (*models.AnalysisSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	state.lastAccessed = time.Now()
	return state.session, true
}

// SetAnalyzing marks the session as having an analyze request in flight.
// It fails when another request is already running for the same session.
func (m *Manager) SetAnalyzing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok || state.session.Status == models.SessionStatusAnalyzing {
		return false
	}
	state.session.Status = models.SessionStatusAnalyzing
	state.session.Result = nil
	state.session.Error = ""
	state.lastAccessed = time.Now()
	return true
}

// SetResult stores a completed analysis, replacing whatever was there.
func (m *Manager) SetResult(id string, result *models.AnalysisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return
	}
	state.session.Result = result
	state.session.Status = models.SessionStatusComplete
	state.session.Error = ""
	state.lastAccessed = time.Now()
}

// SetError records a failed analysis. The previous result is already gone
// (cleared by SetAnalyzing), so the UI cannot show stale output next to
// the error.
func (m *Manager) SetError(id string, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return
	}
	state.session.Result = nil
	state.session.Status = models.SessionStatusError
	state.session.Error = msg
	state.lastAccessed = time.Now()
}

// Remove deletes a session and its stored files.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

// CleanupOldSessions removes sessions idle for longer than maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, state := range m.sessions {
		// Never reap a session mid-analysis.
		if state.session.Status == models.SessionStatusAnalyzing {
			continue
		}
		if state.lastAccessed.Before(cutoff) {
			m.removeLocked(id)
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) removeLocked(id string) {
	if _, ok := m.sessions[id]; !ok {
		return
	}
	delete(m.sessions, id)
	if m.store != nil {
		m.store.RemoveSession(id)
	}
}

// evictOldestLocked frees room for a new session when at capacity.
func (m *Manager) evictOldestLocked() {
	for len(m.sessions) >= MaxSessions {
		var oldestID string
		var oldest time.Time
		for id, state := range m.sessions {
			if state.session.Status == models.SessionStatusAnalyzing {
				continue
			}
			if oldestID == "" || state.lastAccessed.Before(oldest) {
				oldestID = id
				oldest = state.lastAccessed
			}
		}
		if oldestID == "" {
			return
		}
		m.removeLocked(oldestID)
	}
}
