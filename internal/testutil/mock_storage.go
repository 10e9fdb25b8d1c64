// mock_storage.go - In-memory storage.Store implementation for testing
package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/pwin-ai/pdf-analyzer/internal/models"
)

// MockStorage implements storage.Store without touching the filesystem.
// Documents get a synthetic path so code that only passes paths around
// still works; tests that need readable files use a real TempStore.
type MockStorage struct {
	mu      sync.RWMutex
	nextID  int
	data    map[string]map[string][]byte // sessionID -> docID -> bytes
	Removed []string

	// SaveErr, when set, is returned by every SaveDocument call.
	SaveErr error
}

// NewMockStorage creates an empty mock store.
func NewMockStorage() *MockStorage {
	return &MockStorage{data: make(map[string]map[string][]byte)}
}

func (m *MockStorage) SaveDocument(sessionID, name string, data []byte) (*models.UploadedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return nil, m.SaveErr
	}

	m.nextID++
	id := fmt.Sprintf("doc-%d", m.nextID)
	if m.data[sessionID] == nil {
		m.data[sessionID] = make(map[string][]byte)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[sessionID][id] = stored

	return &models.UploadedDocument{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Path:       "mock://" + sessionID + "/" + id,
	}, nil
}

func (m *MockStorage) RemoveSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, sessionID)
	m.Removed = append(m.Removed, sessionID)
	return nil
}

// DocumentCount returns how many documents a session holds.
func (m *MockStorage) DocumentCount(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[sessionID])
}
