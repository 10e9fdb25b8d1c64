// Package storage holds uploaded PDFs in a per-session temp directory.
// Nothing is indexed or persisted: the directory lives exactly as long as
// its session and is wiped when the session is replaced or expires.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pwin-ai/pdf-analyzer/internal/models"
)

// Store is the interface the rest of the app uses; it allows a mock in
// handler tests.
type Store interface {
	SaveDocument(sessionID, name string, data []byte) (*models.UploadedDocument, error)
	RemoveSession(sessionID string) error
}

// TempStore writes uploads under baseDir/<sessionID>/.
type TempStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewTempStore creates the base directory if needed.
func NewTempStore(baseDir string) (*TempStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &TempStore{baseDir: baseDir}, nil
}

// SaveDocument writes the file into the session directory and returns its
// metadata. File names are disambiguated with a uuid prefix so two uploads
// with the same name cannot collide.
func (s *TempStore) SaveDocument(sessionID, name string, data []byte) (*models.UploadedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionDir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	id := uuid.New().String()
	// filepath.Base guards against path traversal in the client-supplied name.
	safeName := filepath.Base(name)
	path := filepath.Join(sessionDir, id[:8]+"_"+safeName)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &models.UploadedDocument{
		ID:         id,
		Name:       safeName,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Path:       path,
	}, nil
}

// RemoveSession deletes the session directory and everything in it.
func (s *TempStore) RemoveSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.baseDir, sessionID))
}
