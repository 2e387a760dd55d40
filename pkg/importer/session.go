package importer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitalvault/importer/pkg/common/models"
)

// Session owns the in-memory set of processed files for the current upload
// session. Statuses move processing -> (completed | warning | error) and a
// terminal status never regresses. The session is cleared on explicit reset;
// nothing here is persisted.
type Session struct {
	mu    sync.Mutex
	files []*models.ProcessedFile
	byID  map[string]*models.ProcessedFile
}

func NewSession() *Session {
	return &Session{byID: make(map[string]*models.ProcessedFile)}
}

// Begin registers a file in processing state and returns its ID.
func (s *Session) Begin(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	pf := &models.ProcessedFile{
		ID:          uuid.New().String(),
		Name:        name,
		Status:      models.StatusProcessing,
		ProcessedAt: time.Now().UTC(),
	}
	s.files = append(s.files, pf)
	s.byID[pf.ID] = pf
	return pf.ID
}

func (s *Session) SetFormat(id, format string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pf, ok := s.byID[id]; ok {
		pf.Format = format
	}
}

func (s *Session) Complete(id string, recordCount int) {
	s.finish(id, models.StatusCompleted, recordCount, "")
}

// Warn marks a file that parsed cleanly but produced zero records.
func (s *Session) Warn(id string) {
	s.finish(id, models.StatusWarning, 0, "no records found")
}

func (s *Session) Fail(id string, message string) {
	s.finish(id, models.StatusError, 0, message)
}

func (s *Session) finish(id, status string, count int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pf, ok := s.byID[id]
	if !ok {
		return
	}
	if pf.Status != models.StatusProcessing {
		// terminal, never regress
		return
	}
	pf.Status = status
	pf.RecordCount = count
	pf.Error = message
	pf.ProcessedAt = time.Now().UTC()
}

// Get returns a copy of one processed file.
func (s *Session) Get(id string) (models.ProcessedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pf, ok := s.byID[id]
	if !ok {
		return models.ProcessedFile{}, false
	}
	return *pf, true
}

// Files returns copies of every processed file in upload order.
func (s *Session) Files() []models.ProcessedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ProcessedFile, 0, len(s.files))
	for _, pf := range s.files {
		out = append(out, *pf)
	}
	return out
}

// Reset discards the session's processed files.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.byID = make(map[string]*models.ProcessedFile)
}
