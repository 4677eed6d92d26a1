package tasks

import (
	"fmt"
	"sync"
)

type SourceError struct {
	SourceName string `json:"source"`
	Message    string `json:"message"`
}

// Summary collects the outcome of one run. It is safe for concurrent use.
type Summary struct {
	mu     sync.Mutex
	sent   int
	errors []SourceError
}

func NewSummary() *Summary {
	return &Summary{}
}

func (s *Summary) AddSent(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent += n
}

func (s *Summary) AddError(sourceName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, SourceError{SourceName: sourceName, Message: err.Error()})
}

func (s *Summary) NotificationsSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func (s *Summary) Errors() []SourceError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SourceError(nil), s.errors...)
}

func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Sent: %d, Errors: %d", s.sent, len(s.errors))
}
