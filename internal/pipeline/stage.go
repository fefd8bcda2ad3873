package pipeline

import (
	"sync"
	"time"
)

// Stage identifiers for one pipeline run, in execution order.
const (
	StageParse     = "parse"
	StageValidate  = "validate"
	StageEnrich    = "enrich"
	StageCalculate = "calculate"
)

// StageStatus represents the current status of a pipeline stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// StageState is the runtime state of one stage, safe for concurrent reads
// while a run is in flight.
type StageState struct {
	mu        sync.RWMutex
	ID        string      `json:"id"`
	Status    StageStatus `json:"status"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// NewStageState creates a stage state in the pending status.
func NewStageState(id string) *StageState {
	return &StageState{ID: id, Status: StageStatusPending}
}

// Start marks the stage active and records the start time.
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StageStatusActive
}

// Complete marks the stage completed and records the end time.
func (s *StageState) Complete(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusCompleted
	s.Message = message
}

// Fail marks the stage failed with the given error.
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusFailed
	if err != nil {
		s.Message = err.Error()
	}
}

// Duration returns how long the stage has been (or was) running.
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// Snapshot returns a copy of the stage state taken under the read lock,
// safe to serialize while the run is still mutating the original.
func (s *StageState) Snapshot() *StageState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &StageState{ID: s.ID, Status: s.Status, Message: s.Message}
	if s.StartTime != nil {
		t := *s.StartTime
		c.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return c
}

// CurrentStatus returns the stage status under the read lock.
func (s *StageState) CurrentStatus() StageStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}
