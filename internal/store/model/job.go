package model

import (
	"time"

	"github.com/google/uuid"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
)

// Job status constants
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Progress tracks how far a running job has advanced through its
// submissions.
type Progress struct {
	Current        int
	Total          int
	CurrentStudent string
}

// Job is one asynchronous grading run over all submissions of an
// assignment. Owned exclusively by one background worker once running;
// polled concurrently by status reads. Result is only ever set together
// with the completed status and never mutated afterwards.
type Job struct {
	ID        uuid.UUID
	Status    string
	Progress  Progress
	Result    *api.GradingResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
