package model

import "time"

// GradingRecord is one row of the grading history kept after a job
// finishes or after grades are posted to the system of record.
type GradingRecord struct {
	ID              uint   `gorm:"primaryKey"`
	JobID           string `gorm:"index"`
	AssignmentID    string
	AssignmentName  string
	SubmissionCount int
	FlaggedCount    int
	PostedCount     int
	CreatedAt       time.Time
}
