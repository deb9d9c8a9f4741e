package v1alpha1

import "github.com/google/uuid"

// RubricRating is one discrete rating level of a rubric criterion.
type RubricRating struct {
	Description string  `json:"description"`
	Points      float64 `json:"points"`
}

// RubricCriterion is one scored dimension of an assignment. Criteria are
// immutable once fetched for a grading pass.
type RubricCriterion struct {
	ID              string         `json:"id"`
	Description     string         `json:"description"`
	LongDescription string         `json:"long_description,omitempty"`
	Points          float64        `json:"points"`
	Ratings         []RubricRating `json:"ratings,omitempty"`
}

// CriterionGrade is the assessed score and feedback for a single criterion.
type CriterionGrade struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// GradeResult is the validated outcome of grading one submission.
// Total is always recomputed from the criterion scores; the model's
// self-reported total is never trusted. Error marks a sentinel empty grade
// produced when extraction or the model call failed.
type GradeResult struct {
	Criteria        map[string]CriterionGrade `json:"criteria"`
	Total           float64                   `json:"total"`
	GeneralFeedback string                    `json:"general_feedback"`
	Error           bool                      `json:"error,omitempty"`
	Adjusted        bool                      `json:"adjusted,omitempty"`
}

// SuggestedAdjustment is a reviewer-proposed score change for one criterion.
type SuggestedAdjustment struct {
	CurrentScore   float64 `json:"current_score"`
	SuggestedScore float64 `json:"suggested_score"`
	Reason         string  `json:"reason"`
}

// FairnessReview is the outcome of the secondary model's audit of a grade.
type FairnessReview struct {
	Flagged              bool                           `json:"flagged"`
	Confidence           float64                        `json:"confidence"`
	Issues               []string                       `json:"issues,omitempty"`
	SuggestedAdjustments map[string]SuggestedAdjustment `json:"suggested_adjustments,omitempty"`
	Message              string                         `json:"message"`
}

// SubmissionGrade is a GradeResult merged with the fairness signal for one
// submission. This is the shape stored in a job's grade mapping.
type SubmissionGrade struct {
	GradeResult
	FairnessFlag    bool   `json:"fairness_flag"`
	FairnessMessage string `json:"fairness_message"`
}

// Attachment is one uploaded file of a submission.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Submission is one student submission of an assignment.
type Submission struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id,omitempty"`
	AnonymousID   string       `json:"anonymous_id,omitempty"`
	Late          bool         `json:"late,omitempty"`
	Missing       bool         `json:"missing,omitempty"`
	Attempt       int          `json:"attempt,omitempty"`
	WorkflowState string       `json:"workflow_state,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

// SubmissionFilter narrows which submissions a grading job covers.
type SubmissionFilter string

const (
	FilterAll         SubmissionFilter = "all"
	FilterOnTime      SubmissionFilter = "ontime"
	FilterLate        SubmissionFilter = "late"
	FilterResubmitted SubmissionFilter = "resubmitted"
	FilterMissing     SubmissionFilter = "missing"
)

// Assignment is the graded assignment's metadata together with its rubric.
type Assignment struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Rubric []RubricCriterion `json:"rubric,omitempty"`
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobProgress tracks how far a running job has advanced. Readers polling a
// running job may observe transiently inconsistent {status, progress} pairs.
type JobProgress struct {
	Current        int    `json:"current"`
	Total          int    `json:"total"`
	CurrentStudent string `json:"current_student,omitempty"`
}

// GradingResult is the aggregate outcome of a completed job.
type GradingResult struct {
	Assignment  Assignment                 `json:"assignment"`
	Submissions []Submission               `json:"submissions"`
	Grades      map[string]SubmissionGrade `json:"grades"`
}

// Job is the status payload exposed to polling clients.
type Job struct {
	ID       uuid.UUID      `json:"jobId"`
	Status   JobStatus      `json:"status"`
	Progress JobProgress    `json:"progress"`
	Result   *GradingResult `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}
