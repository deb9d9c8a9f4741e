package events

// JobEvent reports a grading job lifecycle transition.
type JobEvent struct {
	JobID           string `json:"job_id"`
	AssignmentID    string `json:"assignment_id"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	SubmissionCount int    `json:"submission_count,omitempty"`
	FlaggedCount    int    `json:"flagged_count,omitempty"`
}

// GradesPostedEvent reports grades pushed back to the course system.
type GradesPostedEvent struct {
	JobID        string `json:"job_id"`
	AssignmentID string `json:"assignment_id"`
	PostedCount  int    `json:"posted_count"`
}
