package v1alpha1

func StringToJobStatus(s string) JobStatus {
	switch s {
	case string(JobStatusPending):
		return JobStatusPending
	case string(JobStatusRunning):
		return JobStatusRunning
	case string(JobStatusCompleted):
		return JobStatusCompleted
	case string(JobStatusFailed):
		return JobStatusFailed
	default:
		return JobStatusPending
	}
}

// StringToSubmissionFilter maps a request parameter to a known filter,
// defaulting to all.
func StringToSubmissionFilter(s string) SubmissionFilter {
	switch s {
	case string(FilterOnTime):
		return FilterOnTime
	case string(FilterLate):
		return FilterLate
	case string(FilterResubmitted):
		return FilterResubmitted
	case string(FilterMissing):
		return FilterMissing
	default:
		return FilterAll
	}
}

// Terminal reports whether a job in this status will never transition again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
