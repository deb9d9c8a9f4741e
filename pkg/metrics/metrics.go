package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Grading pipeline collectors. Registered with the default registry at
// package load; every counter is partitioned so the dashboards can separate
// grader failures from reviewer failures.
var (
	GradingJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_jobs_total",
		Help: "Number of grading jobs partitioned by terminal status.",
	}, []string{"status"})

	SubmissionsGradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grader_submissions_graded_total",
		Help: "Number of submissions that went through the grading pipeline.",
	})

	ModelCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_model_calls_total",
		Help: "Number of model invocations partitioned by role and outcome.",
	}, []string{"role", "outcome"})

	FairnessFlagsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grader_fairness_flags_total",
		Help: "Number of grades flagged by the fairness reviewer.",
	})
)

const (
	RoleGrader   = "grader"
	RoleReviewer = "reviewer"

	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeParse  = "parse_error"
)
