package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
	"github.com/gradekit/speed-grader/internal/llm"
	"github.com/gradekit/speed-grader/pkg/metrics"
)

const (
	defaultMaxReviewChars  = 10000
	reviewTruncationMarker = "\n[Truncated...]"

	reviewSkippedGradingError = "Skipped - grading error"
)

// FairnessService audits a primary grade with a second, independent model.
// A reviewer failure never blocks grading; it only forfeits the fairness
// signal for that submission.
type FairnessService struct {
	model    llm.Client
	maxChars int
}

func NewFairnessService(model llm.Client, maxChars int) *FairnessService {
	if maxChars <= 0 {
		maxChars = defaultMaxReviewChars
	}
	return &FairnessService{
		model:    model,
		maxChars: maxChars,
	}
}

// Review audits grade against the submission text and the rubric.
func (s *FairnessService) Review(ctx context.Context, text string, rubric []api.RubricCriterion, grade api.GradeResult) api.FairnessReview {
	logger := zap.S().Named("fairness_service")

	// A sentinel error grade is not a grade; validating it would waste a
	// model call.
	if grade.Error {
		return api.FairnessReview{Flagged: false, Message: reviewSkippedGradingError}
	}

	text = truncate(text, s.maxChars, reviewTruncationMarker)
	prompt := llm.ReviewPrompt(rubric, text, grade)

	var raw string
	err := retry.Do(ctx, retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond)), func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.model.Complete(ctx, llm.FairnessSystemPrompt, prompt)
		if callErr != nil {
			return retry.RetryableError(callErr)
		}
		return nil
	})
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(metrics.RoleReviewer, metrics.OutcomeError).Inc()
		logger.Errorw("fairness model call failed", "error", err)
		return api.FairnessReview{Flagged: false, Message: fmt.Sprintf("Review skipped: %s", err)}
	}

	var review api.FairnessReview
	if err := llm.ParseJSON(raw, &review); err != nil {
		metrics.ModelCallsTotal.WithLabelValues(metrics.RoleReviewer, metrics.OutcomeParse).Inc()
		logger.Errorw("fairness response not parseable", "error", err)
		return api.FairnessReview{Flagged: false, Message: fmt.Sprintf("Review skipped: %s", err)}
	}

	metrics.ModelCallsTotal.WithLabelValues(metrics.RoleReviewer, metrics.OutcomeOK).Inc()
	if review.Flagged {
		metrics.FairnessFlagsTotal.Inc()
	}
	return review
}

// ApplyAdjustments produces a new grade with the reviewer's suggested scores
// applied. Each adjusted criterion's feedback records the reason and the
// total is recomputed from the adjusted scores.
func ApplyAdjustments(grade api.GradeResult, adjustments map[string]api.SuggestedAdjustment) api.GradeResult {
	updated := api.GradeResult{
		Criteria:        make(map[string]api.CriterionGrade, len(grade.Criteria)),
		GeneralFeedback: grade.GeneralFeedback,
		Adjusted:        true,
	}

	for id, criterion := range grade.Criteria {
		if adjustment, ok := adjustments[id]; ok {
			criterion.Score = adjustment.SuggestedScore
			criterion.Feedback += fmt.Sprintf("\n[Adjusted: %s]", adjustment.Reason)
		}
		updated.Criteria[id] = criterion
		updated.Total += criterion.Score
	}

	return updated
}
