package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
	"github.com/gradekit/speed-grader/internal/llm"
	"github.com/gradekit/speed-grader/pkg/metrics"
)

const (
	defaultMaxSubmissionChars = 15000

	truncationMarker = "\n\n[Content truncated due to length...]"

	unreadableSubmissionMessage = "Unable to read submission files"
	noAssessmentFeedback        = "No assessment provided"
	unableToGradeFeedback       = "Unable to grade"
)

// GradingService invokes the primary grading model and validates its output
// against the rubric bounds. Grade never returns an error: every failure
// collapses into a sentinel empty grade so one bad submission cannot abort a
// job.
type GradingService struct {
	model    llm.Client
	maxChars int
}

func NewGradingService(model llm.Client, maxChars int) *GradingService {
	if maxChars <= 0 {
		maxChars = defaultMaxSubmissionChars
	}
	return &GradingService{
		model:    model,
		maxChars: maxChars,
	}
}

// modelGrade is the response shape demanded by the grading system prompt.
// The self-reported total is decoded but never trusted.
type modelGrade struct {
	Criteria        map[string]modelCriterionGrade `json:"criteria"`
	Total           float64                        `json:"total"`
	GeneralFeedback string                         `json:"general_feedback"`
}

type modelCriterionGrade struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Grade evaluates submission text against the rubric.
func (s *GradingService) Grade(ctx context.Context, text string, rubric []api.RubricCriterion, assignmentName string) api.GradeResult {
	logger := zap.S().Named("grading_service")

	// An empty blob or one that opens with an extraction marker means no
	// usable content was recovered; skip the model call entirely.
	if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "[") {
		return emptyGrade(rubric, unreadableSubmissionMessage)
	}

	text = truncate(text, s.maxChars, truncationMarker)
	prompt := llm.GradingPrompt(assignmentName, rubric, text)

	var raw string
	err := retry.Do(ctx, retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond)), func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.model.Complete(ctx, llm.GradingSystemPrompt, prompt)
		if callErr != nil {
			return retry.RetryableError(callErr)
		}
		return nil
	})
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(metrics.RoleGrader, metrics.OutcomeError).Inc()
		logger.Errorw("grading model call failed", "assignment", assignmentName, "error", err)
		return emptyGrade(rubric, fmt.Sprintf("Grading failed: %s", err))
	}

	var parsed modelGrade
	if err := llm.ParseJSON(raw, &parsed); err != nil {
		metrics.ModelCallsTotal.WithLabelValues(metrics.RoleGrader, metrics.OutcomeParse).Inc()
		logger.Errorw("grading response not parseable", "assignment", assignmentName, "error", err)
		return emptyGrade(rubric, fmt.Sprintf("Grading failed: %s", err))
	}

	metrics.ModelCallsTotal.WithLabelValues(metrics.RoleGrader, metrics.OutcomeOK).Inc()
	return validateGrade(parsed, rubric)
}

// validateGrade clamps every reported score to [0, max_points], fills
// criteria the model omitted and recomputes the total from the clamped
// scores.
func validateGrade(parsed modelGrade, rubric []api.RubricCriterion) api.GradeResult {
	validated := api.GradeResult{
		Criteria:        make(map[string]api.CriterionGrade, len(rubric)),
		GeneralFeedback: parsed.GeneralFeedback,
	}

	for _, criterion := range rubric {
		score := 0.0
		feedback := noAssessmentFeedback

		if reported, ok := parsed.Criteria[criterion.ID]; ok {
			score = clamp(reported.Score, 0, criterion.Points)
			feedback = reported.Feedback
		}

		validated.Criteria[criterion.ID] = api.CriterionGrade{Score: score, Feedback: feedback}
		validated.Total += score
	}

	return validated
}

// emptyGrade is the sentinel all-zero grade used when grading cannot
// proceed. It is never mixed with real grades: Error marks it.
func emptyGrade(rubric []api.RubricCriterion, message string) api.GradeResult {
	result := api.GradeResult{
		Criteria:        make(map[string]api.CriterionGrade, len(rubric)),
		GeneralFeedback: message,
		Error:           true,
	}
	for _, criterion := range rubric {
		result.Criteria[criterion.ID] = api.CriterionGrade{Score: 0, Feedback: unableToGradeFeedback}
	}
	return result
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncate bounds text to max bytes, backing up to a rune boundary, and
// appends the marker when anything was cut.
func truncate(text string, max int, marker string) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + marker
}
