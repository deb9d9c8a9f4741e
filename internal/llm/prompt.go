package llm

import (
	"fmt"
	"strings"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
)

// GradingSystemPrompt is the fixed contract sent to the primary grading
// model. The response shape it demands is what the Grader decodes.
const GradingSystemPrompt = `You are an expert educational grader assisting a teacher in evaluating student submissions.
Your role is to provide fair, consistent, and constructive grading based on the provided rubric.

GRADING PRINCIPLES:
1. Evidence-Based: Only award points for clearly demonstrated work in the submission
2. Consistency: Apply the same standards to all submissions
3. Constructive: Provide specific, actionable feedback
4. Fair: Grade based on content, not presentation style or personal preferences
5. Binary Approach: For each criterion, award full points or zero - no partial credit unless explicitly allowed

RESPONSE FORMAT:
You must respond with valid JSON only. No markdown, no explanations outside the JSON.
{
  "criteria": {
    "<criterion_id>": {
      "score": <number>,
      "feedback": "<specific feedback explaining the score>"
    }
  },
  "total": <sum of all scores>,
  "general_feedback": "<overall feedback for the student>"
}`

// FairnessSystemPrompt is the fixed instruction for the secondary reviewer
// model auditing a grade.
const FairnessSystemPrompt = `You are a fairness reviewer for AI-generated grades.
Your role is to check if the grading is fair and consistent with the rubric.

Review the original submission and the assigned grade. Check for:
1. Grading errors: Points deducted for work that was completed correctly
2. Missed credit: Work that was completed but not given credit
3. Inconsistent application of rubric standards
4. Bias in feedback language

RESPONSE FORMAT:
You must respond with valid JSON only.
{
  "flagged": <true/false>,
  "confidence": <0.0 to 1.0>,
  "issues": ["<issue 1>", "<issue 2>"],
  "suggested_adjustments": {
    "<criterion_id>": {
      "current_score": <number>,
      "suggested_score": <number>,
      "reason": "<explanation>"
    }
  },
  "message": "<summary for the teacher if flagged>"
}`

// FormatRubric renders a rubric as the literal text block embedded in both
// the grading and the review prompts.
func FormatRubric(rubric []api.RubricCriterion) string {
	var lines []string
	for _, criterion := range rubric {
		lines = append(lines, fmt.Sprintf("- %s (%g points)", criterion.Description, criterion.Points))
		if criterion.LongDescription != "" {
			lines = append(lines, fmt.Sprintf("  Details: %s", criterion.LongDescription))
		}
		for _, rating := range criterion.Ratings {
			lines = append(lines, fmt.Sprintf("  * %s: %g pts", rating.Description, rating.Points))
		}
	}
	return strings.Join(lines, "\n")
}

// GradingPrompt renders the user prompt for the primary grading call.
func GradingPrompt(assignmentName string, rubric []api.RubricCriterion, submissionText string) string {
	return fmt.Sprintf(`Grade the following student submission based on the rubric.

ASSIGNMENT: %s

RUBRIC CRITERIA:
%s

STUDENT SUBMISSION:
%s

Grade each criterion and provide specific feedback. Respond with JSON only.`,
		assignmentName, FormatRubric(rubric), submissionText)
}

// FormatGradeForReview renders an assigned grade as text for the fairness
// reviewer: each criterion's score against its cap, its feedback, then the
// totals.
func FormatGradeForReview(grade api.GradeResult, rubric []api.RubricCriterion) string {
	var lines []string
	for _, criterion := range rubric {
		score := 0.0
		feedback := "No feedback"
		if g, ok := grade.Criteria[criterion.ID]; ok {
			score = g.Score
			if g.Feedback != "" {
				feedback = g.Feedback
			}
		}
		lines = append(lines,
			fmt.Sprintf("Criterion: %s", criterion.Description),
			fmt.Sprintf("  Score: %g/%g", score, criterion.Points),
			fmt.Sprintf("  Feedback: %s", feedback),
			"",
		)
	}
	lines = append(lines,
		fmt.Sprintf("Total: %g", grade.Total),
		fmt.Sprintf("General Feedback: %s", grade.GeneralFeedback),
	)
	return strings.Join(lines, "\n")
}

// ReviewPrompt renders the user prompt for the fairness review call.
func ReviewPrompt(rubric []api.RubricCriterion, submissionText string, grade api.GradeResult) string {
	return fmt.Sprintf(`RUBRIC:
%s

SUBMISSION:
%s

ASSIGNED GRADES:
%s

Review this grading for fairness and respond with JSON only.`,
		FormatRubric(rubric), submissionText, FormatGradeForReview(grade, rubric))
}
