package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
	"github.com/gradekit/speed-grader/internal/service"
)

type fakeModel struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (m *fakeModel) Complete(_ context.Context, _ string, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.response, m.err
}

func (m *fakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func essayRubric() []api.RubricCriterion {
	return []api.RubricCriterion{
		{ID: "c1", Description: "Thesis", Points: 10},
		{ID: "c2", Description: "Evidence", Points: 5},
	}
}

func TestGradeClampsAndFillsMissingCriteria(t *testing.T) {
	model := &fakeModel{response: `{"criteria": {"c1": {"score": 12, "feedback": "strong thesis"}}, "total": 99, "general_feedback": "solid work"}`}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "an essay about birds", essayRubric(), "Essay 1")

	require.False(t, grade.Error)
	require.Equal(t, 1, model.Calls())

	require.Equal(t, 10.0, grade.Criteria["c1"].Score)
	require.Equal(t, "strong thesis", grade.Criteria["c1"].Feedback)

	require.Equal(t, 0.0, grade.Criteria["c2"].Score)
	require.Equal(t, "No assessment provided", grade.Criteria["c2"].Feedback)

	require.Equal(t, 10.0, grade.Total)
	require.Equal(t, "solid work", grade.GeneralFeedback)
}

func TestGradeClampsNegativeScores(t *testing.T) {
	model := &fakeModel{response: `{"criteria": {"c1": {"score": -3, "feedback": "off"}, "c2": {"score": 4, "feedback": "fine"}}}`}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "an essay", essayRubric(), "Essay 1")

	require.False(t, grade.Error)
	require.Equal(t, 0.0, grade.Criteria["c1"].Score)
	require.Equal(t, 4.0, grade.Criteria["c2"].Score)
	require.Equal(t, 4.0, grade.Total)
}

func TestGradeEmptyTextSkipsModel(t *testing.T) {
	model := &fakeModel{response: `{}`}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "   ", essayRubric(), "Essay 1")

	require.Equal(t, 0, model.Calls())
	require.True(t, grade.Error)
	require.Equal(t, "Unable to read submission files", grade.GeneralFeedback)
	require.Equal(t, 0.0, grade.Total)
	for _, criterion := range essayRubric() {
		require.Equal(t, 0.0, grade.Criteria[criterion.ID].Score)
		require.Equal(t, "Unable to grade", grade.Criteria[criterion.ID].Feedback)
	}
}

func TestGradeExtractionMarkerSkipsModel(t *testing.T) {
	model := &fakeModel{response: `{}`}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "[Unable to read file: essay.bin]", essayRubric(), "Essay 1")

	require.Equal(t, 0, model.Calls())
	require.True(t, grade.Error)
	require.Equal(t, "Unable to read submission files", grade.GeneralFeedback)
}

func TestGradeModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "an essay", essayRubric(), "Essay 1")

	// initial attempt plus two retries
	require.Equal(t, 3, model.Calls())
	require.True(t, grade.Error)
	require.Contains(t, grade.GeneralFeedback, "Grading failed:")
	require.Equal(t, 0.0, grade.Total)
}

func TestGradeUnparseableResponse(t *testing.T) {
	model := &fakeModel{response: "I cannot grade this submission."}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "an essay", essayRubric(), "Essay 1")

	require.Equal(t, 1, model.Calls())
	require.True(t, grade.Error)
	require.Contains(t, grade.GeneralFeedback, "Grading failed:")
}

func TestGradeNullResponse(t *testing.T) {
	// a literal null reply must collapse into the error grade, never into a
	// postable all-zero grade
	model := &fakeModel{response: "null"}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "an essay", essayRubric(), "Essay 1")

	require.True(t, grade.Error)
	require.Contains(t, grade.GeneralFeedback, "Grading failed:")
	require.Equal(t, 0.0, grade.Total)
	for _, criterion := range essayRubric() {
		require.Equal(t, "Unable to grade", grade.Criteria[criterion.ID].Feedback)
	}
}

func TestGradeRecoversFromFencedResponse(t *testing.T) {
	model := &fakeModel{response: "```json\n{\"criteria\": {\"c1\": {\"score\": 8, \"feedback\": \"good\"}, \"c2\": {\"score\": 5, \"feedback\": \"complete\"}}, \"total\": 13, \"general_feedback\": \"nice\"}\n```"}
	grader := service.NewGradingService(model, 0)

	grade := grader.Grade(context.TODO(), "an essay", essayRubric(), "Essay 1")

	require.False(t, grade.Error)
	require.Equal(t, 13.0, grade.Total)
}
