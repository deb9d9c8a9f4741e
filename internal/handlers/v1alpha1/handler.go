package v1alpha1

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
	"github.com/gradekit/speed-grader/internal/store/model"
	"github.com/gradekit/speed-grader/pkg/requestid"
)

// JobService is the slice of the grading service the handlers need.
type JobService interface {
	StartJob(ctx context.Context, assignmentID string, filter api.SubmissionFilter) (*api.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error)
	ApplyJobAdjustments(ctx context.Context, jobID uuid.UUID, submissionID string, adjustments map[string]api.SuggestedAdjustment) (*api.SubmissionGrade, error)
	PostGrades(ctx context.Context, jobID uuid.UUID, submissionIDs []string) (int, error)
	ListHistory(ctx context.Context, limit int) ([]model.GradingRecord, error)
}

// ServiceHandler exposes the grading service over HTTP.
type ServiceHandler struct {
	jobSrv JobService
}

func NewServiceHandler(jobSrv JobService) *ServiceHandler {
	return &ServiceHandler{jobSrv: jobSrv}
}

type errorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Message: message, RequestID: requestid.FromRequest(r)})
}
