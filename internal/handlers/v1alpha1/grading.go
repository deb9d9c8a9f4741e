package v1alpha1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
	"github.com/gradekit/speed-grader/internal/report"
	"github.com/gradekit/speed-grader/internal/service"
	"github.com/gradekit/speed-grader/internal/store/model"
)

type createJobRequest struct {
	AssignmentID string `json:"assignment_id"`
	Filter       string `json:"filter,omitempty"`
}

type adjustmentsRequest struct {
	SubmissionID string                             `json:"submission_id"`
	Adjustments  map[string]api.SuggestedAdjustment `json:"adjustments"`
}

type postGradesRequest struct {
	JobID         string   `json:"job_id"`
	SubmissionIDs []string `json:"submission_ids,omitempty"`
}

type postGradesResponse struct {
	Posted int `json:"posted"`
}

// CreateGradingJob starts an asynchronous grading run for one assignment.
func (h *ServiceHandler) CreateGradingJob(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("grading_handler")

	var req createJobRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.AssignmentID == "" {
		renderError(w, r, http.StatusBadRequest, "assignment_id is required")
		return
	}

	job, err := h.jobSrv.StartJob(r.Context(), req.AssignmentID, api.StringToSubmissionFilter(req.Filter))
	if err != nil {
		logger.Errorw("failed to start grading job", "assignment", req.AssignmentID, "error", err)
		switch err.(type) {
		case *service.ErrAssignmentNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrRubricNotFound:
			renderError(w, r, http.StatusBadRequest, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to start grading job: %v", err))
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, job)
}

// GetGradingJob returns the status payload polled by clients.
func (h *ServiceHandler) GetGradingJob(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("grading_handler")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		logger.Errorw("failed to get job", "job", id, "error", err)
		switch err.(type) {
		case *service.ErrJobNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to get job: %v", err))
		}
		return
	}

	render.JSON(w, r, job)
}

// ApplyAdjustments applies reviewer-suggested score changes to one grade of
// a completed job.
func (h *ServiceHandler) ApplyAdjustments(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("grading_handler")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	var req adjustmentsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.SubmissionID == "" {
		renderError(w, r, http.StatusBadRequest, "submission_id is required")
		return
	}

	grade, err := h.jobSrv.ApplyJobAdjustments(r.Context(), id, req.SubmissionID, req.Adjustments)
	if err != nil {
		logger.Errorw("failed to apply adjustments", "job", id, "submission", req.SubmissionID, "error", err)
		switch err.(type) {
		case *service.ErrJobNotFound, *service.ErrGradeNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrJobNotCompleted:
			renderError(w, r, http.StatusConflict, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to apply adjustments: %v", err))
		}
		return
	}

	render.JSON(w, r, grade)
}

// GetGradingReport streams a completed job's grades as an xlsx workbook.
func (h *ServiceHandler) GetGradingReport(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("grading_handler")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		logger.Errorw("failed to get job", "job", id, "error", err)
		switch err.(type) {
		case *service.ErrJobNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to get job: %v", err))
		}
		return
	}

	if job.Status != api.JobStatusCompleted || job.Result == nil {
		renderError(w, r, http.StatusConflict, fmt.Sprintf("grading job %s is not completed", id))
		return
	}

	content, err := report.BuildGradeReport(job.Result)
	if err != nil {
		logger.Errorw("failed to build report", "job", id, "error", err)
		renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to build report: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("grades-%s.xlsx", id)))
	_, _ = w.Write(content)
}

// PostGrades pushes a completed job's grades back to the course system.
func (h *ServiceHandler) PostGrades(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("grading_handler")

	var req postGradesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	id, err := uuid.Parse(req.JobID)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	posted, err := h.jobSrv.PostGrades(r.Context(), id, req.SubmissionIDs)
	if err != nil {
		logger.Errorw("failed to post grades", "job", id, "error", err)
		switch err.(type) {
		case *service.ErrJobNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrJobNotCompleted:
			renderError(w, r, http.StatusConflict, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to post grades: %v", err))
		}
		return
	}

	render.JSON(w, r, postGradesResponse{Posted: posted})
}

// ListHistory returns the most recent grading records.
func (h *ServiceHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("grading_handler")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			renderError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.jobSrv.ListHistory(r.Context(), limit)
	if err != nil {
		logger.Errorw("failed to list history", "error", err)
		renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to list history: %v", err))
		return
	}
	if records == nil {
		records = []model.GradingRecord{}
	}

	render.JSON(w, r, records)
}
