package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
	"github.com/gradekit/speed-grader/internal/events"
	"github.com/gradekit/speed-grader/internal/store"
	"github.com/gradekit/speed-grader/internal/store/model"
	"github.com/gradekit/speed-grader/pkg/metrics"
)

// AssignmentSource resolves assignment metadata and its rubric.
type AssignmentSource interface {
	GetAssignment(ctx context.Context, assignmentID string) (*api.Assignment, error)
	GetRubric(ctx context.Context, assignmentID string) ([]api.RubricCriterion, error)
}

// SubmissionSource lists the submissions of an assignment under a filter.
type SubmissionSource interface {
	ListSubmissions(ctx context.Context, assignmentID string, filter api.SubmissionFilter) ([]api.Submission, error)
}

// FileSource materializes a submission's attachments as local files.
// Cleanup is best effort; it never reports an error.
type FileSource interface {
	Download(ctx context.Context, submission api.Submission) ([]string, error)
	Cleanup(paths []string)
}

// GradeSink receives finished grades back into the course system.
type GradeSink interface {
	PostGrade(ctx context.Context, assignmentID string, submission api.Submission, grade api.SubmissionGrade) error
}

// Course bundles the collaborator contracts a grading run needs.
type Course interface {
	AssignmentSource
	SubmissionSource
	FileSource
	GradeSink
}

// Extractor turns submission files into one text blob.
type Extractor interface {
	Extract(paths []string) string
}

// Grader produces the primary grade for one submission.
type Grader interface {
	Grade(ctx context.Context, text string, rubric []api.RubricCriterion, assignmentName string) api.GradeResult
}

// Reviewer audits a grade with an independent model.
type Reviewer interface {
	Review(ctx context.Context, text string, rubric []api.RubricCriterion, grade api.GradeResult) api.FairnessReview
}

// JobService runs asynchronous grading jobs. Each job owns one background
// goroutine; within a job submissions are graded strictly serially. The
// event producer is optional.
type JobService struct {
	jobs          store.Job
	history       store.History
	course        Course
	grader        Grader
	reviewer      Reviewer
	extractor     Extractor
	eventProducer *events.EventProducer
}

func NewJobService(s store.Store, course Course, grader Grader, reviewer Reviewer, extractor Extractor, ep *events.EventProducer) *JobService {
	return &JobService{
		jobs:          s.Job(),
		history:       s.History(),
		course:        course,
		grader:        grader,
		reviewer:      reviewer,
		extractor:     extractor,
		eventProducer: ep,
	}
}

// StartJob resolves the assignment, rubric and submission list, registers a
// pending job and hands it to a background worker. The returned job is the
// initial pending snapshot; clients poll GetJob for progress.
func (s *JobService) StartJob(ctx context.Context, assignmentID string, filter api.SubmissionFilter) (*api.Job, error) {
	logger := zap.S().Named("job_service")

	assignment, err := s.course.GetAssignment(ctx, assignmentID)
	if err != nil {
		logger.Errorw("failed to fetch assignment", "assignment", assignmentID, "error", err)
		return nil, NewErrAssignmentNotFound(assignmentID)
	}

	rubric, err := s.course.GetRubric(ctx, assignmentID)
	if err != nil || len(rubric) == 0 {
		return nil, NewErrRubricNotFound(assignmentID)
	}
	assignment.Rubric = rubric

	submissions, err := s.course.ListSubmissions(ctx, assignmentID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for assignment %s: %w", assignmentID, err)
	}

	id := uuid.New()
	if _, err := s.jobs.Create(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to register job: %w", err)
	}

	job, err := s.jobs.Update(ctx, id, func(j *model.Job) {
		j.Progress.Total = len(submissions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register job: %w", err)
	}

	metrics.GradingJobsTotal.WithLabelValues(model.JobStatusPending).Inc()
	logger.Infow("grading job registered", "job", id, "assignment", assignmentID, "submissions", len(submissions))

	// The worker must outlive the request that spawned it.
	go s.runJob(context.WithoutCancel(ctx), id, *assignment, submissions)

	return mapJob(job), nil
}

// GetJob returns the current snapshot of a job.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return mapJob(job), nil
}

func (s *JobService) runJob(ctx context.Context, id uuid.UUID, assignment api.Assignment, submissions []api.Submission) {
	logger := zap.S().Named("job_service")

	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("grading job panicked", "job", id, "panic", r)
			s.markFailed(ctx, id, assignment, fmt.Sprintf("grading job panicked: %v", r))
		}
	}()

	if _, err := s.jobs.Update(ctx, id, func(j *model.Job) {
		j.Status = model.JobStatusRunning
	}); err != nil {
		logger.Errorw("failed to mark job running", "job", id, "error", err)
		return
	}

	grades := make(map[string]api.SubmissionGrade, len(submissions))
	flagged := 0

	for i, submission := range submissions {
		student := studentLabel(submission)
		if _, err := s.jobs.Update(ctx, id, func(j *model.Job) {
			j.Progress.Current = i + 1
			j.Progress.CurrentStudent = student
		}); err != nil {
			logger.Errorw("failed to update job progress", "job", id, "error", err)
		}

		paths, err := s.course.Download(ctx, submission)
		if err != nil {
			logger.Errorw("failed to download submission files", "job", id, "submission", submission.ID, "error", err)
			s.markFailed(ctx, id, assignment, fmt.Sprintf("failed to download submission %s: %s", submission.ID, err))
			return
		}

		grade, review := s.gradeOne(ctx, assignment, paths)

		grades[submission.ID] = api.SubmissionGrade{
			GradeResult:     grade,
			FairnessFlag:    review.Flagged,
			FairnessMessage: review.Message,
		}
		if review.Flagged {
			flagged++
		}

		metrics.SubmissionsGradedTotal.Inc()
	}

	result := &api.GradingResult{
		Assignment:  assignment,
		Submissions: submissions,
		Grades:      grades,
	}

	if _, err := s.jobs.Update(ctx, id, func(j *model.Job) {
		j.Status = model.JobStatusCompleted
		j.Progress.CurrentStudent = ""
		j.Result = result
	}); err != nil {
		logger.Errorw("failed to mark job completed", "job", id, "error", err)
		return
	}

	metrics.GradingJobsTotal.WithLabelValues(model.JobStatusCompleted).Inc()
	logger.Infow("grading job completed", "job", id, "submissions", len(submissions), "flagged", flagged)

	s.recordHistory(ctx, &model.GradingRecord{
		JobID:           id.String(),
		AssignmentID:    assignment.ID,
		AssignmentName:  assignment.Name,
		SubmissionCount: len(submissions),
		FlaggedCount:    flagged,
	})
	s.emitEvent(events.JobMessageKind, events.JobEvent{
		JobID:           id.String(),
		AssignmentID:    assignment.ID,
		Status:          model.JobStatusCompleted,
		SubmissionCount: len(submissions),
		FlaggedCount:    flagged,
	})
}

// gradeOne runs extract, grade and review over one submission's files. The
// files are released on return, panics included.
func (s *JobService) gradeOne(ctx context.Context, assignment api.Assignment, paths []string) (api.GradeResult, api.FairnessReview) {
	defer s.course.Cleanup(paths)

	text := s.extractor.Extract(paths)
	grade := s.grader.Grade(ctx, text, assignment.Rubric, assignment.Name)
	review := s.reviewer.Review(ctx, text, assignment.Rubric, grade)
	return grade, review
}

func (s *JobService) markFailed(ctx context.Context, id uuid.UUID, assignment api.Assignment, message string) {
	if _, err := s.jobs.Update(ctx, id, func(j *model.Job) {
		j.Status = model.JobStatusFailed
		j.Error = message
		j.Result = nil
	}); err != nil {
		zap.S().Named("job_service").Errorw("failed to mark job failed", "job", id, "error", err)
		return
	}

	metrics.GradingJobsTotal.WithLabelValues(model.JobStatusFailed).Inc()
	s.emitEvent(events.JobMessageKind, events.JobEvent{
		JobID:        id.String(),
		AssignmentID: assignment.ID,
		Status:       model.JobStatusFailed,
		Error:        message,
	})
}

// ApplyJobAdjustments applies reviewer-suggested score changes to one grade
// of a completed job and returns the adjusted grade. The job's result is
// replaced wholesale so snapshots held by concurrent readers stay intact.
func (s *JobService) ApplyJobAdjustments(ctx context.Context, jobID uuid.UUID, submissionID string, adjustments map[string]api.SuggestedAdjustment) (*api.SubmissionGrade, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	if job.Status != model.JobStatusCompleted || job.Result == nil {
		return nil, NewErrJobNotCompleted(jobID)
	}

	grade, ok := job.Result.Grades[submissionID]
	if !ok {
		return nil, NewErrGradeNotFound(jobID, submissionID)
	}

	adjusted := api.SubmissionGrade{
		GradeResult:     ApplyAdjustments(grade.GradeResult, adjustments),
		FairnessFlag:    grade.FairnessFlag,
		FairnessMessage: grade.FairnessMessage,
	}

	if _, err := s.jobs.Update(ctx, jobID, func(j *model.Job) {
		updated := *j.Result
		updated.Grades = make(map[string]api.SubmissionGrade, len(j.Result.Grades))
		for id, g := range j.Result.Grades {
			updated.Grades[id] = g
		}
		updated.Grades[submissionID] = adjusted
		j.Result = &updated
	}); err != nil {
		return nil, err
	}

	return &adjusted, nil
}

// PostGrades pushes a completed job's grades to the grade sink. Sentinel
// error grades are never posted. A per-submission post failure is logged and
// skipped; the count of successfully posted grades is returned.
func (s *JobService) PostGrades(ctx context.Context, jobID uuid.UUID, submissionIDs []string) (int, error) {
	logger := zap.S().Named("job_service")

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return 0, NewErrJobNotFound(jobID)
		}
		return 0, err
	}

	if job.Status != model.JobStatusCompleted || job.Result == nil {
		return 0, NewErrJobNotCompleted(jobID)
	}
	result := job.Result

	if len(submissionIDs) == 0 {
		for _, submission := range result.Submissions {
			submissionIDs = append(submissionIDs, submission.ID)
		}
	}

	submissionsByID := make(map[string]api.Submission, len(result.Submissions))
	for _, submission := range result.Submissions {
		submissionsByID[submission.ID] = submission
	}

	posted := 0
	for _, submissionID := range submissionIDs {
		grade, ok := result.Grades[submissionID]
		if !ok || grade.Error {
			continue
		}
		submission, ok := submissionsByID[submissionID]
		if !ok {
			continue
		}
		if err := s.course.PostGrade(ctx, result.Assignment.ID, submission, grade); err != nil {
			logger.Errorw("failed to post grade", "job", jobID, "submission", submissionID, "error", err)
			continue
		}
		posted++
	}

	s.recordHistory(ctx, &model.GradingRecord{
		JobID:           jobID.String(),
		AssignmentID:    result.Assignment.ID,
		AssignmentName:  result.Assignment.Name,
		SubmissionCount: len(result.Submissions),
		PostedCount:     posted,
	})
	s.emitEvent(events.GradesPostedMessageKind, events.GradesPostedEvent{
		JobID:        jobID.String(),
		AssignmentID: result.Assignment.ID,
		PostedCount:  posted,
	})

	return posted, nil
}

// ListHistory returns the most recent grading records.
func (s *JobService) ListHistory(ctx context.Context, limit int) ([]model.GradingRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx, limit)
}

func (s *JobService) recordHistory(ctx context.Context, record *model.GradingRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, record); err != nil {
		zap.S().Named("job_service").Errorw("failed to record grading history", "job", record.JobID, "error", err)
	}
}

func (s *JobService) emitEvent(kind string, payload any) {
	if s.eventProducer == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.eventProducer.Write(context.TODO(), kind, bytes.NewReader(data)); err != nil {
		zap.S().Named("job_service").Warnw("failed to emit event", "kind", kind, "error", err)
	}
}

// studentLabel is the identity surfaced in job progress. The anonymized id
// wins so names and Canvas user ids never show up in polling responses.
func studentLabel(submission api.Submission) string {
	switch {
	case submission.AnonymousID != "":
		return submission.AnonymousID
	case submission.UserID != "":
		return submission.UserID
	default:
		return submission.ID
	}
}

func mapJob(job *model.Job) *api.Job {
	return &api.Job{
		ID:     job.ID,
		Status: api.StringToJobStatus(job.Status),
		Progress: api.JobProgress{
			Current:        job.Progress.Current,
			Total:          job.Progress.Total,
			CurrentStudent: job.Progress.CurrentStudent,
		},
		Result: job.Result,
		Error:  job.Error,
	}
}
