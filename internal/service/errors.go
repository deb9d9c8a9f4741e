package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id uuid.UUID) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("grading job %s not found", id)}
}

type ErrJobNotCompleted struct {
	error
}

func NewErrJobNotCompleted(id uuid.UUID) *ErrJobNotCompleted {
	return &ErrJobNotCompleted{fmt.Errorf("grading job %s is not completed", id)}
}

type ErrAssignmentNotFound struct {
	error
}

func NewErrAssignmentNotFound(id string) *ErrAssignmentNotFound {
	return &ErrAssignmentNotFound{fmt.Errorf("assignment %s not found", id)}
}

type ErrRubricNotFound struct {
	error
}

func NewErrRubricNotFound(assignmentID string) *ErrRubricNotFound {
	return &ErrRubricNotFound{fmt.Errorf("assignment %s has no rubric", assignmentID)}
}

type ErrGradeNotFound struct {
	error
}

func NewErrGradeNotFound(jobID uuid.UUID, submissionID string) *ErrGradeNotFound {
	return &ErrGradeNotFound{fmt.Errorf("job %s has no grade for submission %s", jobID, submissionID)}
}
