package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
)

const defaultPageSize = 100

// Client talks to the Canvas LMS REST API for one course. It implements the
// course collaborator contracts of the grading service: assignment and
// rubric lookup, submission listing, attachment download and grade posting.
type Client struct {
	baseURL  string
	token    string
	courseID string
	client   *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.client = c
	}
}

func NewClient(baseURL, token, courseID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  trimTrailingSlash(baseURL),
		token:    token,
		courseID: courseID,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type wireRating struct {
	Description string  `json:"description"`
	Points      float64 `json:"points"`
}

type wireCriterion struct {
	ID              string       `json:"id"`
	Description     string       `json:"description"`
	LongDescription string       `json:"long_description"`
	Points          float64      `json:"points"`
	Ratings         []wireRating `json:"ratings"`
}

type wireAssignment struct {
	ID     json.Number     `json:"id"`
	Name   string          `json:"name"`
	Rubric []wireCriterion `json:"rubric"`
}

type wireAttachment struct {
	ID       json.Number `json:"id"`
	Filename string      `json:"filename"`
	URL      string      `json:"url"`
}

type wireSubmission struct {
	ID            json.Number      `json:"id"`
	UserID        json.Number      `json:"user_id"`
	SubmittedAt   string           `json:"submitted_at"`
	WorkflowState string           `json:"workflow_state"`
	Attempt       int              `json:"attempt"`
	Late          bool             `json:"late"`
	Missing       bool             `json:"missing"`
	Attachments   []wireAttachment `json:"attachments"`
}

// ValidateCredentials checks the configured token by fetching the current
// user.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	var user struct {
		ID json.Number `json:"id"`
	}
	if err := c.get(ctx, "/api/v1/users/self", nil, &user); err != nil {
		return fmt.Errorf("failed to validate canvas credentials: %w", err)
	}
	return nil
}

func (c *Client) GetAssignment(ctx context.Context, assignmentID string) (*api.Assignment, error) {
	assignment, err := c.fetchAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return &api.Assignment{
		ID:     assignment.ID.String(),
		Name:   assignment.Name,
		Rubric: mapRubric(assignment.Rubric),
	}, nil
}

func (c *Client) GetRubric(ctx context.Context, assignmentID string) ([]api.RubricCriterion, error) {
	assignment, err := c.fetchAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return mapRubric(assignment.Rubric), nil
}

func (c *Client) fetchAssignment(ctx context.Context, assignmentID string) (*wireAssignment, error) {
	var assignment wireAssignment
	path := fmt.Sprintf("/api/v1/courses/%s/assignments/%s", c.courseID, assignmentID)
	if err := c.get(ctx, path, nil, &assignment); err != nil {
		return nil, fmt.Errorf("failed to fetch assignment %s: %w", assignmentID, err)
	}
	return &assignment, nil
}

func mapRubric(criteria []wireCriterion) []api.RubricCriterion {
	rubric := make([]api.RubricCriterion, 0, len(criteria))
	for _, criterion := range criteria {
		ratings := make([]api.RubricRating, 0, len(criterion.Ratings))
		for _, rating := range criterion.Ratings {
			ratings = append(ratings, api.RubricRating{Description: rating.Description, Points: rating.Points})
		}
		rubric = append(rubric, api.RubricCriterion{
			ID:              criterion.ID,
			Description:     criterion.Description,
			LongDescription: criterion.LongDescription,
			Points:          criterion.Points,
			Ratings:         ratings,
		})
	}
	return rubric
}

// ListSubmissions pages through an assignment's submissions and keeps those
// matching the filter.
func (c *Client) ListSubmissions(ctx context.Context, assignmentID string, filter api.SubmissionFilter) ([]api.Submission, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/assignments/%s/submissions", c.courseID, assignmentID)
	query := url.Values{
		"include[]": []string{"user"},
		"per_page":  []string{fmt.Sprintf("%d", defaultPageSize)},
	}

	submissions := []api.Submission{}
	next := c.baseURL + path + "?" + query.Encode()
	for next != "" {
		var page []wireSubmission
		nextLink, err := c.getPage(ctx, next, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch submissions for assignment %s: %w", assignmentID, err)
		}

		for _, submission := range page {
			if filter != api.FilterAll && submissionStatus(submission) != filter {
				continue
			}
			submissions = append(submissions, mapSubmission(submission))
		}
		next = nextLink
	}

	return submissions, nil
}

// submissionStatus mirrors the precedence missing > resubmitted > late >
// ontime.
func submissionStatus(submission wireSubmission) api.SubmissionFilter {
	switch {
	case submission.WorkflowState == "unsubmitted" || submission.SubmittedAt == "":
		return api.FilterMissing
	case submission.Attempt > 1:
		return api.FilterResubmitted
	case submission.Late:
		return api.FilterLate
	default:
		return api.FilterOnTime
	}
}

func mapSubmission(submission wireSubmission) api.Submission {
	attachments := make([]api.Attachment, 0, len(submission.Attachments))
	for _, attachment := range submission.Attachments {
		attachments = append(attachments, api.Attachment{
			ID:       attachment.ID.String(),
			Filename: attachment.Filename,
			URL:      attachment.URL,
		})
	}
	return api.Submission{
		ID:            submission.ID.String(),
		UserID:        submission.UserID.String(),
		AnonymousID:   anonymousID(submission.UserID.String()),
		Late:          submission.Late,
		Missing:       submission.Missing,
		Attempt:       submission.Attempt,
		WorkflowState: submission.WorkflowState,
		Attachments:   attachments,
	}
}

// anonymousID derives a stable pseudonym from the last four digits of the
// user id.
func anonymousID(userID string) string {
	last4 := userID
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	for len(last4) < 4 {
		last4 = "0" + last4
	}
	return "user" + last4
}

// Download fetches a submission's attachments into a fresh temp directory.
// A single attachment failure is logged and skipped so the remaining files
// still reach the extractor.
func (c *Client) Download(ctx context.Context, submission api.Submission) ([]string, error) {
	logger := zap.S().Named("canvas")

	if len(submission.Attachments) == 0 {
		return nil, nil
	}

	dir, err := os.MkdirTemp("", "grader-submission-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	files := []string{}
	for _, attachment := range submission.Attachments {
		if attachment.URL == "" {
			continue
		}

		path := filepath.Join(dir, filepath.Base(attachment.Filename))
		if err := c.downloadFile(ctx, attachment.URL, path); err != nil {
			logger.Warnw("failed to download attachment", "submission", submission.ID, "file", attachment.Filename, "error", err)
			continue
		}
		files = append(files, path)
	}

	return files, nil
}

func (c *Client) downloadFile(ctx context.Context, fileURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// Cleanup removes downloaded files and their temp directories when emptied.
// Best effort only.
func (c *Client) Cleanup(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			continue
		}
		dir := filepath.Dir(path)
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
}

type gradePayload struct {
	Submission       postedGrade                 `json:"submission"`
	RubricAssessment map[string]rubricAssessment `json:"rubric_assessment,omitempty"`
	Comment          *textComment                `json:"comment,omitempty"`
}

type postedGrade struct {
	PostedGrade string `json:"posted_grade"`
}

type rubricAssessment struct {
	Points   float64 `json:"points"`
	Comments string  `json:"comments"`
}

type textComment struct {
	TextComment string `json:"text_comment"`
}

// PostGrade writes the total score, the per-criterion rubric assessment and
// a disclosure comment back to the submission.
func (c *Client) PostGrade(ctx context.Context, assignmentID string, submission api.Submission, grade api.SubmissionGrade) error {
	assessment := make(map[string]rubricAssessment, len(grade.Criteria))
	for id, criterion := range grade.Criteria {
		assessment[id] = rubricAssessment{Points: criterion.Score, Comments: criterion.Feedback}
	}

	payload := gradePayload{
		Submission:       postedGrade{PostedGrade: fmt.Sprintf("%g", grade.Total)},
		RubricAssessment: assessment,
	}
	if grade.GeneralFeedback != "" {
		payload.Comment = &textComment{
			TextComment: grade.GeneralFeedback + "\n\n---\nThis grade was generated with AI assistance and reviewed by the instructor.",
		}
	}

	path := fmt.Sprintf("/api/v1/courses/%s/assignments/%s/submissions/%s", c.courseID, assignmentID, submission.ID)
	if err := c.put(ctx, path, payload); err != nil {
		return fmt.Errorf("failed to post grade for submission %s: %w", submission.ID, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	_, err := c.getPage(ctx, u, out)
	return err
}

// getPage performs one GET and returns the rel="next" link, if any.
func (c *Client) getPage(ctx context.Context, fullURL string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", err
	}

	return nextLink(resp.Header.Get("Link")), nil
}

func (c *Client) put(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// nextLink extracts the rel="next" URL from a Link header as Canvas emits
// it.
func nextLink(header string) string {
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(strings.TrimSpace(part), ";")
		if len(segments) < 2 {
			continue
		}
		for _, segment := range segments[1:] {
			if strings.TrimSpace(segment) == `rel="next"` {
				return strings.Trim(strings.TrimSpace(segments[0]), "<>")
			}
		}
	}
	return ""
}

func trimTrailingSlash(s string) string {
	return strings.TrimRight(s, "/")
}
