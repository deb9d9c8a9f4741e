package canvas_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
	"github.com/gradekit/speed-grader/internal/canvas"
)

const assignmentBody = `{
	"id": 42,
	"name": "Essay 1",
	"rubric": [
		{"id": "c1", "description": "Thesis", "long_description": "A clear thesis", "points": 10,
		 "ratings": [{"description": "Excellent", "points": 10}, {"description": "Poor", "points": 2}]},
		{"id": "c2", "description": "Evidence", "points": 5}
	]
}`

const submissionsBody = `[
	{"id": 1, "user_id": 900123, "submitted_at": "2026-03-01T10:00:00Z", "workflow_state": "submitted", "attempt": 1,
	 "attachments": [{"id": 7, "filename": "essay.pdf", "url": "https://files.example/essay.pdf"}]},
	{"id": 2, "user_id": 77, "submitted_at": "2026-03-02T10:00:00Z", "workflow_state": "submitted", "attempt": 1, "late": true},
	{"id": 3, "user_id": 88, "workflow_state": "unsubmitted"},
	{"id": 4, "user_id": 99, "submitted_at": "2026-03-01T09:00:00Z", "workflow_state": "submitted", "attempt": 3}
]`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *canvas.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := canvas.NewClient(server.URL, "secret-token", "101", canvas.WithHTTPClient(server.Client()))
	return server, client
}

func TestGetAssignment(t *testing.T) {
	var gotAuth string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/api/v1/courses/101/assignments/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(assignmentBody))
	})

	assignment, err := client.GetAssignment(context.TODO(), "42")
	require.NoError(t, err)
	require.Equal(t, "Bearer secret-token", gotAuth)
	require.Equal(t, "42", assignment.ID)
	require.Equal(t, "Essay 1", assignment.Name)
	require.Len(t, assignment.Rubric, 2)
	require.Equal(t, 10.0, assignment.Rubric[0].Points)
	require.Len(t, assignment.Rubric[0].Ratings, 2)
	require.Equal(t, "A clear thesis", assignment.Rubric[0].LongDescription)
}

func TestListSubmissionsAll(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/courses/101/assignments/42/submissions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(submissionsBody))
	})

	submissions, err := client.ListSubmissions(context.TODO(), "42", api.FilterAll)
	require.NoError(t, err)
	require.Len(t, submissions, 4)

	require.Equal(t, "1", submissions[0].ID)
	require.Equal(t, "900123", submissions[0].UserID)
	require.Equal(t, "user0123", submissions[0].AnonymousID)
	require.Len(t, submissions[0].Attachments, 1)
	require.Equal(t, "essay.pdf", submissions[0].Attachments[0].Filename)

	// short user ids are zero padded
	require.Equal(t, "user0077", submissions[1].AnonymousID)
}

func TestListSubmissionsFiltered(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(submissionsBody))
	}

	cases := []struct {
		filter api.SubmissionFilter
		want   []string
	}{
		{api.FilterOnTime, []string{"1"}},
		{api.FilterLate, []string{"2"}},
		{api.FilterMissing, []string{"3"}},
		{api.FilterResubmitted, []string{"4"}},
	}

	for _, tc := range cases {
		_, client := newTestServer(t, handler)
		submissions, err := client.ListSubmissions(context.TODO(), "42", tc.filter)
		require.NoError(t, err, "filter %s", tc.filter)

		ids := make([]string, 0, len(submissions))
		for _, submission := range submissions {
			ids = append(ids, submission.ID)
		}
		require.Equal(t, tc.want, ids, "filter %s", tc.filter)
	}
}

func TestListSubmissionsFollowsPagination(t *testing.T) {
	var server *httptest.Server
	calls := 0
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "" {
			w.Header().Set("Link", `<`+server.URL+r.URL.Path+`?page=2>; rel="next"`)
			_, _ = w.Write([]byte(`[{"id": 1, "user_id": 10, "submitted_at": "2026-03-01T10:00:00Z", "workflow_state": "submitted", "attempt": 1}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id": 2, "user_id": 11, "submitted_at": "2026-03-01T11:00:00Z", "workflow_state": "submitted", "attempt": 1}]`))
	})

	submissions, err := client.ListSubmissions(context.TODO(), "42", api.FilterAll)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, submissions, 2)
	require.Equal(t, "1", submissions[0].ID)
	require.Equal(t, "2", submissions[1].ID)
}

func TestDownloadAndCleanup(t *testing.T) {
	var server *httptest.Server
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/essay.txt":
			require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("an essay"))
		case "/files/missing.txt":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	submission := api.Submission{
		ID: "1",
		Attachments: []api.Attachment{
			{ID: "7", Filename: "essay.txt", URL: server.URL + "/files/essay.txt"},
			{ID: "8", Filename: "missing.txt", URL: server.URL + "/files/missing.txt"},
		},
	}

	paths, err := client.Download(context.TODO(), submission)
	require.NoError(t, err)
	// the failed attachment is skipped, not fatal
	require.Len(t, paths, 1)

	content, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.Equal(t, "an essay", string(content))

	client.Cleanup(paths)
	_, err = os.Stat(paths[0])
	require.True(t, os.IsNotExist(err))
}

func TestDownloadWithoutAttachments(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	paths, err := client.Download(context.TODO(), api.Submission{ID: "1"})
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestPostGrade(t *testing.T) {
	var body map[string]any
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/v1/courses/101/assignments/42/submissions/1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})

	grade := api.SubmissionGrade{
		GradeResult: api.GradeResult{
			Criteria: map[string]api.CriterionGrade{
				"c1": {Score: 8, Feedback: "good thesis"},
			},
			Total:           8,
			GeneralFeedback: "solid work",
		},
	}

	err := client.PostGrade(context.TODO(), "42", api.Submission{ID: "1"}, grade)
	require.NoError(t, err)

	submission := body["submission"].(map[string]any)
	require.Equal(t, "8", submission["posted_grade"])

	assessment := body["rubric_assessment"].(map[string]any)
	c1 := assessment["c1"].(map[string]any)
	require.Equal(t, 8.0, c1["points"])
	require.Equal(t, "good thesis", c1["comments"])

	comment := body["comment"].(map[string]any)
	require.Contains(t, comment["text_comment"], "solid work")
	require.Contains(t, comment["text_comment"], "AI assistance")
}

func TestValidateCredentials(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/self", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id": 5}`))
	})

	require.NoError(t, client.ValidateCredentials(context.TODO()))
}

func TestValidateCredentialsRejected(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	require.Error(t, client.ValidateCredentials(context.TODO()))
}
