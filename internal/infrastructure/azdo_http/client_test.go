package azdo_http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davarch/build-compare/internal/domain"
)

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	opts = append([]Option{WithRetry(time.Millisecond, 200*time.Millisecond)}, opts...)
	return New(srv.URL, "My Project", "tok", 2*time.Second, opts...)
}

func TestAPIBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://dev.azure.com/contoso/":            "https://dev.azure.com/contoso",
		"https://dev.azure.com/contoso/Project/":    "https://dev.azure.com/contoso",
		"https://contoso.visualstudio.com/DefaultC": "https://contoso.visualstudio.com",
		"https://tfs.internal/tfs/coll/":            "https://tfs.internal/tfs/coll",
	}
	for in, want := range cases {
		if got := APIBaseURL(in); got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
}

func TestListBuilds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/My Project/_apis/build/builds" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("definitions") != "12" || q.Get("$top") != "50" || q.Get("statusFilter") != "completed" ||
			q.Get("queryOrder") != "finishTimeDescending" || q.Get("api-version") != "7.1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"count":1,"value":[{"id":901,"buildNumber":"20240301.4","status":"completed","result":"succeeded",
			"finishTime":"2024-03-01T10:11:12.1234567Z","sourceVersion":"abc","sourceBranch":"refs/heads/main",
			"_links":{"web":{"href":"https://web/901"}}}]}`))
	}))
	defer srv.Close()

	runs, err := newTestClient(srv).ListBuilds(context.Background(), domain.BuildQuery{DefinitionID: 12, Top: 50, StatusFilter: "completed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != 901 || r.SourceVersion != "abc" || r.WebURL != "https://web/901" || r.FinishTime.IsZero() {
		t.Errorf("unexpected run %+v", r)
	}
}

func TestBuildTimeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/My Project/_apis/build/builds/901/timeline" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"records":[{"id":"a","type":"Stage","name":"Deploy-Prod","state":"completed","result":"succeeded"},
			{"id":"b","type":"Job","name":"Build","state":"completed","result":null}]}`))
	}))
	defer srv.Close()

	recs, err := newTestClient(srv).BuildTimeline(context.Background(), 901)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !domain.IsDeployed(recs, "Deploy-Prod") {
		t.Errorf("expected deployed timeline, got %+v", recs)
	}
}

func TestCommitAndChanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/My Project/_apis/git/repositories/repo/commits/abc":
			_, _ = w.Write([]byte(`{"commitId":"abc","parents":["p1"],"comment":"Merged PR 1: x",
				"author":{"name":"A","date":"2024-03-01T09:00:00Z"},"committer":{"name":"C","date":"2024-03-01T10:00:00Z"}}`))
		case "/My Project/_apis/git/repositories/repo/commits/abc/changes":
			_, _ = w.Write([]byte(`{"changes":[{"item":{"path":"/src/a.ts"},"changeType":"edit"},{"item":{},"changeType":"delete"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	commit, err := c.Commit(context.Background(), "repo", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if commit.Committer.Name != "C" || len(commit.Parents) != 1 || commit.RangeDate().Hour() != 10 {
		t.Errorf("unexpected commit %+v", commit)
	}

	paths, err := c.CommitChanges(context.Background(), "repo", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/src/a.ts" || paths[1] != "" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestListCommits_SendsSearchCriteria(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("searchCriteria.itemVersion.version") != "main" ||
			q.Get("searchCriteria.fromDate") != "2024-03-01T00:00:00Z" ||
			q.Get("searchCriteria.toDate") != "2024-03-02T00:00:00Z" ||
			q.Get("searchCriteria.$top") != "10000" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{{"commitId": "c1", "comment": "Merged PR 5: y", "committer": map[string]any{"name": "bob"}}},
		})
	}))
	defer srv.Close()

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	commits, err := newTestClient(srv).ListCommits(context.Background(), domain.CommitQuery{
		RepositoryID: "repo", Branch: "main", From: from, To: from.Add(24 * time.Hour), Top: 10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(commits) != 1 || commits[0].Committer.Name != "bob" {
		t.Errorf("unexpected commits %+v", commits)
	}
}

func TestPullRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("searchCriteria.sourceRefName") != "refs/heads/feat" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "" || pass != "tok" {
			t.Errorf("expected PAT basic auth")
		}
		_, _ = w.Write([]byte(`{"value":[{"pullRequestId":42,"title":"Feat","status":"active","isDraft":true,
			"createdBy":{"displayName":"Ann"},"repository":{"webUrl":"https://web/repo"}}]}`))
	}))
	defer srv.Close()

	prs, err := newTestClient(srv, WithPAT()).PullRequests(context.Background(), domain.PullRequestQuery{
		RepositoryID: "repo", SourceRef: "refs/heads/feat", Status: "active",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prs) != 1 || prs[0].WebURL != "https://web/repo/pullrequest/42" || prs[0].CreatedBy != "Ann" || !prs[0].IsDraft {
		t.Errorf("unexpected pull requests %+v", prs)
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).BuildTimeline(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestGet_ClassifiesPermanentFailures(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusNonAuthoritativeInfo, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
	}

	for _, tc := range cases {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(tc.status)
		}))

		_, err := newTestClient(srv).BuildTimeline(context.Background(), 1)
		srv.Close()

		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
		if hits.Load() != 1 {
			t.Errorf("status %d: expected no retry, got %d attempts", tc.status, hits.Load())
		}
	}
}

func TestGet_TimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, "p", "tok", 20*time.Millisecond, WithRetry(time.Millisecond, 50*time.Millisecond))
	_, err := c.BuildTimeline(context.Background(), 1)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestWebURL(t *testing.T) {
	c := New("https://dev.azure.com/contoso/", "My Project", "t", time.Second)
	if got := c.WebURL(); got != "https://dev.azure.com/contoso/My%20Project" {
		t.Errorf("unexpected web url %s", got)
	}
}
