package azdo_http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davarch/build-compare/internal/domain"
)

const apiVersion = "7.1"

type Client struct {
	orgURL  string
	apiBase string
	project string
	token   string
	pat     bool
	hc      *http.Client

	retryInitial    time.Duration
	retryMaxElapsed time.Duration
}

var _ domain.DevOpsClient = (*Client)(nil)

type Option func(*Client)

// WithPAT sends the token as a personal access token (basic auth) instead of a bearer token.
func WithPAT() Option { return func(c *Client) { c.pat = true } }

// WithRetry overrides the backoff window used for retryable responses.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(c *Client) { c.retryInitial, c.retryMaxElapsed = initial, maxElapsed }
}

// New builds a client for one project. timeout bounds every single HTTP request.
func New(orgURL, project, token string, timeout time.Duration, opts ...Option) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		orgURL:          strings.TrimRight(orgURL, "/"),
		apiBase:         APIBaseURL(orgURL),
		project:         project,
		token:           token,
		hc:              &http.Client{Transport: tr, Timeout: timeout},
		retryInitial:    300 * time.Millisecond,
		retryMaxElapsed: 5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIBaseURL normalizes an organization URL to the REST root:
// https://dev.azure.com/<org> or https://<org>.visualstudio.com.
func APIBaseURL(orgURL string) string {
	u, err := url.Parse(orgURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(orgURL, "/")
	}
	if strings.HasSuffix(u.Hostname(), "visualstudio.com") {
		return "https://" + u.Host
	}
	if u.Hostname() == "dev.azure.com" {
		if org := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")[0]; org != "" {
			return "https://dev.azure.com/" + org
		}
	}
	return strings.TrimRight(orgURL, "/")
}

// WebURL is the browsable project root, used for pull request links.
func (c *Client) WebURL() string {
	return c.orgURL + "/" + url.PathEscape(c.project)
}

type buildDTO struct {
	ID            int64     `json:"id"`
	BuildNumber   string    `json:"buildNumber"`
	Status        string    `json:"status"`
	Result        string    `json:"result"`
	QueueTime     time.Time `json:"queueTime"`
	FinishTime    time.Time `json:"finishTime"`
	SourceVersion string    `json:"sourceVersion"`
	SourceBranch  string    `json:"sourceBranch"`
	Links         struct {
		Web struct {
			Href string `json:"href"`
		} `json:"web"`
	} `json:"_links"`
}

func (b buildDTO) toRun() domain.PipelineRun {
	return domain.PipelineRun{
		ID:            b.ID,
		BuildNumber:   b.BuildNumber,
		SourceVersion: b.SourceVersion,
		SourceBranch:  b.SourceBranch,
		QueueTime:     b.QueueTime,
		FinishTime:    b.FinishTime,
		Status:        b.Status,
		Result:        b.Result,
		WebURL:        b.Links.Web.Href,
	}
}

func (c *Client) ListBuilds(ctx context.Context, q domain.BuildQuery) ([]domain.PipelineRun, error) {
	v := url.Values{}
	v.Set("definitions", strconv.FormatInt(q.DefinitionID, 10))
	v.Set("queryOrder", "finishTimeDescending")
	if q.Top > 0 {
		v.Set("$top", strconv.Itoa(q.Top))
	}
	if q.StatusFilter != "" {
		v.Set("statusFilter", q.StatusFilter)
	}

	var out struct {
		Value []buildDTO `json:"value"`
	}
	if err := c.get(ctx, c.projectURL("build/builds", v), &out); err != nil {
		return nil, err
	}

	runs := make([]domain.PipelineRun, len(out.Value))
	for i, b := range out.Value {
		runs[i] = b.toRun()
	}
	return runs, nil
}

func (c *Client) BuildTimeline(ctx context.Context, buildID int64) ([]domain.TimelineRecord, error) {
	var out struct {
		Records []domain.TimelineRecord `json:"records"`
	}
	path := "build/builds/" + strconv.FormatInt(buildID, 10) + "/timeline"
	if err := c.get(ctx, c.projectURL(path, nil), &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

type commitDTO struct {
	CommitID  string             `json:"commitId"`
	Author    domain.GitUserDate `json:"author"`
	Committer domain.GitUserDate `json:"committer"`
	Comment   string             `json:"comment"`
	Parents   []string           `json:"parents"`
}

func (d commitDTO) toCommit() domain.Commit {
	return domain.Commit{
		ID:        d.CommitID,
		Author:    d.Author,
		Committer: d.Committer,
		Comment:   d.Comment,
		Parents:   d.Parents,
	}
}

func (c *Client) Commit(ctx context.Context, repositoryID, commitID string) (domain.Commit, error) {
	var out commitDTO
	if err := c.get(ctx, c.repoURL(repositoryID, "commits/"+url.PathEscape(commitID), nil), &out); err != nil {
		return domain.Commit{}, err
	}
	return out.toCommit(), nil
}

func (c *Client) CommitChanges(ctx context.Context, repositoryID, commitID string) ([]string, error) {
	var out struct {
		Changes []struct {
			ChangeType string `json:"changeType"`
			Item       struct {
				Path string `json:"path"`
			} `json:"item"`
		} `json:"changes"`
	}
	path := "commits/" + url.PathEscape(commitID) + "/changes"
	if err := c.get(ctx, c.repoURL(repositoryID, path, nil), &out); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(out.Changes))
	for _, ch := range out.Changes {
		paths = append(paths, ch.Item.Path)
	}
	return paths, nil
}

func (c *Client) ListCommits(ctx context.Context, q domain.CommitQuery) ([]domain.Commit, error) {
	v := url.Values{}
	if q.Branch != "" {
		v.Set("searchCriteria.itemVersion.version", q.Branch)
		v.Set("searchCriteria.itemVersion.versionType", "branch")
	}
	if !q.From.IsZero() {
		v.Set("searchCriteria.fromDate", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		v.Set("searchCriteria.toDate", q.To.UTC().Format(time.RFC3339))
	}
	if q.Top > 0 {
		v.Set("searchCriteria.$top", strconv.Itoa(q.Top))
	}

	var out struct {
		Value []commitDTO `json:"value"`
	}
	if err := c.get(ctx, c.repoURL(q.RepositoryID, "commits", v), &out); err != nil {
		return nil, err
	}

	commits := make([]domain.Commit, len(out.Value))
	for i, d := range out.Value {
		commits[i] = d.toCommit()
	}
	return commits, nil
}

type pullRequestDTO struct {
	PullRequestID int       `json:"pullRequestId"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	SourceRefName string    `json:"sourceRefName"`
	TargetRefName string    `json:"targetRefName"`
	CreationDate  time.Time `json:"creationDate"`
	IsDraft       bool      `json:"isDraft"`
	CreatedBy     struct {
		DisplayName string `json:"displayName"`
	} `json:"createdBy"`
	Repository struct {
		WebURL string `json:"webUrl"`
	} `json:"repository"`
}

func (c *Client) PullRequests(ctx context.Context, q domain.PullRequestQuery) ([]domain.PullRequest, error) {
	v := url.Values{}
	if q.SourceRef != "" {
		v.Set("searchCriteria.sourceRefName", q.SourceRef)
	}
	if q.Status != "" {
		v.Set("searchCriteria.status", q.Status)
	}

	var out struct {
		Value []pullRequestDTO `json:"value"`
	}
	if err := c.get(ctx, c.repoURL(q.RepositoryID, "pullrequests", v), &out); err != nil {
		return nil, err
	}

	prs := make([]domain.PullRequest, len(out.Value))
	for i, p := range out.Value {
		web := ""
		if p.Repository.WebURL != "" {
			web = p.Repository.WebURL + "/pullrequest/" + strconv.Itoa(p.PullRequestID)
		}
		prs[i] = domain.PullRequest{
			ID:           p.PullRequestID,
			Title:        p.Title,
			Status:       p.Status,
			SourceRef:    p.SourceRefName,
			TargetRef:    p.TargetRefName,
			CreatedBy:    p.CreatedBy.DisplayName,
			CreationDate: p.CreationDate,
			WebURL:       web,
			IsDraft:      p.IsDraft,
		}
	}
	return prs, nil
}

func (c *Client) projectURL(path string, v url.Values) string {
	if v == nil {
		v = url.Values{}
	}
	v.Set("api-version", apiVersion)
	return c.apiBase + "/" + url.PathEscape(c.project) + "/_apis/" + path + "?" + v.Encode()
}

func (c *Client) repoURL(repositoryID, path string, v url.Values) string {
	return c.projectURL("git/repositories/"+url.PathEscape(repositoryID)+"/"+path, v)
}

func (c *Client) authorize(req *http.Request) {
	if c.pat {
		req.SetBasicAuth("", c.token)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.authorize(req)
		req.Header.Set("Accept", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if sec, _ := strconv.Atoi(ra); sec > 0 {
					select {
					case <-time.After(time.Duration(sec) * time.Second):
					case <-ctx.Done():
						return backoff.Permanent(ctx.Err())
					}
					return fmt.Errorf("retry after due to 429")
				}
			}
			return fmt.Errorf("azure devops 429")
		case resp.StatusCode == http.StatusUnauthorized,
			// a rejected token is answered with a 203 sign-in page
			resp.StatusCode == http.StatusNonAuthoritativeInfo:
			return backoff.Permanent(fmt.Errorf("azure devops %s: %w", resp.Status, domain.ErrUnauthorized))
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("azure devops %s: %w", resp.Status, domain.ErrNotFound))
		case resp.StatusCode >= 500:
			return fmt.Errorf("azure devops %s", resp.Status)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("azure devops %s", resp.Status))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = c.retryMaxElapsed

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
