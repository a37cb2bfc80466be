package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/davarch/build-compare/internal/domain"
)

const branchRefPrefix = "refs/heads/"

type PullRequestLookup struct {
	client domain.DevOpsClient
}

func NewPullRequestLookup(c domain.DevOpsClient) *PullRequestLookup {
	return &PullRequestLookup{client: c}
}

// ActiveForBranch returns the first active pull request whose source is branch.
func (p *PullRequestLookup) ActiveForBranch(ctx context.Context, repositoryID, branch string) (domain.PullRequest, bool, error) {
	if branch == "" {
		return domain.PullRequest{}, false, fmt.Errorf("empty branch name")
	}

	prs, err := p.client.PullRequests(ctx, domain.PullRequestQuery{
		RepositoryID: repositoryID,
		SourceRef:    BranchRef(branch),
		Status:       "active",
	})
	if err != nil {
		return domain.PullRequest{}, false, fmt.Errorf("list pull requests: %w", err)
	}
	if len(prs) == 0 {
		return domain.PullRequest{}, false, nil
	}
	return prs[0], true, nil
}

// BranchRef turns a short branch name into a full refs/heads/ reference.
func BranchRef(branch string) string {
	if strings.HasPrefix(branch, branchRefPrefix) {
		return branch
	}
	return branchRefPrefix + branch
}
