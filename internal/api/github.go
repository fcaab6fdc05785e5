package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"
	log "github.com/sirupsen/logrus"
	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/paginate"
)

var logger = log.WithField("package", "api")

const perPage = 100

// GitHubClient represents a client for the GitHub REST API
type GitHubClient struct {
	client *github.Client
}

// NewGitHubClient creates a new GitHub REST client on top of httpClient. An
// empty baseURL targets github.com; anything else is treated as a GitHub
// Enterprise API root.
func NewGitHubClient(httpClient *http.Client, baseURL string) (*GitHubClient, error) {
	client := github.NewClient(httpClient)

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure base URL %q: %w", baseURL, err)
		}
	}

	return &GitHubClient{client: client}, nil
}

// ListRepositoriesPage lists one page of an organization's repositories.
// Pages are numbered from 1.
func (c *GitHubClient) ListRepositoriesPage(ctx context.Context, org string, page int) ([]models.Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Sort: "full_name",
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}

	repos, _, err := c.client.Repositories.ListByOrg(ctx, org, opts)
	if err != nil {
		return nil, wrapRESTError(fmt.Sprintf("list repositories of %s (page %d)", org, page), err)
	}

	result := make([]models.Repository, 0, len(repos))
	for _, repo := range repos {
		result = append(result, models.Repository{
			Name:     repo.GetName(),
			Archived: repo.GetArchived(),
		})
	}

	return result, nil
}

// ListLabels lists every label defined in a repository
func (c *GitHubClient) ListLabels(ctx context.Context, owner, repo string) ([]models.Label, error) {
	return paginate.Walk(ctx, 1, func(ctx context.Context, page int) (paginate.Page[models.Label, int], error) {
		labels, resp, err := c.client.Issues.ListLabels(ctx, owner, repo, &github.ListOptions{
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			return paginate.Page[models.Label, int]{}, wrapRESTError(fmt.Sprintf("list labels of %s/%s", owner, repo), err)
		}

		items := make([]models.Label, 0, len(labels))
		for _, label := range labels {
			items = append(items, ConvertGitHubLabel(label))
		}

		return paginate.Page[models.Label, int]{
			Items: items,
			Next:  resp.NextPage,
			More:  resp.NextPage != 0,
		}, nil
	})
}

// CreateLabel creates a label in a repository
func (c *GitHubClient) CreateLabel(ctx context.Context, owner, repo string, label models.Label) error {
	_, _, err := c.client.Issues.CreateLabel(ctx, owner, repo, &github.Label{
		Name:  github.String(label.Name),
		Color: github.String(label.Color),
	})
	if err != nil {
		return wrapRESTError(fmt.Sprintf("create label %q in %s/%s", label.Name, owner, repo), err)
	}
	return nil
}

// DeleteLabel deletes a label from a repository
func (c *GitHubClient) DeleteLabel(ctx context.Context, owner, repo, name string) error {
	_, err := c.client.Issues.DeleteLabel(ctx, owner, repo, name)
	if err != nil {
		return wrapRESTError(fmt.Sprintf("delete label %q in %s/%s", name, owner, repo), err)
	}
	return nil
}

// RenameLabel renames a label in place, keeping its color and issue
// assignments.
func (c *GitHubClient) RenameLabel(ctx context.Context, owner, repo, oldName, newName string) error {
	_, _, err := c.client.Issues.EditLabel(ctx, owner, repo, oldName, &github.Label{
		Name: github.String(newName),
	})
	if err != nil {
		return wrapRESTError(fmt.Sprintf("rename label %q to %q in %s/%s", oldName, newName, owner, repo), err)
	}
	return nil
}

// AddIssueLabel adds a label to the issue at issueURL
func (c *GitHubClient) AddIssueLabel(ctx context.Context, issueURL, name string) error {
	ref, err := ParseIssueURL(issueURL)
	if err != nil {
		return err
	}

	_, _, err = c.client.Issues.AddLabelsToIssue(ctx, ref.Owner, ref.Repo, ref.Number, []string{name})
	if err != nil {
		return wrapRESTError(fmt.Sprintf("add label %q to %s", name, issueURL), err)
	}
	return nil
}

// RemoveIssueLabel removes a label from the issue at issueURL. A 404 means the
// label was not on the issue and is reported through IsNotFound.
func (c *GitHubClient) RemoveIssueLabel(ctx context.Context, issueURL, name string) error {
	ref, err := ParseIssueURL(issueURL)
	if err != nil {
		return err
	}

	_, err = c.client.Issues.RemoveLabelForIssue(ctx, ref.Owner, ref.Repo, ref.Number, name)
	if err != nil {
		return wrapRESTError(fmt.Sprintf("remove label %q from %s", name, issueURL), err)
	}
	return nil
}

// IssueRef identifies an issue by owner, repository and number
type IssueRef struct {
	Owner  string
	Repo   string
	Number int
}

// ParseIssueURL parses a canonical issue URL of the form
// https://<host>/<owner>/<repo>/issues/<number>.
func ParseIssueURL(issueURL string) (IssueRef, error) {
	u, err := url.Parse(issueURL)
	if err != nil {
		return IssueRef{}, fmt.Errorf("invalid issue URL %q: %w", issueURL, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 4 || parts[2] != "issues" || parts[0] == "" || parts[1] == "" {
		return IssueRef{}, fmt.Errorf("invalid issue URL %q: expected /<owner>/<repo>/issues/<number>", issueURL)
	}

	number, err := strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return IssueRef{}, fmt.Errorf("invalid issue number in URL %q", issueURL)
	}

	return IssueRef{Owner: parts[0], Repo: parts[1], Number: number}, nil
}

// ConvertGitHubLabel converts a GitHub label to our model
func ConvertGitHubLabel(label *github.Label) models.Label {
	return models.Label{
		Name:  label.GetName(),
		Color: label.GetColor(),
	}
}
