package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/shurcooL/githubv4"
	log "github.com/sirupsen/logrus"
	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/paginate"
)

const (
	// issuesPerPage matches the page size the label sync has always used; the
	// nested comment window makes larger pages expensive.
	issuesPerPage = 20

	// MaxCommentWindow is the largest comment window GitHub serves in one
	// connection.
	MaxCommentWindow = 100

	rateLimitWarning = 1000
)

// GraphQLClient represents a client for the GitHub GraphQL API
type GraphQLClient struct {
	client        *githubv4.Client
	commentWindow int
}

// NewGraphQLClient creates a new GraphQL client that fetches the most recent
// commentWindow comments of every issue. An empty endpoint targets github.com.
func NewGraphQLClient(httpClient *http.Client, endpoint string, commentWindow int) *GraphQLClient {
	if commentWindow < 1 {
		commentWindow = 1
	}
	if commentWindow > MaxCommentWindow {
		commentWindow = MaxCommentWindow
	}

	httpClient = withStatusCheck(httpClient)

	var client *githubv4.Client
	if endpoint != "" {
		client = githubv4.NewEnterpriseClient(endpoint, httpClient)
	} else {
		client = githubv4.NewClient(httpClient)
	}

	return &GraphQLClient{client: client, commentWindow: commentWindow}
}

// CommentWindow returns the number of most recent comments fetched per issue
func (c *GraphQLClient) CommentWindow() int {
	return c.commentWindow
}

type rateLimit struct {
	Limit     githubv4.Int
	Cost      githubv4.Int
	Remaining githubv4.Int
	ResetAt   githubv4.DateTime
}

type pageInfo struct {
	EndCursor   githubv4.String
	HasNextPage githubv4.Boolean
}

// issueNode represents an open issue in GraphQL
type issueNode struct {
	Title             githubv4.String
	URL               githubv4.String
	Number            githubv4.Int
	AuthorAssociation githubv4.CommentAuthorAssociation
	Comments          struct {
		TotalCount githubv4.Int
		Nodes      []commentNode
	} `graphql:"comments(last: $commentsWindow)"`
}

// commentNode represents an issue comment in GraphQL
type commentNode struct {
	BodyText          githubv4.String
	AuthorAssociation githubv4.CommentAuthorAssociation
	Author            struct {
		Login githubv4.String
	}
}

// ListOpenIssues returns every open issue of a repository together with its
// comment window, one combined query per page of issues.
func (c *GraphQLClient) ListOpenIssues(ctx context.Context, owner, name string) ([]models.Issue, error) {
	issues, err := paginate.Walk(ctx, (*githubv4.String)(nil), func(ctx context.Context, cursor *githubv4.String) (paginate.Page[models.Issue, *githubv4.String], error) {
		return c.fetchIssuesPage(ctx, owner, name, cursor)
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"repository": owner + "/" + name,
		"issues":     len(issues),
	}).Info("Fetched open issues")

	return issues, nil
}

func (c *GraphQLClient) fetchIssuesPage(ctx context.Context, owner, name string, cursor *githubv4.String) (paginate.Page[models.Issue, *githubv4.String], error) {
	var query struct {
		RateLimit  rateLimit
		Repository struct {
			Issues struct {
				Nodes    []issueNode
				PageInfo pageInfo
			} `graphql:"issues(first: $issuesPerPage, after: $issuesCursor, states: OPEN)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner":          githubv4.String(owner),
		"name":           githubv4.String(name),
		"issuesPerPage":  githubv4.Int(issuesPerPage),
		"issuesCursor":   cursor,
		"commentsWindow": githubv4.Int(c.commentWindow),
	}

	logger.WithField("repository", owner+"/"+name).WithField("cursor", cursorString(cursor)).Debug("Querying open issues")

	if err := c.client.Query(ctx, &query, variables); err != nil {
		return paginate.Page[models.Issue, *githubv4.String]{}, wrapGraphQLError(fmt.Sprintf("query open issues of %s/%s", owner, name), err)
	}

	if remaining := int(query.RateLimit.Remaining); remaining < rateLimitWarning {
		logger.WithFields(log.Fields{
			"remaining": remaining,
			"limit":     int(query.RateLimit.Limit),
			"cost":      int(query.RateLimit.Cost),
		}).Warnf("GraphQL rate limit running low, resets %s", humanize.Time(query.RateLimit.ResetAt.Time))
	}

	repoName := owner + "/" + name
	issues := make([]models.Issue, 0, len(query.Repository.Issues.Nodes))
	for _, node := range query.Repository.Issues.Nodes {
		issues = append(issues, convertIssue(repoName, node))
	}

	info := query.Repository.Issues.PageInfo
	next := info.EndCursor
	return paginate.Page[models.Issue, *githubv4.String]{
		Items: issues,
		Next:  &next,
		More:  bool(info.HasNextPage),
	}, nil
}

func convertIssue(repoName string, node issueNode) models.Issue {
	comments := make([]models.Comment, 0, len(node.Comments.Nodes))
	for _, comment := range node.Comments.Nodes {
		comments = append(comments, models.Comment{
			BodyText:          string(comment.BodyText),
			AuthorAssociation: models.Association(comment.AuthorAssociation),
			AuthorLogin:       string(comment.Author.Login),
		})
	}

	return models.Issue{
		Repository:        repoName,
		Title:             string(node.Title),
		URL:               string(node.URL),
		Number:            int(node.Number),
		AuthorAssociation: models.Association(node.AuthorAssociation),
		Comments:          comments,
		CommentsTruncated: int(node.Comments.TotalCount) > len(comments),
	}
}

func cursorString(cursor *githubv4.String) string {
	if cursor == nil {
		return ""
	}
	return string(*cursor)
}
