package main

import (
	"context"
	"fmt"

	"github.com/wesm/issue-overseer/config"
	"github.com/wesm/issue-overseer/internal/api"
	"github.com/wesm/issue-overseer/internal/auth"
	"github.com/wesm/issue-overseer/internal/migrations"
	"github.com/wesm/issue-overseer/internal/overseer"
)

var (
	_ overseer.GitHub         = (*api.GitHubClient)(nil)
	_ overseer.IssueFetcher   = (*api.GraphQLClient)(nil)
	_ migrations.LabelRenamer = (*api.GitHubClient)(nil)
)

// clients bundles the GitHub clients of one command invocation.
type clients struct {
	rest    *api.GitHubClient
	graphql *api.GraphQLClient
	counter *api.RequestCounter
}

func newClients(ctx context.Context, cfg *config.Config, commentWindow int) (*clients, error) {
	ts, err := auth.NewTokenSource(ctx, auth.Options{
		Token:              cfg.GitHub.Token,
		AppID:              cfg.GitHub.AppID,
		InstallationID:     cfg.GitHub.InstallationID,
		PrivateKeyFile:     cfg.GitHub.PrivateKeyFile,
		PrivateKeySecret:   cfg.GitHub.PrivateKeySecret,
		GCPCredentialsFile: cfg.GitHub.GCPCredentialsFile,
		BaseURL:            cfg.GitHub.BaseURL,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to set up GitHub credentials: %w", err)
	}

	httpClient, counter := api.NewHTTPClient(ts, cfg.GitHub.HTTPCache)

	rest, err := api.NewGitHubClient(httpClient, cfg.GitHub.BaseURL)
	if err != nil {
		return nil, err
	}

	return &clients{
		rest:    rest,
		graphql: api.NewGraphQLClient(httpClient, cfg.GitHub.GraphQLURL, commentWindow),
		counter: counter,
	}, nil
}
