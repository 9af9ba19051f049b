// Package gh wraps the GitHub API for prior art search and proposal
// publication.
package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

// Finding is a repository matched during prior art search.
type Finding struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Stars       int    `json:"stars"`
	Language    string `json:"language"`
}

// Issue is a created GitHub issue.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// Client searches repositories and files issues.
type Client struct {
	gh *github.Client
}

// NewClient creates a GitHub client with token authentication.
func NewClient(ctx context.Context, token config.Secret) (*Client, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("GitHub token not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return &Client{gh: github.NewClient(tc)}, nil
}

// NewClientFromGitHub wraps an existing go-github client, mainly for
// tests against a stub server.
func NewClientFromGitHub(gh *github.Client) *Client {
	return &Client{gh: gh}
}

// SearchRepositories searches GitHub repositories matching a query and
// returns up to maxResults findings.
func (c *Client) SearchRepositories(ctx context.Context, query string, maxResults int) ([]Finding, error) {
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 5
	}

	opts := &github.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: maxResults},
	}

	result, _, err := c.gh.Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("repository search failed: %w", err)
	}

	findings := make([]Finding, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		findings = append(findings, Finding{
			FullName:    repo.GetFullName(),
			Description: repo.GetDescription(),
			HTMLURL:     repo.GetHTMLURL(),
			Stars:       repo.GetStargazersCount(),
			Language:    repo.GetLanguage(),
		})
	}
	return findings, nil
}

// CreateIssue opens an issue in the repo given as "owner/repo".
func (c *Client) CreateIssue(ctx context.Context, repo, title, body string) (*Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	req := &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	}

	issue, _, err := c.gh.Issues.Create(ctx, owner, name, req)
	if err != nil {
		return nil, fmt.Errorf("issue creation failed: %w", err)
	}

	return &Issue{
		Number:  issue.GetNumber(),
		HTMLURL: issue.GetHTMLURL(),
	}, nil
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("issue repo must be in owner/repo form, got %q", repo)
	}
	return parts[0], parts[1], nil
}
