package stages

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/researchd/internal/gh"
	"github.com/fyrsmithlabs/researchd/internal/llm"
	"github.com/fyrsmithlabs/researchd/internal/search"
)

// Shared fakes for stage tests.

type fakeCompleter struct {
	requests []llm.Request
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeSearcher struct {
	queries []string
	results map[string][]search.Result
	errs    map[string]error
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

type fakeRepoSearcher struct {
	queries  []string
	findings [][]gh.Finding
	err      error
}

func (f *fakeRepoSearcher) SearchRepositories(_ context.Context, query string, _ int) ([]gh.Finding, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.findings) == 0 {
		return nil, nil
	}
	found := f.findings[0]
	f.findings = f.findings[1:]
	return found, nil
}

type fakeIssueCreator struct {
	repo, title, body string
	calls             int
	err               error
}

func (f *fakeIssueCreator) CreateIssue(_ context.Context, repo, title, body string) (*gh.Issue, error) {
	f.calls++
	f.repo, f.title, f.body = repo, title, body
	if f.err != nil {
		return nil, f.err
	}
	return &gh.Issue{Number: 7, HTMLURL: fmt.Sprintf("https://github.com/%s/issues/7", repo)}, nil
}
