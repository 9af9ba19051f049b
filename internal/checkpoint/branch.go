package checkpoint

import (
	"github.com/go-git/go-git/v5"
)

// detectGitBranch auto-detects the current git branch from a project path.
//
// Returns the branch name if the path is a git repository, or empty string
// if not a git repo or detection fails.
func detectGitBranch(projectPath string) (string, error) {
	repo, err := git.PlainOpen(projectPath)
	if err != nil {
		// Not a git repository or can't open - return empty, not an error
		return "", nil
	}

	head, err := repo.Head()
	if err != nil {
		// Can't get HEAD (detached HEAD, bare repo, etc.) - return empty
		return "", nil
	}

	// head.Name() returns refs/heads/branch-name format
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}

	return "", nil
}
