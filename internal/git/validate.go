package git

import (
	"fmt"
	"regexp"
	"strings"
)

var repoFormatRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// ValidateRepositoryFormat validates that a repository string is in the correct owner/repo format
func ValidateRepositoryFormat(repo string) error {
	if !repoFormatRegex.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %q - expected format: owner/repo", repo)
	}

	return nil
}

// SplitRepository validates repo and returns its owner and name
func SplitRepository(repo string) (owner, name string, err error) {
	if err := ValidateRepositoryFormat(repo); err != nil {
		return "", "", err
	}
	owner, name, _ = strings.Cut(repo, "/")
	return owner, name, nil
}
