package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxSearchDepth bounds the upward walk looking for a .git directory
const maxSearchDepth = 10

// DetectRepository reads the origin remote of the enclosing git checkout
// and returns it in owner/repo format
func DetectRepository() (string, error) {
	root, err := RepositoryRoot()
	if err != nil {
		return "", err
	}

	return parseGitConfig(filepath.Join(root, ".git", "config"))
}

// RepositoryRoot returns the nearest directory at or above the working
// directory that contains .git/config
func RepositoryRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return findRepositoryRoot(cwd)
}

func findRepositoryRoot(dir string) (string, error) {
	for i := 0; i < maxSearchDepth; i++ {
		configPath := filepath.Join(dir, ".git", "config")
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no .git/config found - not in a git repository")
}

func parseGitConfig(configPath string) (string, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read git config: %w", err)
	}

	var inOriginSection bool
	var url string

	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			inOriginSection = trimmed == `[remote "origin"]`
			continue
		}

		if inOriginSection && strings.HasPrefix(trimmed, "url") {
			if _, value, ok := strings.Cut(trimmed, "="); ok {
				url = strings.TrimSpace(value)
				break
			}
		}
	}

	if url == "" {
		return "", fmt.Errorf("no origin remote found in git config")
	}

	repo := extractRepoFromURL(url)
	if repo == "" {
		return "", fmt.Errorf("failed to extract owner/repo from URL: %s", url)
	}

	return repo, nil
}

// extractRepoFromURL converts a remote URL to owner/repo. Any host is
// accepted so Enterprise Server remotes work too:
//   - https://github.com/owner/repo(.git)
//   - git@ghe.example.com:owner/repo(.git)
//   - ssh://git@github.com/owner/repo(.git)
func extractRepoFromURL(url string) string {
	var path string

	switch {
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "ssh://"):
		_, rest, _ := strings.Cut(url, "://")
		_, path, _ = strings.Cut(rest, "/")
	case strings.HasPrefix(url, "git@"):
		_, path, _ = strings.Cut(url, ":")
	default:
		return ""
	}

	path = strings.TrimSuffix(path, "/")
	path = strings.TrimSuffix(path, ".git")
	if ValidateRepositoryFormat(path) != nil {
		return ""
	}
	return path
}
