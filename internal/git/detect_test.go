package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRepoFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "HTTPS URL with .git suffix", url: "https://github.com/octocat/Hello-World.git", want: "octocat/Hello-World"},
		{name: "HTTPS URL without .git suffix", url: "https://github.com/octocat/Hello-World", want: "octocat/Hello-World"},
		{name: "HTTPS URL with trailing slash", url: "https://github.com/octocat/Hello-World/", want: "octocat/Hello-World"},
		{name: "SSH URL with .git suffix", url: "git@github.com:octocat/Hello-World.git", want: "octocat/Hello-World"},
		{name: "SSH URL without .git suffix", url: "git@github.com:octocat/Hello-World", want: "octocat/Hello-World"},
		{name: "ssh scheme", url: "ssh://git@github.com/octocat/Hello-World.git", want: "octocat/Hello-World"},
		{name: "HTTP URL", url: "http://github.com/owner/repo-name.git", want: "owner/repo-name"},
		{name: "Enterprise host", url: "https://ghe.example.com/platform/storefront.git", want: "platform/storefront"},
		{name: "Enterprise SSH", url: "git@ghe.example.com:platform/storefront.git", want: "platform/storefront"},
		{name: "Repo with dots", url: "https://github.com/owner/my.repo.git", want: "owner/my.repo"},
		{name: "Invalid URL - missing path", url: "https://github.com/", want: ""},
		{name: "Invalid URL - single component", url: "https://github.com/octocat", want: ""},
		{name: "Local path", url: "/srv/git/repo.git", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractRepoFromURL(tt.url))
		})
	}
}

func TestParseGitConfig(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		want          string
		wantErr       bool
	}{
		{
			name: "Valid HTTPS origin",
			configContent: `[core]
	repositoryformatversion = 0
[remote "origin"]
	url = https://github.com/octocat/Hello-World.git
	fetch = +refs/heads/*:refs/remotes/origin/*`,
			want: "octocat/Hello-World",
		},
		{
			name: "Upstream listed before origin",
			configContent: `[remote "upstream"]
	url = https://github.com/other/repo.git
[remote "origin"]
	url = git@github.com:octocat/Hello-World.git`,
			want: "octocat/Hello-World",
		},
		{
			name: "No origin remote",
			configContent: `[core]
	repositoryformatversion = 0
[remote "upstream"]
	url = https://github.com/octocat/Hello-World.git`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config")
			require.NoError(t, os.WriteFile(path, []byte(tt.configContent), 0644))

			got, err := parseGitConfig(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindRepositoryRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte(""), 0644))

	nested := filepath.Join(root, "apps", "web")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := findRepositoryRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindRepositoryRoot_NotARepository(t *testing.T) {
	_, err := findRepositoryRoot(t.TempDir())
	assert.Error(t, err)
}

func TestDetectRepository(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	gitConfig := "[remote \"origin\"]\n\turl = https://github.com/acme/web.git\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte(gitConfig), 0644))

	chdirForTest(t, root)

	repo, err := DetectRepository()
	require.NoError(t, err)
	assert.Equal(t, "acme/web", repo)
}

// chdirForTest changes the working directory for the duration of the test
// and restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}
