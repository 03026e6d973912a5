package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if !strings.Contains(p.UserConfigDir, AppName) {
		t.Errorf("UserConfigDir should contain '%s', got: %s", AppName, p.UserConfigDir)
	}

	if p.RepoDefaultConfigPath != "" {
		t.Errorf("RepoDefaultConfigPath should be empty without a project, got: %s", p.RepoDefaultConfigPath)
	}
}

func TestNewWithProject(t *testing.T) {
	projectRoot := "/path/to/project"
	p, err := NewWithProject(projectRoot)
	if err != nil {
		t.Fatalf("NewWithProject() failed: %v", err)
	}

	if p.ProjectRoot != projectRoot {
		t.Errorf("ProjectRoot = %s, want %s", p.ProjectRoot, projectRoot)
	}

	expected := filepath.Join(projectRoot, ".github", RepoConfigFileName)
	if p.RepoDefaultConfigPath != expected {
		t.Errorf("RepoDefaultConfigPath = %s, want %s", p.RepoDefaultConfigPath, expected)
	}
}

func TestUserConfigFile(t *testing.T) {
	p := &Paths{UserConfigDir: "/home/ci/.config/e2echeck"}

	if got := p.UserConfigFile(); got != "/home/ci/.config/e2echeck/config.yaml" {
		t.Errorf("UserConfigFile() = %s", got)
	}
}

func TestFindConfig(t *testing.T) {
	tmpDir := t.TempDir()
	p := &Paths{
		UserConfigDir:         filepath.Join(tmpDir, "user"),
		RepoDefaultConfigPath: filepath.Join(tmpDir, "repo", ".github", RepoConfigFileName),
	}

	if path, source := p.FindConfig(); path != "" || source != SourceNone {
		t.Fatalf("expected no config, got %s (%v)", path, source)
	}

	writeFile(t, p.UserConfigFile())
	if path, source := p.FindConfig(); path != p.UserConfigFile() || source != SourceUserConfig {
		t.Fatalf("expected user config, got %s (%v)", path, source)
	}

	writeFile(t, p.RepoDefaultConfigPath)
	if path, source := p.FindConfig(); path != p.RepoDefaultConfigPath || source != SourceRepoDefault {
		t.Fatalf("expected repository default, got %s (%v)", path, source)
	}
}

func TestConfigSourceString(t *testing.T) {
	tests := map[ConfigSource]string{
		SourceNone:        "none",
		SourceRepoDefault: "repository default",
		SourceUserConfig:  "user config",
		SourceCLIFlag:     "CLI flag",
	}

	for source, want := range tests {
		if got := source.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", source, got, want)
		}
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("poll:\n  attempts: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
}
