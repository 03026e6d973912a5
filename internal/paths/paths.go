package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// AppName is the application name used in config paths
	AppName = "e2echeck"

	// ConfigFileName is the name of the user config file
	ConfigFileName = "config.yaml"

	// RepoConfigFileName is the team-shared config kept under .github/
	RepoConfigFileName = "e2echeck.yaml"
)

// ConfigSource indicates where a config file came from
type ConfigSource int

const (
	SourceNone ConfigSource = iota
	SourceRepoDefault
	SourceUserConfig
	SourceCLIFlag
)

func (s ConfigSource) String() string {
	switch s {
	case SourceRepoDefault:
		return "repository default"
	case SourceUserConfig:
		return "user config"
	case SourceCLIFlag:
		return "CLI flag"
	default:
		return "none"
	}
}

type Paths struct {
	// UserConfigDir is the user's config directory (~/.config/e2echeck)
	UserConfigDir string

	// ProjectRoot is the root of the current git repository (if any)
	ProjectRoot string

	// RepoDefaultConfigPath is the repository's shared config (.github/e2echeck.yaml)
	RepoDefaultConfigPath string
}

func New() (*Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config directory: %w", err)
	}

	return &Paths{
		UserConfigDir: filepath.Join(configDir, AppName),
	}, nil
}

func NewWithProject(projectRoot string) (*Paths, error) {
	p, err := New()
	if err != nil {
		return nil, err
	}

	p.ProjectRoot = projectRoot
	p.RepoDefaultConfigPath = filepath.Join(projectRoot, ".github", RepoConfigFileName)

	return p, nil
}

func (p *Paths) UserConfigFile() string {
	return filepath.Join(p.UserConfigDir, ConfigFileName)
}

// FindConfig returns the first existing config file. The repository
// default wins over the user config because CI runners rarely have one.
func (p *Paths) FindConfig() (string, ConfigSource) {
	candidates := []struct {
		path   string
		source ConfigSource
	}{
		{p.RepoDefaultConfigPath, SourceRepoDefault},
		{p.UserConfigFile(), SourceUserConfig},
	}

	for _, c := range candidates {
		if c.path == "" {
			continue
		}
		if info, err := os.Stat(c.path); err == nil && !info.IsDir() {
			return c.path, c.source
		}
	}

	return "", SourceNone
}
