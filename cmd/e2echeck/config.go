package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Cloudsky01/gh-e2echeck/internal/config"
	"github.com/Cloudsky01/gh-e2echeck/internal/git"
	"github.com/Cloudsky01/gh-e2echeck/internal/paths"
	"github.com/Cloudsky01/gh-e2echeck/internal/wizard"
)

type saveLocation int

const (
	saveLocationTeam saveLocation = iota
	saveLocationUser
	saveLocationExplicit
)

// stdinIsTerminal decides whether `config init` may prompt
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var runWizard = func(base *config.Config, target string, exists bool) (*config.Config, error) {
	return wizard.New(base, target, exists).Run()
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create e2echeck configuration",
		Long: `Manage e2echeck configuration files.

Configuration Locations (first existing file wins):
  Repo default:    .github/e2echeck.yaml (team-shared, checked in)
  User config:     ~/.config/e2echeck/config.yaml

Configuration Precedence (lowest to highest):
  1. Built-in defaults
  2. Configuration file
  3. Environment variables (GITHUB_*, CHECK_RUN_ID, E2ECHECK_*)
  4. CLI flags`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long:  `Show the configuration after merging all sources. The token is redacted.`,
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Long: `Write a configuration file containing the poll, output and log settings.
By default the file goes to .github/e2echeck.yaml in the current repository;
use --user for the user config or --config for an explicit path.

In a terminal an interactive form pre-filled with the defaults is shown and
overwriting an existing file asks for confirmation. Without a terminal, or
with --force, the defaults are written directly.`,
		Args: cobra.NoArgs,
		RunE: runConfigInit,
	}
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().Bool("user", false, "Write the user config instead of the repository default")

	configCmd.AddCommand(showCmd, pathCmd, initCmd)
	return configCmd
}

func projectPaths() (*paths.Paths, error) {
	projectRoot, _ := git.RepositoryRoot()

	var p *paths.Paths
	var err error
	if projectRoot != "" {
		p, err = paths.NewWithProject(projectRoot)
	} else {
		p, err = paths.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize paths: %w", err)
	}
	return p, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	source := cfg.GetConfigSource()
	fmt.Fprintln(out, headerStyle.Render("Effective Configuration"))
	fmt.Fprintln(out, dividerStyle.Render(divider))
	fmt.Fprintln(out, labelStyle.Render("Source: ")+infoStyle.Render(source.String()))
	if source != paths.SourceNone {
		fmt.Fprintln(out, labelStyle.Render("Path:   ")+infoStyle.Render(cfg.GetConfigPath()))
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	p, err := projectPaths()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Configuration File Locations"))
	fmt.Fprintln(out, dividerStyle.Render(divider))

	if p.ProjectRoot != "" {
		fmt.Fprintf(out, "Project Root:   %s\n", p.ProjectRoot)
		fmt.Fprintf(out, "Repo Default:   %s %s\n", p.RepoDefaultConfigPath, existsIndicator(fileExists(p.RepoDefaultConfigPath)))
	} else {
		fmt.Fprintln(out, infoStyle.Render("Not inside a git repository; no repository default"))
	}

	userConfig := p.UserConfigFile()
	fmt.Fprintf(out, "User Config:    %s %s\n", userConfig, existsIndicator(fileExists(userConfig)))

	if active, source := p.FindConfig(); source != paths.SourceNone {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Active:         %s (%s)\n", active, source)
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	p, err := projectPaths()
	if err != nil {
		return err
	}

	explicit := cmd.Flags().Changed("config")
	explicitPath, _ := cmd.Flags().GetString("config")
	user, _ := cmd.Flags().GetBool("user")
	force, _ := cmd.Flags().GetBool("force")

	target, location, err := determineConfigSaveTarget(p, explicit, explicitPath, user)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	exists := fileExists(target)

	settings := config.Default()
	if !force && stdinIsTerminal() {
		settings, err = runWizard(config.Default(), target, exists)
		if errors.Is(err, wizard.ErrDeclined) || errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, infoStyle.Render("Configuration unchanged."))
			return nil
		}
		if err != nil {
			return err
		}
	} else if exists && !force {
		return fmt.Errorf("configuration file %s already exists. Use --force to overwrite", target)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := settings.Save(target); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out, successStyle.Render("✓ Configuration written: ")+infoStyle.Render(target))
	if location == saveLocationTeam {
		fmt.Fprintln(out, infoStyle.Render("  Commit it so every workflow run picks it up."))
	}

	return nil
}

func determineConfigSaveTarget(p *paths.Paths, explicit bool, explicitPath string, user bool) (string, saveLocation, error) {
	if explicit && explicitPath != "" {
		return explicitPath, saveLocationExplicit, nil
	}

	if user {
		return p.UserConfigFile(), saveLocationUser, nil
	}

	if p.RepoDefaultConfigPath == "" {
		return "", saveLocationTeam, fmt.Errorf("not inside a git repository; use --user or --config to choose where to write")
	}
	return p.RepoDefaultConfigPath, saveLocationTeam, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
