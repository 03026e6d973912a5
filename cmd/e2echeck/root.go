package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Cloudsky01/gh-e2echeck/internal/config"
	"github.com/Cloudsky01/gh-e2echeck/internal/git"
	"github.com/Cloudsky01/gh-e2echeck/internal/github"
	"github.com/Cloudsky01/gh-e2echeck/internal/logging"
	"github.com/Cloudsky01/gh-e2echeck/internal/paths"
	"github.com/Cloudsky01/gh-e2echeck/internal/reporter"
	"github.com/Cloudsky01/gh-e2echeck/internal/resolver"
	"github.com/Cloudsky01/gh-e2echeck/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "e2echeck",
		Short: "Keep an E2E check run in sync with the GitHub Actions job running it",
		Long: `e2echeck updates a check run created earlier in a workflow so that it
shows the job executing the end-to-end tests.

  e2echeck in-progress   # mark the check in_progress, link it to this job
  e2echeck complete      # complete the check with a conclusion and summary

Run-specific values are read from the GitHub Actions environment
(GITHUB_REPOSITORY, GITHUB_RUN_ID, GITHUB_JOB, ...) plus CHECK_RUN_ID,
PROJECT, PREVIEW_URL and JOB_STATUS. A GITHUB_TOKEN with checks:write and
actions:read is required.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "Path to configuration file (default: .github/e2echeck.yaml or user config)")
	pf.StringP("repo", "r", "", "Repository in OWNER/REPO format (default: GITHUB_REPOSITORY or git origin)")
	pf.Int64("run-id", 0, "Workflow run id (default: GITHUB_RUN_ID)")
	pf.Int64("run-attempt", 1, "Workflow run attempt (default: GITHUB_RUN_ATTEMPT)")
	pf.String("job", "", "Job name to link (default: GITHUB_JOB)")
	pf.String("workflow", "", "Workflow name (default: GITHUB_WORKFLOW)")
	pf.String("server-url", models.DefaultServerURL, "GitHub web URL (default: GITHUB_SERVER_URL)")
	pf.String("api-url", config.DefaultAPIURL, "GitHub REST API URL (default: GITHUB_API_URL)")
	pf.Int("poll-attempts", config.DefaultPollAttempts, "Job list attempts before falling back to the run URL")
	pf.Duration("poll-delay", config.DefaultPollDelay, "Wait between job list attempts")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text, json, logfmt")

	rootCmd.AddCommand(newInProgressCmd(), newCompleteCmd(), newResolveCmd(), newConfigCmd())
	rootCmd.SetVersionTemplate(`{{printf "e2echeck %s\n" .Version}}`)

	return rootCmd
}

func newInProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "in-progress",
		Short: "Mark the check run in_progress and link it to the running job",
		Args:  cobra.NoArgs,
		RunE:  runInProgress,
	}
	cmd.Flags().String("check-run-id", "", "Check run to update (default: CHECK_RUN_ID)")
	return cmd
}

func newCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Complete the check run with a conclusion and summary",
		Args:  cobra.NoArgs,
		RunE:  runComplete,
	}
	cmd.Flags().String("check-run-id", "", "Check run to update (default: CHECK_RUN_ID)")
	cmd.Flags().String("job-status", "", "Job status; \"success\" concludes success, anything else failure (default: JOB_STATUS)")
	cmd.Flags().String("project", "", "Project name shown in the summary (default: PROJECT)")
	cmd.Flags().String("preview-url", "", "Preview deployment URL (default: PREVIEW_URL)")
	cmd.Flags().String("output-title", config.DefaultOutputTitle, "Title of the check output")
	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the URL of the running job without touching any check",
		Args:  cobra.NoArgs,
		RunE:  runResolve,
	}
}

// session holds everything a command needs after configuration is loaded
type session struct {
	cfg        *config.Config
	logger     *log.Logger
	run        models.WorkflowRunContext
	checkRunID int64
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var p *paths.Paths
	var err error
	if root, rootErr := git.RepositoryRoot(); rootErr == nil {
		p, err = paths.NewWithProject(root)
	} else {
		p, err = paths.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize paths: %w", err)
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: configPath,
		Paths:      p,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newSession loads configuration and the run context. With needCheckRun
// the check run id is validated first, before any client exists, so a bad
// id never reaches the network.
func newSession(cmd *cobra.Command, needCheckRun bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var checkRunID int64
	if needCheckRun {
		if checkRunID, err = reporter.ParseCheckRunID(cfg.CheckRunID); err != nil {
			return nil, err
		}
	}

	base, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger, _ := logging.WithInvocation(base)

	if cfg.Repository == "" {
		if detected, err := git.DetectRepository(); err == nil {
			logger.Debug("repository detected from git origin", "repository", detected)
			cfg.Repository = detected
		}
	}

	run, err := cfg.RunContext()
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, run: run, checkRunID: checkRunID}, nil
}

func (s *session) newResolver(ctx context.Context) (*resolver.Resolver, *github.Client, error) {
	client, err := github.NewClient(ctx, s.cfg.Token, s.cfg.APIURL)
	if err != nil {
		return nil, nil, err
	}

	r := resolver.New(client,
		resolver.WithAttempts(s.cfg.Poll.Attempts),
		resolver.WithDelay(s.cfg.Poll.Delay),
		resolver.WithLogger(s.logger),
	)
	return r, client, nil
}

func (s *session) newReporter(ctx context.Context) (*reporter.Reporter, error) {
	r, client, err := s.newResolver(ctx)
	if err != nil {
		return nil, err
	}

	return reporter.New(r, client,
		reporter.WithLogger(s.logger),
		reporter.WithOutputTitle(s.cfg.OutputTitle),
	), nil
}

func runInProgress(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rep, err := s.newReporter(ctx)
	if err != nil {
		return err
	}

	if err := rep.MarkInProgress(ctx, s.run, s.checkRunID); err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), s.checkRunID, models.CheckStatusInProgress, "")
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rep, err := s.newReporter(ctx)
	if err != nil {
		return err
	}

	completion := reporter.Completion{
		JobStatus:  s.cfg.JobStatus,
		Project:    s.cfg.Project,
		PreviewURL: s.cfg.PreviewURL,
	}
	if err := rep.MarkCompleted(ctx, s.run, s.checkRunID, completion); err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), s.checkRunID, models.CheckStatusCompleted, reporter.ConclusionFor(completion.JobStatus))
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	r, _, err := s.newResolver(ctx)
	if err != nil {
		return err
	}

	url, err := r.Resolve(ctx, s.run)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}

func Execute() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
