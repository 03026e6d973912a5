package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/Cloudsky01/gh-e2echeck/internal/config"
)

// ErrDeclined is returned when the user keeps an existing config file
var ErrDeclined = errors.New("overwrite declined")

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "logfmt"}
)

// Answers holds the form fields while the user edits them
type Answers struct {
	Attempts    string
	Delay       string
	OutputTitle string
	LogLevel    string
	LogFormat   string
	Overwrite   bool
}

// AnswersFrom pre-fills the form from cfg
func AnswersFrom(cfg *config.Config) Answers {
	return Answers{
		Attempts:    strconv.Itoa(cfg.Poll.Attempts),
		Delay:       cfg.Poll.Delay.String(),
		OutputTitle: cfg.OutputTitle,
		LogLevel:    cfg.Log.Level,
		LogFormat:   cfg.Log.Format,
	}
}

// Config applies the answers on top of the shareable settings of base
func (a Answers) Config(base *config.Config) (*config.Config, error) {
	attempts, err := parseAttempts(a.Attempts)
	if err != nil {
		return nil, err
	}
	delay, err := parseDelay(a.Delay)
	if err != nil {
		return nil, err
	}
	if err := validateTitle(a.OutputTitle); err != nil {
		return nil, err
	}

	cfg := base.FileSettings()
	cfg.Poll.Attempts = attempts
	cfg.Poll.Delay = delay
	cfg.OutputTitle = strings.TrimSpace(a.OutputTitle)
	cfg.Log.Level = a.LogLevel
	cfg.Log.Format = a.LogFormat

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Wizard walks through the settings written by `config init`
type Wizard struct {
	base    *config.Config
	target  string
	exists  bool
	answers Answers
	run     func(*huh.Form) error
}

// New creates a wizard for target. When exists is set the form ends with
// an overwrite confirmation.
func New(base *config.Config, target string, exists bool) *Wizard {
	return &Wizard{
		base:    base,
		target:  target,
		exists:  exists,
		answers: AnswersFrom(base),
		run:     (*huh.Form).Run,
	}
}

// Run shows the form and returns the resulting configuration
func (w *Wizard) Run() (*config.Config, error) {
	if err := w.run(huh.NewForm(w.groups()...)); err != nil {
		return nil, err
	}

	if w.exists && !w.answers.Overwrite {
		return nil, ErrDeclined
	}

	return w.answers.Config(w.base)
}

func (w *Wizard) groups() []*huh.Group {
	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewInput().
				Title("Poll attempts").
				Description("How many times to list the run's jobs before linking the run page").
				Validate(validateAttempts).
				Value(&w.answers.Attempts),

			huh.NewInput().
				Title("Poll delay").
				Description("Wait between attempts, as a Go duration (e.g. 1s, 500ms)").
				Validate(validateDelay).
				Value(&w.answers.Delay),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Check output title").
				Description("Shown as the title of the completed check").
				Validate(validateTitle).
				Value(&w.answers.OutputTitle),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions(logLevels...)...).
				Value(&w.answers.LogLevel),

			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions(logFormats...)...).
				Value(&w.answers.LogFormat),
		),
	}

	if w.exists {
		groups = append(groups, huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite it?", w.target)).
				Affirmative("Overwrite").
				Negative("Keep existing").
				Value(&w.answers.Overwrite),
		))
	}

	return groups
}

func parseAttempts(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("attempts must be a whole number")
	}
	if n < 1 || n > config.MaxPollAttempts {
		return 0, fmt.Errorf("attempts must be between 1 and %d", config.MaxPollAttempts)
	}
	return n, nil
}

func parseDelay(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("delay must be a duration such as 1s")
	}
	if d < 0 {
		return 0, fmt.Errorf("delay must not be negative")
	}
	return d, nil
}

func validateAttempts(s string) error {
	_, err := parseAttempts(s)
	return err
}

func validateDelay(s string) error {
	_, err := parseDelay(s)
	return err
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}
