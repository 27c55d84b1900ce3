package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/config"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/spf13/cobra"
)

// TimerControl is the operator's view of the timer service. *timer.Client implements it.
type TimerControl interface {
	GetTimer(ctx context.Context) (*models.TimerRecord, error)
	Start(ctx context.Context) (*models.TimerRecord, error)
	Pause(ctx context.Context) (*models.TimerRecord, error)
	Reset(ctx context.Context) (*models.TimerRecord, error)
	SetDuration(ctx context.Context, minutes string) (*models.TimerRecord, error)
	ListActions(ctx context.Context, limit int32) ([]models.TimerAction, error)
}

// Deps builds what commands talk to once flags are parsed
type Deps struct {
	NewControl func(baseURL string) TimerControl
	NewOffset  func(baseURL string, timeout time.Duration) func(ctx context.Context) (int64, error)
	Clock      clockwork.Clock
}

type cli struct {
	deps       Deps
	configPath string
	serverURL  string
	timeout    time.Duration
	jsonOutput bool

	control TimerControl
}

// NewRootCmd builds the stagectl command tree
func NewRootCmd(deps Deps) *cobra.Command {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	c := &cli{deps: deps}

	root := &cobra.Command{
		Use:   "stagectl",
		Short: "stagectl - operator console for the stage timer",
		Long: `stagectl controls the shared stage timer every display follows.

Examples:
  stagectl status
  stagectl set-duration 5
  stagectl start
  stagectl pause
  stagectl reset`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&c.serverURL, "server", "", "server base URL (default from config)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Second, "per-call timeout")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		c.statusCmd(),
		c.startCmd(),
		c.pauseCmd(),
		c.resetCmd(),
		c.setDurationCmd(),
		c.historyCmd(),
	)
	return root
}

// Execute runs stagectl against the real timer service
func Execute(deps Deps) {
	if err := NewRootCmd(deps).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if c.serverURL == "" {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		c.serverURL = cfg.Display.ServerURL
	}
	c.serverURL = strings.TrimRight(c.serverURL, "/")
	c.control = c.deps.NewControl(c.serverURL)
	return nil
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

// outputJSON prints v as JSON
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
