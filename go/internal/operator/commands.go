package operator

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mcdev12/stagetimer/go/internal/countdown"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/spf13/cobra"
)

// StatusView is what `stagectl status` reports
type StatusView struct {
	Timer     *models.TimerRecord `json:"timer"`
	Remaining int64               `json:"remaining"`
	Clock     string              `json:"clock"`
	OffsetMs  int64               `json:"offset_ms"`
	OffsetErr string              `json:"offset_error,omitempty"`
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the timer and the remaining time as displays see it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			rec, err := c.control.GetTimer(ctx)
			if err != nil {
				return fmt.Errorf("get timer: %w", err)
			}

			view := StatusView{Timer: rec}
			if c.deps.NewOffset != nil {
				offset, err := c.deps.NewOffset(c.serverURL, c.timeout)(ctx)
				if err != nil {
					view.OffsetErr = err.Error()
				} else {
					view.OffsetMs = offset
				}
			}

			frame := countdown.Frame{
				Remaining: countdown.Remaining(rec, view.OffsetMs, c.localNowMs),
				Status:    rec.Status,
			}
			view.Remaining = frame.Remaining
			view.Clock = frame.Clock()

			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), view)
			}
			printStatus(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func (c *cli) startCmd() *cobra.Command {
	return c.actionCmd("start", "Start the countdown", c.withControl(func(ctx context.Context, t TimerControl) (*models.TimerRecord, error) {
		return t.Start(ctx)
	}))
}

func (c *cli) pauseCmd() *cobra.Command {
	return c.actionCmd("pause", "Pause a running countdown", c.withControl(func(ctx context.Context, t TimerControl) (*models.TimerRecord, error) {
		return t.Pause(ctx)
	}))
}

func (c *cli) resetCmd() *cobra.Command {
	return c.actionCmd("reset", "Stop the countdown, keeping its duration", c.withControl(func(ctx context.Context, t TimerControl) (*models.TimerRecord, error) {
		return t.Reset(ctx)
	}))
}

func (c *cli) setDurationCmd() *cobra.Command {
	cmd := c.actionCmd("set-duration <minutes>", "Set the countdown length in whole minutes", func(ctx context.Context, args []string) (*models.TimerRecord, error) {
		return c.control.SetDuration(ctx, args[0])
	})
	cmd.Args = cobra.ExactArgs(1)
	cmd.Long = `Set the countdown length in whole minutes.

The status is left as it is: on a running timer the countdown is retargeted
in flight, measured from when it was started.`
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int32

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent control actions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			actions, err := c.control.ListActions(ctx, limit)
			if err != nil {
				return fmt.Errorf("list actions: %w", err)
			}
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), actions)
			}
			if len(actions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No actions yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTION\tSTATUS\tDURATION\tDETAILS")
			for _, a := range actions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%ds\t%s\n",
					a.CreatedAt.Local().Format(time.TimeOnly), a.Action, a.Status, a.DurationSec, string(a.Details))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int32VarP(&limit, "limit", "n", 20, "number of actions to show")
	return cmd
}

type actionFunc func(ctx context.Context, args []string) (*models.TimerRecord, error)

func (c *cli) withControl(fn func(ctx context.Context, t TimerControl) (*models.TimerRecord, error)) actionFunc {
	return func(ctx context.Context, args []string) (*models.TimerRecord, error) {
		return fn(ctx, c.control)
	}
}

func (c *cli) actionCmd(use, short string, fn actionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			rec, err := fn(ctx, args)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func (c *cli) localNowMs() int64 {
	return c.deps.Clock.Now().UnixMilli()
}

func printRecord(w io.Writer, rec *models.TimerRecord) {
	fmt.Fprintf(w, "Status:   %s\n", rec.Status)
	fmt.Fprintf(w, "Duration: %ds\n", rec.DurationSec)
	if rec.StartTime != nil {
		fmt.Fprintf(w, "Started:  %s\n", rec.StartTime.Local().Format(time.TimeOnly))
	}
}

func printStatus(w io.Writer, view StatusView) {
	fmt.Fprintf(w, "Remaining: %s\n", view.Clock)
	printRecord(w, view.Timer)
	if view.OffsetErr != "" {
		fmt.Fprintf(w, "Offset:   unknown (%s)\n", view.OffsetErr)
	} else {
		fmt.Fprintf(w, "Offset:   %+dms\n", view.OffsetMs)
	}
}
