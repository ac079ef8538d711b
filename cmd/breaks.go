package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/session"
	"github.com/entwined/remote/internal/ui/styles"
)

var breakNoWait bool

var breakCmd = &cobra.Command{
	Use:   "break [duration]",
	Short: "Black the rig out for a while",
	Long: `Start a break and wait for it to end, then hand the rig back to
autoplay. Interrupting the wait stops the break early.

The break is ended by this client, so with --no-wait the rig stays dark
until "entwined break stop" is run.

Examples:
  entwined break
  entwined break 90s
  entwined break 10m --no-wait`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := session.DefaultBreak
		if len(args) == 1 {
			var err error
			if d, err = time.ParseDuration(args[0]); err != nil {
				return fmt.Errorf("break length %q: %w", args[0], err)
			}
		}
		return withRig(cmd, func(ctx context.Context, r *rig) error {
			return runBreak(ctx, r, d, !breakNoWait, func(left time.Duration) {
				fmt.Fprintf(cmd.OutOrStdout(), "On break, %s left\n", styles.FormatCountdown(left))
			})
		})
	},
}

var breakStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "End a running break",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRig(cmd, func(ctx context.Context, r *rig) error {
			r.ctrl.StopBreak()
			if err := settleWithin(ctx, r); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Break stopped")
			return nil
		})
	},
}

func init() {
	breakCmd.Flags().BoolVar(&breakNoWait, "no-wait", false, "start the break and exit")
	breakCmd.AddCommand(breakStopCmd)
	rootCmd.AddCommand(breakCmd)
}

// runBreak starts a break of d. When wait is set it blocks until the break
// ends, reporting the time left every minute, and stops the break if ctx
// is cancelled first.
func runBreak(ctx context.Context, r *rig, d time.Duration, wait bool, progress func(left time.Duration)) error {
	events := r.model.Subscribe(ctx)
	if err := r.ctrl.StartBreak(d); err != nil {
		return err
	}
	if !wait {
		return settleWithin(ctx, r)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	progress(d)

	interrupted := func() error {
		log.Info(log.CatSession, "Break interrupted")
		r.ctrl.StopBreak()
		return settleWithin(context.WithoutCancel(ctx), r)
	}
	for {
		select {
		case <-ctx.Done():
			return interrupted()
		case <-ticker.C:
			if ends := r.model.Snapshot().BreakEndsAt; !ends.IsZero() {
				progress(ends.Sub(r.model.Now()))
			}
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return interrupted()
				}
				return errModelClosed
			}
			if ev.Payload.Field == model.FieldBreakEndsAt && r.model.Snapshot().BreakEndsAt.IsZero() {
				return settleWithin(ctx, r)
			}
		}
	}
}

var timerCmd = &cobra.Command{
	Use:   "timer [pause|run]",
	Short: "Show the pause timer or restart one of its phases",
	Args:  cobra.MaximumNArgs(1),
	ValidArgs: []string{
		string(model.TimerPause),
		string(model.TimerRun),
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRig(cmd, func(ctx context.Context, r *rig) error {
			if len(args) == 1 {
				if err := resetTimer(r, model.TimerState(args[0])); err != nil {
					return err
				}
				if err := settleWithin(ctx, r); err != nil {
					return err
				}
			}
			p := r.model.PauseTimer()
			fmt.Fprintf(cmd.OutOrStdout(), "%s, %s left (run %s / pause %s)\n", p.State,
				styles.FormatCountdown(p.Remaining(r.model.Now())),
				styles.FormatCountdown(seconds(p.RunSeconds)),
				styles.FormatCountdown(seconds(p.PauseSeconds)))
			return nil
		})
	},
}

var errTimerPhase = errors.New("expected pause or run")

func resetTimer(r *rig, phase model.TimerState) error {
	switch phase {
	case model.TimerPause:
		r.ctrl.ResetTimerToPause()
	case model.TimerRun:
		r.ctrl.ResetTimerToRun()
	default:
		return fmt.Errorf("%w, got %q", errTimerPhase, phase)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(timerCmd)
}
