package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entwined/remote/internal/model"
)

var (
	errUnknownEffect  = errors.New("no such effect")
	errUnknownPattern = errors.New("no such pattern")
)

// withRig connects, runs fn and disconnects. fn's context is cancelled on
// interrupt; connecting is bounded by --timeout.
func withRig(cmd *cobra.Command, fn func(ctx context.Context, r *rig) error) error {
	cleanup, err := setupLogging(cmd.ErrOrStderr(), false)
	defer cleanup()
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	r, err := openRig(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.connect(connectCtx); err != nil {
		return err
	}
	return fn(ctx, r)
}

// settleWithin waits for the server to catch up, bounded by --timeout.
func settleWithin(ctx context.Context, r *rig) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.settle(ctx)
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one setting on the rig",
	Long: `Change one setting on the rig and wait until the server has it.

Examples:
  entwined set autoplay off
  entwined set brightness 0.5
  entwined set effect Rainbow
  entwined set pattern 1 Fire
  entwined set visibility 2 0.4`,
}

// applyCmd builds a set subcommand whose action runs against the loaded
// model.
func applyCmd(use, short string, args cobra.PositionalArgs, apply func(r *rig, snap model.Snapshot, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return withRig(cmd, func(ctx context.Context, r *rig) error {
				if err := apply(r, r.model.Snapshot(), argv); err != nil {
					return err
				}
				if err := settleWithin(ctx, r); err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), r.ctrl.Hostname(), r.ctrl.Port(), r.model.Snapshot(), r.model.Now())
			})
		},
	}
}

func amountCmd(name string, set func(r *rig, v float64)) *cobra.Command {
	return applyCmd(name+" <amount>", "Set the "+name+" amount", cobra.ExactArgs(1),
		func(r *rig, _ model.Snapshot, args []string) error {
			v, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			set(r, v)
			return nil
		})
}

func init() {
	setCmd.AddCommand(
		applyCmd("autoplay <on|off>", "Hand the rig to the server or take it back", cobra.ExactArgs(1),
			func(r *rig, _ model.Snapshot, args []string) error {
				on, err := parseOnOff(args[0])
				if err != nil {
					return err
				}
				r.ctrl.SetAutoplay(on)
				return nil
			}),
		applyCmd("brightness <0-0.75>", "Set global brightness", cobra.ExactArgs(1),
			func(r *rig, _ model.Snapshot, args []string) error {
				v, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				r.ctrl.SetBrightness(v)
				return nil
			}),
		applyCmd("effect <name|position|none>", "Select the color effect", cobra.ExactArgs(1),
			func(r *rig, snap model.Snapshot, args []string) error {
				i, err := resolveEffect(snap.ColorEffects, args[0])
				if err != nil {
					return err
				}
				r.ctrl.SetActiveColorEffect(i)
				return nil
			}),
		applyCmd("pattern <channel> <name|position|none>", "Select a channel's pattern", cobra.ExactArgs(2),
			func(r *rig, snap model.Snapshot, args []string) error {
				ch, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("channel %q: %w", args[0], err)
				}
				pos, err := resolvePattern(snap.Patterns(), args[1])
				if err != nil {
					return err
				}
				return r.ctrl.SetChannelPattern(ch, pos)
			}),
		applyCmd("visibility <channel> <0-1>", "Set a channel's visibility", cobra.ExactArgs(2),
			func(r *rig, _ model.Snapshot, args []string) error {
				ch, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("channel %q: %w", args[0], err)
				}
				v, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				return r.ctrl.SetChannelVisibility(ch, v)
			}),
		amountCmd("speed", func(r *rig, v float64) { r.ctrl.SetSpeed(v) }),
		amountCmd("spin", func(r *rig, v float64) { r.ctrl.SetSpin(v) }),
		amountCmd("blur", func(r *rig, v float64) { r.ctrl.SetBlur(v) }),
		amountCmd("hue", func(r *rig, v float64) { r.ctrl.SetHue(v) }),
	)
	rootCmd.AddCommand(setCmd)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}

// resolveEffect finds an effect by name (case-insensitive) or catalog
// position. "none" clears the effect.
func resolveEffect(effects []model.Effect, s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "none") {
		return model.NoPattern, nil
	}
	for i, e := range effects {
		if strings.EqualFold(e.Name, s) {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < len(effects) {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %q", errUnknownEffect, s)
}

// resolvePattern finds a pattern of the master catalog by name
// (case-insensitive) or position. "none" clears the channel.
func resolvePattern(patterns []model.Pattern, s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "none") {
		return model.NoPattern, nil
	}
	for i, p := range patterns {
		if strings.EqualFold(p.Name, s) {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < len(patterns) {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %q", errUnknownPattern, s)
}
