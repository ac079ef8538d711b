package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/ui/styles"
)

var jsonOutput bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the rig's current state",
	Long: `Connect, wait for the full model and print it.

Examples:
  entwined status
  entwined status --host 10.0.0.7
  entwined status --json | jq '.channels[].pattern'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRig(cmd, func(_ context.Context, r *rig) error {
			snap := r.model.Snapshot()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), newStatusReport(r.ctrl.Hostname(), r.ctrl.Port(), snap, r.model.Now()))
			}
			return printStatus(cmd.OutOrStdout(), r.ctrl.Hostname(), r.ctrl.Port(), snap, r.model.Now())
		})
	},
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the server's patterns and color effects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRig(cmd, func(_ context.Context, r *rig) error {
			snap := r.model.Snapshot()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), newCatalogReport(snap))
			}
			return printCatalog(cmd.OutOrStdout(), snap)
		})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	patternsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	rootCmd.AddCommand(statusCmd, patternsCmd)
}

type channelReport struct {
	Position   int     `json:"position"`
	Index      int     `json:"index"`
	Pattern    string  `json:"pattern,omitempty"`
	Visibility float64 `json:"visibility"`
}

type timerReport struct {
	State        model.TimerState `json:"state"`
	Remaining    float64          `json:"remainingSeconds"`
	RunSeconds   float64          `json:"runSeconds"`
	PauseSeconds float64          `json:"pauseSeconds"`
	NextChange   time.Time        `json:"nextChange"`
}

type statusReport struct {
	Server     string          `json:"server"`
	Autoplay   bool            `json:"autoplay"`
	Brightness float64         `json:"brightness"`
	Effect     string          `json:"effect,omitempty"`
	Speed      float64         `json:"speed"`
	Spin       float64         `json:"spin"`
	Blur       float64         `json:"blur"`
	Hue        float64         `json:"hue"`
	Timer      timerReport     `json:"timer"`
	BreakEnds  *time.Time      `json:"breakEnds,omitempty"`
	Channels   []channelReport `json:"channels"`
}

func newStatusReport(host string, port int, s model.Snapshot, now time.Time) statusReport {
	rep := statusReport{
		Server:     fmt.Sprintf("%s:%d", host, port),
		Autoplay:   s.Autoplay,
		Brightness: s.Brightness,
		Speed:      s.Speed,
		Spin:       s.Spin,
		Blur:       s.Blur,
		Hue:        s.Hue,
		Timer: timerReport{
			State:        s.PauseTimer.State,
			Remaining:    s.PauseTimer.Remaining(now).Seconds(),
			RunSeconds:   s.PauseTimer.RunSeconds,
			PauseSeconds: s.PauseTimer.PauseSeconds,
			NextChange:   s.PauseTimer.NextStateChangeDate(now),
		},
		Channels: make([]channelReport, 0, len(s.Channels)),
	}
	if s.ActiveColorEffect != nil {
		rep.Effect = s.ActiveColorEffect.Name
	}
	if s.OnBreak(now) {
		ends := s.BreakEndsAt
		rep.BreakEnds = &ends
	}
	for i, ch := range s.Channels {
		c := channelReport{Position: i, Index: ch.Index, Visibility: ch.Visibility}
		if ch.CurrentPattern != nil {
			c.Pattern = ch.CurrentPattern.Name
		}
		rep.Channels = append(rep.Channels, c)
	}
	return rep
}

type catalogReport struct {
	Patterns []model.Pattern `json:"patterns"`
	Effects  []model.Effect  `json:"effects"`
}

func newCatalogReport(s model.Snapshot) catalogReport {
	return catalogReport{Patterns: s.Patterns(), Effects: s.ColorEffects}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printStatus(w io.Writer, host string, port int, s model.Snapshot, now time.Time) error {
	rep := newStatusReport(host, port, s, now)

	effect := rep.Effect
	if effect == "" {
		effect = "none"
	}
	lines := [][2]string{
		{"Server", rep.Server},
		{"Autoplay", onOff(rep.Autoplay)},
		{"Brightness", fmt.Sprintf("%.2f", rep.Brightness)},
		{"Effect", effect},
		{"Speed", fmt.Sprintf("%.2f", rep.Speed)},
		{"Spin", fmt.Sprintf("%.2f", rep.Spin)},
		{"Blur", fmt.Sprintf("%.2f", rep.Blur)},
		{"Hue", fmt.Sprintf("%.2f", rep.Hue)},
		{"Timer", fmt.Sprintf("%s, %s left (run %s / pause %s)", rep.Timer.State,
			styles.FormatCountdown(s.PauseTimer.Remaining(now)),
			styles.FormatCountdown(seconds(rep.Timer.RunSeconds)),
			styles.FormatCountdown(seconds(rep.Timer.PauseSeconds)))},
	}
	if rep.BreakEnds != nil {
		lines = append(lines, [2]string{"Break", styles.FormatCountdown(rep.BreakEnds.Sub(now)) + " left"})
	}

	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%-12s%s\n", l[0], l[1])
	}

	rows := make([][]string, 0, len(rep.Channels))
	for _, ch := range rep.Channels {
		pattern := ch.Pattern
		if pattern == "" {
			pattern = "-"
		}
		rows = append(rows, []string{strconv.Itoa(ch.Position), pattern, fmt.Sprintf("%.2f", ch.Visibility)})
	}
	b.WriteString(newTable("Channel", "Pattern", "Visibility").Rows(rows...).String())
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func printCatalog(w io.Writer, s model.Snapshot) error {
	patterns := make([][]string, 0, len(s.Patterns()))
	for i, p := range s.Patterns() {
		patterns = append(patterns, []string{strconv.Itoa(i), strconv.Itoa(p.Index), p.Name})
	}
	effects := make([][]string, 0, len(s.ColorEffects))
	for i, e := range s.ColorEffects {
		effects = append(effects, []string{strconv.Itoa(i), strconv.Itoa(e.Index), e.Name})
	}

	out := newTable("#", "Index", "Pattern").Rows(patterns...).String() + "\n" +
		newTable("#", "Index", "Effect").Rows(effects...).String() + "\n"
	_, err := io.WriteString(w, out)
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.BorderDefaultColor)).
		Headers(headers...)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
