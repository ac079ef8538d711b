package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entwined/remote/internal/app"
	"github.com/entwined/remote/internal/config"
	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/session"
	"github.com/entwined/remote/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in the hostname input.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is checked before the user config.
const localConfigPath = ".entwined/config.yaml"

var (
	version    = "dev"
	cfgFile    string
	configPath string
	timeout    time.Duration
	cfg        config.Config
	cfgErr     error
)

var rootCmd = &cobra.Command{
	Use:   "entwined",
	Short: "Remote control for the Entwined LED sculpture",
	Long: `Remote control for the Entwined LED sculpture.

Without a subcommand, opens the control panel. The panel connects to the
lighting server, keeps reconnecting while it is unreachable, and mirrors
its state: autoplay, brightness, effects, channel patterns, the pause timer
and breaks.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return cfgErr
	},
	RunE: runPanel,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "",
		"config file (default: "+localConfigPath+" if present, else ~/.config/entwined/config.yaml)")
	pf.String("host", "", "lighting server hostname")
	pf.Int("port", 0, "lighting server port")
	pf.Bool("debug", false, "enable debug logging (also ENTWINED_DEBUG)")
	pf.String("log", "", "write logs to this file")
	pf.DurationVar(&timeout, "timeout", 10*time.Second,
		"how long one-shot commands wait for the server")

	_ = viper.BindPFlag("server.hostname", pf.Lookup("host"))
	_ = viper.BindPFlag("server.port", pf.Lookup("port"))
	_ = viper.BindPFlag("log.debug", pf.Lookup("debug"))
	_ = viper.BindPFlag("log.path", pf.Lookup("log"))
}

func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)
	_ = v.BindEnv("log.debug", "ENTWINED_LOG_DEBUG", "ENTWINED_DEBUG")

	configPath = resolveConfigPath(cfgFile)
	if cfgFile == "" {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			// First run: write the commented template so there is
			// something to edit. Failing that, defaults still apply.
			_ = config.WriteDefaultConfig(configPath)
		}
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		cfgErr = fmt.Errorf("reading config %s: %w", configPath, err)
		return
	}
	cfg, cfgErr = config.Unmarshal(v)
}

// resolveConfigPath picks the config file: the flag, then the project
// local file, then the user config.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if _, err := os.Stat(localConfigPath); err == nil {
		return localConfigPath
	}
	if p := config.DefaultConfigPath(); p != "" {
		return p
	}
	return filepath.Clean(localConfigPath)
}

// setupLogging installs the logger for this run. The panel always keeps
// a logger so the log overlay has entries; debug mode also writes them to
// a file.
func setupLogging(stderr io.Writer, panel bool) (func(), error) {
	noop := func() {}
	level := log.ParseLevel(cfg.Log.Level)

	switch {
	case cfg.Log.Debug && panel:
		path := cfg.Log.Path
		if path == "" {
			path = "entwined-debug.log"
		}
		cleanup, err := log.InitWithTeaLog(path, "entwined")
		if err != nil {
			return noop, fmt.Errorf("opening log file: %w", err)
		}
		log.SetMinLevel(level)
		return cleanup, nil

	case cfg.Log.Debug && cfg.Log.Path != "":
		cleanup, err := log.Init(cfg.Log.Path)
		if err != nil {
			return noop, err
		}
		log.SetMinLevel(level)
		return cleanup, nil

	case cfg.Log.Debug:
		log.UseWriter(stderr)
		log.SetMinLevel(level)

	case panel:
		log.UseWriter(io.Discard)
		log.SetMinLevel(log.LevelInfo)
	}
	return noop, nil
}

func runPanel(cmd *cobra.Command, _ []string) error {
	cleanup, err := setupLogging(cmd.ErrOrStderr(), true)
	defer cleanup()
	if err != nil {
		return err
	}
	log.Info(log.CatConfig, "Starting control panel", "version", version, "config", configPath,
		"host", cfg.Server.Hostname, "port", cfg.Server.Port)

	r, err := openRig(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	var changed <-chan struct{}
	if w, err := watcher.New(watcher.DefaultConfig(configPath)); err == nil {
		if ch, err := w.Start(); err == nil {
			changed = ch
			defer func() { _ = w.Stop() }()
		} else {
			log.Warn(log.CatWatcher, "Config changes will not be followed", "error", err)
			_ = w.Stop()
		}
	}

	model := app.New(app.Config{
		Session:       r.ctrl,
		ConfigPath:    configPath,
		ConfigChanged: changed,
		BreakDuration: session.DefaultBreak,
		ShowLog:       cfg.UI.ShowLog,
	})
	defer model.Close()

	r.ctrl.Connect()
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
