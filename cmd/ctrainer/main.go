// Package main provides the CLI entrypoint for ctrainer.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/ctrainer/internal/config"
	"github.com/verte-zerg/ctrainer/internal/model"
	"github.com/verte-zerg/ctrainer/internal/schedule"
	"github.com/verte-zerg/ctrainer/internal/session"
	"github.com/verte-zerg/ctrainer/internal/store"
	"github.com/verte-zerg/ctrainer/internal/tui"
)

const (
	defaultPack  = "practice"
	defaultShots = 10
)

var (
	practicePack        string
	practiceShots       int
	practiceMaxAttempts int
	practiceSettle      time.Duration
	practiceAutoAdvance bool

	storeBackend string
	storePath    string
	logLevel     string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ctrainer",
		Short:         "Shot consistency trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practicePack, "pack", defaultPack, "training pack id or file path")
	rootCmd.Flags().IntVar(&practiceShots, "shots", defaultShots, "number of shots in the pack")
	rootCmd.Flags().IntVar(&practiceMaxAttempts, "max-attempts", model.DefaultMaxAttempts, "attempts per run")
	rootCmd.Flags().DurationVar(&practiceSettle, "settle-delay", model.DefaultSettleDelay, "delay before an outcome is recorded")
	rootCmd.Flags().BoolVar(&practiceAutoAdvance, "auto-advance", false, "advance to the next shot when a run completes")

	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", store.BackendFile, "storage backend (file|sqlite)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "storage location (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newClearCmd())

	return rootCmd
}

// settings is the resolved configuration of one command run.
type settings struct {
	trainer   model.Config
	backend   string
	storePath string
	logLevel  string
	logFile   string
}

// loadSettings resolves flag > env > config file > default.
func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	fileCfg, err = config.ApplyEnv(fileCfg)
	if err != nil {
		return settings{}, err
	}

	applyIntConfig(cmd, "max-attempts", &practiceMaxAttempts, fileCfg.Trainer.MaxAttempts)
	applyBoolConfig(cmd, "auto-advance", &practiceAutoAdvance, fileCfg.Trainer.AutoAdvance)
	if ms := fileCfg.Trainer.SettleDelayMs; ms != nil && !flagChanged(cmd, "settle-delay") {
		practiceSettle = time.Duration(*ms) * time.Millisecond
	}
	applyStringConfig(cmd, "store", &storeBackend, fileCfg.Storage.Backend)
	applyStringConfig(cmd, "store-path", &storePath, fileCfg.Storage.Path)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)

	s := settings{
		trainer: model.Config{
			MaxAttempts: practiceMaxAttempts,
			SettleDelay: practiceSettle,
			AutoAdvance: practiceAutoAdvance,
			Enabled:     true,
		},
		backend:   storeBackend,
		storePath: storePath,
		logLevel:  logLevel,
	}
	if fileCfg.Trainer.Enabled != nil {
		s.trainer.Enabled = *fileCfg.Trainer.Enabled
	}
	if fileCfg.Log.File != nil {
		s.logFile = *fileCfg.Log.File
	}
	if s.storePath == "" {
		s.storePath = config.DefaultStorePath(s.backend)
	}
	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func validateSettings(s settings) error {
	if s.trainer.MaxAttempts < 1 {
		return fmt.Errorf("--max-attempts must be >= 1")
	}
	if s.trainer.SettleDelay < 0 {
		return fmt.Errorf("--settle-delay must be >= 0")
	}
	if s.backend != store.BackendFile && s.backend != store.BackendSQLite {
		return fmt.Errorf("--store must be %q or %q", store.BackendFile, store.BackendSQLite)
	}
	if _, err := config.ParseLogLevel(s.logLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

// openLog returns a logger for s. When toFile is set the log goes to the
// configured log file so a full-screen UI is not disturbed.
func openLog(s settings, toFile bool) (*slog.Logger, func(), error) {
	if !toFile {
		logger, err := config.NewLogger(os.Stderr, s.logLevel)
		return logger, func() {}, err
	}
	path := s.logFile
	if path == "" {
		path = config.DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger, err := config.NewLogger(f, s.logLevel)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil
}

func openStore(s settings) (store.Blob, error) {
	st, err := store.Open(s.backend, s.storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func closeStore(st store.Blob) {
	if err := st.Close(); err != nil {
		logErrf("failed to close store: %v\n", err)
	}
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if practiceShots < 1 {
		return fmt.Errorf("--shots must be >= 1")
	}
	packID := model.PackIDFromPath(practicePack)
	if packID == "" {
		return fmt.Errorf("--pack must not be empty")
	}

	logger, closeLog, err := openLog(s, true)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer closeStore(st)

	host := tui.NewHost()
	ctrl := session.New(s.trainer, schedule.NewQueue(schedule.SystemClock{}), host, st, logger)
	ctrl.Load(context.Background())
	ctrl.PackLoaded(practiceShots, 0, packID)
	defer ctrl.Close()

	program := tea.NewProgram(tui.NewModel(ctrl, host), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# ctrainer configuration
# Uncomment a value to enable it. CTRAINER_* environment variables override
# config values and CLI flags override both.

[trainer]
# max-attempts = %d        # Attempts per run
# settle-delay-ms = %d     # Delay before an outcome is recorded
# auto-advance = false     # Advance to the next shot when a run completes
# enabled = true           # Track attempts

[storage]
# backend = %q         # "file" or "sqlite"
# path = ""                # Default: $XDG_DATA_HOME/ctrainer/

[log]
# level = "info"           # debug, info, warn, error
# file = ""                # Default: $XDG_STATE_HOME/ctrainer/ctrainer.log
`,
		model.DefaultMaxAttempts,
		model.DefaultSettleDelay.Milliseconds(),
		store.BackendFile,
	)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func writeOut(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
