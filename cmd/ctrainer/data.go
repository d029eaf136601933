package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ctrainer/internal/codec"
	"github.com/verte-zerg/ctrainer/internal/eventlog"
	"github.com/verte-zerg/ctrainer/internal/model"
	"github.com/verte-zerg/ctrainer/internal/schedule"
	"github.com/verte-zerg/ctrainer/internal/session"
	"github.com/verte-zerg/ctrainer/internal/stats"
	"github.com/verte-zerg/ctrainer/internal/statsui"
)

var (
	replayPersist bool

	statsPlain bool
	statsPack  string

	clearPack string
)

// printSink writes host commands issued during a replay.
type printSink struct {
	w     io.Writer
	clock schedule.Clock
}

func (p printSink) RepeatShot()  { p.print("repeat-shot") }
func (p printSink) AdvanceShot() { p.print("advance-shot") }

func (p printSink) print(command string) {
	if _, err := fmt.Fprintf(p.w, "[%s] -> %s\n", p.clock.Now().Format(eventlog.TimeLayout), command); err != nil {
		logErrf("failed to write command: %v\n", err)
	}
}

// memBlob keeps the blob in memory so a replay does not touch saved data.
type memBlob struct {
	blob string
}

func (m *memBlob) Load(context.Context) (string, error) { return m.blob, nil }

func (m *memBlob) Save(_ context.Context, blob string) error {
	m.blob = blob
	return nil
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <log>",
		Short: "Replay a recorded event log",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	cmd.Flags().BoolVar(&replayPersist, "persist", false, "save lifetime records produced by the replay")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLog(s, false)
	if err != nil {
		return err
	}
	defer closeLog()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	events, err := eventlog.Parse(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer closeStore(st)

	var blobs session.BlobStore = st
	if !replayPersist {
		blob, err := st.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read lifetime data: %w", err)
		}
		blobs = &memBlob{blob: blob}
	}

	out := cmd.OutOrStdout()
	clock := schedule.NewManualClock(time.Time{})
	ctrl := session.New(s.trainer, schedule.NewQueue(clock), printSink{w: out, clock: clock}, blobs, logger)
	ctrl.Load(cmd.Context())
	eventlog.NewReplayer(ctrl, clock).Run(events, s.trainer.SettleDelay)
	ctrl.Close()

	if err := writeOut(out, "\n"); err != nil {
		return err
	}
	return stats.RenderSessionTable(out, ctrl.Aggregator())
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show lifetime stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print tables instead of the interactive view")
	cmd.Flags().StringVar(&statsPack, "pack", "", "pack filter")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if !statsPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		program := tea.NewProgram(statsui.NewModel(st, statsPack), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(cmd.Context(), st, statsPack)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Packs); err != nil {
		return err
	}
	for _, p := range report.Packs {
		if err := stats.RenderLifetimeTable(out, p.PackID, report.Store[p.PackID]); err != nil {
			return err
		}
	}
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the saved lifetime data",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer closeStore(st)

	data, err := loadStore(cmd.Context(), st)
	if err != nil {
		return err
	}
	return writeOut(cmd.OutOrStdout(), "%s\n", codec.Encode(data))
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the saved lifetime data with the contents of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	data, err := codec.Decode(string(raw))
	if err != nil {
		return fmt.Errorf("refusing to import %s: %w", args[0], err)
	}

	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.Save(cmd.Context(), codec.Encode(data)); err != nil {
		return fmt.Errorf("failed to save lifetime data: %w", err)
	}
	shots := 0
	for _, table := range data {
		shots += len(table)
	}
	return writeOut(cmd.OutOrStdout(), "Imported %d packs (%d shots)\n", len(data), shots)
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Erase the lifetime records of one pack",
		Args:  cobra.NoArgs,
		RunE:  runClearCmd,
	}
	cmd.Flags().StringVar(&clearPack, "pack", "", "pack id to clear")
	return cmd
}

func runClearCmd(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(clearPack) == "" {
		return errors.New("--pack is required")
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer closeStore(st)

	data, err := loadStore(cmd.Context(), st)
	if err != nil {
		return err
	}
	if _, ok := data[clearPack]; !ok {
		return fmt.Errorf("no lifetime records for pack %q", clearPack)
	}
	delete(data, clearPack)
	if err := st.Save(cmd.Context(), codec.Encode(data)); err != nil {
		return fmt.Errorf("failed to save lifetime data: %w", err)
	}
	return writeOut(cmd.OutOrStdout(), "Cleared pack %s\n", clearPack)
}

func loadStore(ctx context.Context, st session.BlobStore) (model.PersistentStore, error) {
	blob, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read lifetime data: %w", err)
	}
	data, err := codec.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode lifetime data: %w", err)
	}
	return data, nil
}
