// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/ctrainer/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionView is the read-only slice of the aggregator the renderers need.
type SessionView interface {
	Shots() []int
	Shot(idx int) model.ShotStats
	Current() int
	MaxAttempts() int
}

// ShotRow is one displayed shot.
type ShotRow struct {
	Index int
	Stats model.ShotStats
}

// Consistency returns successes as a fraction of attempts, 0 when nothing was tried.
func Consistency(successes, attempts int) float64 {
	if attempts <= 0 {
		return 0
	}
	return float64(successes) / float64(attempts)
}

// SessionRows lists every shot of the active session table.
func SessionRows(v SessionView) []ShotRow {
	shots := v.Shots()
	rows := make([]ShotRow, 0, len(shots))
	for _, idx := range shots {
		rows = append(rows, ShotRow{Index: idx, Stats: v.Shot(idx)})
	}
	return rows
}

// LifetimeRows lists the lifetime records of one pack ordered by shot index.
func LifetimeRows(table model.PackTable) []ShotRow {
	rows := make([]ShotRow, 0, len(table))
	for idx, lt := range table {
		rows = append(rows, ShotRow{Index: idx, Stats: model.ShotStats{Lifetime: lt}})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Index < rows[j].Index
	})
	return rows
}

// FormatBoost renders a boost amount, or "-" for an unset minimum.
func FormatBoost(v float64) string {
	if !model.BoostSet(v) {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSessionTable prints the live session counters of every shot.
func RenderSessionTable(w io.Writer, v SessionView) error {
	rows := SessionRows(v)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No shots tracked yet.")
		return err
	}
	headers := []string{"", "Shot", "Attempts", "Successes", "Consistency", "Boost", "Min Boost", "Best"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		marker := ""
		if r.Index == v.Current() {
			marker = ">"
		}
		s := r.Stats
		tableRows = append(tableRows, []string{
			marker,
			fmt.Sprintf("%d", r.Index+1),
			fmt.Sprintf("%d/%d", s.Attempts, v.MaxAttempts()),
			fmt.Sprintf("%d", s.Successes),
			fmt.Sprintf("%.1f%%", Consistency(s.Successes, s.Attempts)*100),
			fmt.Sprintf("%.1f", s.TotalBoostUsed),
			FormatBoost(s.MinSuccessfulBoostUsed),
			fmt.Sprintf("%d/%d", s.Lifetime.BestSuccesses, s.Lifetime.AttemptsAtBest),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	return writeLines(w, formatTable(headers, tableRows, rightAlign))
}

// RenderLifetimeTable prints the lifetime records of one pack.
func RenderLifetimeTable(w io.Writer, packID string, table model.PackTable) error {
	if _, err := fmt.Fprintf(w, "Pack %s\n", packID); err != nil {
		return err
	}
	rows := LifetimeRows(table)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No lifetime records.")
		return err
	}
	headers := []string{"Shot", "Best", "Attempts", "Consistency", "Boost", "Success Boost", "Min Boost"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		lt := r.Stats.Lifetime
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", r.Index+1),
			fmt.Sprintf("%d", lt.BestSuccesses),
			fmt.Sprintf("%d", lt.AttemptsAtBest),
			fmt.Sprintf("%.1f%%", Consistency(lt.BestSuccesses, lt.AttemptsAtBest)*100),
			fmt.Sprintf("%.1f", lt.TotalBoostAtBest),
			fmt.Sprintf("%.1f", lt.TotalSuccessfulBoostAtBest),
			FormatBoost(lt.MinBoost),
		})
	}
	rightAlign := map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	if err := writeLines(w, formatTable(headers, tableRows, rightAlign)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
