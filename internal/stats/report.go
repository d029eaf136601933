package stats

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/verte-zerg/ctrainer/internal/codec"
	"github.com/verte-zerg/ctrainer/internal/model"
)

// BlobLoader reads the serialized lifetime table.
type BlobLoader interface {
	Load(ctx context.Context) (string, error)
}

// PackSummary condenses the lifetime records of one pack.
type PackSummary struct {
	PackID      string
	Shots       int
	Consistency float64
	Best        int
	Worst       int
	Curve       []float64
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Store model.PersistentStore
	Packs []PackSummary
}

// BuildReport loads and prepares data for stats rendering. When packID is not
// empty only that pack is reported.
func BuildReport(ctx context.Context, st BlobLoader, packID string) (Report, error) {
	blob, err := st.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	data, err := codec.Decode(blob)
	if err != nil {
		return Report{}, err
	}
	if packID != "" {
		filtered := model.PersistentStore{}
		if table, ok := data[packID]; ok {
			filtered[packID] = table
		}
		data = filtered
	}

	packIDs := make([]string, 0, len(data))
	for id := range data {
		packIDs = append(packIDs, id)
	}
	sort.Strings(packIDs)

	packs := make([]PackSummary, 0, len(packIDs))
	for _, id := range packIDs {
		packs = append(packs, summarizePack(id, data[id]))
	}
	return Report{Store: data, Packs: packs}, nil
}

// Matching returns the packs whose id contains substr. An empty substr
// matches every pack.
func (r Report) Matching(substr string) Report {
	if substr == "" {
		return r
	}
	out := Report{Store: model.PersistentStore{}}
	for _, p := range r.Packs {
		if strings.Contains(p.PackID, substr) {
			out.Packs = append(out.Packs, p)
			out.Store[p.PackID] = r.Store[p.PackID]
		}
	}
	return out
}

func summarizePack(packID string, table model.PackTable) PackSummary {
	rows := LifetimeRows(table)
	summary := PackSummary{PackID: packID, Shots: len(rows), Best: -1, Worst: -1}
	var bestVal, worstVal, total float64
	counted := 0
	for _, r := range rows {
		lt := r.Stats.Lifetime
		c := Consistency(lt.BestSuccesses, lt.AttemptsAtBest)
		summary.Curve = append(summary.Curve, c*100)
		if lt.AttemptsAtBest == 0 {
			continue
		}
		total += c
		counted++
		if summary.Best < 0 || c > bestVal {
			summary.Best, bestVal = r.Index, c
		}
		if summary.Worst < 0 || c < worstVal {
			summary.Worst, worstVal = r.Index, c
		}
	}
	if counted > 0 {
		summary.Consistency = total / float64(counted)
	}
	return summary
}

// RenderSummary prints one line per pack.
func RenderSummary(w io.Writer, packs []PackSummary) error {
	if len(packs) == 0 {
		_, err := fmt.Fprintln(w, "No lifetime records found.")
		return err
	}
	headers := []string{"Pack", "Shots", "Avg Consistency", "Best Shot", "Worst Shot", "By Shot"}
	rows := make([][]string, 0, len(packs))
	for _, p := range packs {
		rows = append(rows, []string{
			p.PackID,
			fmt.Sprintf("%d", p.Shots),
			fmt.Sprintf("%.1f%%", p.Consistency*100),
			shotLabel(p.Best),
			shotLabel(p.Worst),
			Sparkline(p.Curve),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	if err := writeLines(w, formatTable(headers, rows, rightAlign)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func shotLabel(idx int) string {
	if idx < 0 {
		return "-"
	}
	return fmt.Sprintf("#%d", idx+1)
}
