package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type blobLoader struct {
	blob string
	err  error
}

func (b blobLoader) Load(context.Context) (string, error) { return b.blob, b.err }

type savedLoader struct {
	blobLoader
	at time.Time
}

func (s savedLoader) UpdatedAt(context.Context) (time.Time, bool, error) {
	return s.at, !s.at.IsZero(), nil
}

const sampleBlob = "alpha|0|5|10|100|50|2;alpha|1|8|10|90|70|1.5;beta|0|3|5|20|10|4"

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return m
}

func key(m *Model, k string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func TestOverviewListsPacks(t *testing.T) {
	m := sized(NewModel(blobLoader{blob: sampleBlob}, ""))
	out := m.View()
	for _, want := range []string{"Overview", "Packs", "alpha", "beta", "Avg Consistency"} {
		if !strings.Contains(out, want) {
			t.Fatalf("overview missing %q:\n%s", want, out)
		}
	}
}

func TestShotsTabFollowsSelectedPack(t *testing.T) {
	m := sized(NewModel(blobLoader{blob: sampleBlob}, ""))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabShots {
		t.Fatalf("expected shots tab, got %d", m.activeTab)
	}
	if got := len(m.shotTable.Rows()); got != 2 {
		t.Fatalf("expected 2 rows for alpha, got %d", got)
	}
	if !strings.Contains(m.View(), "80.0%") {
		t.Fatalf("expected alpha shot 2 consistency in view")
	}

	key(m, "]")
	p, ok := m.SelectedPack()
	if !ok || p.PackID != "beta" {
		t.Fatalf("expected beta selected, got %+v", p)
	}
	if got := len(m.shotTable.Rows()); got != 1 {
		t.Fatalf("expected 1 row for beta, got %d", got)
	}
	key(m, "]")
	if p, _ := m.SelectedPack(); p.PackID != "alpha" {
		t.Fatalf("expected pack selection to wrap, got %s", p.PackID)
	}
}

func TestFilterRestrictsPacks(t *testing.T) {
	m := sized(NewModel(blobLoader{blob: sampleBlob}, ""))
	key(m, "/")
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInput.SetValue("beta")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter mode to close")
	}
	if len(m.report.Packs) != 1 || m.report.Packs[0].PackID != "beta" {
		t.Fatalf("unexpected packs after filter: %+v", m.report.Packs)
	}
}

func TestFilterMatchesIDSubstring(t *testing.T) {
	cases := []struct {
		filter string
		want   []string
	}{
		{filter: "alp", want: []string{"alpha"}},
		{filter: "a", want: []string{"alpha", "beta"}},
		{filter: "et", want: []string{"beta"}},
		{filter: "gamma", want: nil},
	}
	for _, tc := range cases {
		m := sized(NewModel(blobLoader{blob: sampleBlob}, ""))
		key(m, "/")
		m.filterInput.SetValue(tc.filter)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		var got []string
		for _, p := range m.report.Packs {
			got = append(got, p.PackID)
		}
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("filter %q: expected %v, got %v", tc.filter, tc.want, got)
		}
	}
}

func TestHeaderShowsLastSaved(t *testing.T) {
	m := sized(NewModel(blobLoader{blob: sampleBlob}, ""))
	if !strings.Contains(m.View(), "Last saved: never") {
		t.Fatalf("expected never-saved marker:\n%s", m.View())
	}

	at := time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)
	m = sized(NewModel(savedLoader{blobLoader: blobLoader{blob: sampleBlob}, at: at}, ""))
	want := "Last saved: " + at.Local().Format("2006-01-02 15:04")
	if !strings.Contains(m.View(), want) {
		t.Fatalf("expected %q in view:\n%s", want, m.View())
	}
}

func TestLoadErrorIsShown(t *testing.T) {
	m := sized(NewModel(blobLoader{err: errors.New("disk gone")}, ""))
	out := m.View()
	if !strings.Contains(out, "disk gone") || !strings.Contains(out, "Failed to load stats.") {
		t.Fatalf("expected error in view:\n%s", out)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("abc", 6); got != "abc" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
