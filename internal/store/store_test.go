package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteSlotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := OpenSQLite(filepath.Join(dir, "ctrainer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	blob, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if blob != "" {
		t.Fatalf("expected empty blob, got %q", blob)
	}
	if _, ok, err := st.UpdatedAt(ctx); err != nil || ok {
		t.Fatalf("expected no update time, got ok=%v err=%v", ok, err)
	}

	for _, want := range []string{"p|0|1|10|2|3|4", "p|0|2|10|2|3|4;q|1|0|3|0|0|0"} {
		if err := st.Save(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := st.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
	if _, ok, err := st.UpdatedAt(ctx); err != nil || !ok {
		t.Fatalf("expected update time, got ok=%v err=%v", ok, err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lifetime.txt")
	st := NewFile(path)
	ctx := context.Background()

	blob, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if blob != "" {
		t.Fatalf("expected empty blob, got %q", blob)
	}
	if _, ok, err := st.UpdatedAt(ctx); err != nil || ok {
		t.Fatalf("expected no update time, got ok=%v err=%v", ok, err)
	}
	if err := st.Save(ctx, "p|0|1|10|2|3|4"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Save(ctx, "p|0|5|10|2|3|4"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "p|0|5|10|2|3|4" {
		t.Fatalf("unexpected blob %q", got)
	}
	if at, ok, err := st.UpdatedAt(ctx); err != nil || !ok || at.IsZero() {
		t.Fatalf("expected update time, got %v ok=%v err=%v", at, ok, err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".lifetime-*"))
	if len(matches) != 0 {
		t.Fatalf("expected temp files to be cleaned up, found %v", matches)
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	fileStore, err := Open(BackendFile, filepath.Join(dir, "lifetime.txt"))
	if err != nil {
		t.Fatalf("open file backend: %v", err)
	}
	if _, ok := fileStore.(*File); !ok {
		t.Fatalf("expected *File, got %T", fileStore)
	}
	sqlStore, err := Open(BackendSQLite, filepath.Join(dir, "ctrainer.db"))
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	_ = sqlStore.Close()
	if _, err := Open("redis", dir); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
