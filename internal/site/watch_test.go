package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/subhylahiri/sitegen/internal/config"
)

func TestWatcher_Relevant(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, config.DefaultOutput)

	w, err := NewWatcher(root, out, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "index.html"), true},
		{filepath.Join(root, "data", "works.json"), true},
		{filepath.Join(root, config.ConfigFile), true},
		{filepath.Join(root, config.EnvFile), true},
		{filepath.Join(root, "style.css"), false},
		{filepath.Join(out, "index.html"), false},
		{filepath.Join(root, config.CacheDir, config.DBFile), false},
	}

	for _, tt := range tests {
		if got := w.Relevant(tt.path); got != tt.want {
			t.Errorf("Relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcher_Settled(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), "", nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	w.pending["old.html"] = time.Now().Add(-time.Hour)
	w.pending["new.html"] = time.Now().Add(time.Hour)

	got := w.settled()
	if len(got) != 1 || got[0] != "old.html" {
		t.Errorf("settled() = %v, want [old.html]", got)
	}
	if _, ok := w.pending["new.html"]; !ok {
		t.Error("unsettled change should stay pending")
	}
}

func TestWatcher_Run(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	if err := os.Mkdir(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(root, filepath.Join(root, config.DefaultOutput), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()
	w.debounce = 30 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan []string, 1)
	go w.Run(ctx, func(ctx context.Context, paths []string) {
		select {
		case changed <- paths:
		default:
		}
	})

	target := filepath.Join(dataDir, "works.json")
	if err := os.WriteFile(target, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		if len(paths) != 1 || paths[0] != target {
			t.Errorf("changed paths = %v, want [%s]", paths, target)
		}
	case <-ctx.Done():
		t.Fatal("no change reported")
	}
}
