package devserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gameworld/internal/broadcast"
)

func TestIgnored(t *testing.T) {
	tests := map[string]bool{
		"/site/app.js":           false,
		"/site/index.html":       false,
		"/site/gameworld.db":     true,
		"/site/gameworld.db-wal": true,
		"/site/.index.html.swp":  true,
		"/site/server.log":       true,
		"/site/notes.txt~":       true,
	}
	for name, want := range tests {
		if got := ignored(name); got != want {
			t.Errorf("ignored(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWatchStatic_BroadcastsReload(t *testing.T) {
	dir := t.TempDir()
	b := broadcast.NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- WatchStatic(ctx, dir, 20*time.Millisecond, b, quiet) }()

	// The watcher may not be registered yet, so keep touching the file.
	target := filepath.Join(dir, "app.js")
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	var got broadcast.Message
wait:
	for {
		select {
		case got = <-ch:
			break wait
		case <-tick.C:
			os.WriteFile(target, []byte("console.log(1)"), 0o644)
		case <-deadline:
			t.Fatal("no reload broadcast")
		}
	}

	if got.Event != "reload" || got.Data != "app.js" {
		t.Errorf("message = %+v, want reload app.js", got)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("WatchStatic() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WatchStatic did not stop")
	}
}

func TestWatchStatic_MissingDir(t *testing.T) {
	b := broadcast.NewBroadcaster()
	err := WatchStatic(context.Background(), filepath.Join(t.TempDir(), "nope"), time.Millisecond, b, quiet)
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
