package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string) <-chan string {
	t.Helper()
	events := make(chan string, 16)
	w, err := New(Options{Root: root, Debounce: 50 * time.Millisecond}, func(p string) { events <- p })
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return events
}

func expectEvent(t *testing.T, events <-chan string, want string) {
	t.Helper()
	select {
	case got := <-events:
		if got != want {
			t.Errorf("event = %q, want %q", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no event for %s", want)
	}
}

func expectQuiet(t *testing.T, events <-chan string) {
	t.Helper()
	select {
	case got := <-events:
		t.Errorf("unexpected event %q", got)
	case <-time.After(250 * time.Millisecond):
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	root := t.TempDir()
	owner := filepath.Join(root, "bob")
	if err := os.Mkdir(owner, 0755); err != nil {
		t.Fatal(err)
	}
	events := startWatcher(t, root)

	manifest := filepath.Join(owner, "a.yaml")
	write(t, manifest, "kind: Feature\n")
	write(t, manifest, "kind: Feature\ninput: a\n")

	expectEvent(t, events, manifest)
	expectQuiet(t, events)
}

func TestWatcher_StaleTimerDoesNotFire(t *testing.T) {
	root := t.TempDir()
	events := make(chan string, 4)
	w, err := New(Options{Root: root, Debounce: 50 * time.Millisecond}, func(p string) { events <- p })
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	manifest := filepath.Join(root, "a.yaml")
	w.schedule(manifest)
	w.mu.Lock()
	stale := w.timers[manifest].seq
	w.mu.Unlock()

	// A burst continues after the first timer fired but before it ran.
	w.schedule(manifest)
	w.fire(manifest, stale)

	expectEvent(t, events, manifest)
	expectQuiet(t, events)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	events := startWatcher(t, root)

	write(t, filepath.Join(root, "notes.txt"), "x")
	write(t, filepath.Join(root, ".hidden.yaml"), "x")
	expectQuiet(t, events)
}

func TestWatcher_NewDirectories(t *testing.T) {
	root := t.TempDir()
	events := startWatcher(t, root)

	owner := filepath.Join(root, "alice")
	if err := os.Mkdir(owner, 0755); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(owner, "size.yaml")
	write(t, manifest, "kind: Feature\n")

	expectEvent(t, events, manifest)
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Options{Root: filepath.Join(t.TempDir(), "missing")}, func(string) {}); err == nil {
		t.Error("expected error for missing root")
	}
	if _, err := New(Options{Root: t.TempDir()}, nil); err == nil {
		t.Error("expected error for nil handler")
	}
}
