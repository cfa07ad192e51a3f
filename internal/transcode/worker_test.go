package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return script
}

func TestWorker_CompletesAndKeepsStderrTail(t *testing.T) {
	script := writeScript(t, "ffmpeg", "#!/bin/sh\necho 'frame=1' >&2\necho 'frame=2' >&2\nexit 0\n")

	w := NewWorker(script, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := w.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.State() != WorkerStateDone {
		t.Fatalf("state = %v, want done", w.State())
	}
	if tail := w.Tail(); len(tail) != 2 || tail[1] != "frame=2" {
		t.Fatalf("unexpected tail: %#v", tail)
	}
}

func TestWorker_FailureCarriesLastStderrLine(t *testing.T) {
	script := writeScript(t, "ffmpeg", "#!/bin/sh\necho 'starting' >&2\necho 'input.mp4: Invalid data found when processing input' >&2\nexit 1\n")

	w := NewWorker(script, []string{"-i", "input.mp4"}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	err := w.Wait()
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	if w.State() != WorkerStateError {
		t.Fatalf("state = %v, want error", w.State())
	}
}

func TestWorker_KillInterrupts(t *testing.T) {
	script := writeScript(t, "ffmpeg", "#!/bin/sh\nexec sleep 10\n")

	w := NewWorker(script, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	w.Kill()

	done := make(chan error, 1)
	go func() { done <- w.Wait() }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after Kill")
	}
}

func TestWorker_StartTwice(t *testing.T) {
	script := writeScript(t, "ffmpeg", "#!/bin/sh\nexit 0\n")

	w := NewWorker(script, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}
	_ = w.Wait()
}

func TestWorker_MissingBinary(t *testing.T) {
	w := NewWorker(filepath.Join(t.TempDir(), "nope"), nil, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected start error for missing binary")
	}
	if w.State() != WorkerStateError {
		t.Fatalf("state = %v, want error", w.State())
	}
}
