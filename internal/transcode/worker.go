package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

type WorkerState int

const (
	WorkerStateIdle WorkerState = iota
	WorkerStateRunning
	WorkerStateDone
	WorkerStateError
)

const stderrTailLines = 20

// Worker runs one ffmpeg process to completion. Its exit is the completion
// signal of the encode job it belongs to.
type Worker struct {
	binary string
	args   []string
	logger *slog.Logger

	mu     sync.RWMutex
	state  WorkerState
	err    error
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	tail   []string
}

func NewWorker(binary string, args []string, logger *slog.Logger) *Worker {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		binary: binary,
		args:   args,
		logger: logger,
		state:  WorkerStateIdle,
		done:   make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.state != WorkerStateIdle {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	w.state = WorkerStateRunning
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.cmd = exec.CommandContext(ctx, w.binary, w.args...)
	stderr, err := w.cmd.StderrPipe()
	if err != nil {
		w.finish(err)
		return err
	}

	if err := w.cmd.Start(); err != nil {
		w.finish(err)
		return err
	}

	go w.run(ctx, stderr)

	return nil
}

func (w *Worker) run(ctx context.Context, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		w.logger.Debug("ffmpeg", "line", line)
		w.appendTail(line)
	}

	cmdErr := w.cmd.Wait()

	switch {
	case ctx.Err() != nil:
		w.finish(fmt.Errorf("ffmpeg interrupted: %w", ctx.Err()))
	case cmdErr != nil:
		w.finish(w.describe(cmdErr))
	default:
		w.finish(nil)
	}
}

func (w *Worker) appendTail(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tail = append(w.tail, line)
	if len(w.tail) > stderrTailLines {
		w.tail = w.tail[len(w.tail)-stderrTailLines:]
	}
}

func (w *Worker) describe(err error) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.tail) == 0 {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return fmt.Errorf("ffmpeg: %w: %s", err, w.tail[len(w.tail)-1])
}

func (w *Worker) finish(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == WorkerStateDone || w.state == WorkerStateError {
		return
	}
	if err != nil {
		w.state = WorkerStateError
		w.err = err
	} else {
		w.state = WorkerStateDone
	}
	close(w.done)
}

// Wait blocks until the process has exited and returns its failure, if any.
func (w *Worker) Wait() error {
	<-w.done
	return w.Err()
}

func (w *Worker) Kill() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (w *Worker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// Tail returns the last lines ffmpeg wrote to stderr.
func (w *Worker) Tail() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.tail...)
}

// isInterrupted reports whether err came from a cancelled or timed out context.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
