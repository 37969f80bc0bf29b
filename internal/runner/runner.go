// Package runner executes built argument vectors and tracks running
// executions so they can be stopped by id.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxOutput = 1 << 20
	waitDelay        = 2 * time.Second
)

type Config struct {
	Timeout   time.Duration
	MaxOutput int
}

// Result is the captured outcome of one execution.
type Result struct {
	ID         string        `json:"id"`
	Argv       []string      `json:"argv"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Stopped    bool          `json:"stopped"`
	TimedOut   bool          `json:"timed_out"`
	Truncated  bool          `json:"truncated"`
	Error      string        `json:"error,omitempty"`
}

type execution struct {
	cancel  context.CancelFunc
	stopped atomic.Bool
}

// Runner spawns processes directly (never through a shell).
type Runner struct {
	cfg Config

	mu      sync.Mutex
	running map[string]*execution
}

func New(cfg Config) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	return &Runner{
		cfg:     cfg,
		running: make(map[string]*execution),
	}
}

// NewID returns a fresh execution id.
func NewID() string {
	return uuid.NewString()
}

// Run executes argv under a fresh id.
func (r *Runner) Run(ctx context.Context, argv []string) (Result, error) {
	return r.RunWithID(ctx, NewID(), argv)
}

// RunWithID executes argv and blocks until it exits, times out or is
// stopped. Process failures (missing executable, non-zero exit) are reported
// in the Result; the error is reserved for misuse.
func (r *Runner) RunWithID(ctx context.Context, id string, argv []string) (Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Result{}, errors.New("empty argument vector")
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	exe := &execution{cancel: cancel}
	if err := r.register(id, exe); err != nil {
		return Result{}, err
	}
	defer r.unregister(id)

	stdout := &limitedBuffer{limit: r.cfg.MaxOutput}
	stderr := &limitedBuffer{limit: r.cfg.MaxOutput}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	log.Printf("exec %s: %q", id, argv)
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := Result{
		ID:         id,
		Argv:       slices.Clone(argv),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   exitCode(cmd, runErr),
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
		Stopped:    exe.stopped.Load(),
		TimedOut:   errors.Is(ctx.Err(), context.DeadlineExceeded),
		Truncated:  stdout.truncated || stderr.truncated,
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		res.Error = runErr.Error()
	}
	switch {
	case res.Stopped:
		res.Error = "execution stopped"
	case res.TimedOut:
		res.Error = fmt.Sprintf("timed out after %s", r.cfg.Timeout)
	}

	log.Printf("exec %s: exit=%d duration=%s stopped=%t timed_out=%t", id, res.ExitCode, elapsed.Round(time.Millisecond), res.Stopped, res.TimedOut)
	return res, nil
}

// Stop cancels a running execution. It reports false if id is unknown.
func (r *Runner) Stop(id string) bool {
	r.mu.Lock()
	exe, ok := r.running[id]
	r.mu.Unlock()

	if !ok {
		return false
	}
	exe.stopped.Store(true)
	exe.cancel()
	return true
}

// Running lists the ids of executions in progress.
func (r *Runner) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.running))
	for id := range r.running {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Runner) register(id string, exe *execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.running[id]; exists {
		return fmt.Errorf("execution %q already running", id)
	}
	r.running[id] = exe
	return nil
}

func (r *Runner) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// limitedBuffer keeps the first limit bytes and drops the rest.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
