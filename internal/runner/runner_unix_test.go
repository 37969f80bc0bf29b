//go:build !windows

package runner

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRun_CapturesOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process execution")
	}

	r := New(Config{})
	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2; exit 3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("stdout: got %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("stderr: got %q", res.Stderr)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code: got %d, want 3", res.ExitCode)
	}
	if res.Error != "" {
		t.Errorf("non-zero exit should not set error: %q", res.Error)
	}
	if res.ID == "" {
		t.Error("id should be set")
	}
}

func TestRun_ArgumentsAreLiteral(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process execution")
	}

	r := New(Config{})
	arg := "a; echo injected $(id)"
	res, err := r.Run(context.Background(), []string{"echo", arg})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != arg {
		t.Errorf("stdout: got %q, want %q", res.Stdout, arg)
	}
}

func TestRun_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process execution")
	}

	r := New(Config{Timeout: 200 * time.Millisecond})
	res, err := r.Run(context.Background(), []string{"sleep", "5"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected timed_out")
	}
	if res.Duration > 4*time.Second {
		t.Errorf("timeout not enforced: %s", res.Duration)
	}
}

func TestRun_Stop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process execution")
	}

	r := New(Config{})
	id := NewID()

	done := make(chan Result, 1)
	go func() {
		res, _ := r.RunWithID(context.Background(), id, []string{"sleep", "5"})
		done <- res
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(r.Running()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if !r.Stop(id) {
		t.Fatal("Stop should find running execution")
	}

	select {
	case res := <-done:
		if !res.Stopped {
			t.Error("expected stopped")
		}
		if res.Error != "execution stopped" {
			t.Errorf("error: got %q", res.Error)
		}
	case <-time.After(4 * time.Second):
		t.Fatal("execution did not stop")
	}

	if r.Stop(id) {
		t.Error("finished execution should no longer be stoppable")
	}
}

func TestRunWithID_Duplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process execution")
	}

	r := New(Config{})
	id := NewID()

	go r.RunWithID(context.Background(), id, []string{"sleep", "1"})

	deadline := time.Now().Add(2 * time.Second)
	for len(r.Running()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := r.RunWithID(context.Background(), id, []string{"true"}); err == nil {
		t.Error("expected duplicate id error")
	}
	r.Stop(id)
}

func TestRun_Truncates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process execution")
	}

	r := New(Config{MaxOutput: 4})
	res, err := r.Run(context.Background(), []string{"echo", "0123456789"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "0123" || !res.Truncated {
		t.Errorf("got %q truncated=%t", res.Stdout, res.Truncated)
	}
}
