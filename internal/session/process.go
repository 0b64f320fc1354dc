package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// managedProcess wraps one supervised OS process: the compositor or the
// streaming endpoint. The exit is broadcast by closing done so the restart
// loop and the shutdown path can both observe it without racing over a
// single channel receive.
type managedProcess struct {
	name    string
	cmd     *exec.Cmd
	stderr  bytes.Buffer
	done    chan struct{}
	exitErr error
	log     zerolog.Logger
}

func startProcess(log zerolog.Logger, name, bin string, args ...string) (*managedProcess, error) {
	cmd := exec.Command(bin, args...)
	p := &managedProcess{name: name, cmd: cmd, done: make(chan struct{}), log: log}
	cmd.Stderr = &p.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	log.Info().Str("process", name).Int("pid", cmd.Process.Pid).Msg("process started")
	go func() {
		p.exitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *managedProcess) pid() int {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// exited is closed exactly once when the process terminates. exitError is
// only meaningful after exited is closed.
func (p *managedProcess) exited() <-chan struct{} { return p.done }

func (p *managedProcess) exitError() error { return p.exitErr }

// stderrTail returns up to the last 4 KiB of captured stderr.
func (p *managedProcess) stderrTail() string {
	s := p.stderr.String()
	if len(s) > 4096 {
		s = s[len(s)-4096:]
	}
	return s
}

// stop terminates the process: SIGTERM, a bounded grace period, then
// SIGKILL. Safe to call on an already-exited process.
func (p *managedProcess) stop(grace time.Duration) {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
		p.log.Debug().Str("process", p.name).Msg("process exited after SIGTERM")
	case <-time.After(grace):
		p.log.Warn().Str("process", p.name).Msg("grace period expired, killing process")
		_ = p.cmd.Process.Kill()
		<-p.done
	}
}

// waitForPath polls until the path exists (compositor IPC/display socket) or
// the context or deadline expires. A bounded poll, never a fixed sleep.
func waitForPath(ctx context.Context, path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLaunch("socket %s did not appear within %s", path, timeout)
		}
		select {
		case <-ctx.Done():
			return ErrLaunch("cancelled while waiting for %s", path)
		case <-ticker.C:
		}
	}
}
