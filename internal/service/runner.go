package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

var (
	ErrScanNotStarted = errors.New("scan not started")
	ErrScanInProgress = errors.New("scan in progress")
)

type StderrFunc func(ctx context.Context, line string)

// Runner is a thin wrapper around os/exec used for one scan attempt:
// it starts the process with the conflict-channel descriptors attached,
// captures stdout (the scan log), optionally relays stderr line by line
// and delivers exactly one Result once the process exits.
type Runner struct {
	mx         sync.RWMutex
	cmd        *exec.Cmd
	pid        int
	cancelFunc context.CancelFunc
	result     Result
	results    chan Result
}

func NewRunner() *Runner {
	return &Runner{
		result:  Result{Err: ErrScanNotStarted},
		results: make(chan Result, 1),
	}
}

type Command struct {
	Path       string
	Args       []string
	Env        []string
	ExtraFiles []*os.File
	Timeout    time.Duration
}

type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  *bytes.Buffer
	Err     error
}

// Start runs the underlying process, ensuring only a single instance is
// active; returns ErrScanInProgress or an exec error, otherwise nil. Does
// NOT wait on the command to finish, use ResultsChan instead.
// Note it spawns an internal goroutine monitoring the command and stderr.
func (r *Runner) Start(ctx context.Context, proto Command, stderrFunc StderrFunc) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cmd != nil {
		return ErrScanInProgress
	}

	r.result = Result{
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
		Err:  nil,
	}

	if proto.Timeout != 0 {
		ctx, r.cancelFunc = context.WithTimeout(ctx, proto.Timeout)
	}

	r.cmd = exec.CommandContext(ctx, proto.Path, proto.Args...)
	r.cmd.Env = proto.Env
	r.cmd.ExtraFiles = proto.ExtraFiles
	// The scan process gets its own process group: killing it must also
	// reap anything it forked, or the stdout pipe stays open and Wait
	// blocks on the orphan. WaitDelay is the backstop for descendants that
	// escaped the group.
	r.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd := r.cmd
	r.cmd.Cancel = func() error {
		return killGroup(cmd.Process.Pid)
	}
	r.cmd.WaitDelay = 10 * time.Second
	var stderr io.ReadCloser
	if stderrFunc != nil {
		var err error
		stderr, err = r.cmd.StderrPipe()
		if err != nil {
			r.cmd = nil
			return err
		}
	}
	var buf bytes.Buffer
	r.result.Stdout = &buf
	r.cmd.Stdout = &buf

	r.result.Started = time.Now().UTC()
	if err := r.cmd.Start(); err != nil {
		r.result.Stopped = time.Now().UTC()
		r.result.Err = err
		r.cmd = nil
		return err
	}
	r.pid = r.cmd.Process.Pid

	if stderr != nil {
		go r.processStderr(ctx, stderr, stderrFunc)
	}
	go r.wait(r.cmd)
	return nil
}

func (r *Runner) processStderr(ctx context.Context, stderr io.Reader, stderrFunc StderrFunc) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		stderrFunc(ctx, scanner.Text())
	}
	err := scanner.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		slog.ErrorContext(ctx, "processing stderr", "error", err)
	}
}

func (r *Runner) wait(cmd *exec.Cmd) {
	err := cmd.Wait()
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	stopped := time.Now().UTC()

	r.mx.Lock()
	defer r.mx.Unlock()
	r.result.Stopped = stopped
	r.result.State = cmd.ProcessState
	r.result.Err = err
	r.cmd = nil
	r.results <- r.result
	close(r.results)
}

// Kill terminates the running process and its whole process group
// unconditionally. It does not ask the process to cooperate: the scan may
// be stuck in an infinite loop. The Result still arrives on ResultsChan
// once the process is reaped.
func (r *Runner) Kill() error {
	r.mx.RLock()
	defer r.mx.RUnlock()
	if r.cmd == nil || r.cmd.Process == nil {
		return ErrScanNotStarted
	}
	return killGroup(r.cmd.Process.Pid)
}

// killGroup signals the whole group, so processes forked by the scan die
// with it. Setpgid makes the child's pid its group id.
func killGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// PID returns the process id of the started command, 0 before Start.
func (r *Runner) PID() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.pid
}

// ResultsChan returns the channel delivering the result of the running
// program. The channel is closed once the program ends.
func (r *Runner) ResultsChan() <-chan Result {
	return r.results
}

// LastResult returns the last command result, or a result with
// ErrScanNotStarted if no scan has been executed yet.
func (r *Runner) LastResult() Result {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.result
}
