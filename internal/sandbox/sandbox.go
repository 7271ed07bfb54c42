package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"judgeserver/internal/obslog"
	"judgeserver/internal/verdict"
)

// Sandbox runs one RunSpec to completion and classifies the result.
// It is the seam the rest of the engine is tested against: production
// wires realSandbox; tests use a fake.
type Sandbox interface {
	Run(ctx context.Context, spec RunSpec) RunReport
}

// realSandbox re-execs the judgeinit helper binary for every call
// (grounded on engine_linux.go's jsonToPipe + killCtx pattern).
type realSandbox struct {
	helperPath string
	log        *obslog.Logger
}

// New returns a Sandbox that shells out to helperPath (normally
// cmd/judgeinit's built binary) for isolation primitives Go cannot
// perform on itself between fork and exec.
func New(helperPath string, log *obslog.Logger) Sandbox {
	return &realSandbox{helperPath: helperPath, log: log}
}

func (s *realSandbox) Run(ctx context.Context, spec RunSpec) RunReport {
	req := helperRequest{
		Argv:             spec.Argv,
		Env:              append(append([]string{}, spec.Env...), "PATH="+os.Getenv("PATH")),
		Dir:              spec.Dir,
		UID:              spec.UID,
		GID:              spec.GID,
		StdinPath:        spec.StdinPath,
		StdoutPath:       spec.StdoutPath,
		StderrPath:       spec.StderrPath,
		CPUTimeLimitMs:   spec.CPUTimeLimitMs,
		MemoryLimitBytes: spec.MemoryLimitBytes,
		OutputLimitBytes: spec.OutputLimitBytes,
		StackLimitBytes:  spec.StackLimitBytes,
		ProcessLimit:     spec.ProcessLimit,
	}
	if spec.MemoryCheckOnly {
		// Memory is only reported for these runs, so no RLIMIT_AS is
		// requested from the helper.
		req.MemoryLimitBytes = 0
	}
	if spec.SeccompPolicy != "" {
		if pol, ok := Policies[spec.SeccompPolicy]; ok {
			req.Seccomp = &helperSeccomp{Allowed: pol.Allowed}
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return RunReport{Verdict: verdict.SystemError, Error: fmt.Errorf("marshal helper request: %w", err)}
	}

	ackRead, ackWrite, err := os.Pipe()
	if err != nil {
		return RunReport{Verdict: verdict.SystemError, Error: fmt.Errorf("create ack pipe: %w", err)}
	}
	defer ackRead.Close()

	cmd := exec.Command(s.helperPath)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.ExtraFiles = []*os.File{ackWrite}
	// judgeinit runs as root (it must setuid/setgid into the target
	// user), so no Credential is set here; dropping privilege happens
	// inside the helper after rlimits and stdio redirection, and before
	// the seccomp filter is loaded.

	start := time.Now()
	if err := cmd.Start(); err != nil {
		ackWrite.Close()
		return RunReport{Verdict: verdict.SystemError, Error: fmt.Errorf("start judgeinit: %w", err)}
	}
	ackWrite.Close()

	ackCh := make(chan helperAck, 1)
	go func() {
		var ack helperAck
		sc := bufio.NewScanner(ackRead)
		if sc.Scan() {
			_ = json.Unmarshal(sc.Bytes(), &ack)
		}
		ackCh <- ack
	}()

	timedOut := false
	var wallTimer *time.Timer
	if spec.RealTimeLimitMs > 0 {
		wallTimer = time.AfterFunc(time.Duration(spec.RealTimeLimitMs)*time.Millisecond, func() {
			timedOut = true
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		})
		defer wallTimer.Stop()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		waitErr = <-done
	}

	wallTime := time.Since(start)

	ack := <-ackCh
	if !ack.OK {
		msg := ack.Error
		if msg == "" {
			msg = "judgeinit failed before exec"
		}
		return RunReport{Verdict: verdict.SystemError, Error: fmt.Errorf("sandbox setup failed at %s: %s", ack.Stage, msg)}
	}

	return classify(cmd, waitErr, timedOut, wallTime, spec)
}

func classify(cmd *exec.Cmd, waitErr error, timedOut bool, wallTime time.Duration, spec RunSpec) RunReport {
	report := RunReport{}

	ps := cmd.ProcessState
	if ps == nil {
		return RunReport{Verdict: verdict.SystemError, Error: fmt.Errorf("no process state: %w", waitErr)}
	}

	report.RealTimeMs = wallTime
	if ru, ok := ps.SysUsage().(*syscall.Rusage); ok {
		report.CPUTimeMs = int64(time.Duration(ru.Utime.Nano()+ru.Stime.Nano()) / time.Millisecond)
		report.MemoryUsedBytes = ru.Maxrss * 1024
	}

	var signaled bool
	var sig syscall.Signal
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			signaled = true
			sig = ws.Signal()
		}
		report.ExitCode = ws.ExitStatus()
	} else {
		report.ExitCode = ps.ExitCode()
	}
	report.Signal = int(sig)

	switch {
	case timedOut:
		report.Verdict = verdict.RealTimeLimitExceeded
	case spec.CPUTimeLimitMs > 0 && report.CPUTimeMs > spec.CPUTimeLimitMs:
		report.Verdict = verdict.CPUTimeLimitExceeded
	case signaled && sig == syscall.SIGXFSZ:
		report.Verdict = verdict.OutputLimitExceeded
	case signaled:
		report.Verdict = verdict.RuntimeError
	case report.ExitCode != 0:
		report.Verdict = verdict.RuntimeError
	case !spec.MemoryCheckOnly && spec.MemoryLimitBytes > 0 && report.MemoryUsedBytes > spec.MemoryLimitBytes:
		report.Verdict = verdict.MemoryLimitExceeded
	default:
		report.Verdict = verdict.Accepted
	}
	return report
}
