// Command judgeinit is the re-exec helper sandbox.realSandbox shells
// out to for every judged run. It decodes a JSON request off stdin,
// applies rlimits, redirects stdio, drops to the target uid/gid,
// loads a seccomp-bpf filter, acks on fd 3, and execs the target
// program — all as straight-line syscalls with no Go scheduler or GC
// activity live across the privilege drop, since neither is safe to
// carry across a setuid/seccomp boundary.
//
// Grounded on cmd/sandbox-init/main.go, trimmed to this engine's
// uid/gid isolation model (no namespaces, bind mounts, or chroot).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"
)

type request struct {
	Argv []string `json:"argv"`
	Env  []string `json:"env"`
	Dir  string   `json:"dir"`

	UID int `json:"uid"`
	GID int `json:"gid"`

	StdinPath  string `json:"stdin_path"`
	StdoutPath string `json:"stdout_path"`
	StderrPath string `json:"stderr_path"`

	CPUTimeLimitMs   int64 `json:"cpu_time_limit_ms"`
	MemoryLimitBytes int64 `json:"memory_limit_bytes"`
	OutputLimitBytes int64 `json:"output_limit_bytes"`
	StackLimitBytes  int64 `json:"stack_limit_bytes"`
	ProcessLimit     int64 `json:"process_limit"`

	Seccomp *seccompSpec `json:"seccomp,omitempty"`
}

type seccompSpec struct {
	Allowed []string `json:"allowed"`
}

type ack struct {
	OK    bool   `json:"ok"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`
}

// ackFD is the file descriptor number of the extra pipe
// sandbox.realSandbox passes via exec.Cmd.ExtraFiles[0]: fds 0-2 are
// stdio, so the first ExtraFiles entry lands at 3.
const ackFD = 3

func main() {
	if err := run(); err != nil {
		fail(err.Error(), "")
		os.Exit(1)
	}
}

func run() error {
	req, err := decodeRequest(os.Stdin)
	if err != nil {
		return failStage("decode", err)
	}
	if err := validate(req); err != nil {
		return failStage("validate", err)
	}
	if req.Dir != "" {
		if err := os.Chdir(req.Dir); err != nil {
			return failStage("chdir", err)
		}
	}
	if err := applyRlimits(req); err != nil {
		return failStage("rlimit", err)
	}
	if err := redirectIO(req); err != nil {
		return failStage("redirect_io", err)
	}
	if req.GID != 0 {
		if err := unix.Setresgid(req.GID, req.GID, req.GID); err != nil {
			return failStage("setgid", err)
		}
	}
	if req.UID != 0 {
		if err := unix.Setresuid(req.UID, req.UID, req.UID); err != nil {
			return failStage("setuid", err)
		}
	}
	if req.Seccomp != nil {
		if err := applySeccomp(req.Seccomp); err != nil {
			return failStage("seccomp", err)
		}
	}

	cmdPath, err := exec.LookPath(req.Argv[0])
	if err != nil {
		return failStage("resolve", err)
	}

	writeAck(ack{OK: true})
	return unix.Exec(cmdPath, req.Argv, req.Env)
}

func decodeRequest(f *os.File) (request, error) {
	var req request
	if err := json.NewDecoder(f).Decode(&req); err != nil {
		return request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func validate(req request) error {
	if len(req.Argv) == 0 {
		return fmt.Errorf("argv is required")
	}
	return nil
}

func applyRlimits(req request) error {
	if req.CPUTimeLimitMs > 0 {
		seconds := uint64((req.CPUTimeLimitMs + 999) / 1000)
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: seconds, Max: seconds}); err != nil {
			return fmt.Errorf("rlimit cpu: %w", err)
		}
	}
	if req.OutputLimitBytes > 0 {
		lim := uint64(req.OutputLimitBytes)
		if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("rlimit fsize: %w", err)
		}
	}
	stack := req.StackLimitBytes
	if stack == 0 {
		stack = req.MemoryLimitBytes
	}
	if stack > 0 {
		lim := uint64(stack)
		if err := unix.Setrlimit(unix.RLIMIT_STACK, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("rlimit stack: %w", err)
		}
	}
	if req.MemoryLimitBytes > 0 {
		// RLIMIT_AS is only the enforcement path; languages whose
		// profile sets MemoryCheckOnly never send a limit here at all
		// (the engine omits it), so a zero value means "don't enforce".
		lim := uint64(req.MemoryLimitBytes) * 3
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("rlimit as: %w", err)
		}
	}
	if req.ProcessLimit > 0 {
		lim := uint64(req.ProcessLimit)
		if err := unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("rlimit nproc: %w", err)
		}
	}
	return nil
}

func redirectIO(req request) error {
	stdin := req.StdinPath
	if stdin == "" {
		stdin = "/dev/null"
	}
	stdout := req.StdoutPath
	if stdout == "" {
		stdout = "/dev/null"
	}
	stderr := req.StderrPath
	if stderr == "" {
		stderr = "/dev/null"
	}

	in, err := os.Open(stdin)
	if err != nil {
		return fmt.Errorf("open stdin: %w", err)
	}
	out, err := os.OpenFile(stdout, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open stdout: %w", err)
	}
	errf, err := os.OpenFile(stderr, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open stderr: %w", err)
	}
	if err := unix.Dup2(int(in.Fd()), 0); err != nil {
		return fmt.Errorf("dup2 stdin: %w", err)
	}
	if err := unix.Dup2(int(out.Fd()), 1); err != nil {
		return fmt.Errorf("dup2 stdout: %w", err)
	}
	if err := unix.Dup2(int(errf.Fd()), 2); err != nil {
		return fmt.Errorf("dup2 stderr: %w", err)
	}
	_ = in.Close()
	_ = out.Close()
	_ = errf.Close()
	return nil
}

func applySeccomp(spec *seccompSpec) error {
	filter, err := seccomp.NewFilter(seccomp.ActKillProcess)
	if err != nil {
		return fmt.Errorf("create filter: %w", err)
	}
	for _, name := range spec.Allowed {
		syscallID, err := seccomp.GetSyscallFromName(name)
		if err != nil {
			// The sandbox's syscall tables list names for multiple
			// architectures; skip ones this kernel/arch doesn't know.
			continue
		}
		if err := filter.AddRule(syscallID, seccomp.ActAllow); err != nil {
			return fmt.Errorf("add rule %s: %w", name, err)
		}
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("no new privs: %w", err)
	}
	return filter.Load()
}

func writeAck(a ack) {
	f := os.NewFile(ackFD, "ack")
	if f == nil {
		return
	}
	defer f.Close()
	_ = json.NewEncoder(f).Encode(a)
}

func failStage(stage string, err error) error {
	fail(err.Error(), stage)
	return err
}

func fail(msg, stage string) {
	writeAck(ack{OK: false, Stage: stage, Error: msg})
}
