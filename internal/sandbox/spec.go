// Package sandbox runs one command under uid/gid isolation, POSIX
// rlimits, and a seccomp-bpf syscall filter, and reports back a
// classified verdict.
//
// Go cannot inject code between fork and exec the way CPython's
// judger extension does (setrlimit/setuid/seccomp all have to run in
// the child after fork, before exec, with no Go runtime machinery
// live in between — goroutines and the GC are not fork-safe). The
// engine instead re-execs a tiny static helper binary, cmd/judgeinit,
// which does that work in C-like straight-line syscalls and then
// calls exec itself.
package sandbox

import (
	"time"

	"judgeserver/internal/verdict"
)

// RunSpec describes one sandboxed invocation.
type RunSpec struct {
	// Argv is the fully-resolved argument vector; Argv[0] is the
	// executable path.
	Argv []string
	Env  []string
	Dir  string

	UID, GID int

	// StdinPath/StdoutPath/StderrPath name files to redirect the
	// child's stdio to. Empty means /dev/null.
	StdinPath  string
	StdoutPath string
	StderrPath string

	// CPUTimeLimitMs bounds RLIMIT_CPU (process CPU time).
	CPUTimeLimitMs int64
	// RealTimeLimitMs bounds wall-clock time; no POSIX rlimit covers
	// wall-clock, so it is enforced by the engine timing the child and
	// killing it directly.
	RealTimeLimitMs int64
	// MemoryLimitBytes sets RLIMIT_AS (at three times this value) and
	// is compared against peak RSS after the run. When MemoryCheckOnly
	// is set, neither happens: no rlimit is applied, peak RSS is only
	// reported, and no MemoryLimitExceeded verdict is given.
	MemoryLimitBytes int64
	MemoryCheckOnly  bool
	// OutputLimitBytes bounds RLIMIT_FSIZE, turned into
	// OutputLimitExceeded on SIGXFSZ.
	OutputLimitBytes int64
	// StackLimitBytes bounds RLIMIT_STACK; 0 means "same as memory
	// limit".
	StackLimitBytes int64
	// ProcessLimit bounds RLIMIT_NPROC; 0 means unlimited (used for
	// compiler invocations, which may fork toolchain subprocesses).
	ProcessLimit int64

	// SeccompPolicy names a policy from Policies, or "" to skip
	// loading a filter entirely (used for the compiler, which always
	// runs unfiltered so it can fork toolchain subprocesses).
	SeccompPolicy string
}

// RunReport is the result of one RunSpec.
type RunReport struct {
	Verdict verdict.Verdict

	ExitCode        int
	Signal          int
	CPUTimeMs       int64
	RealTimeMs      time.Duration
	MemoryUsedBytes int64

	// Error carries a sandbox-internal failure (helper crashed,
	// couldn't exec, etc.), distinct from the user program's own
	// nonzero exit — this is what the orchestrator turns into
	// verdict.SystemError.
	Error error
}
