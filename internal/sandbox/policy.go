package sandbox

// Policy is a named seccomp-bpf filter: every syscall not in Allowed
// kills the process (SIGSYS), matching the "default deny" posture of
// the prototype's compiled judger rules (general.c, c_cpp.c, etc. in
// the upstream judger extension — those ship as a binary .so this
// engine cannot vendor, so the syscall sets below are reconstructed
// from the prototype's documented rule names and applied in Go
// instead of loaded from a prebuilt BPF program).
type Policy struct {
	Name    string
	Allowed []string
}

// baseSyscalls covers what every sandboxed program needs regardless
// of language: reading its own binary, basic memory management,
// signal handling, and a clean exit.
var baseSyscalls = []string{
	"read", "write", "close", "fstat", "lseek", "mmap", "mprotect", "munmap",
	"brk", "rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "ioctl",
	"access", "exit", "exit_group", "arch_prctl", "gettimeofday",
	"getrlimit", "clock_gettime", "restart_syscall", "sigaltstack",
	"readlink", "getcwd", "sysinfo", "futex",
}

// Policies is the closed set of named seccomp filters a Profile can
// select by name.
var Policies = map[string]Policy{
	// general is used for interpreted languages whose runtime needs to
	// open shared libraries and spawn no subprocesses (Python via
	// python3; PHP runs with no filter and Node has its own policy).
	"general": {
		Name: "general",
		Allowed: append(append([]string{}, baseSyscalls...),
			"open", "openat", "stat", "lstat", "fstatfs", "fcntl",
			"set_tid_address", "set_robust_list", "prlimit64",
			"getrandom", "madvise", "pread64", "dup", "dup2",
		),
	},
	// c_cpp is the tight filter for compiled native binaries talking
	// over stdio: files may be opened (open/openat are allowed with any
	// flags), but not unlinked or renamed.
	"c_cpp": {
		Name: "c_cpp",
		Allowed: append(append([]string{}, baseSyscalls...),
			"open", "openat", "fstatfs", "fcntl", "prlimit64",
		),
	},
	// c_cpp_file_io additionally allows unlink/rename for programs
	// that declare input/output filenames instead of using stdio.
	"c_cpp_file_io": {
		Name: "c_cpp_file_io",
		Allowed: append(append([]string{}, baseSyscalls...),
			"open", "openat", "fstatfs", "fcntl", "prlimit64",
			"unlink", "unlinkat", "rename",
		),
	},
	// c_cpp_asan is loosened for AddressSanitizer's runtime, which
	// probes /proc/self/maps and manages its own shadow memory with
	// larger mmap/mprotect arguments than the default filter expects.
	"c_cpp_asan": {
		Name: "c_cpp_asan",
		Allowed: append(append([]string{}, baseSyscalls...),
			"open", "openat", "fstatfs", "fcntl", "prlimit64",
			"readlink", "sched_getaffinity", "getpid", "gettid",
			"rt_sigsuspend", "kill", "tgkill",
		),
	},
	// golang binaries start a full scheduler with its own threads and
	// signal handling before main() runs.
	"golang": {
		Name: "golang",
		Allowed: append(append([]string{}, baseSyscalls...),
			"open", "openat", "fstatfs", "fcntl", "prlimit64",
			"clone", "sched_getaffinity", "sched_yield", "getpid", "gettid",
			"tgkill", "epoll_create1", "epoll_ctl", "epoll_pwait", "pipe2",
			"nanosleep", "getrandom",
		),
	},
	// node needs V8's JIT mmap/mprotect patterns and libuv's event loop.
	"node": {
		Name: "node",
		Allowed: append(append([]string{}, baseSyscalls...),
			"open", "openat", "fstatfs", "fcntl", "prlimit64",
			"epoll_create1", "epoll_ctl", "epoll_pwait", "eventfd2", "pipe2",
			"clone", "getrandom", "statx", "uname",
		),
	},
}
