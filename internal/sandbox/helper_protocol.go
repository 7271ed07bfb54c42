package sandbox

// helperRequest is the JSON document the engine writes to judgeinit's
// stdin. It is deliberately flat and JSON (not gob) so the helper
// binary stays a single small static file with no dependency on the
// engine's own packages — it is re-exec'd as a wholly separate
// process image.
type helperRequest struct {
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

	Seccomp *helperSeccomp `json:"seccomp,omitempty"`
}

// helperSeccomp mirrors Policy for serialization across the re-exec
// boundary.
type helperSeccomp struct {
	Allowed []string `json:"allowed"`
}

// helperAck is written by judgeinit to a side-channel pipe (fd 3)
// immediately before it calls exec, so the parent can distinguish
// "setup failed" (judgeinit exits nonzero, never execs) from "the
// user program itself exited nonzero" (judgeinit successfully became
// the user program and whatever happens next is on it).
type helperAck struct {
	OK    bool   `json:"ok"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`
}
