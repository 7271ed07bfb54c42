// Package compiler turns a language's CompileCmdTemplate into an
// argv, runs it under the compiler user with no seccomp filter
// (toolchains fork, exec, and touch far more of the filesystem than a
// sandboxed submission ever should), and classifies failures as
// either CompileError (the submission is broken) or
// CompilerRuntimeError (the toolchain itself misbehaved).
//
// Grounded on the prototype's compiler.py Compiler.compile().
package compiler

import (
	"context"
	"os"
	"strings"

	"github.com/google/shlex"

	"judgeserver/internal/judgeerr"
	"judgeserver/internal/language"
	"judgeserver/internal/sandbox"
	"judgeserver/internal/verdict"
	"judgeserver/internal/workspace"
)

// stackBytes and outputCapBytes are the prototype's fixed caps for
// the compiler process itself (compiler.py: stack=128*1024*1024,
// max_output_size=20*1024*1024), independent of the language's own
// CompileMemBytes which bounds the toolchain's address space.
const (
	stackBytes     = 128 * 1024 * 1024
	outputCapBytes = 20 * 1024 * 1024
)

// Result is the outcome of one compilation.
type Result struct {
	ExePath     string
	Diagnostics string
}

// Driver compiles submissions via a Sandbox.
type Driver struct {
	sb    sandbox.Sandbox
	users workspace.Users
}

func New(sb sandbox.Sandbox, users workspace.Users) *Driver {
	return &Driver{sb: sb, users: users}
}

// Compile runs profile's compile command against srcPath inside dir,
// producing dir/profile.ExeFilename. If the language isn't compiled,
// it returns the source path unchanged and does no sandboxed work.
func (d *Driver) Compile(ctx context.Context, profile language.Profile, dir, srcPath string) (Result, error) {
	if !profile.Compiled {
		return Result{ExePath: srcPath}, nil
	}

	exePath := dir + "/" + profile.ExeFilename
	cmdLine := formatCompileCmd(profile.CompileCmdTemplate, profile.Std, srcPath, exePath, dir)
	argv, err := shlex.Split(cmdLine)
	if err != nil || len(argv) == 0 {
		return Result{}, judgeerr.Newf(judgeerr.CompilerRuntimeError, "malformed compile command: %s", cmdLine)
	}

	stderrPath := dir + "/compiler.out"

	report := d.sb.Run(ctx, sandbox.RunSpec{
		Argv:             argv,
		Env:              profile.Env,
		Dir:              dir,
		UID:              d.users.CompilerUID,
		GID:              d.users.CompilerGID,
		StdinPath:        stderrPath,
		StdoutPath:       stderrPath,
		StderrPath:       stderrPath,
		CPUTimeLimitMs:   profile.CompileCPUMs,
		RealTimeLimitMs:  profile.CompileRealMs,
		MemoryLimitBytes: profile.CompileMemBytes,
		MemoryCheckOnly:  profile.CompileMemBytes <= 0,
		OutputLimitBytes: outputCapBytes,
		StackLimitBytes:  stackBytes,
		// SeccompPolicy intentionally left empty: compilers fork helper
		// subprocesses (cc1, as, ld, ...) that a syscall filter tuned
		// for a sandboxed submission would kill.
	})

	diagnostics := readCapped(stderrPath, outputCapBytes)

	if report.Error != nil {
		return Result{Diagnostics: diagnostics}, judgeerr.Wrap(report.Error, judgeerr.CompilerRuntimeError, "compiler sandbox failure")
	}

	switch report.Verdict {
	case verdict.Accepted:
		if _, err := os.Stat(exePath); err != nil {
			return Result{Diagnostics: diagnostics}, judgeerr.New(judgeerr.CompileError, diagnostics)
		}
		return Result{ExePath: exePath, Diagnostics: diagnostics}, nil
	default:
		// Any compiler exit other than a clean 0 is treated as a user
		// compile failure if diagnostics were produced, and an
		// engine-side failure otherwise — mirrors compiler.py's
		// "if real stderr output: CompileError else CompilerRuntimeError".
		if strings.TrimSpace(diagnostics) != "" {
			return Result{Diagnostics: diagnostics}, judgeerr.New(judgeerr.CompileError, diagnostics)
		}
		return Result{Diagnostics: diagnostics}, judgeerr.Newf(judgeerr.CompilerRuntimeError,
			"compiler exited abnormally with verdict %s", report.Verdict)
	}
}

func formatCompileCmd(template, std, srcPath, exePath, dir string) string {
	r := strings.NewReplacer(
		"{std}", std,
		"{src_path}", srcPath,
		"{exe_path}", exePath,
		"{exe_dir}", dir,
	)
	return r.Replace(template)
}

func readCapped(path string, capBytes int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	buf := make([]byte, capBytes)
	n, _ := f.Read(buf)
	return string(buf[:n])
}
