// Package spj implements the special judge driver and its compile
// path: compiling a problem-supplied checker once per version, then
// invoking it for every test case in place of the output comparator,
// under inflated resource limits, a staged copy of the test-case
// input/answer, and the SPJ uid.
//
// Grounded on judge_client.py's _spj (resource multipliers, exit code
// mapping, chown staging) and server.py's compile_spj (compile-once,
// cache the binary next to the test data, keyed by spj_version).
package spj

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"judgeserver/internal/compiler"
	"judgeserver/internal/judgeerr"
	"judgeserver/internal/language"
	"judgeserver/internal/sandbox"
	"judgeserver/internal/verdict"
	"judgeserver/internal/workspace"
)

// Exit codes a checker binary is contractually expected to return.
// -1 is the prototype's ambiguous case: it's produced both by a
// checker that explicitly calls exit(-1) and by the OS reporting "no
// exit code, killed by a signal" through the same field depending on
// how the judger C extension surfaces it. The prototype maps -1
// alongside 1 to "checker found a problem"; this engine preserves
// that exact behavior rather than guessing at an author's intent
// (documented as an open question this code deliberately does not
// resolve).
const (
	exitAccepted    = 0
	exitWrongAnswer = 1
	exitAmbiguous   = -1
)

// seccompPolicy is always "c_cpp": spec and prototype both constrain
// the special judge's language to C or C++, and both of those
// LanguageProfiles carry this seccomp policy name.
const seccompPolicy = "c_cpp"

// respCapBytes bounds how much of the checker's own stdout is kept
// for diagnostics.
const respCapBytes = 16 * 1024

// ExePath returns the on-disk path of the checker binary cached for
// this (problem directory, spj version) pair.
func ExePath(spjDir, version string) string {
	return filepath.Join(spjDir, "spj-"+version)
}

// CompileOnce compiles a checker's source into ExePath(spjDir,
// version) if that binary isn't already there, so each version is
// compiled exactly once per problem and cached alongside the test
// data.
func CompileOnce(ctx context.Context, d *compiler.Driver, profile language.Profile, spjDir, srcPath, version string) (string, error) {
	exePath := ExePath(spjDir, version)
	if _, err := os.Stat(exePath); err == nil {
		return exePath, nil
	}
	result, err := d.Compile(ctx, profile, spjDir, srcPath)
	if err != nil {
		if e, ok := judgeerr.As(err); ok && e.Kind == judgeerr.CompileError {
			return "", judgeerr.New(judgeerr.SPJCompileError, e.Message)
		}
		return "", err
	}
	if result.ExePath != exePath {
		if err := os.Rename(result.ExePath, exePath); err != nil {
			return "", judgeerr.Wrapf(err, judgeerr.SPJCompileError, "failed to stage compiled checker")
		}
	}
	return exePath, nil
}

// Limits are the per-test-case resource limits the checker runs
// under: the prototype inflates the submission's own CPU/memory
// limits by fixed multipliers because a correct checker legitimately
// does more work (reading both outputs, sometimes re-parsing a
// grammar) than the submission it is judging, and fixes the real-time
// cap, output cap, and stack independent of the submission's own.
type Limits struct {
	CPUTimeLimitMs   int64
	RealTimeLimitMs  int64
	MemoryLimitBytes int64
	OutputLimitBytes int64
	StackLimitBytes  int64
}

// stackBytes and outputCapBytes are the prototype's fixed caps for
// the checker process, independent of the test case's own limits.
const (
	stackBytes     = 128 * 1024 * 1024
	outputCapBytes = 1024 * 1024 * 1024
)

// Inflate applies the prototype's 3x/9x multipliers to a test case's
// own CPU/memory limits and fixes the rest.
func Inflate(caseCPUMs, caseMemBytes int64) Limits {
	return Limits{
		CPUTimeLimitMs:   caseCPUMs * 3,
		RealTimeLimitMs:  caseCPUMs * 9,
		MemoryLimitBytes: caseMemBytes * 3,
		OutputLimitBytes: outputCapBytes,
		StackLimitBytes:  stackBytes,
	}
}

// Result is the outcome of one checker invocation.
type Result struct {
	Verdict   verdict.Verdict
	ErrorKind verdict.ErrorKind
	Output    []byte
}

// Run invokes the compiled checker as
// "<exe> <input_path> <user_output_path> <answer_path>" under the SPJ
// user. Per the §3 invariant that the checker never gets raw
// test-case-directory access, it first stages copies of the case's
// input and expected output into workDir as std<caseID>.in/.out and
// points the checker at those instead of the originals, then hands
// workDir and the user's output off to the SPJ user before running.
func Run(ctx context.Context, sb sandbox.Sandbox, exePath, caseID, inputPath, answerPath, userOutputPath, workDir string,
	users workspace.Users, limits Limits) (Result, error) {

	stagedInput := filepath.Join(workDir, "std"+caseID+".in")
	stagedAnswer := filepath.Join(workDir, "std"+caseID+".out")
	if err := copyFile(inputPath, stagedInput); err != nil {
		return Result{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to stage spj input")
	}
	if err := copyFile(answerPath, stagedAnswer); err != nil {
		return Result{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to stage spj answer")
	}

	if err := workspace.HandOffToSPJ(workDir, userOutputPath, users); err != nil {
		return Result{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to stage spj handoff")
	}

	argv := []string{exePath, stagedInput, userOutputPath, stagedAnswer}
	devNull := "/dev/null"

	respPath := filepath.Join(workDir, "spj.out")
	report := sb.Run(ctx, sandbox.RunSpec{
		Argv:             argv,
		Dir:              workDir,
		UID:              users.SPJUID,
		GID:              users.SPJGID,
		StdinPath:        devNull,
		StdoutPath:       respPath,
		StderrPath:       respPath,
		CPUTimeLimitMs:   limits.CPUTimeLimitMs,
		RealTimeLimitMs:  limits.RealTimeLimitMs,
		MemoryLimitBytes: limits.MemoryLimitBytes,
		OutputLimitBytes: limits.OutputLimitBytes,
		StackLimitBytes:  limits.StackLimitBytes,
		SeccompPolicy:    seccompPolicy,
	})

	if report.Error != nil {
		return Result{}, judgeerr.Wrap(report.Error, judgeerr.JudgeClientError, "spj sandbox failure")
	}
	if verdict.IsTimeLimit(report.Verdict) || report.Verdict == verdict.MemoryLimitExceeded ||
		report.Verdict == verdict.OutputLimitExceeded {
		// The checker itself misbehaved resource-wise; that is always
		// a judge-side problem, never the submission's fault.
		return Result{}, judgeerr.Newf(judgeerr.JudgeClientError, "spj exceeded its own resource limits: %s", report.Verdict)
	}

	res := Result{Output: readCapped(respPath, respCapBytes)}

	switch {
	case report.Verdict == verdict.Accepted:
		switch report.ExitCode {
		case exitAccepted:
			res.Verdict = verdict.Accepted
		case exitWrongAnswer:
			res.Verdict = verdict.WrongAnswer
		default:
			res.Verdict = verdict.SystemError
			res.ErrorKind = verdict.ErrorSPJError
		}
	case report.Verdict == verdict.RuntimeError && report.Signal == 0 && report.ExitCode == exitWrongAnswer:
		res.Verdict = verdict.WrongAnswer
	case report.Verdict == verdict.RuntimeError && report.Signal == 0 && report.ExitCode == exitAmbiguous:
		res.Verdict = verdict.SystemError
		res.ErrorKind = verdict.ErrorSPJError
	default:
		// Any other sandbox outcome for the checker itself — killed by
		// a signal, or a runtime error with some other exit code — is
		// a checker failure, not information about the submission.
		res.Verdict = verdict.SystemError
		res.ErrorKind = verdict.ErrorSPJError
	}
	return res, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func readCapped(path string, capBytes int64) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, capBytes)
	n, _ := f.Read(buf)
	return bytes.TrimRight(buf[:n], "\x00")
}
