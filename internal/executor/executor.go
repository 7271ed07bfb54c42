// Package executor runs one compiled submission against one test
// case, handling the stdio vs declared-filename IO modes, and returns
// a classified result ready for the output comparator or SPJ driver.
//
// Grounded on judge_client.py's _judge_one, including its file-IO
// quirk of copying the test case input into the case directory under
// the submission's declared input filename *and* still redirecting
// stdin to the original input path — some submitted programs read
// from the declared file, others fall back to stdin, and the
// prototype satisfies both rather than picking one.
package executor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"judgeserver/internal/judgeerr"
	"judgeserver/internal/language"
	"judgeserver/internal/sandbox"
	"judgeserver/internal/verdict"
	"judgeserver/internal/workspace"
)

// excerptCapBytes bounds how much of a case's output is kept in the
// judge result for display, independent of the sandbox's own
// OutputLimitBytes rlimit.
const excerptCapBytes = 16 * 1024

// stackBytes is the prototype's fixed stack rlimit for a submission's
// own run, independent of its memory cap (judge_client.py hardcodes
// max_stack to 128MB regardless of the submission's max_memory).
const stackBytes = 128 * 1024 * 1024

// Limits are the per-test-case resource caps.
type Limits struct {
	CPUTimeLimitMs   int64
	RealTimeLimitMs  int64
	MemoryLimitBytes int64
	OutputLimitBytes int64
}

// Spec describes one (submission, test case) pairing to execute.
type Spec struct {
	CaseID    string
	ExePath   string
	InputPath string

	Mode           language.IOMode
	InputFileName  string // required when Mode == IOFile
	OutputFileName string // required when Mode == IOFile

	Limits Limits
}

// Report is the outcome of one Execute call.
type Report struct {
	Verdict         verdict.Verdict
	ExitCode        int
	Signal          int
	CPUTimeMs       int64
	RealTimeMs      int64
	MemoryUsedBytes int64

	// OutputPath is where the Output Comparator / SPJ driver should
	// read the user's produced output from.
	OutputPath string
	// Excerpt is a size-capped copy of OutputPath, captured whenever
	// the sandbox reports the run as Accepted (with or without SPJ);
	// empty for every other verdict.
	Excerpt []byte
}

// Executor runs Specs via a Sandbox.
type Executor struct {
	sb    sandbox.Sandbox
	users workspace.Users
}

func New(sb sandbox.Sandbox, users workspace.Users) *Executor {
	return &Executor{sb: sb, users: users}
}

// Execute runs one test case against profile's compiled artifact.
func (e *Executor) Execute(ctx context.Context, profile language.Profile, workDir string, spec Spec) (Report, error) {
	switch spec.Mode {
	case language.IOFile:
		return e.executeFileIO(ctx, profile, workDir, spec)
	default:
		return e.executeStdio(ctx, profile, workDir, spec)
	}
}

func (e *Executor) executeStdio(ctx context.Context, profile language.Profile, workDir string, spec Spec) (Report, error) {
	outPath := filepath.Join(workDir, spec.CaseID+".out")
	runSpec := e.baseRunSpec(profile, workDir, spec)
	runSpec.StdinPath = spec.InputPath
	runSpec.StdoutPath = outPath
	runSpec.StderrPath = os.DevNull

	report := e.sb.Run(ctx, runSpec)
	return e.toReport(report, outPath)
}

func (e *Executor) executeFileIO(ctx context.Context, profile language.Profile, workDir string, spec Spec) (Report, error) {
	caseDir, err := workspace.MakeCaseDir(workDir, spec.CaseID, e.users)
	if err != nil {
		return Report{}, err
	}

	input, err := os.ReadFile(spec.InputPath)
	if err != nil {
		return Report{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to read test case input")
	}
	declaredInput := filepath.Join(caseDir, spec.InputFileName)
	if err := os.WriteFile(declaredInput, input, 0644); err != nil {
		return Report{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to stage declared input file")
	}
	if err := os.Chown(declaredInput, e.users.RunnerUID, e.users.RunnerGID); err != nil {
		return Report{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to chown declared input file")
	}

	runSpec := e.baseRunSpec(profile, caseDir, spec)
	// Redirect stdin to the *original* input path even though the
	// declared-filename copy already exists in caseDir: a program that
	// reads stdin instead of opening its declared input file must
	// still see the data.
	runSpec.StdinPath = spec.InputPath
	runSpec.StdoutPath = os.DevNull
	runSpec.StderrPath = os.DevNull

	report := e.sb.Run(ctx, runSpec)

	declaredOutput := filepath.Join(caseDir, spec.OutputFileName)
	return e.toReport(report, declaredOutput)
}

func (e *Executor) baseRunSpec(profile language.Profile, dir string, spec Spec) sandbox.RunSpec {
	argv, err := shlex.Split(formatExecuteCmd(profile.ExecuteCmdTemplate, profile.ExeFilename, dir, spec))
	if err != nil || len(argv) == 0 {
		argv = []string{filepath.Join(dir, profile.ExeFilename)}
	}
	return sandbox.RunSpec{
		Argv:             argv,
		Env:              profile.Env,
		Dir:              dir,
		UID:              e.users.RunnerUID,
		GID:              e.users.RunnerGID,
		CPUTimeLimitMs:   spec.Limits.CPUTimeLimitMs,
		RealTimeLimitMs:  spec.Limits.RealTimeLimitMs,
		MemoryLimitBytes: spec.Limits.MemoryLimitBytes,
		MemoryCheckOnly:  profile.MemoryCheckOnly,
		OutputLimitBytes: spec.Limits.OutputLimitBytes,
		StackLimitBytes:  stackBytes,
		SeccompPolicy:    profile.SeccompPolicy,
	}
}

func formatExecuteCmd(template, exeFilename, dir string, spec Spec) string {
	exePath := spec.ExePath
	if exePath == "" {
		exePath = filepath.Join(dir, exeFilename)
	}
	maxMemoryKB := spec.Limits.MemoryLimitBytes / 1024
	r := strings.NewReplacer(
		"{exe_path}", exePath,
		"{exe_dir}", dir,
		"{max_memory}", strconv.FormatInt(maxMemoryKB, 10),
	)
	return r.Replace(template)
}

func (e *Executor) toReport(run sandbox.RunReport, outPath string) (Report, error) {
	if run.Error != nil {
		return Report{Verdict: verdict.SystemError}, judgeerr.Wrap(run.Error, judgeerr.JudgeClientError, "sandbox run failed")
	}
	rep := Report{
		Verdict:         run.Verdict,
		ExitCode:        run.ExitCode,
		Signal:          run.Signal,
		CPUTimeMs:       run.CPUTimeMs,
		RealTimeMs:      run.RealTimeMs.Milliseconds(),
		MemoryUsedBytes: run.MemoryUsedBytes,
		OutputPath:      outPath,
	}
	if run.Verdict == verdict.Accepted {
		rep.Excerpt = readExcerpt(outPath, excerptCapBytes)
	}
	return rep, nil
}

func readExcerpt(path string, limit int64) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, limit)
	n, _ := f.Read(buf)
	return buf[:n]
}
