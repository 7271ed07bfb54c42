// Package orchestrator drives one submission through workspace
// acquisition, compilation, test-case resolution, and a parallel
// fan-out over the run executor and output comparator / SPJ driver.
//
// The fan-out is sized by CPU count and runs every test case
// concurrently rather than one at a time, since the work is
// fork/exec-bound rather than CPU-bound in the controlling process.
package orchestrator

import (
	"context"
	"os"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"judgeserver/internal/comparator"
	"judgeserver/internal/compiler"
	"judgeserver/internal/executor"
	"judgeserver/internal/judgeerr"
	"judgeserver/internal/language"
	"judgeserver/internal/obslog"
	"judgeserver/internal/sandbox"
	"judgeserver/internal/spj"
	"judgeserver/internal/testcase"
	"judgeserver/internal/verdict"
	"judgeserver/internal/workspace"
)

// Submission is everything the orchestrator needs to judge one piece
// of code.
type Submission struct {
	LanguageID string
	SourceCode []byte
	IOMode     language.IOMode
	Options    language.Options

	InputFileName  string
	OutputFileName string

	CPUTimeLimitMs   int64
	MemoryLimitBytes int64

	// TestDataDir points at pre-staged test data on shared storage;
	// mutually exclusive with InlineCases.
	TestDataDir string
	InlineCases []testcase.InlineCase

	// IncludeSamples controls whether cases flagged IsSample in the
	// manifest are dispatched alongside the rest; defaults to true on
	// the wire (httpapi.JudgeRequest), since the common case is to
	// judge every case a problem has.
	IncludeSamples bool

	SPJSourceCode []byte
	SPJLanguageID string
	// SPJVersion selects which cached checker binary to use when the
	// checker was compiled ahead of time via /compile_spj rather than
	// supplied inline with this request.
	SPJVersion string
}

// realTimeMultiplier and the output-cap formula implement §4.4: the
// client supplies only the CPU time and memory caps; real time and
// the per-case output cap are always derived server-side rather than
// trusted verbatim from the request.
const (
	realTimeMultiplier  = 3
	outputSizeMultiplier = 2
	minOutputLimitBytes  = 16 * 1024 * 1024
)

// CaseResult is one test case's outcome.
type CaseResult struct {
	CaseID          string
	Verdict         verdict.Verdict
	ErrorKind       verdict.ErrorKind
	ExitCode        int
	Signal          int
	CPUTimeMs       int64
	RealTimeMs      int64
	MemoryUsedBytes int64
	OutputMD5       string
	Output          []byte
	SPJOutput       []byte
	IsSample        bool
}

// Result is the aggregate judge result for a submission.
type Result struct {
	Verdict            verdict.Verdict
	Cases              []CaseResult
	CompileDiagnostics string
}

// Orchestrator wires the pipeline's collaborators together.
type Orchestrator struct {
	registry *language.Registry
	compiler *compiler.Driver
	executor *executor.Executor
	sandbox  sandbox.Sandbox
	wsMgr    *workspace.Manager
	users    workspace.Users
	log      *obslog.Logger

	maxParallel int
}

// New constructs an Orchestrator. sb is used directly for the SPJ
// driver's checker invocations; the executor gets its own reference
// at construction time.
func New(registry *language.Registry, comp *compiler.Driver, exec *executor.Executor, sb sandbox.Sandbox,
	wsMgr *workspace.Manager, users workspace.Users, log *obslog.Logger) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		compiler:    comp,
		executor:    exec,
		sandbox:     sb,
		wsMgr:       wsMgr,
		users:       users,
		log:         log,
		maxParallel: runtime.NumCPU(),
	}
}

// Judge runs sub through the full pipeline. Compile failures surface
// as a *judgeerr.Error of kind CompileError carrying the diagnostics.
func (o *Orchestrator) Judge(ctx context.Context, sub Submission) (Result, error) {
	profile, err := o.registry.Resolve(sub.LanguageID, sub.IOMode, sub.Options)
	if err != nil {
		return Result{}, judgeerr.Wrap(err, judgeerr.JudgeClientError, "")
	}

	ws, err := o.wsMgr.Acquire()
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if rerr := ws.Release(); rerr != nil {
			o.log.Warn("failed to release workspace", zapErr(rerr))
		}
	}()

	srcPath, err := workspace.WriteSourceFile(ws.Dir, profile.SourceFilename, sub.SourceCode, o.users)
	if err != nil {
		return Result{}, err
	}

	compileResult, err := o.compiler.Compile(ctx, profile, ws.Dir, srcPath)
	if err != nil {
		if e, ok := judgeerr.As(err); ok && e.Kind == judgeerr.CompileError {
			return Result{CompileDiagnostics: compileResult.Diagnostics}, err
		}
		return Result{}, err
	}
	if profile.Compiled {
		if err := workspace.HandOffToRunner(compileResult.ExePath, o.users); err != nil {
			o.log.Warn("failed to hand artifact to runner user", zapErr(err))
		}
	}

	manifest, dataDir, err := o.resolveManifest(ws.Dir, sub)
	if err != nil {
		return Result{}, err
	}

	var spjExe string
	switch {
	case len(sub.SPJSourceCode) > 0:
		// Checker source travels with the request (the usual case for
		// inline test cases, which have no persistent directory a prior
		// /compile_spj call could have cached a binary into).
		spjProfile, err := o.registry.Resolve(sub.SPJLanguageID, language.IOStdio, language.Options{})
		if err != nil {
			return Result{}, judgeerr.Wrap(err, judgeerr.JudgeClientError, "unsupported spj language")
		}
		spjSrcPath, err := workspace.WriteSourceFile(dataDir, spjProfile.SourceFilename, sub.SPJSourceCode, o.users)
		if err != nil {
			return Result{}, err
		}
		spjExe, err = spj.CompileOnce(ctx, o.compiler, spjProfile, dataDir, spjSrcPath, sub.SPJVersion)
		if err != nil {
			return Result{}, err
		}
	case manifest.SPJ:
		// On-disk test data flags itself as requiring a checker that was
		// already compiled and cached by a prior /compile_spj call.
		spjExe = spj.ExePath(dataDir, sub.SPJVersion)
		if _, err := os.Stat(spjExe); err != nil {
			return Result{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "spj checker not compiled for this problem")
		}
	}

	cases := manifest.Cases
	if !sub.IncludeSamples {
		filtered := cases[:0]
		for _, tc := range manifest.Cases {
			if !tc.IsSample {
				filtered = append(filtered, tc)
			}
		}
		cases = filtered
	}

	results := make([]CaseResult, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxParallel)

	for i, tc := range cases {
		i, tc := i, tc
		g.Go(func() error {
			cr, err := o.judgeOne(gctx, profile, compileResult.ExePath, ws.Dir, sub, tc, spjExe, dataDir)
			if err != nil {
				return err
			}
			results[i] = cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{Verdict: aggregate(results), Cases: results}, nil
}

func (o *Orchestrator) judgeOne(ctx context.Context, profile language.Profile, exePath, workDir string,
	sub Submission, tc testcase.Case, spjExe, dataDir string) (CaseResult, error) {

	limits := executor.Limits{
		CPUTimeLimitMs:   sub.CPUTimeLimitMs,
		RealTimeLimitMs:  sub.CPUTimeLimitMs * realTimeMultiplier,
		MemoryLimitBytes: sub.MemoryLimitBytes,
		OutputLimitBytes: deriveOutputLimit(tc.OutputSize),
	}

	execSpec := executor.Spec{
		CaseID:         tc.ID,
		ExePath:        exePath,
		InputPath:      tc.InputPath,
		Mode:           sub.IOMode,
		InputFileName:  sub.InputFileName,
		OutputFileName: sub.OutputFileName,
		Limits:         limits,
	}

	report, err := o.executor.Execute(ctx, profile, workDir, execSpec)
	if err != nil {
		if report.Verdict != verdict.SystemError {
			return CaseResult{}, err
		}
		// A sandbox failure on one case becomes that case's verdict
		// instead of aborting the whole submission.
		o.log.Warn("sandbox failed for test case", zap.String("test_id", tc.ID), zapErr(err))
		return CaseResult{CaseID: tc.ID, Verdict: verdict.SystemError, IsSample: tc.IsSample}, nil
	}

	cr := CaseResult{
		CaseID:          tc.ID,
		Verdict:         report.Verdict,
		ExitCode:        report.ExitCode,
		Signal:          report.Signal,
		CPUTimeMs:       report.CPUTimeMs,
		RealTimeMs:      report.RealTimeMs,
		MemoryUsedBytes: report.MemoryUsedBytes,
		Output:          report.Excerpt,
		IsSample:        tc.IsSample,
	}

	if report.Verdict != verdict.Accepted {
		return cr, nil
	}

	if spjExe != "" {
		spjLimits := spj.Inflate(limits.CPUTimeLimitMs, limits.MemoryLimitBytes)
		res, err := spj.Run(ctx, o.sandbox, spjExe, tc.ID, tc.InputPath, tc.OutputPath, report.OutputPath, workDir, o.users, spjLimits)
		if err != nil {
			return CaseResult{}, err
		}
		cr.Verdict = res.Verdict
		cr.ErrorKind = res.ErrorKind
		cr.SPJOutput = res.Output
		return cr, nil
	}

	v, h, err := comparator.Compare(report.OutputPath, tc.OutputMD5, tc.StrippedOutputMD5)
	if err != nil {
		return CaseResult{}, judgeerr.Wrap(err, judgeerr.JudgeClientError, "failed to read output for comparison")
	}
	cr.Verdict = v
	cr.OutputMD5 = h
	return cr, nil
}

// deriveOutputLimit implements §4.4's per-case output cap:
// max(2x the expected output size, 16 MiB).
func deriveOutputLimit(expectedOutputSize int64) int64 {
	limit := expectedOutputSize * outputSizeMultiplier
	if limit < minOutputLimitBytes {
		return minOutputLimitBytes
	}
	return limit
}

func (o *Orchestrator) resolveManifest(workDir string, sub Submission) (testcase.Manifest, string, error) {
	if len(sub.InlineCases) > 0 {
		m, err := testcase.Synthesize(workDir, sub.InlineCases)
		return m, workDir, err
	}
	m, err := testcase.LoadManifest(sub.TestDataDir)
	return m, sub.TestDataDir, err
}

func zapErr(err error) zap.Field { return zap.Error(err) }

// aggregate returns the first non-Accepted verdict in CaseID order
// (plain string comparison, so "10" sorts before "2"), or Accepted if
// every case passed — the conventional "first failing case wins"
// judge display rule.
func aggregate(results []CaseResult) verdict.Verdict {
	ordered := append([]CaseResult{}, results...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CaseID < ordered[j].CaseID })
	for _, r := range ordered {
		if r.Verdict != verdict.Accepted {
			return r.Verdict
		}
	}
	return verdict.Accepted
}
