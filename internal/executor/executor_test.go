package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"judgeserver/internal/language"
	"judgeserver/internal/sandbox"
	"judgeserver/internal/verdict"
	"judgeserver/internal/workspace"
)

// fakeSandbox simulates a user program: for stdio mode it writes
// canned content to RunSpec.StdoutPath; for file-io mode it writes to
// a fixed output filename inside RunSpec.Dir, the way a compiled
// submission would.
type fakeSandbox struct {
	outputFileName string
	content        []byte
	verdict        verdict.Verdict
	lastSpec       sandbox.RunSpec
}

func (f *fakeSandbox) Run(ctx context.Context, spec sandbox.RunSpec) sandbox.RunReport {
	f.lastSpec = spec
	if spec.StdoutPath != "" && spec.StdoutPath != os.DevNull {
		_ = os.WriteFile(spec.StdoutPath, f.content, 0644)
	} else if f.outputFileName != "" {
		_ = os.WriteFile(filepath.Join(spec.Dir, f.outputFileName), f.content, 0644)
	}
	return sandbox.RunReport{Verdict: f.verdict, CPUTimeMs: 5, MemoryUsedBytes: 1024}
}

func selfUsers() workspace.Users {
	uid, gid := os.Getuid(), os.Getgid()
	return workspace.Users{
		CompilerUID: uid, CompilerGID: gid,
		RunnerUID: uid, RunnerGID: gid,
		SPJUID: uid, SPJGID: gid,
	}
}

func TestExecuteStdioCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "1.in")
	if err := os.WriteFile(inputPath, []byte("2 2\n"), 0644); err != nil {
		t.Fatalf("failed to write fixture input: %v", err)
	}

	fake := &fakeSandbox{content: []byte("4\n"), verdict: verdict.Accepted}
	ex := New(fake, selfUsers())

	profile := language.Profile{ExeFilename: "main", ExecuteCmdTemplate: "{exe_path}"}
	report, err := ex.Execute(context.Background(), profile, dir, Spec{
		CaseID: "1", ExePath: filepath.Join(dir, "main"), InputPath: inputPath,
		Mode: language.IOStdio, Limits: Limits{CPUTimeLimitMs: 1000, MemoryLimitBytes: 1 << 20},
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if report.Verdict != verdict.Accepted {
		t.Fatalf("got verdict %s, want Accepted", report.Verdict)
	}
	got, err := os.ReadFile(report.OutputPath)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if string(got) != "4\n" {
		t.Fatalf("got output %q, want %q", got, "4\n")
	}
	if fake.lastSpec.StdinPath != inputPath {
		t.Fatalf("got stdin %q, want %q", fake.lastSpec.StdinPath, inputPath)
	}
}

func TestExecuteFileIOStagesDeclaredFilesAndRedirectsStdin(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "1.in")
	if err := os.WriteFile(inputPath, []byte("2 2\n"), 0644); err != nil {
		t.Fatalf("failed to write fixture input: %v", err)
	}

	fake := &fakeSandbox{outputFileName: "output.txt", content: []byte("4\n"), verdict: verdict.Accepted}
	ex := New(fake, selfUsers())

	profile := language.Profile{ExeFilename: "main", ExecuteCmdTemplate: "{exe_path}"}
	report, err := ex.Execute(context.Background(), profile, dir, Spec{
		CaseID: "1", ExePath: filepath.Join(dir, "main"), InputPath: inputPath,
		Mode: language.IOFile, InputFileName: "input.txt", OutputFileName: "output.txt",
		Limits: Limits{CPUTimeLimitMs: 1000, MemoryLimitBytes: 1 << 20},
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	// the declared input must have been copied into the case dir...
	declaredInput := filepath.Join(filepath.Dir(report.OutputPath), "input.txt")
	if _, err := os.Stat(declaredInput); err != nil {
		t.Fatalf("expected declared input file to be staged: %v", err)
	}
	// ...and stdin must still point at the original input path, not the copy.
	if fake.lastSpec.StdinPath != inputPath {
		t.Fatalf("got stdin %q, want original input path %q", fake.lastSpec.StdinPath, inputPath)
	}

	got, err := os.ReadFile(report.OutputPath)
	if err != nil {
		t.Fatalf("expected declared output file to exist: %v", err)
	}
	if string(got) != "4\n" {
		t.Fatalf("got output %q, want %q", got, "4\n")
	}
}
