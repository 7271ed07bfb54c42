package spj

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"judgeserver/internal/sandbox"
	"judgeserver/internal/verdict"
	"judgeserver/internal/workspace"
)

func selfUsers() workspace.Users {
	uid, gid := os.Getuid(), os.Getgid()
	return workspace.Users{
		CompilerUID: uid, CompilerGID: gid,
		RunnerUID: uid, RunnerGID: gid,
		SPJUID: uid, SPJGID: gid,
	}
}

// fakeSandbox simulates a checker binary: it records the argv it was
// handed and returns a canned verdict/exit code/signal.
type fakeSandbox struct {
	exitCode int
	signal   int
	verdict  verdict.Verdict
	output   []byte
	lastSpec sandbox.RunSpec
}

func (f *fakeSandbox) Run(ctx context.Context, spec sandbox.RunSpec) sandbox.RunReport {
	f.lastSpec = spec
	if spec.StdoutPath != "" {
		_ = os.WriteFile(spec.StdoutPath, f.output, 0644)
	}
	return sandbox.RunReport{Verdict: f.verdict, ExitCode: f.exitCode, Signal: f.signal}
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}

func TestRunStagesInputAndAnswerUnderCaseID(t *testing.T) {
	dir := t.TempDir()
	inputPath := writeFixture(t, dir, "raw.in", "2 2\n")
	answerPath := writeFixture(t, dir, "raw.out", "4\n")
	userOutputPath := writeFixture(t, dir, "user.out", "4\n")

	fake := &fakeSandbox{verdict: verdict.Accepted, exitCode: exitAccepted}
	_, err := Run(context.Background(), fake, "/bin/checker", "7", inputPath, answerPath, userOutputPath, dir,
		selfUsers(), Inflate(1000, 1<<20))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	stagedInput := filepath.Join(dir, "std7.in")
	stagedAnswer := filepath.Join(dir, "std7.out")
	if _, err := os.Stat(stagedInput); err != nil {
		t.Fatalf("expected staged input at %s: %v", stagedInput, err)
	}
	if _, err := os.Stat(stagedAnswer); err != nil {
		t.Fatalf("expected staged answer at %s: %v", stagedAnswer, err)
	}

	want := []string{"/bin/checker", stagedInput, userOutputPath, stagedAnswer}
	got := fake.lastSpec.Argv
	if len(got) != len(want) {
		t.Fatalf("got argv %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got argv %v, want %v", got, want)
		}
	}
}

func TestRunExitCodeMapping(t *testing.T) {
	dir := t.TempDir()
	inputPath := writeFixture(t, dir, "raw.in", "2 2\n")
	answerPath := writeFixture(t, dir, "raw.out", "4\n")
	userOutputPath := writeFixture(t, dir, "user.out", "4\n")

	cases := []struct {
		name      string
		verdict   verdict.Verdict
		exitCode  int
		signal    int
		wantV     verdict.Verdict
		wantKind  verdict.ErrorKind
	}{
		{"success accepted", verdict.Accepted, exitAccepted, 0, verdict.Accepted, ""},
		{"success wrong answer", verdict.Accepted, exitWrongAnswer, 0, verdict.WrongAnswer, ""},
		{"success unknown exit code", verdict.Accepted, 42, 0, verdict.SystemError, verdict.ErrorSPJError},
		{"runtime error exit 1 no signal", verdict.RuntimeError, exitWrongAnswer, 0, verdict.WrongAnswer, ""},
		{"runtime error ambiguous exit -1 no signal", verdict.RuntimeError, exitAmbiguous, 0, verdict.SystemError, verdict.ErrorSPJError},
		{"runtime error killed by signal", verdict.RuntimeError, exitWrongAnswer, 11, verdict.SystemError, verdict.ErrorSPJError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeSandbox{verdict: tc.verdict, exitCode: tc.exitCode, signal: tc.signal}
			res, err := Run(context.Background(), fake, "/bin/checker", "1", inputPath, answerPath, userOutputPath, dir,
				selfUsers(), Inflate(1000, 1<<20))
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if res.Verdict != tc.wantV {
				t.Fatalf("got verdict %s, want %s", res.Verdict, tc.wantV)
			}
			if res.ErrorKind != tc.wantKind {
				t.Fatalf("got error kind %q, want %q", res.ErrorKind, tc.wantKind)
			}
		})
	}
}

func TestInflateAppliesFixedMultipliersAndCaps(t *testing.T) {
	got := Inflate(1000, 1<<20)
	if got.CPUTimeLimitMs != 3000 {
		t.Fatalf("got CPUTimeLimitMs %d, want 3000", got.CPUTimeLimitMs)
	}
	if got.RealTimeLimitMs != 9000 {
		t.Fatalf("got RealTimeLimitMs %d, want 9000", got.RealTimeLimitMs)
	}
	if got.MemoryLimitBytes != 3<<20 {
		t.Fatalf("got MemoryLimitBytes %d, want %d", got.MemoryLimitBytes, 3<<20)
	}
	if got.OutputLimitBytes != outputCapBytes {
		t.Fatalf("got OutputLimitBytes %d, want fixed %d", got.OutputLimitBytes, outputCapBytes)
	}
	if got.StackLimitBytes != stackBytes {
		t.Fatalf("got StackLimitBytes %d, want fixed %d", got.StackLimitBytes, stackBytes)
	}
}

func TestExePathIsVersioned(t *testing.T) {
	a := ExePath("/problems/1", "v1")
	b := ExePath("/problems/1", "v2")
	if a == b {
		t.Fatalf("expected distinct paths for distinct versions, got %s for both", a)
	}
}
