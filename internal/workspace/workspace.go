// Package workspace implements scoped acquisition of a unique
// per-submission directory with guaranteed cleanup, and the
// uid/gid/mode handoffs between the compiler, runner, and SPJ users.
package workspace

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"judgeserver/internal/judgeerr"
)

// Users holds the uid/gid triples the engine drops privileges to,
// resolved once at startup from the host's /etc/passwd.
type Users struct {
	CompilerUID, CompilerGID int
	RunnerUID, RunnerGID     int
	SPJUID, SPJGID           int
}

// Workspace is a scoped handle on one submission's working directory.
// Release must be called exactly once; it removes the directory tree
// unless debug mode is set, regardless of how judging ended.
type Workspace struct {
	Dir   string
	debug bool
}

// ResolveUsers looks up the compiler, runner, and spj POSIX accounts
// by name and returns their uid/gid pairs.
func ResolveUsers(compilerName, runnerName, spjName string) (Users, error) {
	compiler, err := lookup(compilerName)
	if err != nil {
		return Users{}, err
	}
	runner, err := lookup(runnerName)
	if err != nil {
		return Users{}, err
	}
	spjU, err := lookup(spjName)
	if err != nil {
		return Users{}, err
	}
	return Users{
		CompilerUID: compiler.uid, CompilerGID: compiler.gid,
		RunnerUID: runner.uid, RunnerGID: runner.gid,
		SPJUID: spjU.uid, SPJGID: spjU.gid,
	}, nil
}

type idPair struct{ uid, gid int }

func lookup(name string) (idPair, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return idPair{}, fmt.Errorf("lookup user %q: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return idPair{}, fmt.Errorf("parse uid for %q: %w", name, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return idPair{}, fmt.Errorf("parse gid for %q: %w", name, err)
	}
	return idPair{uid: uid, gid: gid}, nil
}

// Manager acquires Workspaces rooted at a fixed base directory.
type Manager struct {
	base  string
	users Users
	debug bool
}

// NewManager creates a Manager. base must already exist and be
// writable by the process (normally running as root, since it must
// chown to three distinct users).
func NewManager(base string, users Users, debug bool) *Manager {
	return &Manager{base: base, users: users, debug: debug}
}

// Acquire creates <base>/<uuid>, owned by the compiler user with mode
// 0711 so the runner and SPJ users can traverse into their own
// case-scoped subpaths.
func (m *Manager) Acquire() (*Workspace, error) {
	id := uuid.New().String()
	dir := filepath.Join(m.base, id)
	if err := os.MkdirAll(dir, 0711); err != nil {
		return nil, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to create workspace")
	}
	if err := os.Chown(dir, m.users.CompilerUID, m.users.RunnerGID); err != nil {
		_ = os.RemoveAll(dir)
		return nil, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to chown workspace")
	}
	if err := os.Chmod(dir, 0711); err != nil {
		_ = os.RemoveAll(dir)
		return nil, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to chmod workspace")
	}
	return &Workspace{Dir: dir, debug: m.debug}, nil
}

// Release removes the workspace tree unless running in debug mode.
func (w *Workspace) Release() error {
	if w.debug {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to clean workspace")
	}
	return nil
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// WriteSourceFile writes src into the workspace as the language's
// declared source filename, owned by the compiler user, mode 0400.
func WriteSourceFile(dir, filename string, src []byte, users Users) (string, error) {
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, src, 0400); err != nil {
		return "", judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to write source file")
	}
	if err := os.Chown(path, users.CompilerUID, 0); err != nil {
		return "", judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to chown source file")
	}
	if err := os.Chmod(path, 0400); err != nil {
		return "", judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to chmod source file")
	}
	return path, nil
}

// HandOffToRunner chowns the compiled artifact to the runner user,
// mode 0500. Java's real artifact is a .class file with a name the
// caller doesn't control precisely, so failures here are tolerated by
// the caller rather than fatal, matching the prototype's
// `try/except: pass` around this chown.
func HandOffToRunner(exePath string, users Users) error {
	if err := os.Chown(exePath, users.RunnerUID, 0); err != nil {
		return err
	}
	return os.Chmod(exePath, 0500)
}

// HandOffToSPJ chowns the submission directory to the SPJ user
// (gid 0) and the user-output file to the SPJ user with mode 0740, so
// the checker can read both without gaining access to the raw
// test-case directory.
func HandOffToSPJ(submissionDir, userOutputPath string, users Users) error {
	if err := os.Chown(submissionDir, users.SPJUID, 0); err != nil {
		return fmt.Errorf("chown submission dir for spj: %w", err)
	}
	if err := os.Chown(userOutputPath, users.SPJUID, 0); err != nil {
		return fmt.Errorf("chown user output for spj: %w", err)
	}
	return os.Chmod(userOutputPath, 0740)
}

// MakeCaseDir creates the per-case subdirectory used by file-IO mode,
// owned by the runner user, mode 0711.
func MakeCaseDir(workspaceDir, caseID string, users Users) (string, error) {
	dir := filepath.Join(workspaceDir, caseID)
	if err := os.MkdirAll(dir, 0711); err != nil {
		return "", judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to create case dir")
	}
	if err := os.Chown(dir, users.RunnerUID, users.RunnerGID); err != nil {
		return "", judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to chown case dir")
	}
	if err := os.Chmod(dir, 0711); err != nil {
		return "", judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to chmod case dir")
	}
	return dir, nil
}
