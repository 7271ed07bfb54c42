package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func selfUsers() Users {
	uid, gid := os.Getuid(), os.Getgid()
	return Users{
		CompilerUID: uid, CompilerGID: gid,
		RunnerUID: uid, RunnerGID: gid,
		SPJUID: uid, SPJGID: gid,
	}
}

func TestAcquireAndRelease(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, selfUsers(), false)

	ws, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if _, err := os.Stat(ws.Dir); err != nil {
		t.Fatalf("expected workspace dir to exist: %v", err)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatal("expected workspace dir to be removed after Release")
	}
}

func TestReleaseKeepsDirInDebugMode(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, selfUsers(), true)

	ws, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if _, err := os.Stat(ws.Dir); err != nil {
		t.Fatal("expected workspace dir to survive Release in debug mode")
	}
}

func TestWriteSourceFileSetsReadOnlyMode(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteSourceFile(dir, "main.cpp", []byte("int main(){}"), selfUsers())
	if err != nil {
		t.Fatalf("WriteSourceFile returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected source file to exist: %v", err)
	}
	if info.Mode().Perm() != 0400 {
		t.Fatalf("got mode %v, want 0400", info.Mode().Perm())
	}
}

func TestMakeCaseDir(t *testing.T) {
	base := t.TempDir()
	dir, err := MakeCaseDir(base, "3", selfUsers())
	if err != nil {
		t.Fatalf("MakeCaseDir returned error: %v", err)
	}
	if filepath.Base(dir) != "3" {
		t.Fatalf("got dir %q, want basename 3", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected case dir to exist: %v", err)
	}
}
