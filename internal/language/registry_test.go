package language

import "testing"

func TestResolveKnownLanguage(t *testing.T) {
	r := NewRegistry()
	p, err := r.Resolve("cpp", IOStdio, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if p.ID != "cpp" {
		t.Fatalf("got ID %q, want cpp", p.ID)
	}
	if p.Std != "c++14" {
		t.Fatalf("got default Std %q, want c++14", p.Std)
	}
	if p.SeccompPolicy != "c_cpp" {
		t.Fatalf("got seccomp policy %q, want c_cpp", p.SeccompPolicy)
	}
}

func TestResolveUnknownLanguage(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("cobol", IOStdio, Options{}); err == nil {
		t.Fatal("expected an error for an unsupported language")
	}
}

func TestResolveRejectsUnsupportedStd(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("cpp", IOStdio, Options{Version: "c++55"}); err == nil {
		t.Fatal("expected an error for an unsupported C++ standard")
	}
}

func TestResolveFileIOSwitchesSeccompPolicy(t *testing.T) {
	r := NewRegistry()
	p, err := r.Resolve("c", IOFile, Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if p.SeccompPolicy != "c_cpp_file_io" {
		t.Fatalf("got seccomp policy %q, want c_cpp_file_io", p.SeccompPolicy)
	}
}

func TestResolveASanOverridesSeccompAndMemoryCheck(t *testing.T) {
	r := NewRegistry()
	p, err := r.Resolve("cpp", IOStdio, Options{EnableASan: true})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if p.SeccompPolicy != "c_cpp_asan" {
		t.Fatalf("got seccomp policy %q, want c_cpp_asan", p.SeccompPolicy)
	}
	if !p.MemoryCheckOnly {
		t.Fatal("expected MemoryCheckOnly to be set under ASan")
	}
	found := false
	for _, kv := range p.Env {
		if kv == "ASAN_OPTIONS=detect_leaks=0" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ASAN_OPTIONS=detect_leaks=0 in env when LSan disabled, got %v", p.Env)
	}
}

func TestIDsCoversAllSevenLanguages(t *testing.T) {
	r := NewRegistry()
	ids := r.IDs()
	if len(ids) != 7 {
		t.Fatalf("got %d language ids, want 7: %v", len(ids), ids)
	}
}
