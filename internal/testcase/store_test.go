package testcase

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestSynthesizeWritesFilesAndManifest(t *testing.T) {
	dir := t.TempDir()

	cases := []InlineCase{
		{ID: "1", Input: []byte("3\n"), Output: []byte("9\r\n")},
	}

	m, err := Synthesize(dir, cases)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(m.Cases) != 1 {
		t.Fatalf("got %d cases, want 1", len(m.Cases))
	}

	c := m.Cases[0]
	if _, err := os.Stat(filepath.Join(dir, "1.in")); err != nil {
		t.Fatalf("expected 1.in to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "1.out")); err != nil {
		t.Fatalf("expected 1.out to exist: %v", err)
	}

	sum := md5.Sum([]byte("9")) // CRLF normalized to LF, then all whitespace stripped
	want := hex.EncodeToString(sum[:])
	if c.StrippedOutputMD5 != want {
		t.Fatalf("got hash %s, want %s", c.StrippedOutputMD5, want)
	}
	if c.OutputSize != int64(len("9\r\n")) {
		t.Fatalf("got OutputSize %d, want %d", c.OutputSize, len("9\r\n"))
	}

	rawSum := md5.Sum([]byte("9")) // rstrip("9\r\n") == "9", no CRLF normalization involved
	rawWant := hex.EncodeToString(rawSum[:])
	if c.OutputMD5 != rawWant {
		t.Fatalf("got OutputMD5 %s, want %s", c.OutputMD5, rawWant)
	}
}

func TestLoadManifestReadsInfoFile(t *testing.T) {
	dir := t.TempDir()
	info := `{"spj": false, "test_cases": {"1": {"input_name": "1.in", "output_name": "1.out", "output_size": 2, "output_md5": "def", "stripped_output_md5": "abc", "is_sample": true}}}`
	if err := os.WriteFile(filepath.Join(dir, "info"), []byte(info), 0644); err != nil {
		t.Fatalf("failed to write fixture info file: %v", err)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if len(m.Cases) != 1 {
		t.Fatalf("got %d cases, want 1", len(m.Cases))
	}
	if m.Cases[0].StrippedOutputMD5 != "abc" {
		t.Fatalf("got hash %q, want abc", m.Cases[0].StrippedOutputMD5)
	}
	if m.Cases[0].OutputMD5 != "def" {
		t.Fatalf("got OutputMD5 %q, want def", m.Cases[0].OutputMD5)
	}
	if !m.Cases[0].IsSample {
		t.Fatalf("got IsSample false, want true")
	}
}
