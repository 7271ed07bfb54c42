package comparator

import (
	"testing"

	"judgeserver/internal/verdict"
)

// hashesFor computes the manifest-style expected hashes for expected,
// the way testcase.Synthesize would, so tests can exercise Compare's
// real signature without importing the testcase package.
func hashesFor(expected []byte) (string, string) {
	return md5Hex(rstrip(expected)), md5Hex([]byte(stripAll(expected)))
}

func TestCompareBytesExactMatch(t *testing.T) {
	rawMD5, strippedMD5 := hashesFor([]byte("1 2 3\n"))
	got, hash := CompareBytes([]byte("1 2 3\n"), rawMD5, strippedMD5)
	if got != verdict.Accepted {
		t.Fatalf("got %s, want Accepted", got)
	}
	if hash != rawMD5 {
		t.Fatalf("got hash %s, want %s", hash, rawMD5)
	}
}

func TestCompareBytesTrailingWhitespaceIsAccepted(t *testing.T) {
	rawMD5, strippedMD5 := hashesFor([]byte("1 2 3\n"))
	got, _ := CompareBytes([]byte("1 2 3   \n\n"), rawMD5, strippedMD5)
	if got != verdict.Accepted {
		t.Fatalf("got %s, want Accepted (rstrip should make these equal)", got)
	}
}

func TestCompareBytesOnlyFinalTrailingWhitespaceIsStripped(t *testing.T) {
	// Interior line ("1 2 ") carries trailing whitespace that a
	// per-line rstrip would hide; only whitespace at the very end of
	// the stream is insignificant for ACCEPTED.
	rawMD5, strippedMD5 := hashesFor([]byte("1 2\n3\n"))
	got, _ := CompareBytes([]byte("1 2 \n3\n"), rawMD5, strippedMD5)
	if got != verdict.PresentationError {
		t.Fatalf("got %s, want PresentationError", got)
	}
}

func TestCompareBytesInteriorWhitespaceDiffIsPresentationError(t *testing.T) {
	rawMD5, strippedMD5 := hashesFor([]byte("1 2 3\n"))
	got, _ := CompareBytes([]byte("1  2 3\n"), rawMD5, strippedMD5)
	if got != verdict.PresentationError {
		t.Fatalf("got %s, want PresentationError", got)
	}
}

func TestCompareBytesWrongContentIsWrongAnswer(t *testing.T) {
	rawMD5, strippedMD5 := hashesFor([]byte("1 2 3\n"))
	got, _ := CompareBytes([]byte("1 2 4\n"), rawMD5, strippedMD5)
	if got != verdict.WrongAnswer {
		t.Fatalf("got %s, want WrongAnswer", got)
	}
}

func TestCompareBytesCRLFIsAccepted(t *testing.T) {
	rawMD5, strippedMD5 := hashesFor([]byte("1 2 3\n"))
	got, _ := CompareBytes([]byte("1 2 3\r\n"), rawMD5, strippedMD5)
	if got != verdict.Accepted {
		t.Fatalf("got %s, want Accepted", got)
	}
}

func TestCompareBytesDivergesFromManifestHashIsNotAccepted(t *testing.T) {
	// Even though the user's output matches expected byte-for-byte
	// after this engine's own rstrip, a manifest hash computed by a
	// different rstrip implementation must win: Compare trusts the
	// manifest, not a locally recomputed hash.
	got, _ := CompareBytes([]byte("1 2 3\n"), "not-the-real-hash", "also-not-the-real-hash")
	if got == verdict.Accepted {
		t.Fatalf("got Accepted, want a non-Accepted verdict when the manifest hash disagrees")
	}
}
