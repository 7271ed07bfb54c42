// Package comparator classifies a submission's output against the
// expected output as Accepted, PresentationError, or WrongAnswer
// using the prototype's two-pass md5 comparison (judge_client.py
// _compare_output).
package comparator

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"judgeserver/internal/verdict"
)

// Compare reads userOutputPath fully into memory and classifies it
// against the manifest's precomputed expectedMD5/expectedStrippedMD5,
// rather than re-reading and re-hashing the expected output file: for
// externally-precomputed bundles, the manifest hash is the contract,
// not whatever this engine's own rstrip happens to produce. It
// returns the verdict and the user output's raw (rstripped) md5, for
// callers that want to log or persist it alongside the result.
func Compare(userOutputPath, expectedMD5, expectedStrippedMD5 string) (verdict.Verdict, string, error) {
	user, err := os.ReadFile(userOutputPath)
	if err != nil {
		return "", "", err
	}
	v, h := CompareBytes(user, expectedMD5, expectedStrippedMD5)
	return v, h, nil
}

// CompareBytes is Compare without file IO, for tests and callers that
// already hold the user's output in memory. It returns the verdict
// and the user output's raw (rstripped) md5.
func CompareBytes(user []byte, expectedMD5, expectedStrippedMD5 string) (verdict.Verdict, string) {
	rawHash := md5Hex(rstrip(user))
	if rawHash == expectedMD5 {
		return verdict.Accepted, rawHash
	}
	if md5Hex([]byte(stripAll(user))) == expectedStrippedMD5 {
		return verdict.PresentationError, rawHash
	}
	return verdict.WrongAnswer, rawHash
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// rstrip trims trailing whitespace from the whole byte string in one
// pass, mirroring Python's single bytes.rstrip() call — not a
// per-line split/trim/rejoin, which would additionally treat interior
// trailing-line whitespace as insignificant when only the very end of
// the stream is.
func rstrip(b []byte) []byte {
	i := len(b)
	for i > 0 {
		switch b[i-1] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			i--
		default:
			return b[:i]
		}
	}
	return b[:i]
}

func stripAll(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, r := range string(b) {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CopyLimited copies at most limit bytes from r to a new byte slice,
// for capturing a bounded excerpt of an output without holding the
// whole file in memory when OutputLimitBytes is large.
func CopyLimited(r io.Reader, limit int64) ([]byte, error) {
	buf := make([]byte, limit)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
