// Package testcase resolves a problem's test data either from a
// pre-staged directory on shared storage, or from test cases inlined
// directly in the judge request, which it materializes to disk and
// indexes itself.
//
// Grounded on server.py's test_case_dir / info.json handling for the
// on-disk path, and its inline-manifest synthesis block (md5 of the
// CRLF-normalized, then whitespace-stripped, output) for the inline
// path.
package testcase

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"judgeserver/internal/judgeerr"
)

// Case is one resolved test case: file paths the executor reads from
// directly, plus the precomputed hashes the comparator needs.
type Case struct {
	ID         string
	InputPath  string
	OutputPath string

	OutputSize        int64
	OutputMD5         string
	StrippedOutputMD5 string
	IsSample          bool
}

// Manifest is the set of Cases for one problem, plus whether grading
// requires a special judge. Cases loaded from an info file come in no
// particular order; synthesized cases keep the request's order.
type Manifest struct {
	Cases  []Case
	SPJ    bool
	SPJExe string
}

// infoFile mirrors the on-disk info file the prototype's test_case
// packager writes next to each problem's input/output files.
type infoFile struct {
	SPJ       bool `json:"spj"`
	TestCases map[string]struct {
		InputName         string `json:"input_name"`
		OutputName        string `json:"output_name"`
		OutputSize        int64  `json:"output_size"`
		OutputMD5         string `json:"output_md5"`
		StrippedOutputMD5 string `json:"stripped_output_md5"`
		IsSample          bool   `json:"is_sample"`
	} `json:"test_cases"`
}

// LoadManifest reads dir/info, an on-disk manifest produced ahead of
// time by the problem-packaging side of the system, which is out of
// this engine's scope.
func LoadManifest(dir string) (Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "info"))
	if err != nil {
		return Manifest{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to read test case manifest")
	}
	var info infoFile
	if err := json.Unmarshal(raw, &info); err != nil {
		return Manifest{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to parse test case manifest")
	}
	m := Manifest{SPJ: info.SPJ}
	for id, tc := range info.TestCases {
		m.Cases = append(m.Cases, Case{
			ID:                id,
			InputPath:         filepath.Join(dir, tc.InputName),
			OutputPath:        filepath.Join(dir, tc.OutputName),
			OutputSize:        tc.OutputSize,
			OutputMD5:         tc.OutputMD5,
			StrippedOutputMD5: tc.StrippedOutputMD5,
			IsSample:          tc.IsSample,
		})
	}
	return m, nil
}

// InlineCase is one test case embedded directly in a judge request
// instead of referenced from shared storage.
type InlineCase struct {
	ID     string
	Input  []byte
	Output []byte
}

// Synthesize writes each InlineCase to dir/<id>.in and dir/<id>.out
// and computes its manifest the same way the prototype does for
// inline cases: the expected output's CRLF sequences are first
// normalized to LF, then all whitespace is stripped, then hashed —
// this has to happen here rather than at comparison time because the
// stored StrippedOutputMD5 is the only thing persisted past this call.
func Synthesize(dir string, cases []InlineCase) (Manifest, error) {
	m := Manifest{}
	for _, c := range cases {
		inPath := filepath.Join(dir, c.ID+".in")
		outPath := filepath.Join(dir, c.ID+".out")
		if err := os.WriteFile(inPath, c.Input, 0644); err != nil {
			return Manifest{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to write test case input")
		}
		if err := os.WriteFile(outPath, c.Output, 0644); err != nil {
			return Manifest{}, judgeerr.Wrapf(err, judgeerr.JudgeClientError, "failed to write test case output")
		}
		normalized := strings.ReplaceAll(string(c.Output), "\r\n", "\n")
		stripped := stripAllWhitespace(normalized)
		strippedSum := md5.Sum([]byte(stripped))
		rawSum := md5.Sum([]byte(rstripTrailingWhitespace(c.Output)))
		m.Cases = append(m.Cases, Case{
			ID:                c.ID,
			InputPath:         inPath,
			OutputPath:        outPath,
			OutputSize:        int64(len(c.Output)),
			OutputMD5:         hex.EncodeToString(rawSum[:]),
			StrippedOutputMD5: hex.EncodeToString(strippedSum[:]),
		})
	}
	return m, nil
}

// rstripTrailingWhitespace trims trailing whitespace from the whole
// byte string in one pass, matching Python's bytes.rstrip() and the
// output_md5 field of the manifest (no CRLF normalization, unlike
// StrippedOutputMD5 above).
func rstripTrailingWhitespace(b []byte) []byte {
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

func stripAllWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
