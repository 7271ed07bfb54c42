// Package httpapi exposes the judge engine over HTTP, mirroring the
// prototype's three-route Flask surface (/ping, /judge, /compile_spj)
// on top of go-zero's rest package.
package httpapi

// JudgeRequest is the body of POST /judge.
type JudgeRequest struct {
	SrcCode        string            `json:"src"`
	LanguageConfig LanguageConfigDTO `json:"language_config"`

	// MaxCPUTimeMs and MaxMemoryBytes are the only caps the client
	// supplies; real time and the per-case output cap are always
	// derived server-side per §4.4 rather than trusted verbatim.
	MaxCPUTimeMs   int64 `json:"max_cpu_time"`
	MaxMemoryBytes int64 `json:"max_memory"`

	// TestCaseDir points at pre-staged test data on shared storage.
	// Mutually exclusive with TestCase.
	TestCaseDir string        `json:"test_case_dir,optional"`
	TestCase    []TestCaseDTO `json:"test_case,optional"`

	// IncludeSamples defaults to true: most judge calls want every
	// case a problem has, including ones flagged as samples.
	IncludeSamples bool `json:"include_samples,optional,default=true"`

	SPJSrcCode  string `json:"spj_src,optional"`
	SPJLanguage string `json:"spj_language,optional"`
	// SPJVersion selects a checker binary already cached by a prior
	// /compile_spj call. When SPJSrcCode is set, it names the binary
	// that source is compiled into, and an existing binary of that
	// version is reused instead of compiling.
	SPJVersion string `json:"spj_version,optional"`
}

// LanguageConfigDTO mirrors the prototype's per-submission language
// options.
type LanguageConfigDTO struct {
	LanguageID  string `json:"language_id"`
	IOMode      string `json:"io_mode,optional"`
	InFileName  string `json:"in_file_name,optional"`
	OutFileName string `json:"out_file_name,optional"`
	Version     string `json:"version,optional"`
	EnableASan  bool   `json:"enable_asan,optional"`
	EnableLSan  bool   `json:"enable_lsan,optional"`
}

// TestCaseDTO is one inlined test case.
type TestCaseDTO struct {
	ID     string `json:"id"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// JudgeResponse is the body of a successful POST /judge.
type JudgeResponse struct {
	Verdict            string          `json:"verdict"`
	CompileDiagnostics string          `json:"compile_error,omitempty"`
	TestCases          []CaseResultDTO `json:"test_cases"`
}

// CaseResultDTO is one test case's reported outcome.
type CaseResultDTO struct {
	ID              string `json:"id"`
	Verdict         string `json:"verdict"`
	ErrorKind       string `json:"error_kind,omitempty"`
	ExitCode        int    `json:"exit_code"`
	Signal          int    `json:"signal"`
	CPUTimeMs       int64  `json:"cpu_time"`
	RealTimeMs      int64  `json:"real_time"`
	MemoryUsedBytes int64  `json:"memory"`
	OutputMD5       string `json:"output_md5,omitempty"`
	IsSample        bool   `json:"is_sample"`
}

// CompileSPJRequest is the body of POST /compile_spj.
type CompileSPJRequest struct {
	SrcCode     string `json:"src"`
	LanguageID  string `json:"spj_language"`
	TestCaseDir string `json:"test_case_dir"`
	SPJVersion  string `json:"spj_version"`
}

// CompileSPJResponse is the body of a successful POST /compile_spj.
type CompileSPJResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of any non-2xx response, matching the
// prototype's {"error": "...", "data": "..."} exception envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Data  string `json:"data,omitempty"`
}
