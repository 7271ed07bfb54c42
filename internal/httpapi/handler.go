package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"
	"go.uber.org/zap"

	"judgeserver/internal/compiler"
	"judgeserver/internal/judgeerr"
	"judgeserver/internal/language"
	"judgeserver/internal/obslog"
	"judgeserver/internal/orchestrator"
	"judgeserver/internal/spj"
	"judgeserver/internal/testcase"
	"judgeserver/internal/verdict"
	"judgeserver/internal/workspace"
)

// tokenHeader is the header the prototype authenticates every call
// with; its value must equal sha256(TOKEN env/config value).
const tokenHeader = "X-Judge-Server-Token"

// Server wires the HTTP surface to the judge pipeline.
type Server struct {
	orch     *orchestrator.Orchestrator
	compiler *compiler.Driver
	registry *language.Registry
	wsMgr    *workspace.Manager
	users    workspace.Users

	tokenHex string
	log      *obslog.Logger
}

// New builds a Server. token is the plaintext configured secret; the
// header comparison is done against its sha256 hex digest, matching
// utils.py's `token = hashlib.sha256(TOKEN.encode()).hexdigest()`.
func New(orch *orchestrator.Orchestrator, comp *compiler.Driver, registry *language.Registry,
	wsMgr *workspace.Manager, users workspace.Users, token string, log *obslog.Logger) *Server {
	sum := sha256.Sum256([]byte(token))
	return &Server{
		orch: orch, compiler: comp, registry: registry, wsMgr: wsMgr, users: users,
		tokenHex: hex.EncodeToString(sum[:]), log: log,
	}
}

// RegisterRoutes mounts the three routes on a go-zero rest.Server.
func (s *Server) RegisterRoutes(server *rest.Server) {
	server.AddRoutes([]rest.Route{
		{Method: http.MethodGet, Path: "/ping", Handler: s.tokenChecked(s.ping)},
		{Method: http.MethodPost, Path: "/judge", Handler: s.tokenChecked(s.judge)},
		{Method: http.MethodPost, Path: "/compile_spj", Handler: s.tokenChecked(s.compileSPJ)},
	})
}

func (s *Server) tokenChecked(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(tokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.tokenHex)) != 1 {
			s.writeErr(w, r, judgeerr.New(judgeerr.TokenVerificationFailed, "invalid token"))
			return
		}
		next(w, r)
	}
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	httpx.OkJsonCtx(r.Context(), w, map[string]string{"data": "pong"})
}

func (s *Server) judge(w http.ResponseWriter, r *http.Request) {
	var req JudgeRequest
	if err := httpx.Parse(r, &req); err != nil {
		s.writeErr(w, r, judgeerr.Wrap(err, judgeerr.JudgeClientError, "malformed request"))
		return
	}

	sub, err := s.toSubmission(req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	result, err := s.orch.Judge(r.Context(), sub)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	httpx.OkJsonCtx(r.Context(), w, toResponse(result))
}

func (s *Server) compileSPJ(w http.ResponseWriter, r *http.Request) {
	var req CompileSPJRequest
	if err := httpx.Parse(r, &req); err != nil {
		s.writeErr(w, r, judgeerr.Wrap(err, judgeerr.JudgeClientError, "malformed request"))
		return
	}

	// Per §4.3 step 1: an already-cached binary for this version is
	// reused rather than recompiled, the idempotency §8 property #6
	// depends on.
	if _, err := os.Stat(spj.ExePath(req.TestCaseDir, req.SPJVersion)); err == nil {
		httpx.OkJsonCtx(r.Context(), w, CompileSPJResponse{OK: true})
		return
	}

	profile, err := s.registry.Resolve(req.LanguageID, language.IOStdio, language.Options{})
	if err != nil {
		s.writeErr(w, r, judgeerr.Wrap(err, judgeerr.JudgeClientError, "unsupported spj language"))
		return
	}

	src, err := decodeSource(req.SrcCode)
	if err != nil {
		s.writeErr(w, r, judgeerr.Wrap(err, judgeerr.JudgeClientError, "invalid source encoding"))
		return
	}

	srcPath, err := workspace.WriteSourceFile(req.TestCaseDir, profile.SourceFilename, src, s.users)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	if _, err := spj.CompileOnce(r.Context(), s.compiler, profile, filepath.Dir(srcPath), srcPath, req.SPJVersion); err != nil {
		s.writeErr(w, r, err)
		return
	}

	httpx.OkJsonCtx(r.Context(), w, CompileSPJResponse{OK: true})
}

func (s *Server) toSubmission(req JudgeRequest) (orchestrator.Submission, error) {
	src, err := decodeSource(req.SrcCode)
	if err != nil {
		return orchestrator.Submission{}, judgeerr.Wrap(err, judgeerr.JudgeClientError, "invalid source encoding")
	}

	mode := language.IOStdio
	if req.LanguageConfig.IOMode == "file" {
		mode = language.IOFile
	}

	sub := orchestrator.Submission{
		LanguageID: req.LanguageConfig.LanguageID,
		SourceCode: src,
		IOMode:     mode,
		Options: language.Options{
			Version:    req.LanguageConfig.Version,
			EnableASan: req.LanguageConfig.EnableASan,
			EnableLSan: req.LanguageConfig.EnableLSan,
		},
		InputFileName:    req.LanguageConfig.InFileName,
		OutputFileName:   req.LanguageConfig.OutFileName,
		CPUTimeLimitMs:   req.MaxCPUTimeMs,
		MemoryLimitBytes: req.MaxMemoryBytes,
		TestDataDir:      req.TestCaseDir,
		IncludeSamples:   req.IncludeSamples,
		SPJVersion:       req.SPJVersion,
	}

	if len(req.TestCase) > 0 {
		inline := make([]testcase.InlineCase, 0, len(req.TestCase))
		for _, tc := range req.TestCase {
			inline = append(inline, testcase.InlineCase{ID: tc.ID, Input: []byte(tc.Input), Output: []byte(tc.Output)})
		}
		sub.InlineCases = inline
	}

	if req.SPJSrcCode != "" {
		spjSrc, err := decodeSource(req.SPJSrcCode)
		if err != nil {
			return orchestrator.Submission{}, judgeerr.Wrap(err, judgeerr.JudgeClientError, "invalid spj source encoding")
		}
		sub.SPJSourceCode = spjSrc
		sub.SPJLanguageID = req.SPJLanguage
	}

	return sub, nil
}

func toResponse(result orchestrator.Result) JudgeResponse {
	resp := JudgeResponse{
		Verdict:            string(result.Verdict),
		CompileDiagnostics: result.CompileDiagnostics,
	}
	for _, c := range result.Cases {
		resp.TestCases = append(resp.TestCases, CaseResultDTO{
			ID: c.CaseID, Verdict: string(c.Verdict), ErrorKind: string(c.ErrorKind),
			ExitCode: c.ExitCode, Signal: c.Signal,
			CPUTimeMs: c.CPUTimeMs, RealTimeMs: c.RealTimeMs, MemoryUsedBytes: c.MemoryUsedBytes,
			OutputMD5: c.OutputMD5, IsSample: c.IsSample,
		})
	}
	if result.Verdict == "" {
		resp.Verdict = string(verdict.SystemError)
	}
	return resp
}

func decodeSource(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return []byte(s), nil
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := judgeerr.As(err)
	if !ok {
		e = judgeerr.Wrap(err, judgeerr.JudgeServiceError, err.Error())
	}
	s.log.Warn("request failed", zap.String("kind", string(e.Kind)), zap.String("message", e.Message))
	httpx.WriteJsonCtx(r.Context(), w, e.Status(), ErrorResponse{Error: string(e.Kind), Data: e.Message})
}
