// Package config defines the judge engine's configuration shape,
// loaded via go-zero's core/conf (a goctl-scaffolded Config embedding
// rest.RestConf).
package config

import (
	"github.com/zeromicro/go-zero/rest"
)

// Config is the judge server's full configuration, loaded from a YAML
// file with conf.MustLoad.
type Config struct {
	rest.RestConf

	Token string `json:"token"`

	Workspace WorkspaceConfig `json:"workspace"`
	Users     UsersConfig     `json:"users"`
	Sandbox   SandboxConfig   `json:"sandbox"`
	Logging   LoggingConfig   `json:"logging"`
}

// WorkspaceConfig controls where per-submission directories are
// acquired and whether they're cleaned up after judging.
type WorkspaceConfig struct {
	BaseDir string `json:"baseDir"`
	// Debug keeps workspace directories on disk after judging for
	// postmortem inspection, instead of removing them.
	Debug bool `json:"debug"`
}

// UsersConfig names the host POSIX accounts the engine drops
// privilege to for each role. Resolved to uid/gid at startup via
// os/user.
type UsersConfig struct {
	Compiler string `json:"compiler"`
	Runner   string `json:"runner"`
	SPJ      string `json:"spj"`
}

// SandboxConfig points at the re-exec helper binary.
type SandboxConfig struct {
	HelperPath string `json:"helperPath"`
}

// LoggingConfig controls the log sink. judger.log, compile.log, and
// judge_server.log collapse into one structured stream here.
type LoggingConfig struct {
	OutputPath string `json:"outputPath"`
	Debug      bool   `json:"debug"`
}
