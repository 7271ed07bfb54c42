package language

import "fmt"

var defaultEnv = []string{"LANG=en_US.UTF-8", "LANGUAGE=en_US:en", "LC_ALL=en_US.UTF-8"}

// CStandards and CppStandards are the closed sets languages.py
// validates `options.version` against.
var CStandards = map[string]bool{
	"c89": true, "c90": true, "c99": true, "c11": true, "c17": true, "c18": true,
	"gnu89": true, "gnu90": true, "gnu99": true, "gnu11": true, "gnu17": true, "gnu18": true,
}

var CppStandards = map[string]bool{
	"c++98": true, "c++03": true, "c++11": true, "c++14": true, "c++17": true, "c++20": true, "c++23": true,
	"gnu++98": true, "gnu++03": true, "gnu++11": true, "gnu++14": true, "gnu++17": true, "gnu++20": true, "gnu++23": true,
}

// registry is the closed table of supported languages.
var registry = map[string]Profile{
	"c": {
		ID:                 "c",
		SourceFilename:     "main.c",
		ExeFilename:        "main",
		CompileCmdTemplate: "/usr/bin/gcc -DONLINE_JUDGE -w -std={std} -O2 -fmax-errors=3 {src_path} -lm -o {exe_path}",
		ExecuteCmdTemplate: "{exe_path}",
		CompileCPUMs:       3000,
		CompileRealMs:      10000,
		CompileMemBytes:    256 * 1024 * 1024,
		SeccompPolicy:      "c_cpp",
		Env:                defaultEnv,
		Compiled:           true,
		Std:                "c11",
	},
	"cpp": {
		ID:                 "cpp",
		SourceFilename:     "main.cpp",
		ExeFilename:        "main",
		CompileCmdTemplate: "/usr/bin/g++ -DONLINE_JUDGE -w -std={std} -O2 -fmax-errors=3 {src_path} -lm -o {exe_path}",
		ExecuteCmdTemplate: "{exe_path}",
		CompileCPUMs:       10000,
		CompileRealMs:      20000,
		CompileMemBytes:    1024 * 1024 * 1024,
		SeccompPolicy:      "c_cpp",
		Env:                defaultEnv,
		Compiled:           true,
		Std:                "c++14",
	},
	"java": {
		ID:                 "java",
		SourceFilename:     "Main.java",
		ExeFilename:        "Main",
		CompileCmdTemplate: "/usr/bin/javac {src_path} -d {exe_dir} -encoding UTF8",
		ExecuteCmdTemplate: "/usr/bin/java -cp {exe_dir} -XX:MaxRAM={max_memory}k -Djava.security.manager " +
			"-Dfile.encoding=UTF-8 -Djava.security.policy==/etc/java_policy -Djava.awt.headless=true Main",
		CompileCPUMs:    5000,
		CompileRealMs:   10000,
		CompileMemBytes: -1,
		SeccompPolicy:   "",
		Env:             defaultEnv,
		Compiled:        true,
		MemoryCheckOnly: true,
	},
	"py": {
		ID:                 "py",
		SourceFilename:     "main.py",
		ExeFilename:        "main.py",
		CompileCmdTemplate: "/usr/bin/python3 -m py_compile {src_path}",
		ExecuteCmdTemplate: "/usr/bin/python3 {exe_path}",
		CompileCPUMs:       3000,
		CompileRealMs:      10000,
		CompileMemBytes:    128 * 1024 * 1024,
		SeccompPolicy:      "general",
		Env:                append(append([]string{}, defaultEnv...), "PYTHONIOENCODING=utf-8"),
		// py_compile just byte-compiles; the source is still what's
		// executed. Compiled is false, as in the prototype, so the
		// compile step is skipped and CompileCmdTemplate is never run.
		Compiled: false,
	},
	"go": {
		ID:                 "go",
		SourceFilename:     "main.go",
		ExeFilename:        "main",
		CompileCmdTemplate: "/usr/bin/go build -o {exe_path} {src_path}",
		ExecuteCmdTemplate: "{exe_path}",
		CompileCPUMs:       3000,
		CompileRealMs:      5000,
		CompileMemBytes:    1024 * 1024 * 1024,
		SeccompPolicy:      "golang",
		Env:                append(append([]string{}, defaultEnv...), "GODEBUG=madvdontneed=1", "GOCACHE=/tmp", "GOPATH=/tmp/go"),
		Compiled:           true,
		MemoryCheckOnly:    true,
	},
	"php": {
		ID:                 "php",
		SourceFilename:     "solution.php",
		ExeFilename:        "solution.php",
		ExecuteCmdTemplate: "/usr/bin/php {exe_path}",
		SeccompPolicy:      "",
		Env:                defaultEnv,
		MemoryCheckOnly:    true,
		Compiled:           false,
	},
	"js": {
		ID:                 "js",
		SourceFilename:     "solution.js",
		ExeFilename:        "solution.js",
		ExecuteCmdTemplate: "/usr/bin/node {exe_path}",
		SeccompPolicy:      "node",
		Env:                append(append([]string{}, defaultEnv...), "NO_COLOR=true"),
		MemoryCheckOnly:    true,
		Compiled:           false,
	},
}

// Registry resolves language ids to Profiles.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns the closed, built-in language set.
func NewRegistry() *Registry {
	return &Registry{profiles: registry}
}

// Resolve returns the Profile for id, specialized for the submission's
// IO mode and options, or an error if id is not supported or its
// options are invalid.
func (r *Registry) Resolve(id string, mode IOMode, opts Options) (Profile, error) {
	base, ok := r.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("unsupported language: %s", id)
	}
	if id == "c" || id == "cpp" {
		std := base.Std
		if opts.Version != "" {
			std = opts.Version
		}
		if id == "c" && !CStandards[std] {
			return Profile{}, fmt.Errorf("unsupported C standard: %s", std)
		}
		if id == "cpp" && !CppStandards[std] {
			return Profile{}, fmt.Errorf("unsupported C++ standard: %s", std)
		}
	}
	return base.ForIOMode(mode, opts), nil
}

// IDs returns the supported language identifiers.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	return ids
}
