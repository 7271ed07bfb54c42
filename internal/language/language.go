// Package language implements the judge engine's closed set of
// supported languages, each carrying the command templates, resource
// caps, and seccomp policy the rest of the pipeline needs.
package language

// IOMode selects whether the submitted program talks over stdio or
// reads/writes declared filenames.
type IOMode string

const (
	IOStdio IOMode = "stdio"
	IOFile  IOMode = "file"
)

// Options carries the per-submission knobs the prototype exposes for
// C/C++: the language standard and the Address/Leak Sanitizer
// toggles.
type Options struct {
	// Version selects the compiler's -std= flag (e.g. "c11", "c++17").
	// Empty means the language's default.
	Version string
	// EnableASan turns on AddressSanitizer for C/C++. When set, the
	// seccomp policy switches to "c_cpp_asan" and memory limits become
	// advisory-only, because ASan's shadow memory dwarfs the user
	// program's real working set.
	EnableASan bool
	// EnableLSan turns on LeakSanitizer alongside ASan. When false,
	// ASAN_OPTIONS=detect_leaks=0 is appended to the environment.
	EnableLSan bool
}

// Profile is the immutable per-judge-call language description.
type Profile struct {
	ID string

	SourceFilename string
	ExeFilename    string

	// CompileCmdTemplate is parametric over {src_path,exe_dir,exe_path}.
	// Empty means the language is interpreted (Compiled == false).
	CompileCmdTemplate string
	// ExecuteCmdTemplate is parametric over {exe_path,exe_dir,max_memory}.
	ExecuteCmdTemplate string

	CompileCPUMs    int64
	CompileRealMs   int64
	CompileMemBytes int64

	// SeccompPolicy names one of the policies in package sandbox, or
	// "" for none (e.g. PHP).
	SeccompPolicy string

	// Env lists KEY=VALUE pairs; PATH is appended by the sandbox at
	// run time.
	Env []string

	// MemoryCheckOnly: the sandbox must report, not enforce, memory
	// for this language (GC'd/JIT'd runtimes reserve far more address
	// space than the user's working set).
	MemoryCheckOnly bool

	// Compiled gates the compile step.
	Compiled bool

	// Std carries the resolved C/C++ standard (e.g. "c11", "c++17");
	// empty for all other languages. Substituted into
	// CompileCmdTemplate's {std} token by the compiler driver.
	Std string
}

// ForIOMode returns a Profile specialized for one judge call: it
// resolves the C/C++ standard and ASan/LSan-dependent seccomp policy,
// which the prototype encodes as computed properties
// (languages.py CConfig.seccomp_rule) rather than static fields.
func (p Profile) ForIOMode(mode IOMode, opts Options) Profile {
	out := p
	if opts.Version != "" {
		out.Std = opts.Version
	}
	if p.ID == "c" || p.ID == "cpp" {
		if opts.EnableASan {
			out.SeccompPolicy = "c_cpp_asan"
			out.MemoryCheckOnly = true
		} else if mode == IOFile {
			out.SeccompPolicy = "c_cpp_file_io"
		} else {
			out.SeccompPolicy = "c_cpp"
		}
		if !opts.EnableLSan {
			out.Env = append(append([]string{}, p.Env...), "ASAN_OPTIONS=detect_leaks=0")
		}
	}
	return out
}
