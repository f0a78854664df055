// Package config defines the immutable engine configuration tables.
//
// The tables are passed into the scanning engine at construction time rather
// than referenced as process-wide globals so tests can substitute alternates.
package config

import "sort"

// Settings bundles every tunable table and threshold consumed by the engine.
type Settings struct {
	// BuiltinExclusions lists substrings that exclude any path containing them.
	BuiltinExclusions []string
	// TextExtensions is the extension allow-list used by the classifier.
	TextExtensions []string
	// EcosystemExtensions maps an ecosystem name to its restricted extension list.
	EcosystemExtensions map[string][]string
	// LargeFileThreshold is the size in bytes above which files are memory-mapped.
	LargeFileThreshold int64
	// BinaryCheckSize is the number of leading bytes sampled by the classifier.
	BinaryCheckSize int
	// TextThreshold is the maximum allowed fraction of non-text bytes.
	TextThreshold float64
	// ChunkSize is the number of file records written per output batch.
	ChunkSize int
	// ReadmeNames lists conventional README file names in priority order.
	ReadmeNames []string
}

// DefaultSettings returns the stock configuration tables.
func DefaultSettings() Settings {
	return Settings{
		BuiltinExclusions:   defaultBuiltinExclusions(),
		TextExtensions:      defaultTextExtensions(),
		EcosystemExtensions: defaultEcosystemExtensions(),
		LargeFileThreshold:  1024 * 1024,
		BinaryCheckSize:     8192,
		TextThreshold:       0.3,
		ChunkSize:           100,
		ReadmeNames:         []string{"README.md", "README.txt", "README", "Readme.md", "readme.md"},
	}
}

// EcosystemNames returns the names of every configured ecosystem, sorted.
func (settings Settings) EcosystemNames() []string {
	names := make([]string, 0, len(settings.EcosystemExtensions))
	for name := range settings.EcosystemExtensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveEcosystem maps a user-supplied ecosystem alias to its canonical name.
func ResolveEcosystem(alias string) (string, bool) {
	canonicalName, known := ecosystemAliases[alias]
	return canonicalName, known
}

var ecosystemAliases = map[string]string{
	"rs":         "rust",
	"rust":       "rust",
	"py":         "python",
	"python":     "python",
	"js":         "javascript",
	"javascript": "javascript",
	"ts":         "javascript",
	"typescript": "javascript",
	"go":         "go",
	"golang":     "go",
	"java":       "java",
}

func defaultBuiltinExclusions() []string {
	return []string{
		".git/",
		"node_modules/",
		"target/",
		"build/",
		"dist/",
		"bin/",
		".tiktoken",
		".bin",
		".pack",
		".idx",
		".cache",
		"package-lock.json",
		"yarn.lock",
		"Cargo.lock",
		"venv/",
		".venv/",
		"env/",
		"__pycache__/",
		".pytest_cache/",
		".svn/",
		".hg/",
		".DS_Store",
		".idea/",
		".vs/",
		".vscode/",
		".gradle/",
		"out/",
		"coverage/",
		"tmp/",
	}
}

func defaultTextExtensions() []string {
	return []string{
		// Programming languages
		"rs", "py", "js", "ts", "java", "c", "cpp", "h", "hpp", "cs", "go",
		"rb", "php", "scala", "kt", "kts", "swift", "m", "mm", "r", "pl",
		"pm", "t", "sh", "bash", "zsh", "fish",
		// Web
		"html", "htm", "css", "scss", "sass", "less", "jsx", "tsx", "vue", "svelte",
		// Data and configuration
		"json", "yaml", "yml", "toml", "xml", "csv", "ini", "conf", "config", "properties",
		// Documentation
		"md", "markdown", "rst", "txt", "asciidoc", "adoc", "tex",
		// Other
		"sql", "graphql", "proto", "cmake", "make", "dockerfile", "editorconfig", "gitignore",
	}
}

func defaultEcosystemExtensions() map[string][]string {
	return map[string][]string{
		"rust":       {"rs", "toml"},
		"python":     {"py", "pyi", "pyx", "pxd", "txt", "cfg", "toml"},
		"javascript": {"js", "jsx", "ts", "tsx", "json"},
		"go":         {"go", "mod", "sum"},
		"java":       {"java", "gradle", "xml", "properties"},
	}
}
