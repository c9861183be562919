package chunker

import (
	"path/filepath"
	"strings"

	"github.com/docweaver/docweaver-go/internal/rag"
)

// textExts maps prose-like file suffixes to the text class.
var textExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".rst":      true,
	".txt":      true,
	".adoc":     true,
}

// codeExts maps source and config file suffixes to a language hint.
// Config formats are classed as code: installation and API sections retrieve
// env vars and settings from them alongside real source files.
var codeExts = map[string]string{
	".py":    "python",
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".tf":    "terraform",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".json":  "json",
	".ini":   "ini",
	".cfg":   "ini",
	".env":   "dotenv",
}

// skipDirs lists directory names that never contain indexable project
// content. Dot-directories (.git, .venv, …) are skipped by name prefix.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
}

// Classify returns the extension class and optional language hint for the
// file at path. README-style files are text regardless of suffix, so a bare
// "README" is indexed alongside "README.md".
func Classify(path string) (rag.ExtClass, string) {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, "readme") {
		return rag.ClassText, ""
	}

	ext := strings.ToLower(filepath.Ext(base))
	if textExts[ext] {
		return rag.ClassText, ""
	}
	if lang, ok := codeExts[ext]; ok {
		return rag.ClassCode, lang
	}
	return rag.ClassOther, ""
}

// skipDir reports whether the directory with the given name should be
// pruned from the walk.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	return skipDirs[name]
}
