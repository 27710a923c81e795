package chunker

import (
	"path"
	"sort"
	"strings"

	"github.com/dshills/knowthecode/pkg/types"
)

// extLanguages maps lowercase file extensions to language tags
var extLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".mts":   "typescript",
	".cts":   "typescript",
	".tsx":   "tsx",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".cxx":   "cpp",
	".hh":    "cpp",
	".hpp":   "cpp",
	".hxx":   "cpp",
	".cs":    "csharp",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".swift": "swift",
	".scala": "scala",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "bash",
	".lua":   "lua",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
	".sql":   "sql",
	".proto": "protobuf",
	".tf":    "hcl",
	".hcl":   "hcl",
	".md":    types.LangMarkdown,
	".mdx":   types.LangMarkdown,
	".json":  types.LangJSON,
	".jsonc": types.LangJSON,
	".txt":   types.LangText,
	".rst":   types.LangText,
}

// baseLanguages maps well-known extensionless file names to language tags
var baseLanguages = map[string]string{
	"Dockerfile":  "dockerfile",
	"Makefile":    "make",
	"GNUmakefile": "make",
	"Gemfile":     "ruby",
	"Rakefile":    "ruby",
	"README":      types.LangText,
	"LICENSE":     types.LangText,
}

// DetectLanguage returns the language tag for a repo-relative path, or "" if unknown
func DetectLanguage(filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	if lang, ok := baseLanguages[base]; ok {
		return lang
	}
	if strings.HasPrefix(base, "Dockerfile.") {
		return "dockerfile"
	}

	ext := strings.ToLower(path.Ext(base))
	if ext == "" {
		return ""
	}
	return extLanguages[ext]
}

// IsSupported reports whether the path has a known language
func IsSupported(filePath string) bool {
	return DetectLanguage(filePath) != ""
}

// KnownExtensions returns every extension in the detection table, sorted
func KnownExtensions() []string {
	exts := make([]string, 0, len(extLanguages))
	for ext := range extLanguages {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
