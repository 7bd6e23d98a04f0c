package knowledge

import (
	"path"
	"sort"
	"strings"
)

// languageByExt maps file extensions to language names.
var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".php":   "php",
	".sh":    "shell",
	".sql":   "sql",
	".proto": "protobuf",
	".tf":    "terraform",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".json":  "json",
}

// tagRules maps tags to path fragments and keywords that indicate them.
var tagRules = map[string][]string{
	"golang":     {".go", "go.mod"},
	"python":     {".py", "requirements.txt", "pyproject.toml"},
	"typescript": {".ts", ".tsx", "tsconfig.json"},
	"javascript": {".js", ".jsx", "package.json"},
	"rust":       {".rs", "cargo.toml"},
	"java":       {".java", "pom.xml", "build.gradle"},

	"kubernetes": {"kubectl", "helm", "deployment.yaml", "kustomization"},
	"terraform":  {".tf", "terraform"},
	"docker":     {"dockerfile", "docker-compose"},
	"ci":         {".github/workflows", ".gitlab-ci", "jenkinsfile"},

	"testing":       {"_test.go", "test_", ".spec.", "testify", "pytest", "assert"},
	"documentation": {"readme", "docs/", "changelog"},
	"security":      {"auth", "secret", "credential", "permission", "encrypt"},

	"api":      {"grpc", "graphql", "openapi", "endpoint", "handler"},
	"database": {"database", "postgres", "mysql", "sqlite", "redis", "migration"},
	"cli":      {"cobra", "flag.", "argparse", "clap"},
}

// languages counts files per language.
func languages(files []sourceFile) map[string]int {
	counts := make(map[string]int)
	for _, f := range files {
		if lang, ok := languageByExt[strings.ToLower(path.Ext(f.Path))]; ok {
			counts[lang]++
		}
	}
	return counts
}

// tagsFor derives sorted tags from file paths and a sample of contents.
func tagsFor(files []sourceFile) []string {
	found := make(map[string]bool)
	for _, f := range files {
		lowerPath := strings.ToLower(f.Path)
		lowerContent := strings.ToLower(head(f.Content, 4096))
		for tag, keywords := range tagRules {
			if found[tag] {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(lowerPath, kw) || strings.Contains(lowerContent, kw) {
					found[tag] = true
					break
				}
			}
		}
	}

	tags := make([]string, 0, len(found))
	for tag := range found {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
