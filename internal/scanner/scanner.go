// Package scanner reads a target repository into a structured form the
// advisor can reason over: a file tree, bounded file contents, and
// aggregate stats.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/repopilot/repo-pilot/internal/domain"
)

// MaxFileSize is the per-file content cap in bytes sent to the model
const MaxFileSize = 8_000

// MaxContextChars is the total context budget for a single model call
const MaxContextChars = 60_000

var skipDirs = map[string]bool{
	".git": true, ".venv": true, "venv": true, "__pycache__": true,
	"node_modules": true, ".mypy_cache": true, ".pytest_cache": true,
	"dist": true, "build": true, "vendor": true, ".tox": true,
}

var analyzableExts = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".jsx": true,
	".tsx": true, ".md": true, ".yml": true, ".yaml": true, ".json": true,
	".toml": true, ".cfg": true, ".ini": true, ".txt": true, ".sh": true,
	".html": true, ".css": true, ".sql": true, ".mod": true,
}

// File is one scanned file's content and size info
type File struct {
	Content string
	Size    int64
	Lines   int
	Ext     string
}

// Result is a structured snapshot of a repository
type Result struct {
	Tree  []string
	Files map[string]File
	Stats domain.ScanStats
}

// Scan walks repoPath and returns its structure and bounded contents.
// It returns an error if the path is not a directory.
func Scan(repoPath string) (*Result, error) {
	info, err := os.Stat(repoPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("repository path does not exist: %s", repoPath)
	}

	res := &Result{
		Files: make(map[string]File),
		Stats: domain.ScanStats{Languages: make(map[string]int)},
	}

	err = filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(repoPath, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		res.Tree = append(res.Tree, rel)

		ext := strings.ToLower(filepath.Ext(path))
		if !analyzableExts[ext] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content := string(data)
		if len(content) > MaxFileSize {
			content = content[:MaxFileSize] + "\n... [TRUNCATED]"
		}
		lines := strings.Count(content, "\n") + 1

		res.Files[rel] = File{
			Content: content,
			Size:    int64(len(data)),
			Lines:   lines,
			Ext:     ext,
		}
		res.Stats.TotalLines += lines
		res.Stats.Languages[ext] += lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(res.Tree)
	res.Stats.TotalFiles = len(res.Tree)
	res.Stats.AnalyzableFiles = len(res.Files)
	return res, nil
}

// TreeString renders the flat file list as an indented tree
func (r *Result) TreeString() string {
	var b strings.Builder
	for _, path := range r.Tree {
		parts := strings.Split(path, "/")
		b.WriteString(strings.Repeat("  ", len(parts)-1))
		b.WriteString("├── ")
		b.WriteString(parts[len(parts)-1])
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FileSummary builds a fenced-content summary of scanned files within a
// character budget. Source files are prioritized over docs and config,
// smallest first, to fit as many files as possible.
func (r *Result) FileSummary(maxChars int) string {
	if maxChars <= 0 {
		maxChars = MaxContextChars
	}

	priority := map[string]int{".go": 0, ".py": 0, ".yml": 1, ".yaml": 1, ".sh": 2}
	type entry struct {
		path string
		file File
	}
	entries := make([]entry, 0, len(r.Files))
	for path, file := range r.Files {
		entries = append(entries, entry{path, file})
	}
	sort.Slice(entries, func(i, j int) bool {
		pi, pj := extPriority(priority, entries[i].file.Ext), extPriority(priority, entries[j].file.Ext)
		if pi != pj {
			return pi < pj
		}
		if entries[i].file.Lines != entries[j].file.Lines {
			return entries[i].file.Lines < entries[j].file.Lines
		}
		return entries[i].path < entries[j].path
	})

	var b strings.Builder
	included := 0
	for _, e := range entries {
		section := fmt.Sprintf("### %s (%d lines)\n```%s\n%s\n```\n\n",
			e.path, e.file.Lines, strings.TrimPrefix(e.file.Ext, "."), e.file.Content)
		if b.Len()+len(section) > maxChars {
			fmt.Fprintf(&b, "... [%d more files omitted due to context budget]\n", len(entries)-included)
			break
		}
		b.WriteString(section)
		included++
	}
	return b.String()
}

func extPriority(priority map[string]int, ext string) int {
	if p, ok := priority[ext]; ok {
		return p
	}
	return 3
}
