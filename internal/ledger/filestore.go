package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/repopilot/repo-pilot/internal/domain"
)

// FileStore persists one JSON file per run under a directory. It is the
// fallback used when the database is unreachable, and the unconditional
// end-of-run dump target. Run IDs embed a sortable timestamp, so listing
// by filename yields newest-first ordering.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the runs directory
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) path(runID string) string {
	return filepath.Join(f.dir, runID+".json")
}

// SaveRun writes the full run record as indented JSON.
// Returns the file path written.
func (f *FileStore) SaveRun(run *domain.PipelineRun) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", err
	}

	path := f.path(run.RunID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing run log: %w", err)
	}
	return path, nil
}

// LoadRun reads a run record by ID. Returns ErrNotFound if no file exists.
func (f *FileStore) LoadRun(runID string) (*domain.PipelineRun, error) {
	data, err := os.ReadFile(f.path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var run domain.PipelineRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decoding run log %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns lists stored runs newest first, honoring the status filter
// and limit. Unreadable files are skipped.
func (f *FileStore) ListRuns(opts ListOptions) ([]*domain.PipelineRun, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var runs []*domain.PipelineRun
	for _, name := range names {
		if opts.Limit > 0 && len(runs) >= opts.Limit {
			break
		}
		run, err := f.LoadRun(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		if opts.Status != "" && run.Status != opts.Status {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
