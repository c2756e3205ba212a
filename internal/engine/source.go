package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// FileSource keeps the engine's file-backed trees in step with a set of
// JSON files. Trees registered through other paths (the HTTP API, clones)
// are left alone.
type FileSource struct {
	eng    *Engine
	logger *slog.Logger

	mu     sync.Mutex
	loaded map[string]string // tree id → file
}

// NewFileSource returns a FileSource that registers into eng.
func NewFileSource(eng *Engine, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{eng: eng, logger: logger, loaded: make(map[string]string)}
}

// Sync parses every file and, only if all of them are valid, registers the
// trees and unregisters file-backed trees whose file no longer lists them.
// Re-registered trees start with fresh stats.
func (s *FileSource) Sync(files []string) error {
	next := make(map[string]string, len(files))
	trees := make([]*tree.Tree, 0, len(files))
	var errs []string
	for _, f := range files {
		t, warnings, err := tree.ReadFile(f)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		for _, w := range warnings {
			s.logger.Warn("tree validation warning", "file", f, "tree_id", t.ID, "warning", w)
		}
		if prev, dup := next[t.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate tree id %q (in %s and %s)", t.ID, prev, f))
			continue
		}
		next[t.ID] = f
		trees = append(trees, t)
	}
	if len(errs) > 0 {
		return fmt.Errorf("tree load errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trees {
		if err := s.eng.RegisterTree(t); err != nil {
			return fmt.Errorf("%s: %w", next[t.ID], err)
		}
	}
	var stale []string
	for id := range s.loaded {
		if _, ok := next[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	for _, id := range stale {
		if err := s.eng.UnregisterTree(id); err != nil {
			s.logger.Debug("stale tree already gone", "tree_id", id)
		}
	}
	s.loaded = next
	s.logger.Info("trees synced from files", "files", len(files), "trees", len(trees), "removed", len(stale))
	return nil
}
