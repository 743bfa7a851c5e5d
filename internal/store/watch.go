package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch evicts cached histories whose session files change on disk, so the
// next access rereads what another process wrote. The store's own writes
// evict too; the reload then reads back the file just written. Watch blocks
// until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := os.MkdirAll(s.config.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}
	if err := w.Add(s.config.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.config.Dir, err)
	}
	s.logger.Info("watching storage dir", zap.String("dir", s.config.Dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&watchOps == 0 {
				continue
			}
			if pid, ok := projectFromSessionPath(ev.Name); ok {
				s.Invalidate(pid)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("storage watch error", zap.Error(err))
		}
	}
}

// Invalidate drops the cached history of a project. The next operation on
// it reloads the session file.
func (s *Store) Invalidate(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.histories[projectID]; !ok {
		return
	}
	delete(s.histories, projectID)
	s.logger.Debug("cached history invalidated", zap.String("project", projectID))
}

func projectFromSessionPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, sessionSuffix) {
		return "", false
	}
	pid := strings.TrimSuffix(name, sessionSuffix)
	return pid, pid != ""
}
