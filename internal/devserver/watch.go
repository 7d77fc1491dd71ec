package devserver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	redisstore "github.com/gosuda/surveydesk/internal/store/redis"
)

// Watch reports source changes under the root to reload clients and the
// notifier until ctx is done. fsnotify is not recursive, so every directory
// is added on start and new directories as they appear.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("devserver.Watch: %w", err)
	}

	if err := addTree(watcher, s.cfg.Root); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("devserver.Watch: %w", err)
	}

	log.Info().Str("root", s.cfg.Root).Msg("watching sources")
	s.runWatcher(ctx, watcher)
	return nil
}

func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	var (
		debounceTimer *time.Timer
		pending       = make(chan string, 1)
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Editors save through rename and remove as often as write.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if err := addTree(watcher, event.Name); err != nil {
					log.Debug().Err(err).Str("path", event.Name).Msg("watch new path")
				}
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			path := s.relative(event.Name)
			debounceTimer = time.AfterFunc(s.debounce, func() {
				select {
				case pending <- path:
				default:
				}
			})

		case path := <-pending:
			log.Info().Str("path", path).Msg("source changed")
			s.publish(ctx, redisstore.NewAssetEvent(redisstore.EventChanged, path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("file watcher error")
		}
	}
}

func (s *Server) relative(path string) string {
	rel, err := filepath.Rel(s.cfg.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// addTree watches root and every directory below it, skipping hidden
// directories and node_modules.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
