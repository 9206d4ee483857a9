package ingest

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors dir and ingests .txt files as they are dropped in or
// rewritten. It runs until ctx is cancelled.
//
// Editors and copy tools fire several events per file, so a path may be
// ingested more than once in quick succession; IngestFile replaces a file's
// chunks on every pass, which keeps the duplicate events harmless. A file
// that fails to ingest is logged and left alone until its next event.
func (s *Service) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	slog.Info("ingest: watching for documents", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".txt") {
				continue
			}

			if _, err := s.IngestFile(ctx, event.Name); err != nil {
				slog.Warn("ingest: dropped-in document failed", "file", event.Name, "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("ingest: watcher error", "err", err)
		}
	}
}
