package transform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch re-transforms input files as they are created or modified, so
// curators iterating on mappings or records see fresh output without
// re-running the whole bulk pass. Blocks until ctx is cancelled.
func (b *BulkRunner) Watch(ctx context.Context, inputDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching %s: %w", inputDir, err)
	}
	defer watcher.Close()

	if err := watcher.Add(inputDir); err != nil {
		return fmt.Errorf("watching %s: %w", inputDir, err)
	}
	b.log.Info("watching for changes", zap.String("input_dir", inputDir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			if err := b.ProcessFile(event.Name); err != nil {
				b.log.Warn("watched file failed", zap.String("file", event.Name), zap.Error(err))
				continue
			}
			b.log.Info("re-transformed", zap.String("file", event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.log.Warn("watch error", zap.Error(err))
		}
	}
}
