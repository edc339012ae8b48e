package scoring

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/patrolrank/pkg/logger"
	"github.com/okian/patrolrank/pkg/metrics"
)

// WatchPolicy reloads the policy at path whenever the file is written or
// replaced and hands the new calculator to onChange. Invalid files are
// logged and the previous policy stays active. Blocks until ctx is
// cancelled.
//
// The parent directory is watched rather than the file, so saves that
// rename a temporary file over path keep being seen.
func WatchPolicy(ctx context.Context, path string, log logger.Logger, onChange func(*Calculator)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("policy watcher: watch %s: %w", filepath.Dir(path), err)
	}

	log.Info(ctx, "watching scoring policy", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			p, err := LoadPolicy(path)
			if err != nil {
				metrics.RecordPolicyReload(metrics.OutcomeError)
				log.Error(ctx, "policy reload failed, keeping previous policy",
					logger.String("path", path), logger.Error(err))
				continue
			}
			calc, err := NewCalculator(p)
			if err != nil {
				metrics.RecordPolicyReload(metrics.OutcomeError)
				log.Error(ctx, "policy rejected", logger.String("path", path), logger.Error(err))
				continue
			}

			metrics.RecordPolicyReload(metrics.OutcomeSuccess)
			log.Info(ctx, "scoring policy reloaded", logger.String("path", path))
			onChange(calc)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "policy watcher error", logger.Error(err))
		}
	}
}
