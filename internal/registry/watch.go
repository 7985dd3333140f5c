package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions tunes Watch.
type WatchOptions struct {
	// Debounce collapses bursts of writes (editors often write then rename).
	Debounce time.Duration
	// Now stamps reloaded snapshots. Defaults to time.Now.
	Now func() time.Time
	// OnReload, when set, is called after every reload attempt.
	OnReload func(snap *Snapshot, err error)
}

// Watch reloads the registry file into holder whenever it changes, until ctx
// is cancelled. A reload that fails validation keeps the previous snapshot in
// place. The parent directory is watched so atomic renames are seen.
func Watch(ctx context.Context, path string, holder *Holder, logger *slog.Logger, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating registry watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolving registry path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(opts.Debounce)
				} else {
					timer.Reset(opts.Debounce)
				}
				fire = timer.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WarnContext(ctx, "registry watcher error", "error", err)
			case <-fire:
				fire = nil
				reload(ctx, abs, holder, logger, opts)
			}
		}
	}()
	return nil
}

func reload(ctx context.Context, path string, holder *Holder, logger *slog.Logger, opts WatchOptions) {
	snap, err := Load(ctx, FileSource{Path: path}, opts.Now())
	if err != nil {
		logger.ErrorContext(ctx, "registry reload failed, keeping previous snapshot",
			"path", path,
			"error", err,
		)
	} else {
		prev := holder.Publish(snap)
		attrs := []any{"path", path, "version", snap.Version(), "entries", snap.Len()}
		if prev != nil {
			attrs = append(attrs, "previous_version", prev.Version())
		}
		logger.InfoContext(ctx, "registry reloaded", attrs...)
	}
	if opts.OnReload != nil {
		opts.OnReload(snap, err)
	}
}
