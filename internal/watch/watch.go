// Package watch re-runs the copy pass when the CMS drops new files into the
// upload tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"pihla/internal/codec"
	"pihla/internal/failures"
	"pihla/internal/logging"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Trigger runs one pipeline pass.
type Trigger func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	Debounce   time.Duration
	TempSuffix string
	// RunOnStart fires the trigger once before waiting for events.
	RunOnStart bool
	Logger     *slog.Logger
}

// Watcher observes a directory tree and fires a Trigger once the tree has
// been quiet for the debounce period. Triggers never overlap.
type Watcher struct {
	root    string
	opts    Options
	trigger Trigger
	logger  *slog.Logger
	ready   chan struct{}
}

// New returns a Watcher for root.
func New(root string, trigger Trigger, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		root:    root,
		opts:    opts,
		trigger: trigger,
		logger:  logging.NewComponentLogger(opts.Logger, "watch"),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the initial directory registration is complete.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run blocks until ctx is canceled. A missing root is a configuration error.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil || !info.IsDir() {
		return failures.Wrap(failures.ErrConfiguration, "watch", "open root",
			fmt.Sprintf("%s is not a directory", w.root), err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return failures.Wrap(failures.ErrIO, "watch", "create watcher", w.root, err)
	}
	defer fsw.Close()

	count, err := w.addTree(fsw, w.root)
	if err != nil {
		return err
	}
	w.logger.Info("watching uploads",
		logging.String("dir", w.root),
		logging.Int("directories", count),
		logging.Duration("debounce", w.opts.Debounce),
		logging.String(logging.FieldEventType, "watch_started"),
	)
	close(w.ready)

	if w.opts.RunOnStart {
		w.fire(ctx)
	}

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stopped"))
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(fsw, event) {
				continue
			}
			w.logger.Debug("change detected",
				logging.String(logging.FieldPath, w.display(event.Name)),
				logging.String("op", event.Op.String()),
			)
			timer.Reset(w.opts.Debounce)
			pending = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches if the tree is large"),
				logging.String(logging.FieldImpact, "some changes may be missed until the next event"),
			)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	if err := w.trigger(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.ErrorWithContext(w.logger, "pass failed", "watch_pass_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, failures.Hint(err)),
		)
		return
	}
	w.logger.Debug("pass finished", logging.Duration("elapsed", time.Since(started)))
}

// relevant reports whether event should schedule a pass. New directories are
// registered as a side effect.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if w.opts.TempSuffix != "" && strings.HasSuffix(name, w.opts.TempSuffix) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addTree(fsw, event.Name); err != nil {
				logging.WarnWithContext(w.logger, "cannot watch new folder", "watch_add_failed",
					logging.String(logging.FieldPath, w.display(event.Name)),
					logging.Error(err),
				)
			}
			return true
		}
	}
	_, ok := codec.FormatFromPath(name)
	return ok
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, failures.Wrap(failures.ErrIO, "watch", "register directory", dir, err)
	}
	return count, nil
}

func (w *Watcher) display(path string) string {
	if rel, err := filepath.Rel(w.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
