package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval is the coalescing window for local filesystem events
// (spec §4.2).
const debounceInterval = 1 * time.Second

// renamePairWindow bounds how long a bare Rename (old path gone) waits for
// the paired Create (new path appeared) before it is treated as a plain
// deletion. fsnotify's public Event carries no rename correlation cookie
// (unlike the raw inotify mask), so pairing is done here by proximity in
// time — the same technique notify-crate-based watchers use when the
// underlying OS API doesn't expose one event per rename.
const renamePairWindow = 200 * time.Millisecond

// FsWatcher abstracts filesystem event monitoring so the engine can be
// tested against a fake. Satisfied by *fsnotify.Watcher via fsnotifyWrapper.
type FsWatcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWrapper struct {
	w *fsnotify.Watcher
}

func (fw *fsnotifyWrapper) Add(name string) error         { return fw.w.Add(name) }
func (fw *fsnotifyWrapper) Remove(name string) error      { return fw.w.Remove(name) }
func (fw *fsnotifyWrapper) Close() error                  { return fw.w.Close() }
func (fw *fsnotifyWrapper) Events() <-chan fsnotify.Event { return fw.w.Events }
func (fw *fsnotifyWrapper) Errors() <-chan error          { return fw.w.Errors }

// LocalWatcher wraps a recursive, debounced filesystem notifier rooted at
// the canonical workspace path and translates raw events into operational
// messages per the table in spec §4.2.
type LocalWatcher struct {
	root           string
	queue          *Queue
	logger         *slog.Logger
	watcherFactory func() (FsWatcher, error)

	mu            sync.Mutex
	timers        map[string]*time.Timer
	lastOps       map[string]fsnotify.Op
	pendingRename *pendingRename
}

type pendingRename struct {
	absPath string
	timer   *time.Timer
}

// NewLocalWatcher creates a watcher rooted at root. Echo suppression is not
// done here; it happens centrally in Handler.Run against the ignore list,
// since the remote watcher's messages need the same check (spec §4.5/§4.6).
func NewLocalWatcher(root string, queue *Queue, logger *slog.Logger) *LocalWatcher {
	return &LocalWatcher{
		root:   root,
		queue:  queue,
		logger: logger,
		watcherFactory: func() (FsWatcher, error) {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return nil, err
			}

			return &fsnotifyWrapper{w: w}, nil
		},
		timers:  make(map[string]*time.Timer),
		lastOps: make(map[string]fsnotify.Op),
	}
}

// Run adds recursive watches under root and translates events until ctx is
// canceled.
func (w *LocalWatcher) Run(ctx context.Context) error {
	watcher, err := w.watcherFactory()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addWatchesRecursive(watcher); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			w.handleEvent(ctx, watcher, ev)
		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			w.logger.Error("local watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *LocalWatcher) addWatchesRecursive(watcher FsWatcher) error {
	return filepath.WalkDir(w.root, func(fsPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("walk error during watch setup",
				slog.String("path", fsPath), slog.String("error", walkErr.Error()))

			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if fsPath != w.root && isAlwaysExcluded(d.Name()) {
			return filepath.SkipDir
		}

		if err := watcher.Add(fsPath); err != nil {
			w.logger.Warn("failed to add watch",
				slog.String("path", fsPath), slog.String("error", err.Error()))
		}

		return nil
	})
}

// handleEvent resolves rename pairing and debouncing, then schedules a
// flush for the path.
func (w *LocalWatcher) handleEvent(ctx context.Context, watcher FsWatcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return // chmod is suppressed per the translation table
	}

	name := filepath.Base(ev.Name)
	if isAlwaysExcluded(name) {
		return
	}

	// A new directory needs its own watch added immediately so nested
	// creates inside it are not missed while any debounce timer is pending.
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if err := watcher.Add(ev.Name); err != nil {
				w.logger.Warn("failed to add watch for new directory",
					slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
		}
	}

	w.mu.Lock()

	if ev.Op&fsnotify.Rename != 0 {
		w.startPendingRename(ctx, ev.Name)
		w.mu.Unlock()

		return
	}

	if ev.Op&fsnotify.Create != 0 && w.pendingRename != nil {
		before := w.pendingRename.absPath
		w.pendingRename.timer.Stop()
		w.pendingRename = nil
		w.mu.Unlock()

		w.emitRename(ctx, before, ev.Name)

		return
	}

	w.lastOps[ev.Name] = ev.Op

	if t, ok := w.timers[ev.Name]; ok {
		t.Stop()
	}

	w.timers[ev.Name] = time.AfterFunc(debounceInterval, func() {
		w.flush(ctx, ev.Name)
	})

	w.mu.Unlock()
}

// startPendingRename records a bare Rename (source path gone) and arms a
// timer that demotes it to a plain deletion if no paired Create arrives.
// Caller holds w.mu.
func (w *LocalWatcher) startPendingRename(ctx context.Context, absPath string) {
	if w.pendingRename != nil {
		w.pendingRename.timer.Stop()
		w.flushDeletion(ctx, w.pendingRename.absPath)
	}

	w.pendingRename = &pendingRename{absPath: absPath}
	w.pendingRename.timer = time.AfterFunc(renamePairWindow, func() {
		w.mu.Lock()
		if w.pendingRename != nil && w.pendingRename.absPath == absPath {
			w.pendingRename = nil
		}
		w.mu.Unlock()

		w.flushDeletion(ctx, absPath)
	})
}

func (w *LocalWatcher) flushDeletion(ctx context.Context, absPath string) {
	rel, ok := w.relativeOf(absPath)
	if !ok {
		return
	}

	w.dispatch(ctx, OperationalMessage{Kind: DeletedLocalFile, RelativePath: rel})
}

func (w *LocalWatcher) emitRename(ctx context.Context, beforeAbs, afterAbs string) {
	before, ok := w.relativeOf(beforeAbs)
	if !ok {
		return
	}

	after, ok := w.relativeOf(afterAbs)
	if !ok {
		return
	}

	w.dispatch(ctx, OperationalMessage{Kind: RenamedLocalFile, BeforePath: before, AfterPath: after})
}

// flush emits the operational message for the most recently observed
// operation on absPath once its debounce window has elapsed.
func (w *LocalWatcher) flush(ctx context.Context, absPath string) {
	w.mu.Lock()
	op, ok := w.lastOps[absPath]
	delete(w.lastOps, absPath)
	delete(w.timers, absPath)
	w.mu.Unlock()

	if !ok {
		return
	}

	rel, relOK := w.relativeOf(absPath)
	if !relOK {
		return
	}

	var msg OperationalMessage

	switch {
	case op&fsnotify.Create != 0:
		msg = OperationalMessage{Kind: NewLocalFile, RelativePath: rel}
	case op&fsnotify.Write != 0:
		msg = OperationalMessage{Kind: ModifiedLocalFile, RelativePath: rel}
	case op&fsnotify.Remove != 0:
		msg = OperationalMessage{Kind: DeletedLocalFile, RelativePath: rel}
	default:
		return
	}

	w.dispatch(ctx, msg)
}

// dispatch enqueues msg unconditionally. Echo suppression is not done here:
// it happens centrally in Handler.Run, which is the sole consumer of every
// message regardless of which producer emitted it (spec §4.5/§4.6, "on
// consumption ... skip").
func (w *LocalWatcher) dispatch(ctx context.Context, msg OperationalMessage) {
	w.queue.Push(ctx, msg)
}

func (w *LocalWatcher) relativeOf(absPath string) (RelativePath, bool) {
	relStr, err := filepath.Rel(w.root, absPath)
	if err != nil || strings.HasPrefix(relStr, "..") {
		w.logger.Error("watcher event outside workspace", slog.String("path", absPath))

		return "", false
	}

	rel, err := validateRelativePath(relStr)
	if err != nil {
		w.logger.Error("invalid relative path from watcher",
			slog.String("path", relStr), slog.String("error", err.Error()))

		return "", false
	}

	return rel, true
}
