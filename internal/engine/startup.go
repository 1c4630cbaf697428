package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStartupReconciler runs once before the watcher loop (spec §4.3):
// it diffs disk state against the index and emits the create/modify/delete
// messages needed to bring the index up to date with whatever happened
// while the daemon was not running. It never mutates the index directly —
// all changes flow through the handler, same as messages from the watcher.
type LocalStartupReconciler struct {
	root   string
	store  *Store
	queue  *Queue
	logger *slog.Logger
}

// NewLocalStartupReconciler creates a reconciler rooted at root.
func NewLocalStartupReconciler(root string, store *Store, queue *Queue, logger *slog.Logger) *LocalStartupReconciler {
	return &LocalStartupReconciler{root: root, store: store, queue: queue, logger: logger}
}

// Run walks the workspace, emits NewLocalFile/ModifiedLocalFile for
// discrepancies against the index, then emits DeletedLocalFile for every
// indexed path whose disk object no longer exists.
func (r *LocalStartupReconciler) Run(ctx context.Context) error {
	r.logger.Info("starting local startup reconciliation", slog.String("root", r.root))

	seen := make(map[RelativePath]bool)

	walkErr := filepath.WalkDir(r.root, func(fsPath string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("walk error during startup reconciliation",
				slog.String("path", fsPath), slog.String("error", err.Error()))

			return nil
		}

		if fsPath == r.root {
			return nil
		}

		if isAlwaysExcluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		relStr, err := filepath.Rel(r.root, fsPath)
		if err != nil {
			return fmt.Errorf("engine: relative path for %s: %w", fsPath, err)
		}

		rel, err := validateRelativePath(relStr)
		if err != nil {
			r.logger.Warn("skipping unrepresentable path",
				slog.String("path", relStr), slog.String("error", err.Error()))

			return nil
		}

		seen[rel] = true

		return r.reconcileEntry(ctx, rel, d)
	})
	if walkErr != nil {
		return fmt.Errorf("engine: walking workspace %s: %w", r.root, walkErr)
	}

	return r.emitDeletions(ctx, seen)
}

func (r *LocalStartupReconciler) reconcileEntry(ctx context.Context, rel RelativePath, d fs.DirEntry) error {
	known, err := r.store.RelativePathIsKnown(ctx, rel)
	if err != nil {
		return fmt.Errorf("engine: checking index for %q: %w", rel, err)
	}

	if !known {
		r.logger.Debug("startup: new local file", slog.String("path", string(rel)))
		r.queue.Push(ctx, OperationalMessage{Kind: NewLocalFile, RelativePath: rel})

		return nil
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("engine: stat %q: %w", rel, err)
	}

	indexedMtime, err := r.store.GetLastModifiedMs(ctx, rel)
	if err != nil {
		return fmt.Errorf("engine: reading indexed mtime for %q: %w", rel, err)
	}

	if info.ModTime().UnixMilli() != indexedMtime {
		r.logger.Debug("startup: modified local file", slog.String("path", string(rel)))
		r.queue.Push(ctx, OperationalMessage{Kind: ModifiedLocalFile, RelativePath: rel})
	}

	return nil
}

func (r *LocalStartupReconciler) emitDeletions(ctx context.Context, seen map[RelativePath]bool) error {
	indexed, err := r.store.GetAllRelativePaths(ctx)
	if err != nil {
		return fmt.Errorf("engine: listing indexed paths: %w", err)
	}

	for _, p := range indexed {
		if seen[p] {
			continue
		}

		if _, err := os.Stat(filepath.Join(r.root, string(p))); err == nil {
			continue // disk object exists but wasn't walked (shouldn't happen); be conservative
		}

		r.logger.Debug("startup: deleted local file", slog.String("path", string(p)))
		r.queue.Push(ctx, OperationalMessage{Kind: DeletedLocalFile, RelativePath: p})
	}

	return nil
}
