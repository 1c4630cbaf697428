package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRemotePollInterval is used when configuration does not override it.
const DefaultRemotePollInterval = 15 * time.Second

// RemoteWatcher is the remote-side counterpart to LocalWatcher and
// LocalStartupReconciler combined: the hub's HTTP contract gives no push
// notifications, so "observing" the remote side means periodically listing
// the whole content tree and diffing it against the index (spec §4.3's
// "remote-side startup reconciliation is symmetric and performed by the
// collaborator remote watcher", and §6.2's polling contract).
type RemoteWatcher struct {
	hub          HubClient
	store        *Store
	queue        *Queue
	logger       *slog.Logger
	pollInterval time.Duration
}

// NewRemoteWatcher creates a watcher polling hub at pollInterval.
func NewRemoteWatcher(hub HubClient, store *Store, queue *Queue, logger *slog.Logger, pollInterval time.Duration) *RemoteWatcher {
	if pollInterval <= 0 {
		pollInterval = DefaultRemotePollInterval
	}

	return &RemoteWatcher{hub: hub, store: store, queue: queue, logger: logger, pollInterval: pollInterval}
}

// RunStartup performs one synchronous poll-and-diff pass before the engine's
// main loop starts, so a content id created or deleted while the daemon was
// down is reconciled the same way a disk change is reconciled by the local
// startup reconciler.
func (w *RemoteWatcher) RunStartup(ctx context.Context) error {
	w.logger.Info("starting remote startup reconciliation")

	return w.pollOnce(ctx)
}

// Run polls at pollInterval until ctx is canceled.
func (w *RemoteWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.pollOnce(ctx); err != nil {
				w.logger.Error("remote poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (w *RemoteWatcher) pollOnce(ctx context.Context) error {
	contents, err := w.hub.PollChanges(ctx)
	if err != nil {
		return fmt.Errorf("engine: polling hub: %w", err)
	}

	seen := make(map[ContentId]bool, len(contents))

	for _, rc := range contents {
		seen[rc.ContentId] = true

		known, err := w.store.ContentIdIsKnown(ctx, rc.ContentId)
		if err != nil {
			return fmt.Errorf("engine: checking index for content id %d: %w", rc.ContentId, err)
		}

		if !known {
			w.logger.Debug("remote poll: new remote file", slog.Int64("content_id", int64(rc.ContentId)))
			w.queue.Push(ctx, OperationalMessage{Kind: NewRemoteFile, ContentId: rc.ContentId})

			continue
		}

		indexedPath, err := w.store.GetPathFromContentId(ctx, rc.ContentId)
		if err != nil {
			return fmt.Errorf("engine: resolving indexed path for content id %d: %w", rc.ContentId, err)
		}

		indexedRev, err := w.store.GetRevisionId(ctx, indexedPath)
		if err != nil {
			return fmt.Errorf("engine: resolving indexed revision for %q: %w", indexedPath, err)
		}

		if rc.CurrentRevisionId != indexedRev {
			w.logger.Debug("remote poll: modified remote file", slog.Int64("content_id", int64(rc.ContentId)))
			w.queue.Push(ctx, OperationalMessage{Kind: ModifiedRemoteFile, ContentId: rc.ContentId})
		}
	}

	return w.emitRemoteDeletions(ctx, seen)
}

func (w *RemoteWatcher) emitRemoteDeletions(ctx context.Context, seen map[ContentId]bool) error {
	paths, err := w.store.GetAllRelativePaths(ctx)
	if err != nil {
		return fmt.Errorf("engine: listing indexed paths: %w", err)
	}

	for _, p := range paths {
		id, err := w.store.GetContentId(ctx, p)
		if err != nil {
			return fmt.Errorf("engine: resolving content id for %q: %w", p, err)
		}

		if seen[id] {
			continue
		}

		w.logger.Debug("remote poll: deleted remote file", slog.Int64("content_id", int64(id)))
		w.queue.Push(ctx, OperationalMessage{Kind: DeletedRemoteFile, ContentId: id})
	}

	return nil
}
