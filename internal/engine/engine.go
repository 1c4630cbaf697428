package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine wires together the index, the operational queue, both startup
// reconcilers, both watchers, and the reconciliation handler into the
// running daemon described by spec §2 and §5.
type Engine struct {
	root   string
	store  *Store
	hub    HubClient
	logger *slog.Logger

	queue         *Queue
	ignore        *IgnoreList
	localWatcher  *LocalWatcher
	remoteWatcher *RemoteWatcher
	localStartup  *LocalStartupReconciler
	handler       *Handler
}

// New assembles an Engine. root must already be canonicalized by the
// caller (spec §6's "workspace path is canonicalized at startup").
func New(root string, store *Store, hub HubClient, logger *slog.Logger, pollInterval time.Duration) *Engine {
	queue := NewQueue()
	ignore := NewIgnoreList(logger)

	return &Engine{
		root:          root,
		store:         store,
		hub:           hub,
		logger:        logger,
		queue:         queue,
		ignore:        ignore,
		localWatcher:  NewLocalWatcher(root, queue, logger),
		remoteWatcher: NewRemoteWatcher(hub, store, queue, logger, pollInterval),
		localStartup:  NewLocalStartupReconciler(root, store, queue, logger),
		handler:       NewHandler(root, store, queue, ignore, hub, logger),
	}
}

// Run performs both startup reconciliations synchronously, then runs the
// two watchers and the handler concurrently until ctx is canceled or the
// handler receives Exit. The first goroutine to fail (or the handler
// finishing) cancels the rest via errgroup's derived context.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.localStartup.Run(ctx); err != nil {
		return fmt.Errorf("engine: local startup reconciliation: %w", err)
	}

	if err := e.remoteWatcher.RunStartup(ctx); err != nil {
		return fmt.Errorf("engine: remote startup reconciliation: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return e.localWatcher.Run(groupCtx)
	})

	group.Go(func() error {
		return e.remoteWatcher.Run(groupCtx)
	})

	group.Go(func() error {
		// The handler is the only producer of a clean shutdown (Exit);
		// when it returns, cancel runCtx so the watcher goroutines above
		// stop too instead of running until the parent ctx is canceled.
		defer cancel()
		defer e.ignore.WarnLeaked()

		return e.handler.Run(groupCtx)
	})

	return group.Wait()
}

// Stop enqueues an Exit message, causing the handler (and, transitively via
// the errgroup's shared context, the watchers) to terminate.
func (e *Engine) Stop(ctx context.Context) {
	e.queue.Push(ctx, OperationalMessage{Kind: Exit})
}

// IgnoreListLen reports the number of unconsumed predicted echoes, as a
// leak diagnostic. The status command does not report it.
func (e *Engine) IgnoreListLen() int {
	return e.ignore.Len()
}
