package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Handler is the single-threaded cooperative reconciliation consumer of
// spec §4.5: it turns each operational message into the corresponding
// mutation on the opposite side plus an index update, pushing the mutation's
// predicted echo onto the ignore list. Most handlers push before the
// outbound call; local create and delete push after the hub call succeeds,
// and a remote folder rename pushes after the directory is renamed.
type Handler struct {
	root   string
	store  *Store
	queue  *Queue
	ignore *IgnoreList
	hub    HubClient
	logger *slog.Logger
}

// NewHandler creates a handler rooted at the canonical workspace path root.
func NewHandler(root string, store *Store, queue *Queue, ignore *IgnoreList, hub HubClient, logger *slog.Logger) *Handler {
	return &Handler{root: root, store: store, queue: queue, ignore: ignore, hub: hub, logger: logger}
}

// Run consumes messages until Exit or ctx cancellation. Echo suppression
// happens here, centrally, for every message regardless of which producer
// (local watcher or remote watcher) emitted it: spec §4.5/§4.6 says a
// message is checked against the ignore list "on consumption", not by the
// producer, since both sides' echoes land in the same queue. Handler errors
// are logged at a severity derived from their kind; only the loop's own
// context cancellation stops it early (spec §4.4: "the consumer never drops
// messages; handler errors are logged and the loop continues").
func (h *Handler) Run(ctx context.Context) error {
	for {
		msg, ok := h.queue.Next(ctx)
		if !ok {
			return nil
		}

		if msg.Kind == Exit {
			h.logger.Info("handler: exit message received, shutting down")

			return nil
		}

		if h.ignore.Consume(msg) {
			h.logger.Debug("handler: consumed predicted echo", slog.String("message", msg.String()))

			continue
		}

		if h.filteredByFilename(msg) {
			h.logger.Debug("handler: dropped by filename filter", slog.String("message", msg.String()))

			continue
		}

		if err := h.dispatch(ctx, msg); err != nil {
			h.logSeverity(msg, err)
		}
	}
}

// filteredByFilename implements spec §4.5's "always" filter: local-side
// messages for paths whose basename starts with "." or ends with "~" are
// silently dropped. Remote-side messages carry only a content id and are
// never filtered here.
func (h *Handler) filteredByFilename(msg OperationalMessage) bool {
	var name string

	switch msg.Kind {
	case NewLocalFile, ModifiedLocalFile, DeletedLocalFile:
		name = basenameOf(msg.RelativePath)
	case RenamedLocalFile:
		name = basenameOf(msg.AfterPath)
	default:
		return false
	}

	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}

func (h *Handler) dispatch(ctx context.Context, msg OperationalMessage) error {
	switch msg.Kind {
	case NewLocalFile:
		return h.handleNewLocalFile(ctx, msg.RelativePath)
	case ModifiedLocalFile:
		return h.handleModifiedLocalFile(ctx, msg.RelativePath)
	case DeletedLocalFile:
		return h.handleDeletedLocalFile(ctx, msg.RelativePath)
	case RenamedLocalFile:
		return h.handleRenamedLocalFile(ctx, msg.BeforePath, msg.AfterPath)
	case NewRemoteFile:
		return h.handleNewRemoteFile(ctx, msg.ContentId)
	case ModifiedRemoteFile:
		return h.handleModifiedRemoteFile(ctx, msg.ContentId)
	case DeletedRemoteFile:
		return h.handleDeletedRemoteFile(ctx, msg.ContentId)
	default:
		return fmt.Errorf("engine: unknown message kind %v", msg.Kind)
	}
}

// logSeverity logs err at the level spec §7's error taxonomy implies for
// msg's outcome: NotFound is expected and logged at info, everything else
// at error.
func (h *Handler) logSeverity(msg OperationalMessage, err error) {
	attrs := []any{slog.String("message", msg.String()), slog.String("error", err.Error())}

	var coder HubStatusCoder
	if errors.As(err, &coder) && coder.HubStatusCode() == http.StatusNotFound {
		h.logger.Info("handler: skipping message, content not found on hub", attrs...)

		return
	}

	h.logger.Error("handler: message processing failed", attrs...)
}

// absPath resolves a relative path against the workspace root.
func (h *Handler) absPath(p RelativePath) string {
	return filepath.Join(h.root, filepath.FromSlash(string(p)))
}

// contentTypeOf classifies a disk entry as file or folder.
func contentTypeOf(info os.FileInfo) ContentType {
	if info.IsDir() {
		return ContentTypeFolder
	}

	return ContentTypeFile
}

// statMtimeMs stats absPath and returns its modification time in
// milliseconds since the epoch, matching the unit stored in the index.
func statMtimeMs(absPath string) (int64, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, err
	}

	return info.ModTime().UnixMilli(), nil
}
