package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// handleNewRemoteFile implements spec §4.5.5.
func (h *Handler) handleNewRemoteFile(ctx context.Context, contentId ContentId) error {
	return h.newRemoteFile(ctx, contentId, 0)
}

func (h *Handler) newRemoteFile(ctx context.Context, contentId ContentId, depth int) error {
	if depth > maxParentDepth {
		return fmt.Errorf("materializing content id %d: %w", contentId, ErrRecursionDepthExceeded)
	}

	content, err := h.hub.GetRemoteContent(ctx, contentId)
	if err != nil {
		return fmt.Errorf("engine: fetching remote content %d: %w", contentId, err)
	}

	rel, err := h.hub.BuildRelativePath(ctx, content)
	if err != nil {
		return fmt.Errorf("engine: building path for content id %d: %w", contentId, err)
	}

	h.ignore.Push(OperationalMessage{Kind: NewLocalFile, RelativePath: rel})

	if content.ParentId != nil {
		knownParent, err := h.store.ContentIdIsKnown(ctx, *content.ParentId)
		if err != nil {
			return fmt.Errorf("engine: checking index for parent %d: %w", *content.ParentId, err)
		}

		if !knownParent {
			if err := h.newRemoteFile(ctx, *content.ParentId, depth+1); err != nil {
				return fmt.Errorf("engine: materializing parent of %q: %w", rel, err)
			}
		}
	}

	absPath := h.absPath(rel)

	if content.ContentType == ContentTypeFolder {
		if err := os.MkdirAll(absPath, 0o755); err != nil {
			return fmt.Errorf("engine: creating directory %q: %w", rel, err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return fmt.Errorf("engine: creating parent directory for %q: %w", rel, err)
		}

		if err := h.downloadToDisk(ctx, contentId, content.Filename, absPath); err != nil {
			return err
		}
	}

	mtimeMs, err := statMtimeMs(absPath)
	if err != nil {
		return fmt.Errorf("%w: stat freshly written %q: %v", ErrInputFile, rel, err)
	}

	if err := h.store.InsertNewFile(ctx, rel, mtimeMs, contentId, content.CurrentRevisionId); err != nil {
		return fmt.Errorf("engine: indexing new remote file %q: %w", rel, err)
	}

	return nil
}

// handleModifiedRemoteFile implements spec §4.5.6.
func (h *Handler) handleModifiedRemoteFile(ctx context.Context, contentId ContentId) error {
	content, err := h.hub.GetRemoteContent(ctx, contentId)
	if err != nil {
		return fmt.Errorf("engine: fetching remote content %d: %w", contentId, err)
	}

	targetRel, err := h.hub.BuildRelativePath(ctx, content)
	if err != nil {
		return fmt.Errorf("engine: building path for content id %d: %w", contentId, err)
	}

	curRel, err := h.store.GetPathFromContentId(ctx, contentId)
	if err != nil {
		return fmt.Errorf("engine: resolving indexed path for content id %d: %w", contentId, err)
	}

	if content.ContentType == ContentTypeFolder {
		if parentOf(targetRel) != parentOf(curRel) {
			h.logger.Warn("handler: folder moved across parents on hub, move not applied (rename-only handling)",
				slog.Int("content_id", int(contentId)), slog.String("indexed_path", string(curRel)), slog.String("hub_path", string(targetRel)))
		}

		newBasename := basenameOf(targetRel)
		if basenameOf(curRel) == newBasename {
			return nil
		}

		newRel := joinRelative(parentOf(curRel), newBasename)

		if err := os.Rename(h.absPath(curRel), h.absPath(newRel)); err != nil {
			return fmt.Errorf("engine: renaming directory %q to %q: %w", curRel, newRel, err)
		}

		if err := h.store.UpdateRelativePath(ctx, contentId, newRel); err != nil {
			return fmt.Errorf("engine: updating index path %q -> %q: %w", curRel, newRel, err)
		}

		h.ignore.Push(OperationalMessage{Kind: ModifiedLocalFile, RelativePath: newRel})

		return nil
	}

	newBasename := basenameOf(targetRel)
	if basenameOf(curRel) != newBasename {
		newRel := joinRelative(parentOf(curRel), newBasename)

		if err := os.Rename(h.absPath(curRel), h.absPath(newRel)); err != nil {
			return fmt.Errorf("engine: renaming file %q to %q: %w", curRel, newRel, err)
		}

		if err := h.store.UpdateRelativePath(ctx, contentId, newRel); err != nil {
			return fmt.Errorf("engine: updating index path %q -> %q: %w", curRel, newRel, err)
		}

		curRel = newRel
	}

	h.ignore.Push(OperationalMessage{Kind: ModifiedLocalFile, RelativePath: curRel})

	if err := h.downloadToDisk(ctx, contentId, content.Filename, h.absPath(curRel)); err != nil {
		return err
	}

	mtimeMs, err := statMtimeMs(h.absPath(curRel))
	if err != nil {
		return fmt.Errorf("%w: stat freshly written %q: %v", ErrInputFile, curRel, err)
	}

	if err := h.store.UpdateLastModifiedTimestamp(ctx, curRel, mtimeMs); err != nil {
		return fmt.Errorf("engine: updating mtime for %q: %w", curRel, err)
	}

	if err := h.store.UpdateRevisionId(ctx, curRel, content.CurrentRevisionId); err != nil {
		return fmt.Errorf("engine: updating revision id for %q: %w", curRel, err)
	}

	return nil
}

// handleDeletedRemoteFile implements spec §4.5.7.
func (h *Handler) handleDeletedRemoteFile(ctx context.Context, contentId ContentId) error {
	rel, err := h.store.GetPathFromContentId(ctx, contentId)
	if err != nil {
		return fmt.Errorf("engine: resolving indexed path for content id %d: %w", contentId, err)
	}

	h.ignore.Push(OperationalMessage{Kind: DeletedLocalFile, RelativePath: rel})

	if err := os.RemoveAll(h.absPath(rel)); err != nil {
		return fmt.Errorf("engine: removing %q from disk: %w", rel, err)
	}

	if err := h.store.DeleteFile(ctx, contentId); err != nil {
		return fmt.Errorf("engine: deindexing content id %d: %w", contentId, err)
	}

	return nil
}

// downloadToDisk streams contentId's bytes from the hub to absPath,
// overwriting any existing file.
func (h *Handler) downloadToDisk(ctx context.Context, contentId ContentId, filename, absPath string) error {
	reader, err := h.hub.GetFileContentResponse(ctx, contentId, filename)
	if err != nil {
		return fmt.Errorf("engine: downloading content id %d: %w", contentId, err)
	}
	defer reader.Close()

	f, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %v", ErrInputFile, absPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrInputFile, absPath, err)
	}

	return nil
}
