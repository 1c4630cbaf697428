package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// handleNewLocalFile implements spec §4.5.1.
func (h *Handler) handleNewLocalFile(ctx context.Context, rel RelativePath) error {
	return h.newLocalFile(ctx, rel, 0)
}

func (h *Handler) newLocalFile(ctx context.Context, rel RelativePath, depth int) error {
	if depth > maxParentDepth {
		return fmt.Errorf("materializing %q: %w", rel, ErrRecursionDepthExceeded)
	}

	known, err := h.store.RelativePathIsKnown(ctx, rel)
	if err != nil {
		return fmt.Errorf("engine: checking index for %q: %w", rel, err)
	}

	if known {
		return h.handleModifiedLocalFile(ctx, rel)
	}

	info, err := os.Stat(h.absPath(rel))
	if err != nil {
		return fmt.Errorf("%w: stat %q: %v", ErrInputFile, rel, err)
	}

	contentType := contentTypeOf(info)

	parentId, err := h.resolveParentId(ctx, rel, depth)
	if err != nil {
		return err
	}

	contentId, revisionId, err := h.hub.CreateContent(ctx, basenameOf(rel), contentType, parentId)
	if err != nil {
		var already AlreadyExistsReporter
		if errors.As(err, &already) {
			contentId, revisionId = already.AlreadyExistsIds()
		} else {
			return fmt.Errorf("engine: creating %q on hub: %w", rel, err)
		}
	} else {
		h.ignore.Push(OperationalMessage{Kind: NewRemoteFile, ContentId: contentId})

		if contentType == ContentTypeFile {
			h.ignore.Push(OperationalMessage{Kind: ModifiedRemoteFile, ContentId: contentId})
		}
	}

	mtimeMs := info.ModTime().UnixMilli()

	if err := h.store.InsertNewFile(ctx, rel, mtimeMs, contentId, revisionId); err != nil {
		return fmt.Errorf("engine: indexing new file %q: %w", rel, err)
	}

	return nil
}

// resolveParentId resolves rel's parent directory to a hub content id,
// recursively materializing it first if it is not yet indexed (spec
// §4.5.1 rule 3). A top-level rel (empty parent) maps to the hub root, nil.
func (h *Handler) resolveParentId(ctx context.Context, rel RelativePath, depth int) (*ContentId, error) {
	parentRel := parentOf(rel)
	if parentRel == "" {
		return nil, nil
	}

	id, err := h.store.GetContentId(ctx, parentRel)
	if err == nil {
		return &id, nil
	}

	var notIndexed *NotIndexedError
	if !errors.As(err, &notIndexed) {
		return nil, fmt.Errorf("engine: resolving parent of %q: %w", rel, err)
	}

	if err := h.newLocalFile(ctx, parentRel, depth+1); err != nil {
		return nil, fmt.Errorf("engine: materializing parent %q: %w", parentRel, err)
	}

	id, err = h.store.GetContentId(ctx, parentRel)
	if err != nil {
		return nil, fmt.Errorf("engine: resolving freshly materialized parent %q: %w", parentRel, err)
	}

	return &id, nil
}

// handleModifiedLocalFile implements spec §4.5.2.
func (h *Handler) handleModifiedLocalFile(ctx context.Context, rel RelativePath) error {
	contentId, err := h.store.GetContentId(ctx, rel)
	if err != nil {
		return fmt.Errorf("engine: resolving content id for %q: %w", rel, err)
	}

	h.ignore.Push(OperationalMessage{Kind: ModifiedRemoteFile, ContentId: contentId})

	info, err := os.Stat(h.absPath(rel))
	if err != nil {
		return fmt.Errorf("%w: stat %q: %v", ErrInputFile, rel, err)
	}

	revisionId, err := h.hub.UpdateContent(ctx, h.absPath(rel), basenameOf(rel), contentTypeOf(info), contentId)
	if err != nil {
		return fmt.Errorf("engine: uploading %q: %w", rel, err)
	}

	if err := h.store.UpdateLastModifiedTimestamp(ctx, rel, info.ModTime().UnixMilli()); err != nil {
		return fmt.Errorf("engine: updating mtime for %q: %w", rel, err)
	}

	if err := h.store.UpdateRevisionId(ctx, rel, revisionId); err != nil {
		return fmt.Errorf("engine: updating revision id for %q: %w", rel, err)
	}

	return nil
}

// handleDeletedLocalFile implements spec §4.5.3.
func (h *Handler) handleDeletedLocalFile(ctx context.Context, rel RelativePath) error {
	contentId, err := h.store.GetContentId(ctx, rel)
	if err != nil {
		return fmt.Errorf("engine: resolving content id for %q: %w", rel, err)
	}

	if err := h.hub.TrashContent(ctx, contentId); err != nil {
		return fmt.Errorf("engine: trashing %q on hub: %w", rel, err)
	}

	h.ignore.Push(OperationalMessage{Kind: DeletedRemoteFile, ContentId: contentId})

	if err := h.store.DeleteFile(ctx, contentId); err != nil {
		return fmt.Errorf("engine: deindexing %q: %w", rel, err)
	}

	return nil
}

// handleRenamedLocalFile implements spec §4.5.4. Rename decomposes into a
// structural move (if the parent changed) issued before a basename rename,
// so the hub never observes a child under a not-yet-existing parent.
func (h *Handler) handleRenamedLocalFile(ctx context.Context, before, after RelativePath) error {
	contentId, err := h.store.GetContentId(ctx, before)
	if err != nil {
		return fmt.Errorf("engine: resolving content id for %q: %w", before, err)
	}

	h.ignore.Push(OperationalMessage{Kind: ModifiedRemoteFile, ContentId: contentId})

	beforeParent := parentOf(before)
	afterParent := parentOf(after)

	if beforeParent != afterParent {
		var newParentId *ContentId

		if afterParent != "" {
			newParentId, err = h.resolveParentId(ctx, after, 0)
			if err != nil {
				return err
			}
		}

		if err := h.hub.MoveContent(ctx, contentId, newParentId); err != nil {
			return fmt.Errorf("engine: moving %q to %q: %w", before, afterParent, err)
		}
	}

	beforeName := basenameOf(before)
	afterName := basenameOf(after)

	if beforeName != afterName {
		info, err := os.Stat(h.absPath(after))
		if err != nil {
			return fmt.Errorf("%w: stat %q: %v", ErrInputFile, after, err)
		}

		if err := h.hub.UpdateContentFileName(ctx, contentId, afterName, contentTypeOf(info)); err != nil {
			return fmt.Errorf("engine: renaming %q to %q on hub: %w", before, after, err)
		}
	}

	if err := h.store.UpdateRelativePath(ctx, contentId, after); err != nil {
		return fmt.Errorf("engine: updating index path %q -> %q: %w", before, after, err)
	}

	remote, err := h.hub.GetRemoteContent(ctx, contentId)
	if err != nil {
		return fmt.Errorf("engine: refreshing revision id for %q: %w", after, err)
	}

	if err := h.store.UpdateRevisionId(ctx, after, remote.CurrentRevisionId); err != nil {
		return fmt.Errorf("engine: updating revision id for %q: %w", after, err)
	}

	return nil
}
