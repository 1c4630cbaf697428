package engine

import (
	"context"
	"io"
)

// AlreadyExistsReporter is implemented by a hub create error that carries
// the ids of the content that already existed, so CreateContent's caller can
// absorb the collision per spec §4.5.1 rule 5 instead of failing — again
// kept as a structural interface so this package never imports internal/hub.
type AlreadyExistsReporter interface {
	AlreadyExistsIds() (ContentId, RevisionId)
}

// HubClient is the narrow surface the engine depends on for the remote
// collaborator (spec §6). Defined here, at the consumer, so the engine
// package never imports internal/hub directly and can be exercised against
// a fake in tests; *hub.Client satisfies this structurally.
type HubClient interface {
	CreateContent(ctx context.Context, filename string, contentType ContentType, parentId *ContentId) (ContentId, RevisionId, error)
	UpdateContent(ctx context.Context, absolutePath, filename string, contentType ContentType, contentId ContentId) (RevisionId, error)
	UpdateContentFileName(ctx context.Context, contentId ContentId, newName string, contentType ContentType) error
	MoveContent(ctx context.Context, contentId ContentId, newParent *ContentId) error
	TrashContent(ctx context.Context, contentId ContentId) error
	GetRemoteContent(ctx context.Context, contentId ContentId) (RemoteContent, error)
	GetFileContentResponse(ctx context.Context, contentId ContentId, filename string) (io.ReadCloser, error)
	BuildRelativePath(ctx context.Context, content RemoteContent) (RelativePath, error)
	ListChildren(ctx context.Context, parentId *ContentId) ([]RemoteContent, error)
	PollChanges(ctx context.Context) ([]RemoteContent, error)
}
