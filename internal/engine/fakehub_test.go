package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// fakeHubClient is an in-memory stand-in for HubClient, used to exercise the
// handler without a network round trip. Content ids are assigned
// sequentially starting at 1.
type fakeHubClient struct {
	mu sync.Mutex

	nextID  ContentId
	content map[ContentId]RemoteContent
	bytes   map[ContentId][]byte

	createErr       error
	alreadyExistsAs *fakeAlreadyExistsError
}

func newFakeHubClient() *fakeHubClient {
	return &fakeHubClient{
		content: make(map[ContentId]RemoteContent),
		bytes:   make(map[ContentId][]byte),
	}
}

func (f *fakeHubClient) CreateContent(_ context.Context, filename string, contentType ContentType, parentId *ContentId) (ContentId, RevisionId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.alreadyExistsAs != nil {
		already := f.alreadyExistsAs
		f.alreadyExistsAs = nil

		return 0, 0, already
	}

	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil

		return 0, 0, err
	}

	f.nextID++
	id := f.nextID

	f.content[id] = RemoteContent{
		ContentId:         id,
		ParentId:          parentId,
		Filename:          filename,
		ContentType:       contentType,
		CurrentRevisionId: 1,
	}

	return id, 1, nil
}

func (f *fakeHubClient) UpdateContent(_ context.Context, absolutePath, filename string, contentType ContentType, contentId ContentId) (RevisionId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.content[contentId]
	if !ok {
		return 0, &fakeHubStatusError{status: 404}
	}

	c.CurrentRevisionId++
	c.Filename = filename
	c.ContentType = contentType
	f.content[contentId] = c

	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return 0, err
	}

	f.bytes[contentId] = data

	return c.CurrentRevisionId, nil
}

func (f *fakeHubClient) UpdateContentFileName(_ context.Context, contentId ContentId, newName string, _ ContentType) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.content[contentId]
	if !ok {
		return &fakeHubStatusError{status: 404}
	}

	c.Filename = newName
	f.content[contentId] = c

	return nil
}

func (f *fakeHubClient) MoveContent(_ context.Context, contentId ContentId, newParent *ContentId) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.content[contentId]
	if !ok {
		return &fakeHubStatusError{status: 404}
	}

	c.ParentId = newParent
	f.content[contentId] = c

	return nil
}

func (f *fakeHubClient) TrashContent(_ context.Context, contentId ContentId) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.content[contentId]; !ok {
		return &fakeHubStatusError{status: 404}
	}

	delete(f.content, contentId)
	delete(f.bytes, contentId)

	return nil
}

func (f *fakeHubClient) GetRemoteContent(_ context.Context, contentId ContentId) (RemoteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.content[contentId]
	if !ok {
		return RemoteContent{}, &fakeHubStatusError{status: 404}
	}

	return c, nil
}

func (f *fakeHubClient) GetFileContentResponse(_ context.Context, contentId ContentId, _ string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.bytes[contentId]
	if !ok {
		return nil, &fakeHubStatusError{status: 404}
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeHubClient) BuildRelativePath(ctx context.Context, content RemoteContent) (RelativePath, error) {
	if content.ParentId == nil {
		return RelativePath(content.Filename), nil
	}

	f.mu.Lock()
	parent, ok := f.content[*content.ParentId]
	f.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("fake hub: parent %d not found", *content.ParentId)
	}

	parentRel, err := f.BuildRelativePath(ctx, parent)
	if err != nil {
		return "", err
	}

	return joinRelative(parentRel, content.Filename), nil
}

func (f *fakeHubClient) ListChildren(_ context.Context, parentId *ContentId) ([]RemoteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var children []RemoteContent

	for _, c := range f.content {
		if samePointerValue(c.ParentId, parentId) {
			children = append(children, c)
		}
	}

	return children, nil
}

func (f *fakeHubClient) PollChanges(_ context.Context) ([]RemoteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]RemoteContent, 0, len(f.content))
	for _, c := range f.content {
		all = append(all, c)
	}

	return all, nil
}

// put seeds content directly, bypassing CreateContent, for tests that need
// pre-existing remote state.
func (f *fakeHubClient) put(c RemoteContent, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.content[c.ContentId] = c

	if data != nil {
		f.bytes[c.ContentId] = data
	}

	if c.ContentId > f.nextID {
		f.nextID = c.ContentId
	}
}

func samePointerValue(a, b *ContentId) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

type fakeHubStatusError struct {
	status int
}

func (e *fakeHubStatusError) Error() string {
	return fmt.Sprintf("fake hub: status %d", e.status)
}

func (e *fakeHubStatusError) HubStatusCode() int {
	return e.status
}

type fakeAlreadyExistsError struct {
	contentId  ContentId
	revisionId RevisionId
}

func (e *fakeAlreadyExistsError) Error() string {
	return fmt.Sprintf("fake hub: content already exists as %d", e.contentId)
}

func (e *fakeAlreadyExistsError) AlreadyExistsIds() (ContentId, RevisionId) {
	return e.contentId, e.revisionId
}
