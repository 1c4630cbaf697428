package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/Amiralgaby/trsync/internal/engine"
)

// CreateContent registers a new file or folder under parentId (nil means the
// hub root). On success it returns the hub-assigned content and revision
// ids. If the hub reports the content already exists, an *AlreadyExistsError
// is returned instead — the caller absorbs it per spec.md §4.5.1 rule 5
// rather than treating it as a failure.
func (c *Client) CreateContent(ctx context.Context, filename string, contentType engine.ContentType, parentId *engine.ContentId) (engine.ContentId, engine.RevisionId, error) {
	reqBody := createContentRequest{
		Filename:    filename,
		ContentType: contentTypeString(contentType),
	}

	if parentId != nil {
		id := int32(*parentId)
		reqBody.ParentId = &id
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, 0, fmt.Errorf("hub: encoding create request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/contents", bytes.NewReader(payload))
	if err != nil {
		var hubErr *Error
		if asHubError(err, &hubErr) && hubErr.StatusCode == http.StatusConflict {
			var already alreadyExistsResponse
			if jsonErr := json.Unmarshal([]byte(hubErr.Message), &already); jsonErr == nil && already.ContentId != 0 {
				return 0, 0, &AlreadyExistsError{
					ContentId:  engine.ContentId(already.ContentId),
					RevisionId: engine.RevisionId(already.RevisionId),
				}
			}
		}

		return 0, 0, err
	}
	defer resp.Body.Close()

	var created contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, 0, fmt.Errorf("hub: %w: decoding create response: %v", ErrUnexpectedResponse, err)
	}

	return engine.ContentId(created.ContentId), engine.RevisionId(created.CurrentRevisionId), nil
}

// UpdateContent uploads the bytes at absolutePath as the new content of
// contentId and returns the resulting revision id.
func (c *Client) UpdateContent(ctx context.Context, absolutePath, filename string, contentType engine.ContentType, contentId engine.ContentId) (engine.RevisionId, error) {
	f, err := os.Open(absolutePath)
	if err != nil {
		return 0, fmt.Errorf("%w: opening %q: %v", engine.ErrInputFile, absolutePath, err)
	}
	defer f.Close()

	path := fmt.Sprintf("/contents/%d/data?filename=%s&content_type=%s",
		contentId, url.QueryEscape(filename), url.QueryEscape(contentTypeString(contentType)))

	resp, err := c.DoTransfer(ctx, http.MethodPut, path, f)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var updated struct {
		RevisionId int32 `json:"revision_id"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return 0, fmt.Errorf("hub: %w: decoding update response: %v", ErrUnexpectedResponse, err)
	}

	return engine.RevisionId(updated.RevisionId), nil
}

// UpdateContentFileName renames contentId on the hub without touching its
// bytes.
func (c *Client) UpdateContentFileName(ctx context.Context, contentId engine.ContentId, newName string, contentType engine.ContentType) error {
	body, err := json.Marshal(struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}{Filename: newName, ContentType: contentTypeString(contentType)})
	if err != nil {
		return fmt.Errorf("hub: encoding rename request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/contents/%d", contentId), bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// MoveContent reparents contentId. newParent nil moves it to the hub root.
func (c *Client) MoveContent(ctx context.Context, contentId engine.ContentId, newParent *engine.ContentId) error {
	var parentField *int32

	if newParent != nil {
		id := int32(*newParent)
		parentField = &id
	}

	body, err := json.Marshal(struct {
		ParentId *int32 `json:"parent_id"`
	}{ParentId: parentField})
	if err != nil {
		return fmt.Errorf("hub: encoding move request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/contents/%d/parent", contentId), bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// TrashContent deletes contentId on the hub.
func (c *Client) TrashContent(ctx context.Context, contentId engine.ContentId) error {
	resp, err := c.Do(ctx, http.MethodDelete, fmt.Sprintf("/contents/%d", contentId), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// GetRemoteContent fetches the current metadata for contentId.
func (c *Client) GetRemoteContent(ctx context.Context, contentId engine.ContentId) (engine.RemoteContent, error) {
	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/contents/%d", contentId), nil)
	if err != nil {
		return engine.RemoteContent{}, err
	}
	defer resp.Body.Close()

	var got contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		return engine.RemoteContent{}, fmt.Errorf("hub: %w: decoding content response: %v", ErrUnexpectedResponse, err)
	}

	return got.toRemoteContent(), nil
}

// GetFileContentResponse streams the bytes of contentId. The caller closes
// the returned reader.
func (c *Client) GetFileContentResponse(ctx context.Context, contentId engine.ContentId, filename string) (io.ReadCloser, error) {
	resp, err := c.DoTransfer(ctx, http.MethodGet, fmt.Sprintf("/contents/%d/data?filename=%s", contentId, url.QueryEscape(filename)), nil)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// BuildRelativePath composes the workspace-relative path of content by
// walking its parent chain up to the hub root, one GetRemoteContent call
// per level (spec.md §6's build_relative_path).
func (c *Client) BuildRelativePath(ctx context.Context, content engine.RemoteContent) (engine.RelativePath, error) {
	components := []string{content.Filename}

	current := content

	for current.ParentId != nil {
		parent, err := c.GetRemoteContent(ctx, *current.ParentId)
		if err != nil {
			return "", fmt.Errorf("hub: resolving parent %d: %w", *current.ParentId, err)
		}

		components = append([]string{parent.Filename}, components...)
		current = parent
	}

	joined := components[0]
	for _, seg := range components[1:] {
		joined = joined + "/" + seg
	}

	return engine.RelativePath(joined), nil
}

// ListChildren lists the immediate children of parentId (nil for the hub
// root).
func (c *Client) ListChildren(ctx context.Context, parentId *engine.ContentId) ([]engine.RemoteContent, error) {
	path := "/contents"
	if parentId != nil {
		path += "?parent_id=" + strconv.Itoa(int(*parentId))
	} else {
		path += "?parent_id="
	}

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var children []contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&children); err != nil {
		return nil, fmt.Errorf("hub: %w: decoding children response: %v", ErrUnexpectedResponse, err)
	}

	out := make([]engine.RemoteContent, 0, len(children))
	for _, ch := range children {
		out = append(out, ch.toRemoteContent())
	}

	return out, nil
}

// PollChanges walks the entire hub content tree from the root and returns a
// flat snapshot, used by the remote watcher (internal/engine/remote.go) to
// diff against the index on every poll interval.
func (c *Client) PollChanges(ctx context.Context) ([]engine.RemoteContent, error) {
	var all []engine.RemoteContent

	var walk func(parentId *engine.ContentId) error

	walk = func(parentId *engine.ContentId) error {
		children, err := c.ListChildren(ctx, parentId)
		if err != nil {
			return err
		}

		for _, child := range children {
			all = append(all, child)

			if child.ContentType == engine.ContentTypeFolder {
				id := child.ContentId
				if err := walk(&id); err != nil {
					return err
				}
			}
		}

		return nil
	}

	if err := walk(nil); err != nil {
		return nil, err
	}

	return all, nil
}

func asHubError(err error, target **Error) bool {
	for err != nil {
		if he, ok := err.(*Error); ok {
			*target = he

			return true
		}

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = unwrapper.Unwrap()
	}

	return false
}
