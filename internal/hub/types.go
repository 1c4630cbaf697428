package hub

import "github.com/Amiralgaby/trsync/internal/engine"

// contentResponse is the wire shape returned by the hub for a single content
// node. Normalized to engine.RemoteContent by toRemoteContent.
type contentResponse struct {
	ContentId         int32  `json:"content_id"`
	ParentId          *int32 `json:"parent_id"`
	Filename          string `json:"filename"`
	ContentType       string `json:"content_type"`
	CurrentRevisionId int32  `json:"current_revision_id"`
}

func (r contentResponse) toRemoteContent() engine.RemoteContent {
	rc := engine.RemoteContent{
		ContentId:         engine.ContentId(r.ContentId),
		Filename:          r.Filename,
		CurrentRevisionId: engine.RevisionId(r.CurrentRevisionId),
	}

	if r.ParentId != nil {
		id := engine.ContentId(*r.ParentId)
		rc.ParentId = &id
	}

	if r.ContentType == "folder" {
		rc.ContentType = engine.ContentTypeFolder
	} else {
		rc.ContentType = engine.ContentTypeFile
	}

	return rc
}

// createContentRequest is the body for CreateContent.
type createContentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ParentId    *int32 `json:"parent_id,omitempty"`
}

// alreadyExistsResponse is the 409 body shape the hub uses to signal that
// the requested content already exists (spec.md §4.5.1 rule 5, §7
// AlreadyExists): the caller absorbs it and reuses the returned ids instead
// of treating it as a terminal error.
type alreadyExistsResponse struct {
	ContentId  int32 `json:"content_id"`
	RevisionId int32 `json:"revision_id"`
}

// AlreadyExistsError carries the ids the hub returned for a create that
// collided with existing content. The handler absorbs this per spec.md's
// AlreadyExists policy rather than treating it as a failure.
type AlreadyExistsError struct {
	ContentId  engine.ContentId
	RevisionId engine.RevisionId
}

func (e *AlreadyExistsError) Error() string {
	return "hub: content already exists"
}

// AlreadyExistsIds satisfies engine.AlreadyExistsReporter.
func (e *AlreadyExistsError) AlreadyExistsIds() (engine.ContentId, engine.RevisionId) {
	return e.ContentId, e.RevisionId
}

func contentTypeString(t engine.ContentType) string {
	if t == engine.ContentTypeFolder {
		return "folder"
	}

	return "file"
}
