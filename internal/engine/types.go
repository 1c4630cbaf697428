// Package engine implements the reconciliation core: the operational
// message queue, the echo-suppression ignore list, the persistent index,
// and the handler that translates events observed on one side of the sync
// into mutations on the other.
package engine

import "fmt"

// ContentId is the hub's stable identity for a piece of content. Assigned
// once by the hub and never reused.
type ContentId int32

// RevisionId increases monotonically per content on every mutation.
type RevisionId int32

// ContentType distinguishes files from folders.
type ContentType int

const (
	ContentTypeFile ContentType = iota
	ContentTypeFolder
)

func (t ContentType) String() string {
	if t == ContentTypeFolder {
		return "folder"
	}

	return "file"
}

// RelativePath is a path relative to the workspace root, using forward
// slash components. Never empty, never containing "..".
type RelativePath string

// RemoteContent mirrors a single node in the hub's content tree.
type RemoteContent struct {
	ContentId         ContentId
	ParentId          *ContentId // nil means the content sits at the workspace/hub root
	Filename          string
	ContentType       ContentType
	CurrentRevisionId RevisionId
}

// IndexEntry is one row of the persistent local index.
type IndexEntry struct {
	RelativePath   RelativePath
	ContentId      ContentId
	RevisionId     RevisionId
	LastModifiedMs int64
}

// NotIndexedError is returned by the index when a relative path or content
// id has no entry. Distinguished from other store failures so the handler
// can trigger recursive parent materialization.
type NotIndexedError struct {
	Path RelativePath
	Id   ContentId
}

func (e *NotIndexedError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("engine: %q is not indexed", e.Path)
	}

	return fmt.Sprintf("engine: content id %d is not indexed", e.Id)
}

// Unwrap exposes the matching sentinel, so errors.Is(err,
// ErrUnIndexedRelativePath) or errors.Is(err, ErrUnIndexedContentId) holds.
func (e *NotIndexedError) Unwrap() error {
	if e.Path != "" {
		return ErrUnIndexedRelativePath
	}

	return ErrUnIndexedContentId
}

// MessageKind enumerates the operational message vocabulary of §4.4.
type MessageKind int

const (
	NewLocalFile MessageKind = iota
	ModifiedLocalFile
	DeletedLocalFile
	RenamedLocalFile
	NewRemoteFile
	ModifiedRemoteFile
	DeletedRemoteFile
	Exit
)

func (k MessageKind) String() string {
	switch k {
	case NewLocalFile:
		return "NewLocalFile"
	case ModifiedLocalFile:
		return "ModifiedLocalFile"
	case DeletedLocalFile:
		return "DeletedLocalFile"
	case RenamedLocalFile:
		return "RenamedLocalFile"
	case NewRemoteFile:
		return "NewRemoteFile"
	case ModifiedRemoteFile:
		return "ModifiedRemoteFile"
	case DeletedRemoteFile:
		return "DeletedRemoteFile"
	case Exit:
		return "Exit"
	default:
		return "Unknown"
	}
}

// OperationalMessage is the single envelope type carried by the operational
// queue. Go has no sum types, so the fields relevant to each MessageKind
// are carried side by side; handlers only read the fields their kind
// defines. Mirrors the teacher's Action/ActionType pairing.
type OperationalMessage struct {
	Kind MessageKind

	// Local-side fields.
	RelativePath RelativePath // NewLocalFile, ModifiedLocalFile, DeletedLocalFile
	BeforePath   RelativePath // RenamedLocalFile
	AfterPath    RelativePath // RenamedLocalFile

	// Remote-side fields.
	ContentId ContentId // NewRemoteFile, ModifiedRemoteFile, DeletedRemoteFile
}

func (m OperationalMessage) String() string {
	switch m.Kind {
	case RenamedLocalFile:
		return fmt.Sprintf("%s(%s -> %s)", m.Kind, m.BeforePath, m.AfterPath)
	case NewRemoteFile, ModifiedRemoteFile, DeletedRemoteFile:
		return fmt.Sprintf("%s(%d)", m.Kind, m.ContentId)
	case Exit:
		return m.Kind.String()
	default:
		return fmt.Sprintf("%s(%s)", m.Kind, m.RelativePath)
	}
}

// Equal reports whether two messages carry the same kind and payload. Used
// by the ignore list multiset to match a predicted echo against an observed
// message.
func (m OperationalMessage) Equal(other OperationalMessage) bool {
	if m.Kind != other.Kind {
		return false
	}

	switch m.Kind {
	case RenamedLocalFile:
		return m.BeforePath == other.BeforePath && m.AfterPath == other.AfterPath
	case NewRemoteFile, ModifiedRemoteFile, DeletedRemoteFile:
		return m.ContentId == other.ContentId
	case Exit:
		return true
	default:
		return m.RelativePath == other.RelativePath
	}
}
