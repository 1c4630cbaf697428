package engine

import "errors"

// Sentinel errors for the handler's error taxonomy (spec §7). Handler
// errors never abort the process: the consumer loop logs them (hub NotFound
// at info, everything else at error) and moves on to the next message.
var (
	// ErrInputFile is returned when a disk file cannot be read for upload.
	ErrInputFile = errors.New("engine: unable to read local input file")

	// ErrUnIndexedRelativePath is wrapped by the *NotIndexedError the index
	// returns when a relative path has no entry. Recovered locally by the
	// handler, which recurses to materialize the missing parent.
	ErrUnIndexedRelativePath = errors.New("engine: relative path is not indexed")

	// ErrUnIndexedContentId is wrapped by the *NotIndexedError the index
	// returns when a content id has no entry.
	ErrUnIndexedContentId = errors.New("engine: content id is not indexed")

	// ErrPathManipulation is returned when a path lies outside the
	// workspace root or cannot be expressed in UTF-8.
	ErrPathManipulation = errors.New("engine: path outside workspace or not representable")

	// ErrRecursionDepthExceeded guards parent materialization against
	// cycles in malformed remote parent chains (spec §9).
	ErrRecursionDepthExceeded = errors.New("engine: parent materialization recursion depth exceeded")
)

// HubStatusCoder is implemented by hub errors that carry an HTTP status
// code. internal/hub imports this package for its normalized types, so this
// package cannot import internal/hub back; classifying hub failures (e.g.
// distinguishing NotFound for the §7 error taxonomy) goes through this
// narrow interface instead, satisfied structurally by *hub.Error.
type HubStatusCoder interface {
	HubStatusCode() int
}
