package engine

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// nfcNormalize applies Unicode NFC normalization so the same path produces
// the same byte sequence regardless of which side (and which filesystem
// normalization form, e.g. HFS+'s NFD) observed it first.
func nfcNormalize(s string) string {
	return norm.NFC.String(s)
}

// maxParentDepth guards recursive parent materialization against cycles in
// malformed parent chains (spec §9).
const maxParentDepth = 256

// isAlwaysExcluded reports whether a basename should never be synchronized:
// empty names and names that start with ".", "~" or "#" or end with "~".
// Used by the startup reconciler and the local watcher. The handler's
// filename filter (Handler.filteredByFilename) is narrower: it drops only a
// "." prefix or a "~" suffix.
func isAlwaysExcluded(name string) bool {
	if name == "" {
		return true
	}

	return strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, "~") ||
		strings.HasPrefix(name, "#") ||
		strings.HasSuffix(name, "~")
}

// validateRelativePath rejects paths that are empty, that name the root
// itself, or that escape the workspace root via "..". A leading slash is
// stripped rather than rejected. Returns the cleaned, slash-separated,
// NFC-normalized form on success.
func validateRelativePath(p string) (RelativePath, error) {
	if p == "" {
		return "", ErrPathManipulation
	}

	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))

	if clean == "." || clean == "/" || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrPathManipulation
	}

	clean = strings.TrimPrefix(clean, "/")

	return RelativePath(nfcNormalize(clean)), nil
}

// parentOf returns the parent relative path of p, or "" if p is already a
// top-level entry (its parent is the workspace/hub root).
func parentOf(p RelativePath) RelativePath {
	dir := path.Dir(string(p))
	if dir == "." {
		return ""
	}

	return RelativePath(dir)
}

// basenameOf returns the final path component of p.
func basenameOf(p RelativePath) string {
	return path.Base(string(p))
}

// joinRelative joins a parent relative path (possibly empty, meaning root)
// with a basename.
func joinRelative(parent RelativePath, name string) RelativePath {
	if parent == "" {
		return RelativePath(name)
	}

	return RelativePath(path.Join(string(parent), name))
}
