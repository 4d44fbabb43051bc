package wire

import (
	"fmt"
	"strings"
)

// MaxGroupNameLength is the FastDFS limit on a group name's byte length.
const MaxGroupNameLength = 16

// MaxExtensionLength is the FastDFS limit on a file extension's byte length.
const MaxExtensionLength = 6

// SplitFileID splits a canonical "group/remote_filename" id into its two
// parts. It fails if id has no '/', if either part is empty, or if the
// group name exceeds MaxGroupNameLength bytes.
func SplitFileID(id string) (group, remote string, err error) {
	idx := strings.IndexByte(id, '/')
	if idx < 0 {
		return "", "", fmt.Errorf("invalid file id %q: missing '/'", id)
	}
	group, remote = id[:idx], id[idx+1:]
	if group == "" {
		return "", "", fmt.Errorf("invalid file id %q: empty group", id)
	}
	if remote == "" {
		return "", "", fmt.Errorf("invalid file id %q: empty remote filename", id)
	}
	if len(group) > MaxGroupNameLength {
		return "", "", fmt.Errorf("invalid file id %q: group name exceeds %d bytes", id, MaxGroupNameLength)
	}
	return group, remote, nil
}

// JoinFileID is the exact inverse of SplitFileID for any (group, remote)
// pair it would itself produce.
func JoinFileID(group, remote string) string {
	return group + "/" + remote
}

// ExtractExtension returns the bytes after the last '.' in the final path
// component of name, truncated to MaxExtensionLength bytes. It returns the
// empty string if name's final component has no '.'.
func ExtractExtension(name string) string {
	base := name
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 {
		return ""
	}
	ext := base[dot+1:]
	if len(ext) > MaxExtensionLength {
		ext = ext[:MaxExtensionLength]
	}
	return ext
}
