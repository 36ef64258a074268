package bfs

import (
	"slices"
	"strings"
)

// dirNode is one directory of the index. Children are owned exclusively by their parent
type dirNode struct {
	dirs  map[string]*dirNode
	files map[string]*FileInfo
}

func newDirNode() *dirNode {
	return &dirNode{
		dirs:  make(map[string]*dirNode),
		files: make(map[string]*FileInfo),
	}
}

// insert adds fi under the slash-separated path, creating intermediate directories.
// Empty segments are skipped; a later insert of the same name replaces an earlier one.
// It reports whether a new file entry was added, so replacements and paths without a
// file name report false
func (d *dirNode) insert(path string, fi *FileInfo) bool {
	for {
		head, tail, found := strings.Cut(path, "/")
		if !found {
			if head == "" {
				return false
			}
			_, exists := d.files[head]
			d.files[head] = fi
			return !exists
		}

		path = tail
		if head == "" {
			continue
		}

		child, ok := d.dirs[head]
		if !ok {
			child = newDirNode()
			d.dirs[head] = child
		}
		d = child
	}
}

// lookup resolves name from d. It may return a directory, a file, or both when the
// same name is used for each; both are nil when nothing matches
func (d *dirNode) lookup(name string) (*dirNode, *FileInfo) {
	segments := splitPath(name)
	if len(segments) == 0 {
		return d, nil
	}

	for _, seg := range segments[:len(segments)-1] {
		child, ok := d.dirs[seg]
		if !ok {
			return nil, nil
		}
		d = child
	}

	last := segments[len(segments)-1]
	if strings.HasSuffix(name, "/") {
		return d.dirs[last], nil
	}

	return d.dirs[last], d.files[last]
}

// sortedDirs returns subdirectory names in ascending order
func (d *dirNode) sortedDirs() []string {
	names := make([]string, 0, len(d.dirs))
	for name := range d.dirs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// sortedFiles returns file names in ascending order
func (d *dirNode) sortedFiles() []string {
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// splitPath splits a lookup path into its non-empty segments
func splitPath(name string) []string {
	parts := strings.Split(name, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
