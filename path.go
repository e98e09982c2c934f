package tfs

import "strings"

// splitPath splits path on '/' and discards empty components, so
// leading/trailing/duplicated slashes are tolerated and the empty path
// yields no components at all (spec.md §4.4). The input is never
// mutated, unlike the original source's in-place tokenization.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getNodeByPath resolves an absolute path starting from startIno,
// walking one directory lookup per component (spec.md §4.4). An empty
// path resolves to startIno itself.
func (fs *Filesystem) getNodeByPath(path string, startIno uint32) (*Inode, error) {
	cur := startIno
	for _, c := range splitPath(path) {
		d, found, err := fs.dirFind(cur, c)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, newPathError(KindNotFound, "getNodeByPath", path, nil)
		}
		cur = d.Ino
	}
	return fs.readi(cur)
}

// getInoByPath is like getNodeByPath but returns only the inode number,
// useful when the caller is about to mutate the resolved inode itself
// (e.g. mkdir's parent lookup).
func (fs *Filesystem) getInoByPath(path string, startIno uint32) (uint32, error) {
	cur := startIno
	for _, c := range splitPath(path) {
		d, found, err := fs.dirFind(cur, c)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, newPathError(KindNotFound, "getInoByPath", path, nil)
		}
		cur = d.Ino
	}
	return cur, nil
}

// splitParentBase splits a path into its parent directory path and
// final component, the way mkdir/create need to (spec.md §4.6).
func splitParentBase(path string) (parent string, base string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "", ""
	}
	base = parts[len(parts)-1]
	parent = "/" + strings.Join(parts[:len(parts)-1], "/")
	return parent, base
}
