package ftp

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// resolve maps a client-supplied path argument onto the filesystem.
// An empty argument names the working directory, "/" the user root, a
// leading "/" is taken relative to the root and anything else relative to
// the working directory. The result is cleaned but not checked against the
// sandbox; callers pair it with isDescendant or isWithinRoot.
func (s *Session) resolve(arg string) string {
	switch {
	case arg == "":
		return filepath.Join(s.userRoot, filepath.FromSlash(s.workingDir))
	case arg == "/":
		return s.userRoot
	case strings.HasPrefix(arg, "/"):
		return filepath.Join(s.userRoot, filepath.FromSlash(arg))
	default:
		return filepath.Join(s.userRoot, filepath.FromSlash(s.workingDir), filepath.FromSlash(arg))
	}
}

// resolveUnderCwd joins a name under the working directory regardless of
// leading slashes, for commands whose argument is always a plain name.
func (s *Session) resolveUnderCwd(name string) string {
	return filepath.Join(s.userRoot, filepath.FromSlash(s.workingDir), filepath.FromSlash(name))
}

// resolveFromRoot joins a path under the user root, ignoring the working
// directory.
func (s *Session) resolveFromRoot(name string) string {
	return filepath.Join(s.userRoot, filepath.FromSlash(name))
}

// canonicalize resolves symlinks where the path exists, falling back to a
// lexical clean for paths that do not exist yet.
func canonicalize(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

// isDescendant reports whether path lies strictly below root after
// canonicalization. The root itself does not count as its own descendant.
func isDescendant(root, path string) bool {
	root = canonicalize(root)
	path = canonicalize(path)
	if path == root {
		return false
	}
	return strings.HasPrefix(path, root+string(os.PathSeparator))
}

// isWithinRoot is the lexical containment check used for creation targets,
// which cannot be canonicalized because they do not exist yet. The root
// itself counts as within.
func isWithinRoot(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

// relativeToRoot rewrites an absolute sandbox path as the root-relative
// form shown to the client, "/" for the root itself.
func (s *Session) relativeToRoot(path string) string {
	rel, err := filepath.Rel(canonicalize(s.userRoot), canonicalize(path))
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// statDir stats path and reports ErrNotFound unless it is an existing
// directory inside the sandbox.
func (s *Session) statDir(path string) (fs.FileInfo, error) {
	if !isDescendant(s.userRoot, path) && canonicalize(path) != canonicalize(s.userRoot) {
		return nil, ErrOutsideRoot
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, ErrNotFound
	}
	return info, nil
}

// statRegularFile stats path and reports ErrNotFound unless it is an
// existing regular file inside the sandbox.
func (s *Session) statRegularFile(path string) (fs.FileInfo, error) {
	if !isDescendant(s.userRoot, path) {
		return nil, ErrOutsideRoot
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, ErrNotFound
	}
	return info, nil
}
