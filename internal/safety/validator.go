package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrProtectedPath = errors.New("protected path")
	ErrOutsideRoot   = errors.New("outside root directory")
	ErrRootTarget    = errors.New("refusing to delete the root directory")
)

// Validator enforces the safety contract for every configured target.
// It is purely lexical so it works the same on any afero filesystem.
type Validator struct {
	Root           string
	ProtectedPaths []string // Blocked as exact targets only
	ProtectedTrees []string // Blocked together with everything below them
}

// NewValidator creates a validator for root. extraTrees are protected along
// with their subtrees, typically the plugin's own config and history files.
func NewValidator(root string, extraTrees []string) *Validator {
	return &Validator{
		Root:           filepath.Clean(root),
		ProtectedPaths: defaultProtected(),
		ProtectedTrees: normalizeTrees(extraTrees),
	}
}

// Resolve joins a configured relative path onto the root and checks that the
// result may be touched. forDelete additionally forbids the root itself.
func (v *Validator) Resolve(rel string, forDelete bool) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", ErrInvalidPath
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}

	// A leading separator is part of the usual config style ("/cache/db")
	// and still means root-relative.
	abs := filepath.Join(v.Root, rel)

	if !IsWithinRoot(abs, v.Root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	if forDelete && abs == v.Root {
		return "", fmt.Errorf("%w: %s", ErrRootTarget, rel)
	}
	if IsProtectedPath(abs, v.ProtectedPaths) || IsWithinProtectedTree(abs, v.ProtectedTrees) {
		return "", fmt.Errorf("%w: %s", ErrProtectedPath, abs)
	}
	if forDelete {
		for _, tree := range v.ProtectedTrees {
			if hasPathPrefix(tree, abs) {
				return "", fmt.Errorf("%w: %s contains %s", ErrProtectedPath, abs, tree)
			}
		}
	}
	return abs, nil
}

// Protected reports whether path falls in one of the extra protected trees.
// Used to skip individual entries while emptying a directory.
func (v *Validator) Protected(path string) bool {
	return IsWithinProtectedTree(path, v.ProtectedTrees)
}

// IsWithinRoot checks if path is root or below it
func IsWithinRoot(path, root string) bool {
	return hasPathPrefix(path, root)
}

// IsProtectedPath checks if path is exactly one of the protected system
// paths. A root below /usr stays usable, /usr itself never is.
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)

	// Hard block: "/" exact
	if p == string(os.PathSeparator) {
		return true
	}

	for _, prot := range protected {
		if p == filepath.Clean(prot) {
			return true
		}
	}
	return false
}

// IsWithinProtectedTree checks if path is, or is below, any protected tree
func IsWithinProtectedTree(path string, trees []string) bool {
	for _, tree := range trees {
		if hasPathPrefix(path, tree) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// normalizeTrees drops blanks and cleans the remaining entries
func normalizeTrees(trees []string) []string {
	out := make([]string, 0, len(trees))
	for _, t := range trees {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, filepath.Clean(t))
	}
	return out
}

// defaultProtected returns the system paths that are never a valid target
func defaultProtected() []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/var",
		"/home",
		"/root",
		"/tmp",
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		base = append(base, filepath.Clean(home))
	}
	return base
}
