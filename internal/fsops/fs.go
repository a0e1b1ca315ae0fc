package fsops

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
)

// Kind classifies what a path points at
type Kind int

const (
	Missing Kind = iota
	File
	Dir
	Symlink
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Dir:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "missing"
	}
}

// lstat avoids following a final symlink when the filesystem supports it
func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

// absent reports whether a lookup error means nothing is at the path. A
// parent that is a regular file fails with ENOTDIR, which counts as absent.
func absent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// KindOf reports the kind of path without following a final symlink.
// A missing path is Missing with a nil error.
func KindOf(fsys afero.Fs, path string) (Kind, error) {
	info, err := lstat(fsys, path)
	if err != nil {
		if absent(err) {
			return Missing, nil
		}
		return Missing, err
	}
	return kindOfInfo(info), nil
}

func kindOfInfo(info fs.FileInfo) Kind {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		return Symlink
	case info.IsDir():
		return Dir
	default:
		return File
	}
}

// IsDir reports whether path is a directory, following symlinks
func IsDir(fsys afero.Fs, path string) (bool, error) {
	ok, err := afero.IsDir(fsys, path)
	if err != nil && absent(err) {
		return false, nil
	}
	return ok, err
}

// Entry is a non-directory found under a directory
type Entry struct {
	Path string
	Kind Kind
}

// ListFiles returns every non-directory entry below dir at any depth, in
// lexical order. Symlinked subdirectories are listed as entries and never
// descended into. With skipHidden, names starting with "." are left out and
// hidden directories are not walked.
func ListFiles(fsys afero.Fs, dir string, skipHidden bool) ([]Entry, error) {
	var out []Entry
	if err := listInto(fsys, dir, skipHidden, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func listInto(fsys afero.Fs, dir string, skipHidden bool, out *[]Entry) error {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if skipHidden && strings.HasPrefix(info.Name(), ".") {
			continue
		}
		p := filepath.Join(dir, info.Name())
		k := kindOfInfo(info)
		if k == Dir {
			if err := listInto(fsys, p, skipHidden, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, Entry{Path: p, Kind: k})
	}
	return nil
}
