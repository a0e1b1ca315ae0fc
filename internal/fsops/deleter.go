package fsops

import "github.com/spf13/afero"

// Deleter abstracts filesystem delete operations
// Enables tests to prove a hook performs no deletions
type Deleter interface {
	Remove(path string) error
	RemoveAll(path string) error
}

// FsDeleter implements Deleter on top of an afero filesystem
type FsDeleter struct {
	Fs afero.Fs
}

// NewOsDeleter returns a Deleter backed by the real filesystem
func NewOsDeleter() FsDeleter {
	return FsDeleter{Fs: afero.NewOsFs()}
}

func (d FsDeleter) Remove(path string) error {
	return d.Fs.Remove(path)
}

func (d FsDeleter) RemoveAll(path string) error {
	return d.Fs.RemoveAll(path)
}
