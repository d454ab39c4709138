// Package store: flash-backed ByteStream for the memory-constrained
// embedded build, kept behind the same interface as memStream so the
// session engine never knows which one it is driving. Grounded on the
// original_source netconf-light.c's cfs_open/cfs_seek/cfs_write/cfs_read
// pattern — truncate-on-open-for-write, explicit seek before every I/O.
package store

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// fileStream is a ByteStream backed by a single regular file, reopened on
// every Truncate the way the C agent's cfs_open(..., CFS_WRITE) did.
type fileStream struct {
	path   string
	f      *os.File
	length int
}

// NewFileStream returns a file-backed ByteStream rooted at dir/name.
func NewFileStream(dir, name string) (ByteStream, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "store: create dir %s", dir)
	}
	fs := &fileStream{path: filepath.Join(dir, name)}
	if info, err := os.Stat(fs.path); err == nil {
		fs.length = int(info.Size())
	}
	return fs, nil
}

func (fs *fileStream) Truncate() error {
	if fs.f != nil {
		_ = fs.f.Close()
	}
	f, err := os.OpenFile(fs.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "store: truncate %s", fs.path)
	}
	fs.f = f
	fs.length = 0
	return nil
}

func (fs *fileStream) ensureOpen() error {
	if fs.f != nil {
		return nil
	}
	f, err := os.OpenFile(fs.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return errors.Wrapf(err, "store: open %s", fs.path)
	}
	fs.f = f
	return nil
}

func (fs *fileStream) Append(b []byte) error {
	return fs.WriteAt(fs.length, b)
}

func (fs *fileStream) WriteAt(off int, b []byte) error {
	if err := fs.ensureOpen(); err != nil {
		return err
	}
	if _, err := fs.f.Seek(int64(off), io.SeekStart); err != nil {
		return errors.Wrapf(err, "store: seek %s", fs.path)
	}
	if _, err := fs.f.Write(b); err != nil {
		return errors.Wrapf(err, "store: write %s", fs.path)
	}
	if end := off + len(b); end > fs.length {
		fs.length = end
	}
	return nil
}

func (fs *fileStream) ReadAll() ([]byte, error) {
	if err := fs.ensureOpen(); err != nil {
		return nil, err
	}
	buf := make([]byte, fs.length)
	if _, err := fs.f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "store: read %s", fs.path)
	}
	return buf, nil
}

func (fs *fileStream) Len() int { return fs.length }

func (fs *fileStream) Close() error {
	if fs.f == nil {
		return nil
	}
	err := fs.f.Close()
	fs.f = nil
	return err
}
