package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const fileHeaderLen = 8

// File stores each key as one file under Dir: an 8-byte big-endian
// version followed by the data. Writes go to a temp file that is
// renamed over the old one, so readers never see a torn record. Put
// holds an exclusive flock on a sidecar lock file, which serializes
// writers across processes sharing the directory.
type File struct {
	Dir string
}

// NewFile creates dir if needed and returns a File backend rooted there.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: mkdir %s: %w", dir, err)
	}
	return &File{Dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.Dir, url.PathEscape(key))
}

func (f *File) Get(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	return readRecordFile(f.path(key))
}

func readRecordFile(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrKeyNotFound
		}
		return Record{}, fmt.Errorf("file store: read: %w", err)
	}
	if len(b) < fileHeaderLen {
		// A truncated header cannot come from Put; report version 0
		// with the raw bytes so the caller's decoder rejects it.
		return Record{Data: b}, nil
	}
	return Record{
		Version: binary.BigEndian.Uint64(b[:fileHeaderLen]),
		Data:    b[fileHeaderLen:],
	}, nil
}

func (f *File) Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path := f.path(key)

	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return 0, err
	}
	defer unlock()

	cur, err := readRecordFile(path)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		cur = Record{}
	case err != nil:
		return 0, err
	}
	if cur.Version != expected {
		return 0, ErrVersionMismatch
	}

	next := expected + 1
	buf := make([]byte, fileHeaderLen+len(data))
	binary.BigEndian.PutUint64(buf[:fileHeaderLen], next)
	copy(buf[fileHeaderLen:], data)
	if err := writeFileAtomic(path, buf); err != nil {
		return 0, err
	}
	return next, nil
}

func (f *File) Close() error { return nil }

func lockFile(path string) (func(), error) {
	lf, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("file store: open lock: %w", err)
	}
	if err := unix.Flock(int(lf.Fd()), unix.LOCK_EX); err != nil {
		lf.Close()
		return nil, fmt.Errorf("file store: flock: %w", err)
	}
	return func() {
		_ = unix.Flock(int(lf.Fd()), unix.LOCK_UN)
		_ = lf.Close()
	}, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}
