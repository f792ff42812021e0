package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempSuffix marks in-progress files. Anything ending in it is incomplete and
// safe to delete once no run holds the lock.
const TempSuffix = ".part"

// TempPattern is the os.CreateTemp pattern for every atomic write. Its length
// does not depend on the destination name, so any name that fits the
// filesystem limit can be written. Temp files are hidden so directory listings
// never show them.
const TempPattern = ".pcsync-*" + TempSuffix

// IsTempName reports whether name looks like a temp file created by
// CreateAtomic.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, TempSuffix)
}

// AtomicFile is a temp file in the destination directory that replaces the
// destination only on Commit.
type AtomicFile struct {
	file   *os.File
	dst    string
	mode   os.FileMode
	closed bool
	done   bool
}

// CreateAtomic opens a temp file next to dst.
func CreateAtomic(dst string, mode os.FileMode) (*AtomicFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), TempPattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &AtomicFile{file: tmp, dst: dst, mode: mode}, nil
}

// Write implements io.Writer.
func (f *AtomicFile) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

// TempPath returns the temp file location.
func (f *AtomicFile) TempPath() string {
	return f.file.Name()
}

// Close flushes and closes the temp file without publishing it. It is safe to
// call more than once.
func (f *AtomicFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	syncErr := f.file.Sync()
	closeErr := f.file.Close()
	if syncErr != nil {
		return fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	return nil
}

// Commit closes the temp file if needed and renames it over the destination.
// On failure the temp file is removed.
func (f *AtomicFile) Commit() error {
	if f.done {
		return errors.New("atomic file already finished")
	}
	if err := f.Close(); err != nil {
		f.Abort()
		return err
	}
	if err := os.Chmod(f.file.Name(), f.mode); err != nil {
		f.Abort()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(f.file.Name(), f.dst); err != nil {
		f.Abort()
		return fmt.Errorf("rename temp file: %w", err)
	}
	f.done = true
	return nil
}

// Abort discards the temp file. It is a no-op after a successful Commit.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	if !f.closed {
		f.closed = true
		_ = f.file.Close()
	}
	_ = os.Remove(f.file.Name())
}

// CopyFileAtomic streams src into a temp file next to dst, verifies the byte
// count, runs finalize on the temp path (when non-nil), and renames the result
// into place. dst is never visible in a partial state.
func CopyFileAtomic(src, dst string, mode os.FileMode, finalize func(tempPath string) error) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := CreateAtomic(dst, mode)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, in)
	if err != nil {
		out.Abort()
		return written, fmt.Errorf("copy: %w", err)
	}
	if written != srcInfo.Size() {
		out.Abort()
		return written, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if err := out.Close(); err != nil {
		out.Abort()
		return written, err
	}
	if finalize != nil {
		if err := finalize(out.TempPath()); err != nil {
			out.Abort()
			return written, err
		}
	}
	if err := out.Commit(); err != nil {
		return written, err
	}
	return written, nil
}

// WriteFileAtomic writes data to path via a temp file and rename.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	out, err := CreateAtomic(path, mode)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Abort()
		return fmt.Errorf("write temp file: %w", err)
	}
	return out.Commit()
}
