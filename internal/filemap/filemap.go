// Package filemap provides a growable memory-mapped view over a single host file.
package filemap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileMap represents a memory-mapped file that can grow in place.
type FileMap struct {
	file *os.File
	data []byte
	size int64
}

// Open opens or creates path and maps at least initialSize bytes of it into
// memory. If the file is smaller than initialSize it is extended first.
func Open(path string, initialSize int64) (*FileMap, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	size := info.Size()
	if size < initialSize {
		if err := file.Truncate(initialSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to extend file: %w", err)
		}
		size = initialSize
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap: %w", err)
	}

	return &FileMap{file: file, data: data, size: size}, nil
}

// Close unmaps and closes the underlying file.
func (m *FileMap) Close() error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return fmt.Errorf("failed to munmap: %w", err)
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			return fmt.Errorf("failed to close file: %w", err)
		}
		m.file = nil
	}
	return nil
}

// Sync flushes the mapped pages to disk.
func (m *FileMap) Sync() error {
	if m.data == nil {
		return fmt.Errorf("filemap is closed")
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Size returns the current mapped size in bytes.
func (m *FileMap) Size() int64 {
	return m.size
}

// Data returns the underlying mapped byte slice.
// The slice is invalidated by Close or Resize.
func (m *FileMap) Data() []byte {
	return m.data
}

// Slice returns a sub-slice of the mapped memory, or nil if the range is
// out of bounds.
func (m *FileMap) Slice(offset, length int64) []byte {
	if m.data == nil {
		return nil
	}
	if offset < 0 || length < 0 || offset+length > m.size {
		return nil
	}
	return m.data[offset : offset+length]
}

// Resize grows the file and its mapping to newSize. All slices previously
// returned by Data/Slice are invalidated on success.
//
// The new mapping is created before the old one is torn down: if extending
// the file or creating the new mapping fails, the old mapping is left
// intact and still usable.
func (m *FileMap) Resize(newSize int64) error {
	if newSize <= m.size {
		return nil
	}

	if err := m.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to extend file during resize: %w", err)
	}

	newData, err := unix.Mmap(int(m.file.Fd()), 0, int(newSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to remap during resize: %w", err)
	}

	oldData := m.data
	m.data = newData
	m.size = newSize

	if err := unix.Munmap(oldData); err != nil {
		return fmt.Errorf("failed to unmap old mapping after resize: %w", err)
	}

	return nil
}
