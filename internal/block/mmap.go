package block

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"unsafe"
)

// memoryMap is a growable memory-mapped file, adapted from the single fixed
// mapping in internal/memory/mmap.go into a page-addressed store's backing
// buffer.
type memoryMap struct {
	mu   sync.RWMutex
	file *os.File
	data []byte
	size int64
	path string
}

func newMemoryMap(path string, initialSize int64) (*memoryMap, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	if size < initialSize {
		size = initialSize
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to truncate file: %w", err)
		}
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	return &memoryMap{file: file, data: data, size: size, path: path}, nil
}

// bytes returns the live mapping. Callers must hold mu for the duration of
// use; Resize invalidates any previously returned slice.
func (m *memoryMap) bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}

// Size returns the current mapped length.
func (m *memoryMap) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Resize doubles (or grows to at least newSize) the backing file and remaps.
func (m *memoryMap) Resize(newSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if newSize <= m.size {
		return nil
	}
	if err := syscall.Munmap(m.data); err != nil {
		return fmt.Errorf("failed to unmap memory: %w", err)
	}
	if err := m.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}
	data, err := syscall.Mmap(int(m.file.Fd()), 0, int(newSize), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to remap file: %w", err)
	}
	m.data = data
	m.size = newSize
	return nil
}

// Sync flushes dirty pages to disk via msync.
func (m *memoryMap) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.data) == 0 {
		return nil
	}
	_, _, errno := syscall.Syscall(syscall.SYS_MSYNC, uintptr(unsafe.Pointer(&m.data[0])), uintptr(m.size), syscall.MS_SYNC)
	if errno != 0 {
		return fmt.Errorf("msync failed: %v", errno)
	}
	return nil
}

// Close unmaps and closes the backing file.
func (m *memoryMap) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.data != nil {
		if unmapErr := syscall.Munmap(m.data); unmapErr != nil {
			err = fmt.Errorf("failed to unmap memory: %w", unmapErr)
		}
		m.data = nil
	}
	if m.file != nil {
		if closeErr := m.file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", closeErr)
		}
		m.file = nil
	}
	return err
}
