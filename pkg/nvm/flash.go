// Package nvm persists calibration constants in a single checksum-guarded
// flash page, cached in RAM and flushed on demand.
package nvm

import (
	"fmt"
	"os"
	"sync"
)

// erasedByte is the value NOR flash reads after an erase cycle.
const erasedByte = 0xFF

// Flash is one erasable page of nonvolatile storage. Write may only flip
// bits in erased regions, so callers erase the whole page before rewriting
// it.
type Flash interface {
	// Read copies the full page into p; len(p) must equal Size().
	Read(p []byte) error
	// Erase resets the whole page to the erased state.
	Erase() error
	// WriteAt programs len(p) bytes starting at off.
	WriteAt(off int, p []byte) error
	// Size returns the page size in bytes.
	Size() int
}

// FileFlash emulates a flash page in a regular file, created in the erased
// state on first open.
type FileFlash struct {
	mu   sync.Mutex
	path string
	size int
}

var _ Flash = (*FileFlash)(nil)

// OpenFileFlash opens (or creates) a file-backed page of the given size.
func OpenFileFlash(path string, size int) (*FileFlash, error) {
	if size <= 0 {
		return nil, fmt.Errorf("nvm: invalid page size %d", size)
	}
	f := &FileFlash{path: path, size: size}
	st, err := os.Stat(path)
	if err == nil && st.Size() == int64(size) {
		return f, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("nvm: stat %s: %w", path, err)
	}
	if err := f.Erase(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileFlash) Read(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(p) != f.size {
		return fmt.Errorf("nvm: read of %d bytes from a %d byte page", len(p), f.size)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("nvm: read %s: %w", f.path, err)
	}
	if len(data) != f.size {
		return fmt.Errorf("nvm: page file %s has %d bytes, want %d", f.path, len(data), f.size)
	}
	copy(p, data)
	return nil
}

func (f *FileFlash) Erase() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	blank := make([]byte, f.size)
	for i := range blank {
		blank[i] = erasedByte
	}
	if err := os.WriteFile(f.path, blank, 0o644); err != nil {
		return fmt.Errorf("nvm: erase %s: %w", f.path, err)
	}
	return nil
}

func (f *FileFlash) WriteAt(off int, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off < 0 || off+len(p) > f.size {
		return fmt.Errorf("nvm: write [%d, %d) outside page of %d bytes", off, off+len(p), f.size)
	}
	file, err := os.OpenFile(f.path, os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("nvm: open %s: %w", f.path, err)
	}
	defer file.Close()
	if _, err := file.WriteAt(p, int64(off)); err != nil {
		return fmt.Errorf("nvm: write %s: %w", f.path, err)
	}
	return nil
}

func (f *FileFlash) Size() int { return f.size }

// MemFlash is an in-memory page for tests and throwaway runs.
type MemFlash struct {
	mu  sync.Mutex
	buf []byte
}

var _ Flash = (*MemFlash)(nil)

// NewMemFlash creates an in-memory page of the given size, erased.
func NewMemFlash(size int) *MemFlash {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = erasedByte
	}
	return &MemFlash{buf: buf}
}

func (m *MemFlash) Read(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(p) != len(m.buf) {
		return fmt.Errorf("nvm: read of %d bytes from a %d byte page", len(p), len(m.buf))
	}
	copy(p, m.buf)
	return nil
}

func (m *MemFlash) Erase() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.buf {
		m.buf[i] = erasedByte
	}
	return nil
}

func (m *MemFlash) WriteAt(off int, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off+len(p) > len(m.buf) {
		return fmt.Errorf("nvm: write [%d, %d) outside page of %d bytes", off, off+len(p), len(m.buf))
	}
	copy(m.buf[off:], p)
	return nil
}

func (m *MemFlash) Size() int { return len(m.buf) }
