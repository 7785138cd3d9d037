package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Preview is a short-lived local copy of a selected image file, used to show
// a thumbnail before upload. It must be released when replaced or on
// shutdown; Release is counted and runs exactly once per resource.
type Preview struct {
	ID   string
	Path string

	once    sync.Once
	release func()
}

// Release frees the local resource. Safe to call more than once; only the
// first call does anything.
func (p *Preview) Release() {
	p.once.Do(func() {
		if p.release != nil {
			p.release()
		}
	})
}

// PreviewStore holds the single current preview for a widget. Setting a new
// one releases the previous; Close releases whatever is left.
type PreviewStore struct {
	mu      sync.Mutex
	current *Preview
}

// NewPreviewStore returns an empty store.
func NewPreviewStore() *PreviewStore {
	return &PreviewStore{}
}

// Add copies the source file into a temporary preview resource and installs
// it as current, releasing the replaced one.
func (ps *PreviewStore) Add(sourcePath string) (*Preview, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source image: %w", err)
	}
	defer src.Close()

	id := uuid.NewString()
	dst, err := os.CreateTemp("", "shelfscan-preview-*"+filepath.Ext(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create preview file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to copy preview: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to finish preview: %w", err)
	}

	path := dst.Name()
	preview := &Preview{
		ID:      id,
		Path:    path,
		release: func() { os.Remove(path) },
	}
	ps.Set(preview)
	return preview, nil
}

// Set installs a preview, releasing the one it replaces.
func (ps *PreviewStore) Set(p *Preview) {
	ps.mu.Lock()
	prev := ps.current
	ps.current = p
	ps.mu.Unlock()
	if prev != nil {
		prev.Release()
	}
}

// Current returns the active preview, if any.
func (ps *PreviewStore) Current() *Preview {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.current
}

// Close releases the remaining preview, for page-unload equivalents.
func (ps *PreviewStore) Close() {
	ps.Set(nil)
}
