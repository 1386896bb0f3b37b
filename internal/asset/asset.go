// Package asset decodes referenced media files for the renderer. Decoded
// images are cached: exports touch the same asset once per job, not once
// per frame.
package asset

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Store resolves asset references to decoded images. Safe for concurrent
// use across export jobs.
type Store struct {
	mu     sync.Mutex
	root   string
	images map[string]image.Image
	logger *slog.Logger
}

// NewStore creates a store resolving relative references against root.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   root,
		images: make(map[string]image.Image),
		logger: logger,
	}
}

// Image decodes the referenced asset, serving repeated lookups from cache.
// PNG and JPEG decode through the standard image registry; PDF-backed assets
// render their first page.
func (s *Store) Image(ref string) (image.Image, error) {
	s.mu.Lock()
	if img, ok := s.images[ref]; ok {
		s.mu.Unlock()
		return img, nil
	}
	s.mu.Unlock()

	img, err := s.decode(ref)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.images[ref] = img
	s.mu.Unlock()
	return img, nil
}

// Path resolves a reference to an absolute file path.
func (s *Store) Path(ref string) string {
	if filepath.IsAbs(ref) || s.root == "" {
		return ref
	}
	return filepath.Join(s.root, ref)
}

// Exists reports whether the referenced file is present on disk.
func (s *Store) Exists(ref string) bool {
	_, err := os.Stat(s.Path(ref))
	return err == nil
}

func (s *Store) decode(ref string) (image.Image, error) {
	path := s.Path(ref)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return decodeDocumentPage(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: open %s: %w", ref, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("asset: decode %s: %w", ref, err)
	}
	return img, nil
}

func decodeDocumentPage(path string) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("asset: open document %s: %w", path, err)
	}
	defer doc.Close()
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("asset: render document page %s: %w", path, err)
	}
	return img, nil
}
