package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"motioncanvas/internal/logging"
)

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestImageDecodesAndCaches(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "red.png")
	s := NewStore(dir, logging.NewNop())

	first, err := s.Image("red.png")
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if first.Bounds().Dx() != 2 {
		t.Errorf("decoded width = %d, want 2", first.Bounds().Dx())
	}

	// Deleting the file exposes whether the second lookup hits the cache.
	os.Remove(filepath.Join(dir, "red.png"))
	second, err := s.Image("red.png")
	if err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if second != first {
		t.Error("second lookup decoded again instead of using the cache")
	}
}

func TestImageMissingFile(t *testing.T) {
	s := NewStore(t.TempDir(), logging.NewNop())
	if _, err := s.Image("ghost.png"); err == nil {
		t.Error("expected error for missing asset")
	}
}

func TestImageUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "junk.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	s := NewStore(dir, logging.NewNop())
	if _, err := s.Image("junk.png"); err == nil {
		t.Error("expected error for undecodable asset")
	}
}

func TestPathResolution(t *testing.T) {
	s := NewStore("/assets", logging.NewNop())
	if got := s.Path("a.png"); got != filepath.Join("/assets", "a.png") {
		t.Errorf("relative ref resolved to %s", got)
	}
	if got := s.Path("/tmp/b.png"); got != "/tmp/b.png" {
		t.Errorf("absolute ref resolved to %s", got)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "here.png")
	s := NewStore(dir, logging.NewNop())
	if !s.Exists("here.png") {
		t.Error("Exists(here.png) = false")
	}
	if s.Exists("gone.png") {
		t.Error("Exists(gone.png) = true")
	}
}
