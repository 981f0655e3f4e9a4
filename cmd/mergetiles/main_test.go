package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTile(t *testing.T, dir string, i int, c color.NRGBA, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, "tile"+string(rune('0'+i))+".png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestMergeRowMajor(t *testing.T) {
	dir := t.TempDir()
	palette := []color.NRGBA{
		{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255},
		{R: 255, G: 255, A: 255}, {G: 255, B: 255, A: 255}, {R: 255, B: 255, A: 255},
	}
	var paths []string
	for i, c := range palette {
		paths = append(paths, writeTile(t, dir, i, c, 4, 3))
	}

	canvas, err := merge(3, 2, paths)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if b := canvas.Bounds(); b.Dx() != 12 || b.Dy() != 6 {
		t.Fatalf("canvas bounds %v", b)
	}
	for i, want := range palette {
		x, y := (i%3)*4+1, (i/3)*3+1
		if got := canvas.NRGBAAt(x, y); got != want {
			t.Errorf("tile %d at (%d,%d): got %v, want %v", i, x, y, got, want)
		}
	}
}

func TestMergeRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTile(t, dir, 0, color.NRGBA{A: 255}, 4, 3),
		writeTile(t, dir, 1, color.NRGBA{A: 255}, 5, 3),
	}
	if _, err := merge(2, 1, paths); err == nil {
		t.Fatalf("expected a size mismatch error")
	}
	if _, err := merge(3, 1, paths); err == nil {
		t.Fatalf("expected a tile count error")
	}
}

func TestSaveRejectsUnknownFormat(t *testing.T) {
	if err := save(filepath.Join(t.TempDir(), "out.bmp"), image.NewNRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Fatalf("expected an unsupported format error")
	}
}
