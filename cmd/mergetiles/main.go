// Command mergetiles stitches tiles rendered with -tile back into one image.
//
//	mergetiles <cols>x<rows> <output.png|jpg> <tile0> <tile1> ...
//
// Tiles are given in row-major order, matching the tile index.
package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/echoflaresat/lenscam/texture"
	"golang.org/x/image/draw"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <cols>x<rows> <output.png> <tile1> <tile2> ...\n", os.Args[0])
		os.Exit(1)
	}

	var cols, rows int
	if _, err := fmt.Sscanf(os.Args[1], "%dx%d", &cols, &rows); err != nil || cols <= 0 || rows <= 0 {
		log.Fatalf("Invalid tile layout %q (expected NxM)", os.Args[1])
	}

	canvas, err := merge(cols, rows, os.Args[3:])
	if err != nil {
		log.Fatal(err)
	}
	if err := save(os.Args[2], canvas); err != nil {
		log.Fatal(err)
	}
}

// merge decodes the tiles and draws them onto one canvas. All tiles must
// share the size of the first.
func merge(cols, rows int, paths []string) (*image.NRGBA, error) {
	if len(paths) != cols*rows {
		return nil, fmt.Errorf("expected %d input files, got %d", cols*rows, len(paths))
	}

	var canvas *image.NRGBA
	var tileW, tileH int
	for idx, path := range paths {
		tile, err := texture.DecodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not load tile %q: %w", path, err)
		}

		b := tile.Bounds()
		if canvas == nil {
			tileW, tileH = b.Dx(), b.Dy()
			canvas = image.NewNRGBA(image.Rect(0, 0, cols*tileW, rows*tileH))
		} else if tileW != b.Dx() || tileH != b.Dy() {
			return nil, fmt.Errorf("tile size mismatch for %q: expected %dx%d, got %dx%d",
				path, tileW, tileH, b.Dx(), b.Dy())
		}

		x := (idx % cols) * tileW
		y := (idx / cols) * tileH
		draw.Draw(canvas, image.Rect(x, y, x+tileW, y+tileH), tile, b.Min, draw.Src)
	}
	return canvas, nil
}

func save(output string, canvas image.Image) error {
	fmt.Printf("-> creating %s\n", output)
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".png":
		return png.Encode(f, canvas)
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, canvas, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("unsupported output format: %s", ext)
	}
}
