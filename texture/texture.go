package texture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/echoflaresat/lenscam/colors"
	"github.com/echoflaresat/lenscam/vectors"
	"github.com/echoflaresat/tiff"

	_ "golang.org/x/image/webp" // register WebP format with image.Decode
	_ "image/jpeg"              // register JPEG format with image.Decode
	_ "image/png"               // register PNG format with image.Decode
)

// Texture is an equirectangular map sampled by ECEF direction.
// The zero Texture is invalid and samples as black.
type Texture struct {
	Width  int
	Height int
	img    image.Image
}

// Load opens an image file as a texture. Uncompressed striped TIFFs are
// memory mapped; everything else is decoded into memory.
func Load(path string) (Texture, error) {
	st, err := loadStripedTiff(path)
	if err == nil {
		return FromImage(st), nil
	}
	if !errors.Is(err, ErrInvalidTiffHeader) {
		slog.Warn("failed to map striped TIFF", "path", path, "error", err)
	}

	img, err := DecodeFile(path)
	if err != nil {
		return Texture{}, fmt.Errorf("load texture %s: %w", path, err)
	}
	return FromImage(img), nil
}

func FromImage(img image.Image) Texture {
	b := img.Bounds()
	return Texture{
		Width:  b.Dx(),
		Height: b.Dy(),
		img:    img,
	}
}

// DecodeFile decodes a TIFF, PNG, JPEG or WebP file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err == nil {
		return img, nil
	}

	// fallback to image codecs
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, _, err = image.Decode(f)
	return img, err
}

func (t Texture) Valid() bool {
	return t.img != nil && t.Width > 0 && t.Height > 0
}

// Close releases a memory-mapped backing file, if any.
func (t Texture) Close() error {
	if c, ok := t.img.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Sample maps the 3D vector P (ECEF) to longitude/latitude texture
// coordinates and returns the nearest texel.
func (t Texture) Sample(P vectors.Vec3) colors.Color4 {
	if !t.Valid() {
		return colors.Black()
	}
	x, y := t.texel(P)
	b := t.img.Bounds()
	return colors.FromStandardColor(t.img.At(b.Min.X+x, b.Min.Y+y))
}

func (t Texture) texel(P vectors.Vec3) (int, int) {
	lat := math.Atan2(P.Z, math.Hypot(P.X, P.Y))
	lon := math.Atan2(P.Y, P.X)
	if lon < 0 {
		lon += 2 * math.Pi
	}

	// longitude 0 sits at the horizontal center of the map
	u := float64(t.Width)/2.0 + lon/(2*math.Pi)*float64(t.Width-1)
	u = math.Mod(u, float64(t.Width))
	v := (0.5 - lat/math.Pi) * float64(t.Height-1)

	return clampInt(int(u), 0, t.Width-1), clampInt(int(v), 0, t.Height-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
