package texture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/echoflaresat/lenscam/colors"
	"github.com/echoflaresat/lenscam/vectors"
	xtiff "golang.org/x/image/tiff"
)

// gridImage encodes the texel position in the color: R = 60x, G = 100y.
func gridImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(60 * x), G: uint8(100 * y), B: 7, A: 255})
		}
	}
	return img
}

func expectTexel(t *testing.T, tex Texture, p vectors.Vec3, x, y int) {
	t.Helper()
	want := colors.From8BitRgb(uint8(60*x), uint8(100*y), 7, 255)
	got := tex.Sample(p)
	if d := vectors.Distance(
		vectors.Vec3{X: got.R, Y: got.G, Z: got.B},
		vectors.Vec3{X: want.R, Y: want.G, Z: want.B},
	); d > 1e-9 {
		t.Errorf("Sample(%v) = %+v, want texel (%d,%d) %+v", p, got, x, y, want)
	}
}

func checkGrid(t *testing.T, tex Texture) {
	t.Helper()
	if tex.Width != 4 || tex.Height != 3 {
		t.Fatalf("size %dx%d, want 4x3", tex.Width, tex.Height)
	}
	expectTexel(t, tex, vectors.Vec3{X: 1}, 2, 1)
	expectTexel(t, tex, vectors.Vec3{X: -1}, 3, 1)
	expectTexel(t, tex, vectors.Vec3{Y: -1}, 0, 1)
	expectTexel(t, tex, vectors.Vec3{Z: 1}, 2, 0)
	expectTexel(t, tex, vectors.Vec3{Z: -1}, 2, 2)
}

func TestSampleInMemory(t *testing.T) {
	checkGrid(t, FromImage(gridImage()))
}

func TestZeroTexture(t *testing.T) {
	var tex Texture
	if tex.Valid() {
		t.Fatalf("zero texture reports valid")
	}
	if got := tex.Sample(vectors.Vec3{X: 1}); got != colors.Black() {
		t.Fatalf("zero texture sampled %+v", got)
	}
	if err := tex.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func writeFile(t *testing.T, name string, encode func(f *os.File) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := encode(f); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func TestLoadStripedTiffIsMapped(t *testing.T) {
	path := writeFile(t, "grid.tif", func(f *os.File) error {
		return xtiff.Encode(f, gridImage(), nil)
	})

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer tex.Close()

	if _, ok := tex.img.(*stripedTiff); !ok {
		t.Fatalf("uncompressed TIFF was decoded instead of mapped: %T", tex.img)
	}
	checkGrid(t, tex)
}

func TestLoadCompressedTiffFallsBack(t *testing.T) {
	path := writeFile(t, "grid-deflate.tif", func(f *os.File) error {
		return xtiff.Encode(f, gridImage(), &xtiff.Options{Compression: xtiff.Deflate})
	})

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := tex.img.(*stripedTiff); ok {
		t.Fatalf("compressed TIFF should not be mapped")
	}
	checkGrid(t, tex)
}

func TestLoadPNG(t *testing.T) {
	path := writeFile(t, "grid.png", func(f *os.File) error {
		return png.Encode(f, gridImage())
	})

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkGrid(t, tex)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if _, err := parseTiffHeader(f, fi.Size()); !errors.Is(err, ErrInvalidTiffHeader) {
		t.Fatalf("PNG parsed as TIFF header: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.tif")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestCache(t *testing.T) {
	path := writeFile(t, "grid.png", func(f *os.File) error {
		return png.Encode(f, gridImage())
	})

	c, err := NewCache(2)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	a, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// a cached hit must survive the file disappearing
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	b, err := c.Load(path)
	if err != nil {
		t.Fatalf("cached Load: %v", err)
	}
	if a.img != b.img {
		t.Fatalf("cache returned a different texture")
	}
	if empty, err := c.Load(""); err != nil || empty.Valid() {
		t.Fatalf("empty path: %+v, %v", empty, err)
	}
	if c.Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", c.Len())
	}
}

// grayTiff builds a little-endian 2x2 8-bit gray TIFF with a single strip
// described by offset and byteCount, followed by pixels.
func grayTiff(offset, byteCount uint32, pixels []byte) []byte {
	type field struct {
		tag, typ uint16
		value    uint32
	}
	fields := []field{
		{tagImageWidth, typeShort, 2},
		{tagImageLength, typeShort, 2},
		{tagBitsPerSample, typeShort, 8},
		{tagCompression, typeShort, 1},
		{tagPhotometricInterpretation, typeShort, photometricBlackIsZero},
		{tagStripOffsets, typeLong, offset},
		{tagRowsPerStrip, typeShort, 2},
		{tagStripByteCounts, typeLong, byteCount},
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II")
	_ = binary.Write(&buf, le, uint16(42))
	_ = binary.Write(&buf, le, uint32(8))
	_ = binary.Write(&buf, le, uint16(len(fields)))
	for _, f := range fields {
		_ = binary.Write(&buf, le, f.tag)
		_ = binary.Write(&buf, le, f.typ)
		_ = binary.Write(&buf, le, uint32(1))
		if f.typ == typeShort {
			_ = binary.Write(&buf, le, uint16(f.value))
			_ = binary.Write(&buf, le, uint16(0))
		} else {
			_ = binary.Write(&buf, le, f.value)
		}
	}
	_ = binary.Write(&buf, le, uint32(0)) // no next IFD
	buf.Write(pixels)
	return buf.Bytes()
}

// grayTiffData is where grayTiff places the pixels: header, entry count,
// eight entries and the next-IFD offset.
const grayTiffData = 8 + 2 + 8*12 + 4

func writeBytes(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadGrayStripedTiff(t *testing.T) {
	path := writeBytes(t, "gray.tif", grayTiff(grayTiffData, 4, []byte{10, 20, 30, 40}))

	tex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer tex.Close()
	if _, ok := tex.img.(*stripedTiff); !ok {
		t.Fatalf("gray TIFF was decoded instead of mapped: %T", tex.img)
	}
	if got := colors.FromStandardColor(tex.img.At(1, 1)); got != colors.From8BitRgb(40, 40, 40, 255) {
		t.Fatalf("texel (1,1): got %+v", got)
	}
}

func TestStripedTiffRejectsBadStrips(t *testing.T) {
	cases := map[string][]byte{
		"offset past end":    grayTiff(100000, 4, []byte{10, 20, 30, 40}),
		"short byte count":   grayTiff(grayTiffData, 2, []byte{10, 20, 30, 40}),
		"truncated pixels":   grayTiff(grayTiffData, 4, []byte{10, 20}),
		"byte count overrun": grayTiff(grayTiffData, 5, []byte{10, 20, 30, 40}),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeBytes(t, "bad.tif", data)
			if st, err := loadStripedTiff(path); err == nil {
				st.Close()
				t.Fatalf("inconsistent strip was mapped")
			}

			tex, err := Load(path)
			if err != nil {
				return
			}
			defer tex.Close()
			if _, ok := tex.img.(*stripedTiff); ok {
				t.Fatalf("Load mapped an inconsistent strip")
			}
			tex.Sample(vectors.Vec3{X: 1})
		})
	}
}

func TestParseTiffHeaderBoundsValueCount(t *testing.T) {
	data := grayTiff(grayTiffData, 4, []byte{10, 20, 30, 40})
	// StripOffsets is the sixth entry; claim a billion LONG values
	at := 8 + 2 + 5*12 + 4
	binary.LittleEndian.PutUint32(data[at:], 1<<30)

	_, err := parseTiffHeader(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrInvalidTiffHeader) {
		t.Fatalf("got %v, want ErrInvalidTiffHeader", err)
	}
}

func TestCacheClosesEvictedTextures(t *testing.T) {
	pixels := []byte{10, 20, 30, 40}
	first := writeBytes(t, "first.tif", grayTiff(grayTiffData, 4, pixels))
	second := writeBytes(t, "second.tif", grayTiff(grayTiffData, 4, pixels))

	c, err := NewCache(1)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	a, err := c.Load(first)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := c.Load(second)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	mapped := func(tex Texture) bool {
		st, ok := tex.img.(*stripedTiff)
		if !ok {
			t.Fatalf("texture is not mapped: %T", tex.img)
		}
		return st.reader.Len() > 0
	}
	if mapped(a) {
		t.Fatalf("evicted texture is still mapped")
	}
	if !mapped(b) {
		t.Fatalf("resident texture was unmapped")
	}
	c.Close()
	if mapped(b) || c.Len() != 0 {
		t.Fatalf("Close left %d entries mapped", c.Len())
	}
}
