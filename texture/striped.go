package texture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/echoflaresat/lenscam/colors"
	"golang.org/x/exp/mmap"
)

var ErrInvalidTiffHeader = errors.New("invalid TIFF header")

// https://www.loc.gov/preservation/digital/formats/content/tiff_tags.shtml
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
)

const (
	typeShort = 3
	typeLong  = 4
)

const (
	photometricBlackIsZero = 1
	photometricRGB         = 2
)

type tiffHeader struct {
	Width, Height   int
	RowsPerStrip    int
	StripOffsets    []int
	StripByteCounts []int
	BitsPerSample   []int
	SamplesPerPixel int
	Photometric     int
	Compression     int
	PlanarConfig    int
}

// parseTiffHeader reads the first IFD of a file of the given size. Malformed
// files fail with ErrInvalidTiffHeader; well-formed but unsupported layouts
// with a plain error.
func parseTiffHeader(r io.ReaderAt, size int64) (tiffHeader, error) {
	read := func(offset int64, n int) ([]byte, error) {
		buf := make([]byte, n)
		_, err := r.ReadAt(buf, offset)
		return buf, err
	}

	head, err := read(0, 8)
	if err != nil {
		return tiffHeader{}, fmt.Errorf("%w: %v", ErrInvalidTiffHeader, err)
	}

	var bo binary.ByteOrder
	switch string(head[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return tiffHeader{}, fmt.Errorf("%w: byte order %q", ErrInvalidTiffHeader, head[0:2])
	}
	if bo.Uint16(head[2:4]) != 42 {
		return tiffHeader{}, fmt.Errorf("%w: bad magic number", ErrInvalidTiffHeader)
	}
	ifdOffset := int64(bo.Uint32(head[4:8]))

	countRaw, err := read(ifdOffset, 2)
	if err != nil {
		return tiffHeader{}, fmt.Errorf("%w: %v", ErrInvalidTiffHeader, err)
	}
	numEntries := int(bo.Uint16(countRaw))
	entries, err := read(ifdOffset+2, numEntries*12)
	if err != nil {
		return tiffHeader{}, fmt.Errorf("%w: %v", ErrInvalidTiffHeader, err)
	}

	// values decodes a SHORT or LONG entry, inline or at its offset.
	values := func(entry []byte) ([]int, error) {
		typ := bo.Uint16(entry[2:4])
		count := int64(bo.Uint32(entry[4:8]))
		elem := int64(4)
		if typ == typeShort {
			elem = 2
		} else if typ != typeLong {
			return nil, fmt.Errorf("unsupported field type %d", typ)
		}
		if count*elem > size {
			return nil, fmt.Errorf("%w: %d values overrun a %d byte file", ErrInvalidTiffHeader, count, size)
		}
		raw := entry[8:12]
		if count*elem > 4 {
			if raw, err = read(int64(bo.Uint32(entry[8:12])), int(count*elem)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidTiffHeader, err)
			}
		}
		out := make([]int, count)
		for i := range out {
			if elem == 2 {
				out[i] = int(bo.Uint16(raw[i*2:]))
			} else {
				out[i] = int(bo.Uint32(raw[i*4:]))
			}
		}
		return out, nil
	}

	hdr := tiffHeader{
		SamplesPerPixel: 1,
		Compression:     1,
		PlanarConfig:    1,
		Photometric:     -1,
	}
	for i := 0; i < numEntries; i++ {
		entry := entries[i*12 : (i+1)*12]
		tag := bo.Uint16(entry[0:2])
		switch tag {
		case tagImageWidth, tagImageLength, tagBitsPerSample, tagCompression,
			tagPhotometricInterpretation, tagStripOffsets, tagSamplesPerPixel,
			tagRowsPerStrip, tagStripByteCounts, tagPlanarConfiguration:
		default:
			continue
		}
		vals, err := values(entry)
		if err != nil {
			return tiffHeader{}, fmt.Errorf("tag %d: %w", tag, err)
		}
		if len(vals) == 0 {
			return tiffHeader{}, fmt.Errorf("%w: empty tag %d", ErrInvalidTiffHeader, tag)
		}
		switch tag {
		case tagImageWidth:
			hdr.Width = vals[0]
		case tagImageLength:
			hdr.Height = vals[0]
		case tagBitsPerSample:
			hdr.BitsPerSample = vals
		case tagCompression:
			hdr.Compression = vals[0]
		case tagPhotometricInterpretation:
			hdr.Photometric = vals[0]
		case tagStripOffsets:
			hdr.StripOffsets = vals
		case tagSamplesPerPixel:
			hdr.SamplesPerPixel = vals[0]
		case tagRowsPerStrip:
			hdr.RowsPerStrip = vals[0]
		case tagStripByteCounts:
			hdr.StripByteCounts = vals
		case tagPlanarConfiguration:
			hdr.PlanarConfig = vals[0]
		}
	}

	if hdr.Width <= 0 || hdr.Height <= 0 {
		return tiffHeader{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidTiffHeader, hdr.Width, hdr.Height)
	}
	if hdr.RowsPerStrip <= 0 || hdr.RowsPerStrip > hdr.Height {
		hdr.RowsPerStrip = hdr.Height
	}
	return hdr, nil
}

// stripedTiff serves pixels of an uncompressed, chunky, 8-bit striped TIFF
// straight from a memory map, so large textures are never decoded whole.
type stripedTiff struct {
	header tiffHeader
	reader *mmap.ReaderAt
}

func loadStripedTiff(path string) (*stripedTiff, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := newStripedTiff(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return t, nil
}

func newStripedTiff(reader *mmap.ReaderAt) (*stripedTiff, error) {
	size := int64(reader.Len())
	h, err := parseTiffHeader(reader, size)
	if err != nil {
		return nil, err
	}
	if h.Compression != 1 {
		return nil, fmt.Errorf("unsupported compression: %d", h.Compression)
	}
	if h.PlanarConfig != 1 {
		return nil, fmt.Errorf("unsupported planar configuration: %d", h.PlanarConfig)
	}
	for _, b := range h.BitsPerSample {
		if b != 8 {
			return nil, fmt.Errorf("unsupported bits per sample: %v", h.BitsPerSample)
		}
	}
	switch {
	case h.Photometric == photometricBlackIsZero && h.SamplesPerPixel == 1:
	case h.Photometric == photometricRGB && (h.SamplesPerPixel == 3 || h.SamplesPerPixel == 4):
	default:
		return nil, fmt.Errorf("unsupported photometric %d with %d samples/pixel", h.Photometric, h.SamplesPerPixel)
	}
	strips := (h.Height + h.RowsPerStrip - 1) / h.RowsPerStrip
	if len(h.StripOffsets) < strips || len(h.StripOffsets) != len(h.StripByteCounts) {
		return nil, fmt.Errorf("invalid strip offset/length")
	}
	// every row At can address must lie inside the mapping
	rowBytes := int64(h.Width * h.SamplesPerPixel)
	for i := 0; i < strips; i++ {
		rows := min(h.RowsPerStrip, h.Height-i*h.RowsPerStrip)
		off, n := int64(h.StripOffsets[i]), int64(h.StripByteCounts[i])
		if n < int64(rows)*rowBytes {
			return nil, fmt.Errorf("strip %d holds %d bytes, want %d", i, n, int64(rows)*rowBytes)
		}
		if off+n > size {
			return nil, fmt.Errorf("strip %d at %d+%d runs past the %d byte file", i, off, n, size)
		}
	}
	return &stripedTiff{header: h, reader: reader}, nil
}

func (t *stripedTiff) ColorModel() color.Model {
	return color.NRGBAModel
}

func (t *stripedTiff) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.header.Width, t.header.Height)
}

func (t *stripedTiff) At(x, y int) color.Color {
	h := t.header
	if !(image.Point{x, y}.In(t.Bounds())) {
		return colors.Color4{}
	}

	strip := y / h.RowsPerStrip
	localY := y % h.RowsPerStrip
	idx := h.StripOffsets[strip] + (localY*h.Width+x)*h.SamplesPerPixel

	var buf [4]byte
	px := buf[:h.SamplesPerPixel]
	if _, err := t.reader.ReadAt(px, int64(idx)); err != nil {
		panic(fmt.Sprintf("could not read pixel at (%d,%d): %v", x, y, err))
	}

	switch h.SamplesPerPixel {
	case 1:
		return colors.From8BitRgb(px[0], px[0], px[0], 255)
	case 3:
		return colors.From8BitRgb(px[0], px[1], px[2], 255)
	default:
		return colors.From8BitRgb(px[0], px[1], px[2], px[3])
	}
}

func (t *stripedTiff) Close() error {
	return t.reader.Close()
}
