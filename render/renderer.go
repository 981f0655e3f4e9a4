package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/echoflaresat/lenscam/colors"
	"github.com/echoflaresat/lenscam/sampling"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidOptions = errors.New("invalid render options")

// Tile selects one cell of the full frame split into Cols×Rows, counted
// row-major from the top-left. The zero Tile is the whole frame.
type Tile struct {
	Cols, Rows, Index int
}

// Options controls sampling and parallelism of RenderScene.
type Options struct {
	Width, Height int
	Samples       int    // n×n stratified samples per pixel
	Seed          uint64 // pixel (x, y) draws from stream y*Width+x
	Workers       int    // <= 0 means GOMAXPROCS
	Tile          Tile
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	if o.Samples <= 0 {
		return fmt.Errorf("%w: samples %d", ErrInvalidOptions, o.Samples)
	}
	if t := o.Tile; t != (Tile{}) {
		if t.Cols <= 0 || t.Rows <= 0 || t.Index < 0 || t.Index >= t.Cols*t.Rows {
			return fmt.Errorf("%w: tile %d of %dx%d", ErrInvalidOptions, t.Index, t.Cols, t.Rows)
		}
		if o.Width%t.Cols != 0 || o.Height%t.Rows != 0 {
			return fmt.Errorf("%w: %dx%d does not split into %dx%d tiles", ErrInvalidOptions, o.Width, o.Height, t.Cols, t.Rows)
		}
	}
	return nil
}

// Rect returns the region of the full frame covered by the tile.
func (o Options) Rect() image.Rectangle {
	t := o.Tile
	if t == (Tile{}) {
		return image.Rect(0, 0, o.Width, o.Height)
	}
	w, h := o.Width/t.Cols, o.Height/t.Rows
	x, y := (t.Index%t.Cols)*w, (t.Index/t.Cols)*h
	return image.Rect(x, y, x+w, y+h)
}

// GenerateSupersamplingOffsets returns n×n offsets in [-0.5, +0.5] for
// supersampling, as pairs (dx, dy) with pixel-center spacing.
func GenerateSupersamplingOffsets(n int) [][2]float64 {
	if n <= 0 {
		return nil
	}
	step := 1.0 / float64(n)
	out := make([][2]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dx := (float64(i)+0.5)*step - 0.5
			dy := (float64(j)+0.5)*step - 0.5
			out = append(out, [2]float64{dx, dy})
		}
	}
	return out
}

// RenderScene traces the requested region of the frame. Rows are rendered in
// parallel. Every pixel owns a generator keyed by its position in the full
// frame, so a pixel comes out the same whatever the tile or scheduling.
func RenderScene(ctx context.Context, cam Camera, scene Scene, opts Options) (*image.NRGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rect := opts.Rect()
	img := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	offsets := GenerateSupersamplingOffsets(opts.Samples)

	var done atomic.Int64
	rows := int64(rect.Dy())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := rect.Min.X; x < rect.Max.X; x++ {
				rng := sampling.New(opts.Seed, uint64(y*opts.Width+x))
				c := scene.pixel(cam, rng, offsets, x, y, opts.Width, opts.Height)
				img.SetNRGBA(x-rect.Min.X, y-rect.Min.Y, c.ToNRGBA())
			}
			if n := done.Add(1); n*10/rows != (n-1)*10/rows {
				slog.Info("rendering", "progress", fmt.Sprintf("%d%%", n*100/rows))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return img, nil
}

// pixel averages the supersamples of pixel (x, y) of a width×height frame
// and applies the scene's grading.
func (sc *Scene) pixel(cam Camera, rng sampling.Source, offsets [][2]float64, x, y, width, height int) colors.Color4 {
	acc := colors.Color4{}
	for _, off := range offsets {
		s := (float64(x) + 0.5 + off[0]) / float64(width)
		t := 1 - (float64(y)+0.5+off[1])/float64(height) // image rows grow downward
		acc = acc.Add(sc.shade(cam.GetRay(rng, s, t)))
	}
	c := acc.Scale(1.0 / float64(len(offsets)))

	if sc.Warm != (colors.Color4{}) {
		c = c.Mul(sc.Warm)
	}
	if sc.Saturation != 0 {
		c = c.BoostSaturation(sc.Saturation)
	}
	return c.CompositeOverBlack()
}
