package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/echoflaresat/lenscam/colors"
	"github.com/echoflaresat/lenscam/earth"
	"github.com/echoflaresat/lenscam/render"
	"github.com/echoflaresat/lenscam/texture"
)

var errInvalidConfig = errors.New("invalid configuration")

type config struct {
	lat, lon, alt      *float64
	fov, tilt, yaw     *float64
	aperture, focus    *float64
	exposure           *float64
	width, height      *int
	samples, workers   *int
	seed               *uint64
	tile               *string
	out                *string
	day, night, clouds *string
	openStr            *string
	showHelp           *bool
}

func defineFlags(fs *flag.FlagSet) config {
	return config{
		lat:      fs.Float64("lat", 0.0, "Camera latitude in degrees"),
		lon:      fs.Float64("lon", 20.0, "Camera longitude in degrees"),
		alt:      fs.Float64("alt", 880.0, "Camera altitude in kilometers"),
		fov:      fs.Float64("fov", 60.0, "Vertical field of view in degrees"),
		yaw:      fs.Float64("yaw", 0.0, "Camera yaw in degrees"),
		tilt:     fs.Float64("tilt", 40.0, "Camera tilt in degrees"),
		aperture: fs.Float64("aperture", 0.0, "Lens diameter in kilometers (0 = pinhole)"),
		focus:    fs.Float64("focus", 0.0, "Focus distance in kilometers (0 = distance to the surface)"),

		exposure: fs.Float64("exposure", 0.0, "Shutter open time in seconds (0 = no motion blur)"),
		openStr:  fs.String("open", "", "Shutter-open time in RFC3339 format (e.g., 2025-08-02T15:04:05Z); defaults to now"),

		width:   fs.Int("width", 640, "Output image width in pixels"),
		height:  fs.Int("height", 640, "Output image height in pixels"),
		samples: fs.Int("samples", 3, "Supersampling factor (n×n rays per pixel)"),
		seed:    fs.Uint64("seed", 1, "Random seed for lens and shutter sampling"),
		workers: fs.Int("workers", 0, "Parallel row workers (0 = GOMAXPROCS)"),
		tile:    fs.String("tile", "", "Render one tile, as <cols>x<rows>:<index>"),

		out: fs.String("out", "earth_view.png", "Output PNG file path"),

		day:    fs.String("day", "assets/world.200408.tif", "Day texture path"),
		night:  fs.String("night", "assets/night.tif", "Night texture path"),
		clouds: fs.String("clouds", "", "Clouds texture path (optional)"),

		showHelp: fs.Bool("h", false, "Show this help message"),
	}
}

func printHelp(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Earth Renderer - Satellite View Generator

Usage:
  %[1]s [options]

`, os.Args[0])

	printGroup(fs, "Camera Options", []string{"lat", "lon", "alt", "fov", "tilt", "yaw", "aperture", "focus"})
	printGroup(fs, "Shutter Options", []string{"open", "exposure"})
	printGroup(fs, "Rendering Options", []string{"width", "height", "samples", "seed", "workers", "tile"})
	printGroup(fs, "Assets", []string{"day", "night", "clouds"})
	printGroup(fs, "Output", []string{"out"})
	printGroup(fs, "Misc", []string{"h"})
}

func printGroup(fs *flag.FlagSet, title string, keys []string) {
	fmt.Fprintf(os.Stderr, "%s:\n", title)
	for _, name := range keys {
		if f := fs.Lookup(name); f != nil {
			fmt.Fprintf(os.Stderr, "  -%-9s %s (default %q)\n", f.Name, f.Usage, f.DefValue)
		}
	}
	fmt.Fprintln(os.Stderr)
}

// validate rejects inputs that would silently turn every ray into NaN.
func (c config) validate() error {
	switch {
	case *c.width <= 0 || *c.height <= 0:
		return fmt.Errorf("%w: size %dx%d", errInvalidConfig, *c.width, *c.height)
	case *c.fov <= 0 || *c.fov >= 180:
		return fmt.Errorf("%w: fov %v outside (0, 180)", errInvalidConfig, *c.fov)
	case *c.aperture < 0:
		return fmt.Errorf("%w: negative aperture %v", errInvalidConfig, *c.aperture)
	case *c.focus < 0:
		return fmt.Errorf("%w: negative focus distance %v", errInvalidConfig, *c.focus)
	case *c.exposure < 0:
		return fmt.Errorf("%w: negative exposure %v", errInvalidConfig, *c.exposure)
	case *c.alt <= 0:
		return fmt.Errorf("%w: camera must be above the surface, alt %v", errInvalidConfig, *c.alt)
	}
	return nil
}

// camera builds the thin-lens camera described by the flags.
func (c config) camera() (render.Camera, error) {
	if err := c.validate(); err != nil {
		return render.Camera{}, err
	}
	view := render.GeodeticView(*c.lat, *c.lon, *c.alt, *c.tilt, *c.yaw)
	if err := view.Validate(); err != nil {
		return render.Camera{}, err
	}

	focus := *c.focus
	if focus == 0 {
		focus = view.SurfaceDistance()
	}
	aspect := float64(*c.width) / float64(*c.height)

	return render.NewCamera(
		view.LookFrom, view.LookAt, view.Up,
		*c.fov, aspect, *c.aperture, focus,
		0, *c.exposure,
	), nil
}

func (c config) options() (render.Options, error) {
	opts := render.Options{
		Width:   *c.width,
		Height:  *c.height,
		Samples: *c.samples,
		Seed:    *c.seed,
		Workers: *c.workers,
	}
	if *c.tile != "" {
		var t render.Tile
		if _, err := fmt.Sscanf(*c.tile, "%dx%d:%d", &t.Cols, &t.Rows, &t.Index); err != nil {
			return render.Options{}, fmt.Errorf("%w: tile %q: %v", errInvalidConfig, *c.tile, err)
		}
		opts.Tile = t
	}
	return opts, nil
}

func (c config) scene(cache *texture.Cache, open time.Time) (render.Scene, error) {
	day, err := cache.Load(*c.day)
	if err != nil {
		return render.Scene{}, err
	}
	night, err := cache.Load(*c.night)
	if err != nil {
		return render.Scene{}, err
	}
	clouds, err := cache.Load(*c.clouds)
	if err != nil {
		return render.Scene{}, err
	}
	return render.Scene{
		Day:        day,
		Night:      night,
		Clouds:     clouds,
		SunDir:     earth.SunDirectionECEF(open),
		Warm:       colors.New(1.02, 1.0, 0.98, 1.0),
		Saturation: 1.5,
	}, nil
}

func main() {
	fs := flag.CommandLine
	cfg := defineFlags(fs)
	fs.Usage = func() { printHelp(fs) }
	flag.Parse()

	if *cfg.showHelp {
		printHelp(fs)
		return
	}

	open := parseTimeOrExit(*cfg.openStr)

	cam, err := cfg.camera()
	if err != nil {
		log.Fatal(err)
	}
	opts, err := cfg.options()
	if err != nil {
		log.Fatal(err)
	}
	cache, err := texture.NewCache(8)
	if err != nil {
		log.Fatal(err)
	}
	scene, err := cfg.scene(cache, open)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("rendering", "out", *cfg.out, "width", opts.Width, "height", opts.Height, "samples", opts.Samples)
	img, err := render.RenderScene(ctx, cam, scene, opts)
	cache.Close()
	if err != nil {
		log.Fatal(err)
	}

	if err := writePNG(*cfg.out, img); err != nil {
		log.Fatalf("Failed to write PNG: %v", err)
	}
}

func parseTimeOrExit(timeStr string) time.Time {
	if timeStr == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		log.Fatalf("Invalid time format: %v", err)
	}
	return t
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(f, img)
}
