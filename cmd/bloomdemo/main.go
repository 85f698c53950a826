// Command bloomdemo runs the bloom post-processing pipeline.
//
// By default it renders headless on the best available backend and writes
// PNG frames. With -window it opens a GLFW window and renders with OpenGL
// at the display refresh rate until the window closes.
//
//	bloomdemo -frames 30 -out frames -preset bloom -blur 3
//	bloomdemo -window -config bloom.yaml -watch
//
// # Build Modes
//
// The OpenGL backend and the window need cgo, while the WebGPU HAL backend
// loads Vulkan through goffi and needs CGO_ENABLED=0. A binary carries one
// of the two GPU backends plus the CPU backend:
//
//	CGO_ENABLED=1 go build ./cmd/bloomdemo  # opengl, soft; -window works
//	CGO_ENABLED=0 go build ./cmd/bloomdemo  # native, soft; headless only
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/image/draw"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/backend"
	"github.com/gogpu/bloom/gpucore"
	"github.com/gogpu/bloom/internal/config"
	"github.com/gogpu/bloom/internal/metrics"
	"github.com/gogpu/bloom/pipeline"

	_ "github.com/gogpu/bloom/backend/soft"
)

type options struct {
	config   string
	windowed bool
	watch    bool
	frames   int
	out      string
	scale    float64
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "config file (YAML, TOML or JSON)")
	flag.BoolVar(&opts.windowed, "window", false, "render into a window instead of PNG files")
	flag.BoolVar(&opts.watch, "watch", false, "reload the pipeline file when it changes")
	flag.IntVar(&opts.frames, "frames", 1, "number of headless frames to write")
	flag.StringVar(&opts.out, "out", "frames", "output directory for headless frames")
	flag.Float64Var(&opts.scale, "scale", 1, "scale factor applied to written frames")
	flag.BoolVar(&opts.verbose, "v", false, "log per-pass diagnostics")

	width := flag.Int("width", 0, "surface width (overrides config)")
	height := flag.Int("height", 0, "surface height (overrides config)")
	backendName := flag.String("backend", "", "device backend: "+fmt.Sprint(backend.Available())+" (overrides config)")
	preset := flag.String("preset", "", "pass chain: "+fmt.Sprint(pipeline.Presets())+" (overrides config)")
	blur := flag.Int("blur", -1, "extra blur iterations (overrides config)")
	shape := flag.String("shape", "", "scene shape: circle or quad (overrides config)")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address (overrides config)")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	bloom.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(opts.config)
	if err != nil {
		fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "backend":
			cfg.Backend = *backendName
		case "preset":
			cfg.Preset = *preset
		case "blur":
			cfg.BlurIterations = *blur
		case "shape":
			cfg.Shape = *shape
		case "metrics":
			cfg.Metrics = *metricsAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "bloomdemo:", err)
	os.Exit(1)
}

func run(ctx context.Context, cfg config.Config, opts options) error {
	pc, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	pc.Metrics = metrics.New(reg)
	if cfg.Metrics != "" {
		serveMetrics(ctx, cfg.Metrics, reg)
	}

	if opts.windowed {
		return runWindow(ctx, cfg, pc, opts)
	}
	return runHeadless(ctx, cfg, pc, opts)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		bloom.Logger().Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			bloom.Logger().Warn("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

// watch reloads the pipeline file into p until ctx ends.
func watch(ctx context.Context, cfg config.Config, opts options, p *pipeline.PipelineContext) {
	if !opts.watch {
		return
	}
	if cfg.Pipeline == "" {
		bloom.Logger().Warn("-watch needs a pipeline file in the config")
		return
	}
	go func() {
		if err := config.Watch(ctx, cfg.Pipeline, p); err != nil {
			bloom.Logger().Warn("pipeline watch stopped", "error", err)
		}
	}()
}

func closeDevice(dev gpucore.Device) {
	if c, ok := dev.(interface{ Close() }); ok {
		c.Close()
	}
}

func openDevice(cfg config.Config) (gpucore.Device, error) {
	o := backend.Options{Width: cfg.Width, Height: cfg.Height}
	if cfg.Backend == "" || cfg.Backend == "auto" {
		return backend.Default(o)
	}
	return backend.Open(cfg.Backend, o)
}

func runHeadless(ctx context.Context, cfg config.Config, pc pipeline.Config, opts options) error {
	if opts.scale <= 0 {
		return fmt.Errorf("scale %v must be positive", opts.scale)
	}
	dev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer closeDevice(dev)
	bloom.Logger().Info("device selected", "backend", dev.Name())

	p, err := pipeline.New(dev, pc)
	if err != nil {
		return err
	}
	defer p.Release()
	watch(ctx, cfg, opts, p)

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}

	bar := progressbar.Default(int64(opts.frames), "rendering")
	defer func() { _ = bar.Finish() }()

	steps := &pipeline.StepScheduler{Step: time.Second / time.Duration(cfg.FPS), Frames: opts.frames}
	for i := 0; ; i++ {
		t, ok := steps.Next(ctx)
		if !ok {
			break
		}
		if err := p.RenderFrame(t); err != nil {
			return err
		}
		img, err := p.Image()
		if err != nil {
			return err
		}
		path := filepath.Join(opts.out, fmt.Sprintf("frame%04d.png", i))
		if err := writePNG(path, img, opts.scale); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	if ctx.Err() != nil {
		bloom.Logger().Info("interrupted", "frames", p.Frames())
	}
	return nil
}

func writePNG(path string, img image.Image, scale float64) error {
	if scale != 1 {
		b := img.Bounds()
		w := max(1, int(float64(b.Dx())*scale))
		h := max(1, int(float64(b.Dy())*scale))
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
