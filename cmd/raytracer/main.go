package main

import (
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"ray-tracer/config"
	"ray-tracer/core"
	"ray-tracer/internal/opengl"
	"ray-tracer/renderer"
)

func main() {
	fs := pflag.NewFlagSet("raytracer", pflag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	snapshot := fs.String("snapshot", "", "write the traced image to this PNG file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := run(cfg, *snapshot); err != nil {
		slog.Error("ray tracer failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, snapshot string) error {
	window, err := core.NewWindow(core.WindowConfig{
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Title:     cfg.Window.Title,
		Resizable: cfg.Window.Resizable,
		VSync:     cfg.Window.VSync,
	})
	if err != nil {
		return err
	}
	defer window.Destroy()

	dev, err := opengl.NewDevice()
	if err != nil {
		return err
	}
	slog.Info("OpenGL context",
		"version", dev.Info.Version,
		"glsl", dev.Info.GLSLVersion,
		"renderer", dev.Info.Renderer,
		"vendor", dev.Info.Vendor)

	rt := renderer.New(dev, cfg.Options())
	window.OnDestroy(rt.Destroy)
	if err := rt.Initialize(); err != nil {
		return err
	}
	if err := dev.CheckError(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if snapshot != "" {
		if err := writeSnapshot(rt, snapshot); err != nil {
			return err
		}
		slog.Info("snapshot written", "path", snapshot)
	}

	fbw, fbh := window.GetFramebufferSize()
	rt.Resize(fbw, fbh)
	window.SetFramebufferSizeCallback(rt.Resize)

	for !window.ShouldClose() {
		window.PollEvents()
		if window.IsKeyPressed(core.KeyEscape) || window.IsKeyPressed(core.KeyQ) {
			break
		}
		if err := rt.RenderFrame(); err != nil {
			return err
		}
		window.SwapBuffers()
	}
	return dev.CheckError()
}

func writeSnapshot(rt *renderer.RayTracer, path string) error {
	img, err := rt.Snapshot()
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("snapshot: %w", err)
	}
	return out.Close()
}
