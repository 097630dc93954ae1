// Package config loads the demo's TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"

	"ray-tracer/internal/gpu"
	"ray-tracer/renderer"
)

type Config struct {
	Window  Window  `toml:"window"`
	Image   Image   `toml:"image"`
	Shaders Shaders `toml:"shaders"`
	Scene   Scene   `toml:"scene"`
	Log     Log     `toml:"log"`
}

type Window struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Resizable bool   `toml:"resizable"`
	VSync     bool   `toml:"vsync"`
}

// Image is the size of the traced texture, independent of the window.
type Image struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type Shaders struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	Compute  string `toml:"compute"`
}

// Scene holds the camera. Eye, Center and Up take three components and
// ScreenSize two.
type Scene struct {
	Eye        []float32 `toml:"eye"`
	Center     []float32 `toml:"center"`
	Up         []float32 `toml:"up"`
	ScreenSize []float32 `toml:"screen_size"`
	Near       float32   `toml:"near"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default mirrors renderer.DefaultOptions.
func Default() Config {
	opts := renderer.DefaultOptions()
	s := opts.Scene
	return Config{
		Window: Window{
			Title:     "Ray Tracer",
			Width:     640,
			Height:    480,
			Resizable: true,
			VSync:     true,
		},
		Image: Image{Width: opts.ImageWidth, Height: opts.ImageHeight},
		Shaders: Shaders{
			Vertex:   opts.Shaders.Vertex,
			Fragment: opts.Shaders.Fragment,
			Compute:  opts.Shaders.Compute,
		},
		Scene: Scene{
			Eye:        s.Eye[:],
			Center:     s.Center[:],
			Up:         s.Up[:],
			ScreenSize: s.ScreenSize[:],
			Near:       s.Near,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads and validates the file at path. Keys the file leaves out keep
// their default values.
func Load(path string) (Config, error) {
	cfg, err := read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err := decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a TOML document over the defaults and validates it. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte) (Config, error) {
	cfg := Default()
	// Vectors decode into nil slices so a partial array never mixes with
	// the default components.
	def := cfg.Scene
	cfg.Scene.Eye, cfg.Scene.Center, cfg.Scene.Up, cfg.Scene.ScreenSize = nil, nil, nil, nil

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	for _, v := range []struct {
		dst *[]float32
		def []float32
	}{
		{&cfg.Scene.Eye, def.Eye},
		{&cfg.Scene.Center, def.Center},
		{&cfg.Scene.Up, def.Up},
		{&cfg.Scene.ScreenSize, def.ScreenSize},
	} {
		if *v.dst == nil {
			*v.dst = v.def
		}
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		errs = append(errs, fmt.Errorf("image size %dx%d must be positive", c.Image.Width, c.Image.Height))
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" || c.Shaders.Compute == "" {
		errs = append(errs, errors.New("all three shader paths are required"))
	}
	if c.Scene.Near <= 0 {
		errs = append(errs, fmt.Errorf("near plane %g must be positive", c.Scene.Near))
	}

	vectors := true
	for _, v := range []struct {
		key  string
		vals []float32
		n    int
	}{
		{"eye", c.Scene.Eye, 3},
		{"center", c.Scene.Center, 3},
		{"up", c.Scene.Up, 3},
		{"screen_size", c.Scene.ScreenSize, 2},
	} {
		if len(v.vals) != v.n {
			errs = append(errs, fmt.Errorf("scene.%s has %d components, want %d", v.key, len(v.vals), v.n))
			vectors = false
		}
	}
	if vectors {
		if c.Scene.ScreenSize[0] <= 0 || c.Scene.ScreenSize[1] <= 0 {
			errs = append(errs, fmt.Errorf("screen size %v must be positive", c.Scene.ScreenSize))
		}
		eye, center := vec3(c.Scene.Eye), vec3(c.Scene.Center)
		if eye.ApproxEqual(center) {
			errs = append(errs, errors.New("eye and center coincide"))
		} else if center.Sub(eye).Cross(vec3(c.Scene.Up)).Len() < 1e-6 {
			errs = append(errs, errors.New("up is parallel to the view direction"))
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// SlogLevel returns the configured level. Call it on a validated config.
func (c Config) SlogLevel() slog.Level {
	l, _ := ParseLevel(c.Log.Level)
	return l
}

// Options converts a validated config to ray tracer options.
func (c Config) Options() renderer.Options {
	opts := renderer.DefaultOptions()
	opts.ImageWidth = c.Image.Width
	opts.ImageHeight = c.Image.Height
	opts.Shaders = renderer.ShaderPaths{
		Vertex:   c.Shaders.Vertex,
		Fragment: c.Shaders.Fragment,
		Compute:  c.Shaders.Compute,
	}
	opts.Scene = gpu.SceneParams{
		Eye:        vec3(c.Scene.Eye),
		Center:     vec3(c.Scene.Center),
		Up:         vec3(c.Scene.Up),
		ScreenSize: mgl32.Vec2{c.Scene.ScreenSize[0], c.Scene.ScreenSize[1]},
		Near:       c.Scene.Near,
	}
	return opts
}

func vec3(v []float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}
