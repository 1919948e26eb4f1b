// Command oxy-bind-demo draws one textured quad through the reflection-driven binding engine.
// Space toggles the albedo map, which flips the material's feature bit and rebuilds its bind
// group. L toggles the directional light, arrow keys orbit the camera, +/- zoom and R resets
// the view.
package main

import (
	"bytes"
	_ "embed"
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine"
	"github.com/Carmen-Shannon/oxy-bind/engine/camera"
	"github.com/Carmen-Shannon/oxy-bind/engine/light"
	"github.com/Carmen-Shannon/oxy-bind/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-bind/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
)

//go:embed assets/quad.wgsl
var quadShader string

//go:embed assets/quad.yaml
var quadMaterial []byte

// quadVertices is position (xyz) then uv, matching the reflected vertex layout.
var quadVertices = []float32{
	-1, -1, 0, 0, 1,
	1, -1, 0, 1, 1,
	1, 1, 0, 1, 0,
	-1, 1, 0, 0, 0,
}

var quadIndices = []uint32{0, 1, 2, 0, 2, 3}

func main() {
	var (
		width    = flag.Int("width", 1280, "window width")
		height   = flag.Int("height", 720, "window height")
		vsync    = flag.Bool("vsync", true, "wait for vertical blank")
		msaa     = flag.Bool("msaa", true, "enable 4x MSAA")
		software = flag.Bool("software", false, "force the fallback adapter")
		profile  = flag.Bool("profile", false, "log frame statistics every second")
		debug    = flag.Bool("debug", false, "log at debug level")
		texPath  = flag.String("texture", "", "image file for the albedo map (default: generated checkerboard)")
		shPath   = flag.String("shader", "", "WGSL file to use instead of the built-in quad shader; reloaded on save")
		matPath  = flag.String("material", "", "YAML or TOML material definition to use instead of the built-in one")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config{
		width: *width, height: *height,
		vsync: *vsync, msaa: *msaa, software: *software, profile: *profile,
		texture: *texPath, shader: *shPath, material: *matPath,
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-bind-demo:", err)
		os.Exit(1)
	}
}

type config struct {
	width, height                  int
	vsync, msaa, software, profile bool
	texture, shader, material      string
}

func run(cfg config) error {
	deviceOpts := []device.WGPUDeviceOption{device.WithForceSoftwareRenderer(cfg.software)}
	if cfg.vsync {
		deviceOpts = append(deviceOpts, device.WithPresentMode(device.PresentModeVSync))
	} else {
		deviceOpts = append(deviceOpts, device.WithPresentMode(device.PresentModeUncapped))
	}
	if !cfg.msaa {
		deviceOpts = append(deviceOpts, device.WithMSAA(device.MSAAOff))
	}

	eng := engine.NewEngine(
		engine.WithWindow(window.NewWindow(
			window.WithTitle("oxy-bind demo (space: toggle albedo map)"),
			window.WithSize(cfg.width, cfg.height),
		)),
		engine.WithDeviceOptions(deviceOpts...),
		engine.WithProfiling(cfg.profile),
		engine.WithProfiler(profiler.NewProfiler()),
		engine.WithTickRate(60),
	)
	r := eng.Renderer()
	dev := r.Resources().Device

	if cfg.shader != "" {
		watcher, err := shader.NewWatcher(r.Library())
		if err != nil {
			return err
		}
		defer watcher.Close()
		if err := watcher.Watch("quad", cfg.shader); err != nil {
			return err
		}
	} else if _, err := r.Library().Load("quad", quadShader); err != nil {
		return err
	}

	def, err := loadMaterial(cfg.material)
	if err != nil {
		return err
	}
	mat, err := def.Build(r.Library(), r.Textures())
	if err != nil {
		return err
	}

	img, err := albedoImage(cfg.texture)
	if err != nil {
		return err
	}
	albedo := r.Textures().AddImage("albedo", img, true)
	mat.SetAlbedoMap(albedo)

	mesh, err := uploadQuad(dev)
	if err != nil {
		return err
	}

	sun := light.NewLight(
		light.WithDirection(mgl32.Vec3{0.4, 0.6, 1}),
		light.WithColor(mgl32.Vec3{1, 0.95, 0.85}),
		light.WithAmbient(mgl32.Vec3{0.15, 0.15, 0.2}),
	)
	r.SetLightingInfo(sun.GPUInfo())

	cam := camera.NewCamera(camera.WithOrbit(3.5, 0, 0), camera.WithRadiusLimits(1.5, 20))
	const orbitStep = 0.08

	textured := true
	var angle float32
	eng.Window().SetKeyDownCallback(func(key window.Key) {
		switch key {
		case window.KeySpace:
			textured = !textured
			if textured {
				mat.SetAlbedoMap(albedo)
			} else {
				mat.SetAlbedoMap(texture.InvalidTexture)
			}
			common.Logger().Info("demo: albedo map", "enabled", textured)
		case window.KeyL:
			if sun.Enabled() {
				sun.SetEnabled(false)
				r.DisableGlobalFeature(uniform.FeatureDirectionalLight)
			} else {
				sun.SetEnabled(true)
				r.SetLightingInfo(sun.GPUInfo())
			}
			common.Logger().Info("demo: directional light", "enabled", sun.Enabled())
		case window.KeyLeft:
			cam.Orbit(-orbitStep, 0)
		case window.KeyRight:
			cam.Orbit(orbitStep, 0)
		case window.KeyUp:
			cam.Orbit(0, orbitStep)
		case window.KeyDown:
			cam.Orbit(0, -orbitStep)
		case window.KeyEqual:
			cam.Zoom(0.25)
		case window.KeyMinus:
			cam.Zoom(-0.25)
		case window.KeyR:
			angle = 0
			cam.Reset()
		}
	})

	eng.SetTickCallback(func(dt float32) {
		angle += dt * 0.6
	})

	objectID := uuid.New()
	eng.SetRenderCallback(func(f *engine.Frame) {
		f.Input = cam.FrameInput(f.Aspect(), f.Input.Time)
		f.Draw(renderer.DrawItem{
			Material: mat,
			ObjectID: objectID,
			Model:    mgl32.HomogRotate3DY(angle),
			Mesh:     mesh,
		})
	})

	eng.Run()
	return nil
}

// loadMaterial reads the definition at path, or the embedded quad definition when path is empty.
func loadMaterial(path string) (material.Definition, error) {
	if path == "" {
		return material.LoadDefinition(bytes.NewReader(quadMaterial))
	}
	return material.LoadDefinitionFile(path)
}

// uploadQuad creates the quad's vertex and index buffers.
func uploadQuad(dev device.Device) (renderer.Mesh, error) {
	vertices := common.SliceToBytes(quadVertices)
	indices := common.SliceToBytes(quadIndices)

	vb, err := dev.CreateBuffer("quad vertices", uint64(len(vertices)), wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return renderer.Mesh{}, fmt.Errorf("create vertex buffer: %w", err)
	}
	if err := dev.WriteBuffer(vb, 0, vertices); err != nil {
		return renderer.Mesh{}, fmt.Errorf("write vertex buffer: %w", err)
	}
	ib, err := dev.CreateBuffer("quad indices", uint64(len(indices)), wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return renderer.Mesh{}, fmt.Errorf("create index buffer: %w", err)
	}
	if err := dev.WriteBuffer(ib, 0, indices); err != nil {
		return renderer.Mesh{}, fmt.Errorf("write index buffer: %w", err)
	}
	return renderer.Mesh{VertexBuffer: vb, IndexBuffer: ib, IndexCount: uint32(len(quadIndices))}, nil
}

// albedoImage decodes the image at path, or generates a checkerboard when path is empty.
func albedoImage(path string) (image.Image, error) {
	if path == "" {
		return checkerboard(256, 32), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func checkerboard(size, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := color.RGBA{R: 235, G: 235, B: 235, A: 255}
	dark := color.RGBA{R: 40, G: 90, B: 160, A: 255}
	for y := range size {
		for x := range size {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, light)
			} else {
				img.SetRGBA(x, y, dark)
			}
		}
	}
	return img
}
