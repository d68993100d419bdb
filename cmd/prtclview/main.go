// Command prtclview renders a live SPH scene: a sphere-traced surface
// view of the particle cloud's density field, and a flat 2D debug
// view of the raw particles, toggled with Tab. Clicking in the 2D
// debug view picks a particle, and the HUD shows its group and index;
// the surface view does not pick.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/prtcl-go/prtcl/camera"
	"github.com/prtcl-go/prtcl/config"
	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/grid"
	"github.com/prtcl-go/prtcl/internal/scene"
	"github.com/prtcl-go/prtcl/internal/simlog"
	"github.com/prtcl-go/prtcl/internal/workpool"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/raytrace"
	"github.com/prtcl-go/prtcl/source"
	"github.com/prtcl-go/prtcl/tensor"
)

var (
	configPath = flag.String("config", "", "path to a scene YAML config (embedded defaults if empty)")
	seed       = flag.Int64("seed", 1, "RNG seed for particle source jitter")
	logLevel   = flag.String("log-level", "info", "debug, info, warn, or error")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prtclview: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	m, sched, schemes, err := scene.Load(cfg, *seed)
	if err != nil {
		return err
	}
	dims := cfg.World.Dimensions
	nh := grid.New(cfg.Grid.Radius, dims, source.DefaultPosField)

	var tick int32
	logger := simlog.New(os.Stderr, parseLevel(*logLevel), func() int64 { return int64(tick) }, sched.Now)

	rl.InitWindow(int32(cfg.Viewer.Width), int32(cfg.Viewer.Height), "prtclview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Viewer.TargetFPS))

	pool := workpool.New(0)
	orbit := newOrbitCamera(worldCenter(cfg))
	tracerCam := raytrace.NewCamera(orbit.origin(), orbit.principal(), upVector, 2.0, cfg.Viewer.Width, cfg.Viewer.Height)
	tracer := raytrace.NewTracer(tracerCam, dims, cfg.Physics.SmoothingScale, source.DefaultPosField, pool)
	if cfg.Viewer.TracerMaxSteps > 0 {
		tracer.MaxSteps = cfg.Viewer.TracerMaxSteps
	}

	blank := rl.GenImageColor(cfg.Viewer.Width, cfg.Viewer.Height, rl.Black)
	surfaceTex := rl.LoadTextureFromImage(blank)
	rl.UnloadImage(blank)
	defer rl.UnloadTexture(surfaceTex)

	debugCam := camera.New(float32(cfg.Viewer.Width), float32(cfg.Viewer.Height), float32(cfg.World.Width), float32(cfg.World.Height))

	v := &viewerState{
		playing: true,
		speed:   1,
		view3D:  true,
	}

	logger.Info("viewer started", "dims", dims, "width", cfg.Viewer.Width, "height", cfg.Viewer.Height)

	for !rl.WindowShouldClose() {
		handleInput(v)

		if v.playing {
			for s := 0; s < v.speed; s++ {
				sched.Tick(cfg.Physics.DT)
				nh.Update(m)
				for _, bs := range schemes {
					for _, proc := range bs.Procedures {
						if err := bs.Scheme.RunProcedure(proc, nh); err != nil {
							logger.Error("procedure failed", "procedure", proc, "err", err)
						}
					}
				}
				m.ClearDirty()
				tick++
			}
		}

		if v.view3D {
			orbit.update()
			tracerCam.Origin = orbit.origin()
			tracerCam.Principal = orbit.principal()
			uploadSurface(surfaceTex, tracer.Trace(m))
		} else {
			updatePan(debugCam)
			v.selection = pick2D(m, debugCam, cfg)
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		if v.view3D {
			rl.DrawTexture(surfaceTex, 0, 0, rl.White)
		} else {
			draw2DParticles(m, debugCam, cfg)
		}
		drawHUD(v, cfg, tick, scene.ParticleCount(m))
		rl.EndDrawing()
	}

	logger.Info("viewer closed", "ticks", tick, "particles", scene.ParticleCount(m))
	return nil
}

// viewerState holds the UI-facing state the input/draw steps share.
type viewerState struct {
	playing   bool
	speed     int // ticks run per frame while playing
	view3D    bool
	selection *selectedParticle
}

func handleInput(v *viewerState) {
	if rl.IsKeyPressed(rl.KeyTab) {
		v.view3D = !v.view3D
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.playing = !v.playing
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.speed < 10 {
		v.speed++
	}
	if rl.IsKeyPressed(rl.KeyComma) && v.speed > 1 {
		v.speed--
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func worldCenter(cfg *config.Config) tensor.Tensor[float64] {
	c := []float64{cfg.World.Width / 2, cfg.World.Height / 2, cfg.World.Depth / 2}
	dims := cfg.World.Dimensions
	return tensor.FromSlice[float64](tensor.Shape{dims}, c[:dims])
}

// selectedParticle names a picked particle so the HUD can display its
// group and particle index.
type selectedParticle struct {
	group model.GroupIndex
	index int
}

// pickEntry is the ark component backing the 2D debug view's pick
// index: one entity per rendered particle, carrying its screen
// position and a back-reference into the model.
type pickEntry struct {
	group            model.GroupIndex
	index            int
	screenX, screenY float32
}

// pick2D rebuilds a throwaway ark world of every particle's
// screen position and returns the one closest to the mouse cursor
// within a fixed hit radius, the same closest-to-cursor pattern a 2D
// top-down picker needs regardless of how many fields a particle
// carries.
func pick2D(m *model.Model, cam *camera.Camera, cfg *config.Config) *selectedParticle {
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[pickEntry](&world)
	filter := ecs.NewFilter1[pickEntry](&world)

	posType := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{cfg.World.Dimensions}}
	for _, g := range m.Groups() {
		pos, ok := field.TryGetVarying[float64](g.Varying, source.DefaultPosField, posType)
		if !ok {
			continue
		}
		for i := 0; i < g.Len(); i++ {
			p := pos.Get(i)
			sx, sy := cam.WorldToScreen(float32(p.At(0)), float32(p.At(1)))
			entry := pickEntry{group: g.Index, index: i, screenX: sx, screenY: sy}
			mapper.NewEntity(&entry)
		}
	}

	mouse := rl.GetMousePosition()
	const maxHitDist = 12.0
	closestDist := float32(maxHitDist)
	var found *selectedParticle

	query := filter.Query()
	for query.Next() {
		e := query.Get()
		dx := mouse.X - e.screenX
		dy := mouse.Y - e.screenY
		dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))
		if dist < closestDist {
			closestDist = dist
			found = &selectedParticle{group: e.group, index: e.index}
		}
	}
	return found
}

// draw2DParticles renders every particle as a filled circle colored
// by its density relative to rest density, the same life-ratio driven
// alpha/color idiom the sphere-tracer's flat counterpart uses for a
// scalar field instead of an age.
func draw2DParticles(m *model.Model, cam *camera.Camera, cfg *config.Config) {
	posType := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{cfg.World.Dimensions}}
	scalarType := tensor.TensorType{Component: tensor.F64}

	for _, g := range m.Groups() {
		pos, ok := field.TryGetVarying[float64](g.Varying, source.DefaultPosField, posType)
		if !ok {
			continue
		}
		density, haveDensity := field.TryGetVarying[float64](g.Varying, cfg.Telemetry.DensityField, scalarType)

		for i := 0; i < g.Len(); i++ {
			p := pos.Get(i)
			sx, sy := cam.WorldToScreen(float32(p.At(0)), float32(p.At(1)))
			if !cam.IsVisible(float32(p.At(0)), float32(p.At(1)), 4) {
				continue
			}

			ratio := float32(1.0)
			if haveDensity && cfg.Physics.RestDensity > 0 {
				ratio = float32(density.Get(i).At(0) / cfg.Physics.RestDensity)
			}
			col := densityColor(ratio)
			rl.DrawCircle(int32(sx), int32(sy), 3, col)
		}
	}
}

// densityColor maps a density ratio (1.0 = rest density) to a
// blue-to-red gradient, clamped to a displayable range.
func densityColor(ratio float32) rl.Color {
	t := (ratio - 0.5) / 1.5
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return rl.Color{R: uint8(60 + t*180), G: uint8(80 + (1-t)*40), B: uint8(220 - t*180), A: 220}
}

// uploadSurface converts the tracer's intensity buffer to an RGBA
// texture and uploads it, following the same value-grid-to-texture
// idiom as the FBM potential field preview tool.
func uploadSurface(tex rl.Texture2D, img *raytrace.Image) {
	pixels := make([]color.RGBA, img.Width*img.Height)
	for iy := 0; iy < img.Height; iy++ {
		for ix := 0; ix < img.Width; ix++ {
			v := img.At(ix, iy)
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			shade := uint8(v * 255)
			pixels[iy*img.Width+ix] = color.RGBA{R: shade, G: shade, B: shade, A: 255}
		}
	}
	rl.UpdateTexture(tex, pixels)
}

// drawHUD renders the play/pause and speed controls plus the
// currently selected particle's group and index.
func drawHUD(v *viewerState, cfg *config.Config, tick int32, particleCount int) {
	rl.DrawText(fmt.Sprintf("tick %d  particles %d  view %s", tick, particleCount, viewName(v.view3D)), 10, 10, 18, rl.RayWhite)
	rl.DrawText("Space: pause   Tab: toggle view   ,/.: speed", 10, 32, 14, rl.Gray)

	panelX, panelY := float32(10), float32(56)
	label := "Pause"
	if !v.playing {
		label = "Play"
	}
	if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 80, Height: 24}, label) {
		v.playing = !v.playing
	}
	newSpeed := gui.SliderBar(rl.Rectangle{X: panelX + 90, Y: panelY + 4, Width: 160, Height: 16}, "1x", "10x", float32(v.speed), 1, 10)
	v.speed = int(newSpeed)

	if v.selection == nil {
		return
	}
	rl.DrawText(fmt.Sprintf("selected: group %d, particle %d", v.selection.group, v.selection.index), 10, 90, 14, rl.Yellow)
}

func viewName(view3D bool) string {
	if view3D {
		return "surface"
	}
	return "debug"
}

// updatePan drags and zooms the 2D debug camera with the mouse,
// mirroring the way the teacher's water/flow renderers treat the
// screen as a fixed-size window over a bounded (non-toroidal) world.
func updatePan(cam *camera.Camera) {
	if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		d := rl.GetMouseDelta()
		cam.Pan(-d.X, -d.Y)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		cam.ZoomBy(1 + wheel*0.1)
	}
}

var upVector = tensor.FromSlice[float64](tensor.Shape{3}, []float64{0, 1, 0})

// orbitCamera maintains a spherical-coordinate view around a fixed
// world center, the 3D counterpart to the flat debug camera's
// pan/zoom: instead of translating a bounded viewport it rotates
// around a point, since the sphere tracer has no "outside the world"
// to clamp against.
type orbitCamera struct {
	center             tensor.Tensor[float64]
	azimuth, elevation float64
	distance           float64
}

func newOrbitCamera(center tensor.Tensor[float64]) *orbitCamera {
	return &orbitCamera{
		center:    center,
		azimuth:   math.Pi / 4,
		elevation: math.Pi / 6,
		distance:  3 * math.Max(center.At(0), math.Max(center.At(1), valueOrZero(center, 2))),
	}
}

func valueOrZero(t tensor.Tensor[float64], i int) float64 {
	if i >= t.Len() {
		return 0
	}
	return t.At(i)
}

func (o *orbitCamera) update() {
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		d := rl.GetMouseDelta()
		o.azimuth -= float64(d.X) * 0.01
		o.elevation += float64(d.Y) * 0.01
		const limit = math.Pi/2 - 0.05
		if o.elevation > limit {
			o.elevation = limit
		}
		if o.elevation < -limit {
			o.elevation = -limit
		}
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		o.distance *= 1 - float64(wheel)*0.1
		if o.distance < 0.1 {
			o.distance = 0.1
		}
	}
}

func (o *orbitCamera) origin() tensor.Tensor[float64] {
	x := o.distance * math.Cos(o.elevation) * math.Cos(o.azimuth)
	y := o.distance * math.Sin(o.elevation)
	z := o.distance * math.Cos(o.elevation) * math.Sin(o.azimuth)
	dims := o.center.Len()
	offset := []float64{x, y, z}
	out := make([]float64, dims)
	for d := 0; d < dims; d++ {
		out[d] = o.center.At(d) + offset[d]
	}
	return tensor.FromSlice[float64](tensor.Shape{dims}, out)
}

func (o *orbitCamera) principal() tensor.Tensor[float64] {
	return tensor.Normalized(tensor.Sub(o.center, o.origin()), 1e-12)
}
