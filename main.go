package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/linmath"
	"go.uber.org/zap"

	"github.com/Paper-2/blackHoleSim/config"
	"github.com/Paper-2/blackHoleSim/device"
	"github.com/Paper-2/blackHoleSim/render"
	"github.com/Paper-2/blackHoleSim/sim"
)

func init() {
	// This is needed to arrange that main() runs on main thread.
	// See documentation for functions that are only allowed to be called
	// from the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg, err := config.Resolve(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app := &blackHoleApp{
		cfg: cfg,
		log: log,
	}
	if err := app.Run(); err != nil {
		log.Error("fatal error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// blackHoleApp owns the main-thread half of the program: the window, the
// simulation state and the input handling. Everything Vulkan past device
// creation lives on the render worker's thread.
type blackHoleApp struct {
	cfg config.Config
	log *zap.Logger

	window *glfw.Window
	ctx    *device.Context
	worker *render.Worker

	hole   *sim.BlackHole
	field  *sim.ParticleField
	camera *sim.Camera

	fbWidth  int
	fbHeight int

	lastCursorX  float64
	lastCursorY  float64
	cursorPrimed bool
	restartArmed bool
	startTime    time.Time
}

// Run runs the simulation until the window closes or the render worker
// dies.
func (a *blackHoleApp) Run() error {
	if err := a.initWindow(); err != nil {
		return fmt.Errorf("initWindow: %w", err)
	}
	defer a.cleanWindow()

	ctx, err := device.New(a.window, a.log, a.cfg.Debug)
	if err != nil {
		return fmt.Errorf("creating device context: %w", err)
	}
	a.ctx = ctx
	defer a.ctx.Destroy()

	a.initSimulation()

	a.worker = render.NewWorker(a.ctx, a.log)
	if err := a.worker.Start(a.pipelineData(), a.cfg.Disk.Count, a.fbWidth, a.fbHeight); err != nil {
		return fmt.Errorf("starting render worker: %w", err)
	}

	err = a.mainLoop()

	if stopErr := a.worker.Stop(); stopErr != nil {
		a.log.Error("render worker shutdown failed", zap.Error(stopErr))
		if err == nil {
			err = stopErr
		}
	}

	return err
}

func (a *blackHoleApp) initWindow() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw.Init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(
		a.cfg.Window.Width,
		a.cfg.Window.Height,
		a.cfg.Window.Title,
		nil,
		nil,
	)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	a.window = window

	a.fbWidth, a.fbHeight = window.GetFramebufferSize()

	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		a.fbWidth, a.fbHeight = width, height
		if a.worker != nil {
			a.worker.SendCommand(render.Command{
				Kind:   render.CommandResize,
				Width:  width,
				Height: height,
			})
		}
	})

	window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if !a.cursorPrimed {
			a.lastCursorX, a.lastCursorY = x, y
			a.cursorPrimed = true
			return
		}

		const sensitivity = 0.1
		dx := float32(x-a.lastCursorX) * sensitivity
		dy := float32(a.lastCursorY-y) * sensitivity
		a.lastCursorX, a.lastCursorY = x, y

		a.camera.Rotate(dx, dy)
	})

	window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		a.camera.AdjustSpeed(float32(yoff))
	})

	return nil
}

func (a *blackHoleApp) cleanWindow() {
	a.window.Destroy()
	glfw.Terminate()
}

func (a *blackHoleApp) initSimulation() {
	hole := sim.NewBlackHole(a.cfg.Hole.MassSolar)
	hole.Scale(
		hole.SchwarzschildRadius/a.cfg.Hole.HorizonRadius,
		a.cfg.Hole.Mass,
	)
	a.hole = hole

	a.field = sim.GenerateDisk(sim.DiskConfig{
		Count:       a.cfg.Disk.Count,
		InnerRadius: float32(a.cfg.Disk.InnerRadius),
		OuterRadius: float32(a.cfg.Disk.OuterRadius),
		Thickness:   float32(a.cfg.Disk.Thickness),
		CenterMass:  a.cfg.Hole.Mass,
		Seed:        a.cfg.Disk.Seed,
	}, hole.Position)

	a.camera = sim.NewCamera(
		linmath.Vec3{0, float32(a.cfg.Disk.OuterRadius) * 0.2, float32(a.cfg.Disk.OuterRadius) * 1.3},
		float32(a.cfg.Disk.OuterRadius)*0.25,
	)

	a.startTime = time.Now()

	a.log.Info("simulation initialized",
		zap.Float64("massSolar", hole.MassSolar),
		zap.Float64("schwarzschildMeters", hole.SchwarzschildRadius),
		zap.Float64("horizonWorld", hole.HorizonRadius),
		zap.Int("particles", len(a.field.Particles)),
	)
}

func (a *blackHoleApp) pipelineData() render.PipelineData {
	return render.PipelineData{
		HolePosition:       a.hole.Position,
		SchwarzschildWorld: float32(a.hole.HorizonRadius),

		DiskInner:         float32(a.cfg.Disk.InnerRadius),
		DiskOuter:         float32(a.cfg.Disk.OuterRadius),
		DiskHalfThickness: float32(a.cfg.Disk.Thickness) / 2,
		DistortionPower:   float32(a.cfg.March.DistortionPower),

		MaxSteps:    float32(a.cfg.March.MaxSteps),
		MaxDistance: float32(a.cfg.March.MaxDistance),
		BaseStep:    float32(a.cfg.March.BaseStep),
	}
}

func (a *blackHoleApp) mainLoop() error {
	// The simulation step is capped so a long stall (drag-resize, debugger
	// pause) does not catapult particles through the integrator.
	const maxStep = float32(1.0 / 30.0)

	last := time.Now()

	for !a.window.ShouldClose() {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		if dt > maxStep {
			dt = maxStep
		}

		glfw.PollEvents()

		if a.window.GetKey(glfw.KeyEscape) == glfw.Press {
			a.window.SetShouldClose(true)
		}

		if err := a.handleRestartKey(); err != nil {
			return err
		}

		a.moveCamera(dt)
		a.field.Advance(dt)
		a.publishFrame(now)

		if !a.worker.Running() {
			return fmt.Errorf("render worker exited unexpectedly")
		}
	}

	return nil
}

func (a *blackHoleApp) moveCamera(dt float32) {
	var forward, right, up float32

	if a.window.GetKey(glfw.KeyW) == glfw.Press {
		forward++
	}
	if a.window.GetKey(glfw.KeyS) == glfw.Press {
		forward--
	}
	if a.window.GetKey(glfw.KeyD) == glfw.Press {
		right++
	}
	if a.window.GetKey(glfw.KeyA) == glfw.Press {
		right--
	}
	if a.window.GetKey(glfw.KeySpace) == glfw.Press {
		up++
	}
	if a.window.GetKey(glfw.KeyLeftShift) == glfw.Press {
		up--
	}

	a.camera.Translate(forward, right, up, dt)
}

// handleRestartKey tears the worker down and starts it again on R. The
// rebuild reloads the compiled shaders, so a recompile shows up without
// restarting the program.
func (a *blackHoleApp) handleRestartKey() error {
	pressed := a.window.GetKey(glfw.KeyR) == glfw.Press
	if !pressed {
		a.restartArmed = true
		return nil
	}
	if !a.restartArmed {
		return nil
	}
	a.restartArmed = false

	a.log.Info("restarting render worker")

	if err := a.worker.Stop(); err != nil {
		return fmt.Errorf("stopping render worker for restart: %w", err)
	}
	if err := a.worker.Start(a.pipelineData(), a.cfg.Disk.Count, a.fbWidth, a.fbHeight); err != nil {
		return fmt.Errorf("restarting render worker: %w", err)
	}

	return nil
}

func (a *blackHoleApp) publishFrame(now time.Time) {
	aspect := float32(1)
	if a.fbHeight > 0 {
		aspect = float32(a.fbWidth) / float32(a.fbHeight)
	}

	simData := &render.SimulationData{
		View:       a.camera.View(),
		Projection: a.camera.Projection(aspect),
		CameraPos:  a.camera.Position,
		Corners:    a.camera.FrustumCorners(aspect),
		Time:       float32(now.Sub(a.startTime).Seconds()),
	}
	a.worker.SendCommand(render.Command{
		Kind:       render.CommandUpdateSimulation,
		Simulation: simData,
	})

	// The slice is handed off to the worker, so a fresh one is built per
	// tick instead of mutating the previous frame's under its feet.
	vertices := make([]render.ParticleVertex, len(a.field.Particles))
	for i := range a.field.Particles {
		vertices[i].Position = a.field.Particles[i].Position
	}
	a.worker.SendCommand(render.Command{
		Kind:     render.CommandUpdateVertexData,
		Vertices: vertices,
	})
}
