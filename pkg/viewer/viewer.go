// Package viewer hosts one interactive view of a warehouse scene.
//
// A [Viewer] glues the pieces together: it reads the current graph from a
// scene.Store, owns the camera and its orbit controls, picks boxes under the
// pointer, and feeds the results to the interaction machine. Every method
// must be called from the view's render loop (see package loop); the
// viewer itself does no locking.
//
//	v, err := viewer.New(viewer.Size{Width: 1280, Height: 720}, store,
//	    viewer.WithOverlay(overlay))
//	lp := loop.New(ticker, v.Frame)
//	lp.Post(func() { v.PointerMove(ctx, 640, 360) })
package viewer

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depotview/pkg/camera"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/observability"
	"github.com/matzehuels/depotview/pkg/picking"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Size is the pixel size of the host container.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate returns a CONFIG_ERROR unless both sides are positive.
func (s Size) Validate() error {
	if !(s.Width > 0) || !(s.Height > 0) || math.IsInf(s.Width, 0) || math.IsInf(s.Height, 0) {
		return errors.Config("container must have a positive size, got %vx%v", s.Width, s.Height)
	}
	return nil
}

// Frame is what a Renderer receives once per frame.
type Frame struct {
	N      uint64
	Time   time.Time
	Graph  *scene.Graph
	Camera camera.Camera
	State  interact.State
	Size   Size
}

// Renderer repaints the scene.
type Renderer interface {
	Render(ctx context.Context, f Frame)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, f Frame)

// Render calls f(ctx, fr).
func (f RendererFunc) Render(ctx context.Context, fr Frame) { f(ctx, fr) }

// Viewer is one interactive view.
type Viewer struct {
	store    *scene.Store
	size     Size
	cam      *camera.Camera
	controls *camera.Controls
	machine  *interact.Machine
	renderer Renderer
	logger   *log.Logger

	overlay    interact.Overlay
	dispatcher interact.Dispatcher
	actions    []interact.Action
	post       func(func()) bool
	done       func(interact.Request, error)

	graph *scene.Graph
	dirty bool
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithOverlay sets where the tooltip and menu are drawn.
func WithOverlay(o interact.Overlay) Option {
	return func(v *Viewer) { v.overlay = o }
}

// WithDispatcher sets the collaborator for menu actions.
func WithDispatcher(d interact.Dispatcher) Option {
	return func(v *Viewer) { v.dispatcher = d }
}

// WithActions replaces the action menu entries.
func WithActions(actions ...interact.Action) Option {
	return func(v *Viewer) { v.actions = actions }
}

// WithAsyncActions keeps the dispatcher off the render loop. Activate
// returns once the menu is closed; the dispatch outcome is posted back
// with post, usually loop.Loop.Post, and handed to done there.
func WithAsyncActions(post func(func()) bool, done func(interact.Request, error)) Option {
	return func(v *Viewer) { v.post, v.done = post, done }
}

// WithRenderer sets the per-frame repaint callback.
func WithRenderer(r Renderer) Option {
	return func(v *Viewer) { v.renderer = r }
}

// WithCamera replaces the default camera. Its aspect ratio is reset to the
// container's.
func WithCamera(c camera.Camera) Option {
	return func(v *Viewer) {
		cp := c
		v.cam = &cp
	}
}

// WithControls replaces the default orbit controls.
func WithControls(c *camera.Controls) Option {
	return func(v *Viewer) { v.controls = c }
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.logger = l
		}
	}
}

// New attaches a view of store to a container. It fails with CONFIG_ERROR
// when the container has no area, the store is nil, or the camera is
// unusable.
func New(container Size, store *scene.Store, opts ...Option) (*Viewer, error) {
	if err := container.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.Config("viewer needs a scene store")
	}
	v := &Viewer{
		store:    store,
		size:     container,
		cam:      camera.New(container.Width / container.Height),
		controls: camera.NewControls(),
		renderer: RendererFunc(func(context.Context, Frame) {}),
		logger:   log.Default(),
		dirty:    true,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.cam.SetAspect(container.Width, container.Height)
	if err := v.cam.Validate(); err != nil {
		return nil, err
	}

	mopts := []interact.Option{interact.WithLogger(v.logger), interact.WithDispatcher(v.dispatcher)}
	if len(v.actions) > 0 {
		mopts = append(mopts, interact.WithActions(v.actions...))
	}
	if v.post != nil {
		mopts = append(mopts, interact.WithAsyncDispatch(v.post, v.done))
	}
	v.machine = interact.NewMachine(v.overlay, mopts...)
	v.graph = store.Current()
	return v, nil
}

// Size returns the container size.
func (v *Viewer) Size() Size { return v.size }

// Viewport returns the container size as a picking viewport.
func (v *Viewer) Viewport() picking.Viewport {
	return picking.Viewport{Width: v.size.Width, Height: v.size.Height}
}

// Camera returns a copy of the camera.
func (v *Viewer) Camera() camera.Camera { return *v.cam }

// State returns the interaction state.
func (v *Viewer) State() interact.State { return v.machine.State() }

// Graph returns the graph the view currently shows, rebinding the
// interaction machine first if the store has published a new one.
func (v *Viewer) Graph(ctx context.Context) *scene.Graph {
	g := v.store.Current()
	if g != v.graph {
		v.logger.Debug("scene swapped", "version", g.Version, "boxes", g.Len())
		v.graph = g
		v.dirty = true
		v.machine.Rebind(ctx, g)
	}
	return g
}

// Pick returns the box under the screen point (x, y).
func (v *Viewer) Pick(ctx context.Context, x, y float64) picking.Result {
	g := v.Graph(ctx)
	start := time.Now()
	res := picking.Pick(picking.ScreenCoord{X: x, Y: y}, v.Viewport(), v.cam, g.Boxes())
	observability.Interaction().OnPick(ctx, res.Hit(), time.Since(start))
	return res
}

// PointerMove handles the pointer moving to (x, y).
func (v *Viewer) PointerMove(ctx context.Context, x, y float64) error {
	return v.handle(ctx, interact.PointerMove{Pick: v.Pick(ctx, x, y), Anchor: interact.Anchor{X: x, Y: y}})
}

// PointerLeave handles the pointer leaving the container.
func (v *Viewer) PointerLeave(ctx context.Context) error {
	v.Graph(ctx)
	return v.handle(ctx, interact.PointerLeave{})
}

// Click handles a click at (x, y).
func (v *Viewer) Click(ctx context.Context, x, y float64) error {
	return v.handle(ctx, interact.Click{Pick: v.Pick(ctx, x, y), Anchor: interact.Anchor{X: x, Y: y}})
}

// ClickOutside handles a click outside the open action menu that did not
// reach the scene.
func (v *Viewer) ClickOutside(ctx context.Context) error {
	v.Graph(ctx)
	return v.handle(ctx, interact.ClickOutside{})
}

// Activate handles the user choosing an action menu entry.
func (v *Viewer) Activate(ctx context.Context, action interact.Action) error {
	v.Graph(ctx)
	return v.handle(ctx, interact.ActivateItem{Action: action})
}

// WaitActions blocks until the dispatches started by Activate have
// returned. It only waits with WithAsyncActions.
func (v *Viewer) WaitActions() { v.machine.Wait() }

// Drag records an orbit drag, applied on the next frame.
func (v *Viewer) Drag(dx, dy float64) { v.controls.Drag(dx, dy) }

// Pan records a pan drag, applied on the next frame.
func (v *Viewer) Pan(dx, dy float64) { v.controls.Pan(dx, dy) }

// Wheel records a zoom input, applied on the next frame.
func (v *Viewer) Wheel(delta float64) { v.controls.Wheel(delta) }

// Resize updates the container size. A size without area is rejected with
// CONFIG_ERROR and the previous size is kept.
func (v *Viewer) Resize(width, height float64) error {
	s := Size{Width: width, Height: height}
	if err := s.Validate(); err != nil {
		return err
	}
	v.size = s
	v.cam.SetAspect(width, height)
	v.dirty = true
	return nil
}

// Dirty reports whether something changed since the last frame.
func (v *Viewer) Dirty() bool { return v.dirty || v.controls.Pending() }

// Frame advances the camera controls and repaints. It has the signature of
// loop.FrameFunc.
func (v *Viewer) Frame(ctx context.Context, n uint64, now time.Time) {
	g := v.Graph(ctx)
	v.controls.Update(v.cam)
	v.renderer.Render(ctx, Frame{
		N:      n,
		Time:   now,
		Graph:  g,
		Camera: *v.cam,
		State:  v.machine.State(),
		Size:   v.size,
	})
	v.dirty = false
}

func (v *Viewer) handle(ctx context.Context, ev interact.Event) error {
	before := v.machine.State()
	err := v.machine.Handle(ctx, ev)
	if v.machine.State() != before {
		v.dirty = true
	}
	return err
}
