package interact

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/observability"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Machine is the interaction state machine. It is not safe for concurrent
// use; drive it from the render loop.
type Machine struct {
	state      State
	overlay    Overlay
	dispatcher Dispatcher
	actions    []Action
	logger     *log.Logger

	tooltip bool
	menu    bool

	post     func(func()) bool
	done     func(Request, error)
	inflight sync.WaitGroup
}

// Option configures a Machine.
type Option func(*Machine)

// WithDispatcher sets the collaborator that carries out menu actions.
// The default is StubDispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(m *Machine) {
		if d != nil {
			m.dispatcher = d
		}
	}
}

// WithActions replaces the action menu entries.
func WithActions(actions ...Action) Option {
	return func(m *Machine) { m.actions = slices.Clone(actions) }
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithAsyncDispatch runs every dispatch on its own goroutine, so that
// ActivateItem returns as soon as the machine is Idle. The outcome is handed
// to post, which must run it on the caller's loop (see loop.Loop.Post);
// there done receives the request and its error. A nil done drops the
// outcome after it has been logged and reported to the hooks.
func WithAsyncDispatch(post func(func()) bool, done func(Request, error)) Option {
	return func(m *Machine) {
		m.post, m.done = post, done
	}
}

// NewMachine returns a machine in the Idle state drawing on overlay.
// A nil overlay discards all effects.
func NewMachine(overlay Overlay, opts ...Option) *Machine {
	if overlay == nil {
		overlay = NopOverlay{}
	}
	m := &Machine{
		overlay:    overlay,
		dispatcher: StubDispatcher{},
		actions:    DefaultActions,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// TooltipVisible reports whether the machine has the tooltip shown.
func (m *Machine) TooltipVisible() bool { return m.tooltip }

// MenuVisible reports whether the machine has the action menu shown.
func (m *Machine) MenuVisible() bool { return m.menu }

// Actions returns the action menu entries.
func (m *Machine) Actions() []Action { return m.actions }

// Handle applies ev. Events that have no transition from the current state
// are ignored. The only error source is ActivateItem: an unknown action
// (state unchanged) or, without WithAsyncDispatch, a failed dispatch (the
// machine is already Idle).
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	from := m.state
	var err error

	switch e := ev.(type) {
	case PointerMove:
		if m.state.Kind == ActionMenuShown {
			return nil
		}
		if e.Pick.Hit() {
			m.showTooltip(e.Pick.Box, e.Anchor)
		} else {
			m.idle()
		}

	case PointerLeave:
		if m.state.Kind == ActionMenuShown {
			return nil
		}
		m.idle()

	case Click:
		switch {
		case e.Pick.Hit():
			m.showMenu(e.Pick.Box, e.Anchor)
		case m.state.Kind != Idle:
			m.idle()
		}

	case ClickOutside:
		if m.state.Kind != ActionMenuShown {
			return nil
		}
		m.idle()

	case ActivateItem:
		if m.state.Kind != ActionMenuShown {
			return nil
		}
		if !slices.Contains(m.actions, e.Action) {
			return errors.New(errors.ErrCodeInvalidInput, "unknown action %q", e.Action)
		}
		req := Request{Action: e.Action, Box: m.state.Box}
		m.idle()
		if m.post != nil {
			m.dispatchAsync(ctx, req)
		} else {
			err = m.dispatch(ctx, req)
		}

	default:
		return nil
	}

	if m.state.Kind != from.Kind || m.state.Box != from.Box {
		m.logger.Debug("interaction", "event", ev.Name(), "from", from, "to", m.state)
		observability.Interaction().OnTransition(ctx, from.Kind.String(), m.state.Kind.String(), ev.Name())
	}
	return err
}

// Rebind moves the held box reference onto g after a scene rebuild. When
// the box's record is still present the state keeps its kind and anchor
// and points at the new box; a shown tooltip is refreshed with the new
// values. Otherwise the machine returns to Idle.
func (m *Machine) Rebind(ctx context.Context, g *scene.Graph) {
	if m.state.Box == nil {
		return
	}
	from := m.state
	nb, ok := g.Box(m.state.Box.SourceID)
	if !ok {
		m.idle()
		m.logger.Debug("interaction target removed by rebuild", "id", from.Box.SourceID)
		observability.Interaction().OnTransition(ctx, from.Kind.String(), Idle.String(), "Rebind")
		return
	}
	m.state.Box = nb
	if m.state.Kind == TooltipShown {
		m.overlay.ShowTooltip(m.state.Anchor, TooltipFor(nb))
	}
}

// Reset returns to Idle, hiding any overlay.
func (m *Machine) Reset() { m.idle() }

func (m *Machine) showTooltip(b *scene.Box, at Anchor) {
	m.hideMenu()
	m.overlay.ShowTooltip(at, TooltipFor(b))
	m.tooltip = true
	m.state = State{Kind: TooltipShown, Box: b, Anchor: at}
}

func (m *Machine) showMenu(b *scene.Box, at Anchor) {
	m.hideTooltip()
	m.overlay.ShowMenu(at, m.actions)
	m.menu = true
	m.state = State{Kind: ActionMenuShown, Box: b, Anchor: at}
}

func (m *Machine) idle() {
	m.hideTooltip()
	m.hideMenu()
	m.state = State{}
}

func (m *Machine) hideTooltip() {
	if m.tooltip {
		m.overlay.HideTooltip()
		m.tooltip = false
	}
}

func (m *Machine) hideMenu() {
	if m.menu {
		m.overlay.HideMenu()
		m.menu = false
	}
}

// Wait blocks until every dispatch started by WithAsyncDispatch has
// returned. Their outcomes may still be queued on the caller's loop.
func (m *Machine) Wait() { m.inflight.Wait() }

func (m *Machine) dispatchAsync(ctx context.Context, req Request) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		err := m.dispatch(ctx, req)
		if m.done == nil {
			return
		}
		if !m.post(func() { m.done(req, err) }) {
			m.logger.Debug("action outcome dropped, loop stopped", "action", req.Action, "id", req.Box.SourceID)
		}
	}()
}

func (m *Machine) dispatch(ctx context.Context, req Request) error {
	err := m.dispatcher.Dispatch(ctx, req)
	if err != nil {
		m.logger.Warn("action failed", "action", req.Action, "id", req.Box.SourceID, "err", errors.UserMessage(err))
		observability.Interaction().OnActionError(ctx, string(req.Action), err)
	}
	return err
}
