package interact

import (
	"context"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/scene"
)

// TooltipOffset is the horizontal distance, in pixels, between the pointer
// and the left edge of an overlay.
const TooltipOffset = 16

// Overlay displays the tooltip and the action menu. Implementations only
// draw; they never decide visibility.
type Overlay interface {
	ShowTooltip(anchor Anchor, tip Tooltip)
	HideTooltip()
	ShowMenu(anchor Anchor, actions []Action)
	HideMenu()
}

// NopOverlay discards every call.
type NopOverlay struct{}

func (NopOverlay) ShowTooltip(Anchor, Tooltip) {}
func (NopOverlay) HideTooltip()                {}
func (NopOverlay) ShowMenu(Anchor, []Action)   {}
func (NopOverlay) HideMenu()                   {}

// Request is an inventory mutation chosen from the action menu.
type Request struct {
	Action Action
	Box    *scene.Box
}

// Dispatcher carries out menu actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, req Request) error

// Dispatch calls f(ctx, req).
func (f DispatcherFunc) Dispatch(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// StubDispatcher rejects every action with UNSUPPORTED.
type StubDispatcher struct{}

// Dispatch implements Dispatcher.
func (StubDispatcher) Dispatch(_ context.Context, req Request) error {
	return errors.New(errors.ErrCodeUnsupported, "cannot %s yet", req.Action)
}
