package interact

import "github.com/matzehuels/depotview/pkg/picking"

// Event is an input to [Machine.Handle].
type Event interface {
	Name() string
	event()
}

// PointerMove reports the pointer moving over the scene. Pick is the result
// of picking at Anchor.
type PointerMove struct {
	Pick   picking.Result
	Anchor Anchor
}

// PointerLeave reports the pointer leaving the scene.
type PointerLeave struct{}

// Click reports a click on the scene. Pick is the result of picking at
// Anchor.
type Click struct {
	Pick   picking.Result
	Anchor Anchor
}

// ClickOutside reports a click outside the open action menu that did not
// reach the scene.
type ClickOutside struct{}

// ActivateItem reports the user choosing an action menu entry.
type ActivateItem struct {
	Action Action
}

func (PointerMove) Name() string  { return "PointerMove" }
func (PointerLeave) Name() string { return "PointerLeave" }
func (Click) Name() string        { return "Click" }
func (ClickOutside) Name() string { return "ClickOutside" }
func (ActivateItem) Name() string { return "ActivateItem" }

func (PointerMove) event()  {}
func (PointerLeave) event() {}
func (Click) event()        {}
func (ClickOutside) event() {}
func (ActivateItem) event() {}
