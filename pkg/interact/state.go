// Package interact implements the interaction state machine that decides
// which overlay (tooltip or action menu) is visible for a warehouse scene.
//
// The machine is in exactly one [State] at a time: Idle, TooltipShown(box)
// or ActionMenuShown(box, anchor). Pointer events carry a pick result that
// the caller computed beforehand; the machine never picks by itself. All
// visible effects go through an [Overlay], so the machine runs unchanged
// against a browser, a terminal, or a recording fake in tests.
//
// The tooltip and the action menu are never visible at the same time: an
// open menu blocks pointer-move and pointer-leave transitions until it is
// closed by a click or an activation.
package interact

import (
	"fmt"

	"github.com/matzehuels/depotview/pkg/picking"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Kind enumerates the machine states.
type Kind int

const (
	Idle Kind = iota
	TooltipShown
	ActionMenuShown
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "Idle"
	case TooltipShown:
		return "TooltipShown"
	case ActionMenuShown:
		return "ActionMenuShown"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Anchor is the screen position an overlay is attached to.
type Anchor = picking.ScreenCoord

// State is the machine state. Box is nil exactly when Kind is Idle. Anchor
// is meaningful for TooltipShown and ActionMenuShown.
type State struct {
	Kind   Kind
	Box    *scene.Box
	Anchor Anchor
}

func (s State) String() string {
	if s.Box == nil {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Box.SourceID)
}

// Action is an entry of the action menu.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// DefaultActions are the menu entries shown for every box.
var DefaultActions = []Action{ActionAdd, ActionRemove}

// Tooltip is the content shown when hovering a box.
type Tooltip struct {
	ID        string  `json:"id"`
	Stock     float64 `json:"stock"`
	LocWeight float64 `json:"locWeight"`
}

// TooltipFor returns the tooltip content for b.
func TooltipFor(b *scene.Box) Tooltip {
	return Tooltip{ID: b.SourceID, Stock: b.Stock, LocWeight: b.LocWeight}
}

// Lines renders the tooltip as display lines.
func (t Tooltip) Lines() []string {
	return []string{
		"title: " + t.ID,
		fmt.Sprintf("stock: %g", t.Stock),
		fmt.Sprintf("loc weight: %g", t.LocWeight),
	}
}
