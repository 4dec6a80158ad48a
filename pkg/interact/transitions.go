package interact

// Transition is one row of the machine's transition table.
type Transition struct {
	Event  string
	Guard  string
	From   []Kind
	To     Kind
	Effect string
}

// Transitions returns the transition table implemented by Machine.Handle,
// in evaluation order. Event and state combinations not listed are ignored.
func Transitions() []Transition {
	notMenu := []Kind{Idle, TooltipShown}
	all := []Kind{Idle, TooltipShown, ActionMenuShown}
	return []Transition{
		{"PointerMove", "pick hits B", notMenu, TooltipShown, "show tooltip for B at pointer"},
		{"PointerMove", "pick misses", notMenu, Idle, "hide tooltip"},
		{"PointerLeave", "", notMenu, Idle, "hide tooltip"},
		{"Click", "pick hits B", all, ActionMenuShown, "hide tooltip; show menu for B at pointer"},
		{"Click", "pick misses", []Kind{TooltipShown, ActionMenuShown}, Idle, "hide tooltip and menu"},
		{"ClickOutside", "", []Kind{ActionMenuShown}, Idle, "hide menu"},
		{"ActivateItem", "known action", []Kind{ActionMenuShown}, Idle, "hide menu; dispatch action"},
		{"Rebind", "box removed", []Kind{TooltipShown, ActionMenuShown}, Idle, "hide tooltip and menu"},
	}
}
