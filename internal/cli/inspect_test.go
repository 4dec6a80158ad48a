package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/picking"
	"github.com/matzehuels/depotview/pkg/scene"
)

var inspectRecords = []scene.LocationRecord{
	{ID: "A-01", X: 0, Z: 0, Stock: 120, LocWeight: 4},
	{ID: "A-02", X: 3, Z: 2, Stock: 40, LocWeight: 1},
}

// newTestInspector returns an inspector whose grid has one cell per pixel.
func newTestInspector(t *testing.T) *inspectModel {
	t.Helper()
	cfg := config.Default()
	store := scene.NewStore(cfg.Grid)
	g, err := scene.Build(inspectRecords, cfg.Grid)
	if err != nil {
		t.Fatal(err)
	}
	store.Swap(g)

	refresh := func(context.Context) (*scene.Graph, error) { return store.Current(), nil }
	m, err := newInspectModel(context.Background(), cfg, "7", store, refresh, log.New(io.Discard), nil)
	if err != nil {
		t.Fatalf("newInspectModel() = %v", err)
	}
	m.cols, m.rows = int(cfg.Viewport.Width), int(cfg.Viewport.Height)
	return m
}

// cellOfBox returns the grid cell under the center of box id.
func cellOfBox(t *testing.T, m *inspectModel, id string) (int, int) {
	t.Helper()
	b, ok := m.frame.Graph.Box(id)
	if !ok {
		t.Fatalf("no box %q", id)
	}
	cam := m.viewer.Camera()
	x, y, ok := cam.Project(b.Position)
	if !ok {
		t.Fatalf("box %q is behind the camera", id)
	}
	col, row, ok := m.cellOf(picking.FromNDC(x, y, m.viewer.Viewport()))
	if !ok {
		t.Fatalf("box %q is off screen", id)
	}
	return col, row
}

func TestInspectHoverClickClose(t *testing.T) {
	m := newTestInspector(t)
	col, row := cellOfBox(t, m, "A-01")

	if err := m.moveTo(col, row); err != nil {
		t.Fatalf("moveTo() = %v", err)
	}
	if m.tip == nil || m.tip.ID != "A-01" {
		t.Fatalf("tooltip = %+v, want A-01", m.tip)
	}
	if got := m.viewer.State().Kind; got != interact.TooltipShown {
		t.Errorf("State().Kind = %v, want TooltipShown", got)
	}

	m.key("enter")
	if got := m.viewer.State().Kind; got != interact.ActionMenuShown {
		t.Errorf("after enter State().Kind = %v, want ActionMenuShown", got)
	}
	if len(m.menu) != 2 {
		t.Errorf("menu = %v, want add and remove", m.menu)
	}

	m.key("esc")
	if got := m.viewer.State().Kind; got != interact.Idle {
		t.Errorf("after esc State().Kind = %v, want Idle", got)
	}
	if m.menu != nil || m.tip != nil {
		t.Errorf("overlay still visible: menu %v, tip %+v", m.menu, m.tip)
	}
}

func TestInspectActivateWithoutDispatcher(t *testing.T) {
	m := newTestInspector(t)
	col, row := cellOfBox(t, m, "A-01")
	if err := m.moveTo(col, row); err != nil {
		t.Fatal(err)
	}
	m.key("enter")
	m.key("a")
	if got := m.viewer.State().Kind; got != interact.Idle {
		t.Errorf("State().Kind = %v, want Idle", got)
	}
	m.viewer.WaitActions()
	m.Update(frameMsg(time.Now()))
	if !strings.Contains(m.status, "cannot add yet") {
		t.Errorf("status = %q, want the unsupported action error", m.status)
	}
}

func TestInspectMoveClamps(t *testing.T) {
	m := newTestInspector(t)
	m.cols, m.rows = 10, 5
	if err := m.moveTo(-3, 99); err != nil {
		t.Fatal(err)
	}
	if m.col != 0 || m.row != 4 {
		t.Errorf("cursor = (%d, %d), want (0, 4)", m.col, m.row)
	}
}

func TestInspectView(t *testing.T) {
	m := newTestInspector(t)
	col, row := cellOfBox(t, m, "A-01")
	if err := m.moveTo(col, row); err != nil {
		t.Fatal(err)
	}
	m.Update(frameMsg(time.Now()))
	m.cols, m.rows = 40, 12
	m.col, m.row = 0, 0

	view := m.View()
	lines := strings.Split(view, "\n")
	if len(lines) < m.rows {
		t.Fatalf("view has %d lines, want at least %d", len(lines), m.rows)
	}
	for _, want := range []string{"Depot 7", "A-01", "TooltipShown"} {
		if !strings.Contains(view, want) {
			t.Errorf("view misses %q", want)
		}
	}
}

func TestInspectUpdate(t *testing.T) {
	m := newTestInspector(t)

	m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	if m.cols != 60 || m.rows != 30-inspectFooter {
		t.Errorf("grid = %dx%d, want 60x%d", m.cols, m.rows, 30-inspectFooter)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}

	_, cmd = m.Update(refreshedMsg{graph: m.frame.Graph})
	if cmd != nil || !strings.Contains(m.status, "version 1") {
		t.Errorf("status = %q, want refreshed version 1", m.status)
	}
}
