package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/picking"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
	"github.com/matzehuels/depotview/pkg/viewer"
)

const (
	inspectFPS    = 15
	inspectFooter = 9  // lines below the floor grid
	dragStep      = 40 // pixels per rotate key press
	wheelStep     = 200
)

var (
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Background(colorGray)
	panelHeader   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// actionKeys binds the menu actions to keys.
var actionKeys = map[interact.Action]string{
	interact.ActionAdd:    "a",
	interact.ActionRemove: "d",
}

// inspectCommand opens the terminal inspector.
func (c *CLI) inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [depot]",
		Short: "Explore a depot scene in the terminal",
		Long: `Open an interactive view of a depot in the terminal.

Move the pointer with the arrow keys to hover a location, press enter to
open its action menu and a or d to add or remove stock. Shift+arrows
rotate the camera, + and - zoom, r refreshes the depot.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			depot, err := depotArg(args, cfg)
			if err != nil {
				return err
			}
			return c.runInspect(cmd.Context(), cfg, depot)
		},
	}
	return cmd
}

func (c *CLI) runInspect(ctx context.Context, cfg config.Config, depot string) error {
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	// Logging to the terminal would tear the alt screen.
	quiet := log.New(io.Discard)

	store := scene.NewStore(cfg.Grid)
	r, err := provider.NewRefresher(b, store, depot,
		provider.WithGrid(cfg.Grid), provider.WithLogger(quiet))
	if err != nil {
		return err
	}

	spin := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching depot %s...", depot))
	spin.Start()
	_, fetchErr := r.Refresh(ctx)
	spin.Stop()
	if fetchErr != nil && errors.Has(fetchErr, errors.ErrCodeNotFound) {
		printError("Depot %s: %s", depot, errors.UserMessage(fetchErr))
		return fetchErr
	}

	m, err := newInspectModel(ctx, cfg, depot, store, r.Refresh, quiet, b.dispatcher)
	if err != nil {
		return err
	}
	if fetchErr != nil {
		m.status = errors.UserMessage(fetchErr)
	}

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "run inspector")
	}
	return nil
}

type (
	frameMsg     time.Time
	refreshedMsg struct {
		graph *scene.Graph
		err   error
	}
)

// inspectModel drives a viewer from the keyboard. The bubbletea update
// goroutine is the render loop: frames arrive as tick messages and every
// viewer call happens inside Update.
type inspectModel struct {
	ctx     context.Context
	depot   string
	viewer  *viewer.Viewer
	refresh func(context.Context) (*scene.Graph, error)

	cols, rows int // floor grid in terminal cells
	col, row   int // pointer cell

	posted chan func() // action outcomes, run before the next frame

	frame      viewer.Frame
	frames     uint64
	tip        *interact.Tooltip
	menu       []interact.Action
	status     string
	pending    bool // an action changed stock
	refreshing bool
}

type dispatcherFunc func(cfg config.Config, depot string, logger *log.Logger, after func()) interact.Dispatcher

func newInspectModel(
	ctx context.Context,
	cfg config.Config,
	depot string,
	store *scene.Store,
	refresh func(context.Context) (*scene.Graph, error),
	logger *log.Logger,
	dispatcher dispatcherFunc,
) (*inspectModel, error) {
	m := &inspectModel{
		ctx:     ctx,
		depot:   depot,
		refresh: refresh,
		cols:    80,
		rows:    20,
		posted:  make(chan func(), 16),
	}
	m.col, m.row = m.cols/2, m.rows/2

	size := viewer.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height}
	opts := []viewer.Option{
		viewer.WithOverlay(m),
		viewer.WithRenderer(viewer.RendererFunc(func(_ context.Context, f viewer.Frame) { m.frame = f })),
		viewer.WithCamera(*cfg.Camera.Build(size.Width / size.Height)),
		viewer.WithLogger(logger),
		viewer.WithAsyncActions(m.post, m.actionDone),
	}
	if dispatcher != nil {
		after := func() { m.post(func() { m.pending = true }) }
		if d := dispatcher(cfg, depot, logger, after); d != nil {
			opts = append(opts, viewer.WithDispatcher(d))
		}
	}
	v, err := viewer.New(size, store, opts...)
	if err != nil {
		return nil, err
	}
	m.viewer = v
	v.Frame(ctx, 0, time.Now())
	return m, nil
}

func (m *inspectModel) ShowTooltip(_ interact.Anchor, tip interact.Tooltip) { m.tip = &tip }
func (m *inspectModel) HideTooltip()                                        { m.tip = nil }
func (m *inspectModel) ShowMenu(_ interact.Anchor, actions []interact.Action) {
	m.menu = actions
}
func (m *inspectModel) HideMenu() { m.menu = nil }

// post queues fn for the update goroutine. It reports false when the queue
// is full.
func (m *inspectModel) post(fn func()) bool {
	select {
	case m.posted <- fn:
		return true
	default:
		return false
	}
}

func (m *inspectModel) drain() {
	for {
		select {
		case fn := <-m.posted:
			fn()
		default:
			return
		}
	}
}

func (m *inspectModel) actionDone(req interact.Request, err error) {
	if err != nil {
		m.status = errors.UserMessage(err)
		return
	}
	m.status = fmt.Sprintf("%s %s done", req.Action, req.Box.SourceID)
}

func (m *inspectModel) Init() tea.Cmd {
	return m.tick()
}

func (m *inspectModel) tick() tea.Cmd {
	return tea.Tick(time.Second/inspectFPS, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols = max(msg.Width, 10)
		m.rows = max(msg.Height-inspectFooter, 5)
		m.col = min(m.col, m.cols-1)
		m.row = min(m.row, m.rows-1)
	case tea.KeyMsg:
		return m, m.key(msg.String())
	case frameMsg:
		m.drain()
		m.frames++
		m.viewer.Frame(m.ctx, m.frames, time.Time(msg))
		cmds := []tea.Cmd{m.tick()}
		if m.pending && !m.refreshing {
			m.pending = false
			cmds = append(cmds, m.reload())
		}
		return m, tea.Batch(cmds...)
	case refreshedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.status = errors.UserMessage(msg.err)
		} else {
			m.status = fmt.Sprintf("refreshed, version %d", msg.graph.Version)
		}
	}
	return m, nil
}

func (m *inspectModel) key(k string) tea.Cmd {
	var err error
	switch k {
	case "q", "ctrl+c":
		return tea.Quit
	case "up", "k":
		err = m.moveTo(m.col, m.row-1)
	case "down", "j":
		err = m.moveTo(m.col, m.row+1)
	case "left", "h":
		err = m.moveTo(m.col-1, m.row)
	case "right", "l":
		err = m.moveTo(m.col+1, m.row)
	case "enter", " ":
		x, y := m.pointer()
		err = m.viewer.Click(m.ctx, x, y)
	case "esc":
		err = m.viewer.ClickOutside(m.ctx)
	case "a", "d":
		action := interact.ActionAdd
		if k == "d" {
			action = interact.ActionRemove
		}
		open := m.viewer.State().Kind == interact.ActionMenuShown
		if err = m.viewer.Activate(m.ctx, action); err == nil && open {
			m.status = fmt.Sprintf("%s sent...", action)
			return nil
		}
	case "shift+left":
		m.viewer.Drag(-dragStep, 0)
	case "shift+right":
		m.viewer.Drag(dragStep, 0)
	case "shift+up":
		m.viewer.Drag(0, -dragStep)
	case "shift+down":
		m.viewer.Drag(0, dragStep)
	case "+", "=":
		m.viewer.Wheel(-wheelStep)
	case "-":
		m.viewer.Wheel(wheelStep)
	case "r":
		if !m.refreshing {
			return m.reload()
		}
	}
	if err != nil {
		m.status = errors.UserMessage(err)
	} else if k != "r" {
		m.status = ""
	}
	return nil
}

func (m *inspectModel) reload() tea.Cmd {
	m.refreshing = true
	m.status = "refreshing..."
	ctx, refresh := m.ctx, m.refresh
	return func() tea.Msg {
		g, err := refresh(ctx)
		return refreshedMsg{graph: g, err: err}
	}
}

// moveTo clamps the pointer to the grid and reports the move.
func (m *inspectModel) moveTo(col, row int) error {
	m.col = min(max(col, 0), m.cols-1)
	m.row = min(max(row, 0), m.rows-1)
	x, y := m.pointer()
	return m.viewer.PointerMove(m.ctx, x, y)
}

// pointer is the pixel position at the center of the pointer cell.
func (m *inspectModel) pointer() (x, y float64) {
	s := m.viewer.Size()
	return (float64(m.col) + 0.5) * s.Width / float64(m.cols),
		(float64(m.row) + 0.5) * s.Height / float64(m.rows)
}

// cellOf maps a screen point to its grid cell.
func (m *inspectModel) cellOf(p picking.ScreenCoord) (col, row int, ok bool) {
	s := m.viewer.Size()
	col = int(p.X * float64(m.cols) / s.Width)
	row = int(p.Y * float64(m.rows) / s.Height)
	return col, row, p.X >= 0 && p.Y >= 0 && col < m.cols && row < m.rows
}

func (m *inspectModel) View() string {
	cells := make([][]string, m.rows)
	for i := range cells {
		cells[i] = make([]string, m.cols)
		for j := range cells[i] {
			cells[i][j] = " "
		}
	}

	f := m.frame
	if f.Graph != nil {
		vp := picking.Viewport{Width: f.Size.Width, Height: f.Size.Height}
		for _, b := range f.Graph.Boxes() {
			x, y, ok := f.Camera.Project(b.Position)
			if !ok {
				continue
			}
			col, row, ok := m.cellOf(picking.FromNDC(x, y, vp))
			if !ok {
				continue
			}
			if f.State.Box == b {
				cells[row][col] = selectedStyle.Render("■")
			} else {
				cells[row][col] = stockSwatch(b)
			}
		}
	}
	cells[m.row][m.col] = cursorStyle.Render("+")

	var sb strings.Builder
	for _, row := range cells {
		sb.WriteString(strings.Join(row, ""))
		sb.WriteString("\n")
	}
	sb.WriteString(m.panel())
	return sb.String()
}

func (m *inspectModel) panel() string {
	var sb strings.Builder
	title := fmt.Sprintf("Depot %s", m.depot)
	if g := m.frame.Graph; g != nil {
		title += StyleDim.Render(fmt.Sprintf("  v%d  %d locations", g.Version, g.Len()))
	}
	sb.WriteString(StyleTitle.Render(title))
	sb.WriteString("  ")
	sb.WriteString(StyleHighlight.Render(m.frame.State.Kind.String()))
	sb.WriteString("\n")

	if m.tip != nil {
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
			Headers("Location", "Stock", "Weight").
			Row(m.tip.ID, fmt.Sprintf("%g", m.tip.Stock), fmt.Sprintf("%g", m.tip.LocWeight)).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == -1 {
					return panelHeader
				}
				return lipgloss.NewStyle().Foreground(colorWhite)
			})
		sb.WriteString(t.Render())
		sb.WriteString("\n")
	}
	if len(m.menu) > 0 {
		entries := make([]string, 0, len(m.menu))
		for _, a := range m.menu {
			if k, ok := actionKeys[a]; ok {
				entries = append(entries, StyleHighlight.Render("["+k+"]")+" "+StyleValue.Render(string(a)))
			}
		}
		sb.WriteString("Actions: " + strings.Join(entries, "  "))
		sb.WriteString("\n")
	}
	if m.status != "" {
		sb.WriteString(StyleWarning.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(StyleDim.Render("arrows move  ⏎ menu  esc close  a/d add/remove  shift+arrows rotate  +/- zoom  r refresh  q quit"))
	return sb.String()
}
