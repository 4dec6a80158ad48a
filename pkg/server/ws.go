package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/depotview/pkg/camera"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/loop"
	"github.com/matzehuels/depotview/pkg/session"
	"github.com/matzehuels/depotview/pkg/sink"
	"github.com/matzehuels/depotview/pkg/viewer"
)

// Pointer messages sent by the client. Coordinates are pixels relative to
// the container's top-left corner.
//
//	{"type": "move", "x": 320, "y": 200}
//	{"type": "leave"}
//	{"type": "click", "x": 320, "y": 200}
//	{"type": "click_outside"}
//	{"type": "activate", "action": "add"}
//	{"type": "drag", "dx": 4, "dy": -2}
//	{"type": "pan", "dx": 4, "dy": -2}
//	{"type": "wheel", "delta": -120}
//	{"type": "resize", "width": 1024, "height": 768}
const (
	MsgMove         = "move"
	MsgLeave        = "leave"
	MsgClick        = "click"
	MsgClickOutside = "click_outside"
	MsgActivate     = "activate"
	MsgDrag         = "drag"
	MsgPan          = "pan"
	MsgWheel        = "wheel"
	MsgResize       = "resize"
)

// Messages sent to the client.
const (
	MsgHello   = "hello"
	MsgScene   = "scene"
	MsgFrame   = "frame"
	MsgTooltip = "tooltip"
	MsgMenu    = "menu"
	MsgError   = "error"
)

const (
	writeWait  = 5 * time.Second
	readWait   = 60 * time.Second
	pingPeriod = readWait * 9 / 10
	outQueue   = 64
)

// ClientMessage is a pointer event from the browser.
type ClientMessage struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Delta  float64 `json:"delta,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Action string  `json:"action,omitempty"`
}

// ServerMessage is an update for the browser. Only the fields of its Type
// are set.
type ServerMessage struct {
	Type    string            `json:"type"`
	Session string            `json:"session,omitempty"`
	Depot   string            `json:"depot,omitempty"`
	Version uint64            `json:"version,omitempty"`
	Frame   uint64            `json:"frame,omitempty"`
	Scene   *sink.SceneJSON   `json:"scene,omitempty"`
	Camera  *camera.Camera    `json:"camera,omitempty"`
	State   *StateJSON        `json:"state,omitempty"`
	Visible *bool             `json:"visible,omitempty"`
	X       float64           `json:"x,omitempty"`
	Y       float64           `json:"y,omitempty"`
	Tooltip *interact.Tooltip `json:"tooltip,omitempty"`
	Lines   []string          `json:"lines,omitempty"`
	Actions []string          `json:"actions,omitempty"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
}

// StateJSON is the interaction state as sent to the client.
type StateJSON struct {
	Kind string `json:"kind"`
	Box  string `json:"box,omitempty"`
}

func stateJSON(s interact.State) *StateJSON {
	out := &StateJSON{Kind: s.Kind.String()}
	if s.Box != nil {
		out.Box = s.Box.SourceID
	}
	return out
}

// conn is one websocket viewer. The viewer is only touched from the loop
// goroutine; the reader posts every event to it.
type conn struct {
	s      *Server
	depot  *depot
	sess   *session.Session
	ws     *websocket.Conn
	viewer *viewer.Viewer
	loop   *loop.Loop
	out    chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// hide messages that did not fit the queue, by message type
	owedMu sync.Mutex
	owed   map[string]bool
	kick   chan struct{}

	// render state, loop goroutine only
	lastScene uint64
	last      frameKey
}

type frameKey struct {
	camera camera.Camera
	state  interact.State
	size   viewer.Size
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	d, err := s.depot(r.Context(), chi.URLParam(r, "depot"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	size := s.viewport
	if v, err := strconv.ParseFloat(r.URL.Query().Get("width"), 64); err == nil {
		size.Width = v
	}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("height"), 64); err == nil {
		size.Height = v
	}
	if err := size.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	c, err := s.newConn(d, ws, size)
	if err != nil {
		s.logger.Warn("viewer setup failed", "depot", d.id, "err", err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, errors.UserMessage(err)),
			time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}
	c.run()
}

func (s *Server) newConn(d *depot, ws *websocket.Conn, size viewer.Size) (*conn, error) {
	ctx, cancel := context.WithCancel(s.ctx)
	c := &conn{
		s:      s,
		depot:  d,
		sess:   session.New(d.id, session.Viewport{Width: size.Width, Height: size.Height}, s.ttl),
		ws:     ws,
		out:    make(chan []byte, outQueue),
		owed:   make(map[string]bool, 2),
		kick:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := []viewer.Option{
		viewer.WithOverlay(c),
		viewer.WithRenderer(viewer.RendererFunc(c.render)),
		viewer.WithLogger(s.logger.With("session", c.sess.ID)),
		viewer.WithAsyncActions(func(fn func()) bool { return c.loop.Post(fn) }, c.actionDone),
	}
	if s.camera != nil {
		opts = append(opts, viewer.WithCamera(*s.camera))
	}
	if len(s.actions) > 0 {
		opts = append(opts, viewer.WithActions(s.actions...))
	}
	if s.dispatch != nil {
		opts = append(opts, viewer.WithDispatcher(s.dispatch(d.id, func() { s.refreshAsync(d) })))
	}
	v, err := viewer.New(size, d.store, opts...)
	if err != nil {
		cancel()
		return nil, err
	}
	ticker, err := loop.NewTicker(s.fps)
	if err != nil {
		cancel()
		return nil, err
	}
	c.viewer = v
	c.loop = loop.New(ticker, v.Frame, loop.WithLogger(s.logger))
	return c, nil
}

// refreshAsync refetches d without blocking the caller, typically the
// render loop after a mutation or a change feed.
func (s *Server) refreshAsync(d *depot) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
		defer cancel()
		if _, err := s.refresh(ctx, d); err != nil {
			s.logger.Warn("background refresh failed", "depot", d.id, "err", err)
		}
	}()
}

func (c *conn) run() {
	s := c.s
	_ = s.sessions.Set(c.ctx, c.sess)
	s.mu.Lock()
	s.conns[c.sess.ID] = c
	s.mu.Unlock()
	s.logger.Info("viewer connected", "session", c.sess.ID, "depot", c.depot.id)

	defer func() {
		c.close()
		_ = s.sessions.Delete(context.Background(), c.sess.ID)
		s.mu.Lock()
		delete(s.conns, c.sess.ID)
		s.mu.Unlock()
		s.logger.Info("viewer disconnected", "session", c.sess.ID, "frames", c.loop.Frames())
	}()

	c.send(ServerMessage{Type: MsgHello, Session: c.sess.ID, Depot: c.depot.id, Version: c.depot.store.Version()})
	go c.writeLoop()
	go func() {
		_ = c.loop.Run(c.ctx)
		c.cancel()
	}()
	c.readLoop()
}

// close ends the connection. It is safe to call more than once and from
// any goroutine.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.loop.Stop()
		_ = c.ws.Close()
	})
}

// evict closes the connection of an expired or deleted session.
func (s *Server) evict(sess *session.Session) {
	s.mu.Lock()
	c := s.conns[sess.ID]
	s.mu.Unlock()
	if c != nil {
		s.logger.Debug("session evicted", "session", sess.ID)
		c.close()
	}
}

func (c *conn) readLoop() {
	c.ws.SetReadLimit(4096)
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
		if err := c.s.sessions.Touch(c.ctx, c.sess.ID); err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed message"))
			continue
		}
		if err := c.loop.Do(c.ctx, func() { c.handle(msg) }); err != nil {
			return
		}
	}
}

// handle applies one client message. It runs on the loop goroutine.
func (c *conn) handle(msg ClientMessage) {
	v := c.viewer
	var err error
	switch msg.Type {
	case MsgMove:
		err = v.PointerMove(c.ctx, msg.X, msg.Y)
	case MsgLeave:
		err = v.PointerLeave(c.ctx)
	case MsgClick:
		err = v.Click(c.ctx, msg.X, msg.Y)
	case MsgClickOutside:
		err = v.ClickOutside(c.ctx)
	case MsgActivate:
		err = v.Activate(c.ctx, interact.Action(msg.Action))
	case MsgDrag:
		v.Drag(msg.DX, msg.DY)
	case MsgPan:
		v.Pan(msg.DX, msg.DY)
	case MsgWheel:
		v.Wheel(msg.Delta)
	case MsgResize:
		if err = v.Resize(msg.Width, msg.Height); err == nil {
			c.sess.Viewport = session.Viewport{Width: msg.Width, Height: msg.Height}
			_ = c.s.sessions.Set(c.ctx, c.sess)
		}
	default:
		err = errors.New(errors.ErrCodeInvalidInput, "unknown message type %q", msg.Type)
	}
	if err != nil {
		c.sendError(err)
	}
}

// actionDone reports a failed menu action. It runs on the loop goroutine.
func (c *conn) actionDone(_ interact.Request, err error) {
	if err != nil {
		c.sendError(err)
	}
}

func (c *conn) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case b := <-c.out:
			if !c.write(b) || !c.flushOwed() {
				return
			}
		case <-c.kick:
			if !c.flushOwed() {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *conn) write(b []byte) bool {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		c.close()
		return false
	}
	return true
}

// flushOwed writes the owed hide messages once the queue has drained, so
// they still follow everything queued before them.
func (c *conn) flushOwed() bool {
	if len(c.out) > 0 {
		return true
	}
	c.owedMu.Lock()
	var types []string
	for typ := range c.owed {
		types = append(types, typ)
	}
	clear(c.owed)
	c.owedMu.Unlock()
	for _, typ := range types {
		b, _ := json.Marshal(hideMessage(typ))
		if !c.write(b) {
			return false
		}
	}
	return true
}

func hideMessage(typ string) ServerMessage {
	visible := false
	return ServerMessage{Type: typ, Visible: &visible}
}

// send queues msg for the writer. A client that does not keep up loses
// messages, except overlay hides: those are owed and written as soon as
// the queue drains, unless a newer message for the same overlay made it
// into the queue first.
func (c *conn) send(msg ServerMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		c.s.logger.Error("encode message", "type", msg.Type, "err", err)
		return
	}
	overlay := msg.Visible != nil
	select {
	case c.out <- b:
		if overlay {
			c.owedMu.Lock()
			delete(c.owed, msg.Type)
			c.owedMu.Unlock()
		}
		return
	default:
	}
	if overlay && !*msg.Visible {
		c.owedMu.Lock()
		c.owed[msg.Type] = true
		c.owedMu.Unlock()
		select {
		case c.kick <- struct{}{}:
		default:
		}
		return
	}
	c.s.logger.Warn("client too slow, message dropped", "session", c.sess.ID, "type", msg.Type)
}

func (c *conn) sendError(err error) {
	c.send(ServerMessage{Type: MsgError, Code: string(errors.GetCode(err)), Message: errors.UserMessage(err)})
}

// render sends the scene after every swap and a frame whenever the camera,
// the interaction state or the container changed.
func (c *conn) render(_ context.Context, f viewer.Frame) {
	if f.Graph.Version != c.lastScene {
		c.lastScene = f.Graph.Version
		sc := sink.Scene(f.Graph, sink.WithDepot(c.depot.id), sink.WithFillRate(c.depot.refresher.FillRate()))
		c.send(ServerMessage{Type: MsgScene, Version: f.Graph.Version, Scene: &sc})
	}
	key := frameKey{camera: f.Camera, state: f.State, size: f.Size}
	if key == c.last {
		return
	}
	c.last = key
	cam := f.Camera
	c.send(ServerMessage{
		Type:    MsgFrame,
		Frame:   f.N,
		Version: f.Graph.Version,
		Camera:  &cam,
		State:   stateJSON(f.State),
	})
}

// ShowTooltip implements interact.Overlay.
func (c *conn) ShowTooltip(at interact.Anchor, tip interact.Tooltip) {
	visible := true
	c.send(ServerMessage{
		Type: MsgTooltip, Visible: &visible,
		X: at.X + interact.TooltipOffset, Y: at.Y,
		Tooltip: &tip, Lines: tip.Lines(),
	})
}

// HideTooltip implements interact.Overlay.
func (c *conn) HideTooltip() { c.send(hideMessage(MsgTooltip)) }

// ShowMenu implements interact.Overlay.
func (c *conn) ShowMenu(at interact.Anchor, actions []interact.Action) {
	visible := true
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	c.send(ServerMessage{
		Type: MsgMenu, Visible: &visible,
		X: at.X + interact.TooltipOffset, Y: at.Y,
		Actions: names,
	})
}

// HideMenu implements interact.Overlay.
func (c *conn) HideMenu() { c.send(hideMessage(MsgMenu)) }

var _ interact.Overlay = (*conn)(nil)
