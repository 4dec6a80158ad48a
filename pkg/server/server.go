// Package server hosts depot scenes for browsers.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics                          (when a metrics handler is set)
//	GET  /api/depots
//	GET  /api/depots/{depot}/scene         scene graph as JSON; filter, category
//	                                       and weight narrow it at the provider
//	GET  /api/depots/{depot}/categories    product categories
//	GET  /api/depots/{depot}/locations/{location}/history?from=&to=
//	GET  /api/depots/{depot}/floor.svg     top-down floor plan
//	GET  /api/depots/{depot}/stock         current stock and fill rate
//	POST /api/depots/{depot}/refresh       refetch and swap the scene
//	GET  /api/depots/{depot}/ws            pointer channel, see ws.go
//	GET  /api/sessions
//
// Every depot gets one scene store and one refresher, created on first
// use and shared by all connections viewing it.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"

	"github.com/matzehuels/depotview/pkg/camera"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/loop"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
	"github.com/matzehuels/depotview/pkg/session"
	"github.com/matzehuels/depotview/pkg/sink"
	"github.com/matzehuels/depotview/pkg/viewer"
)

// Defaults for a Server.
const (
	DefaultFPS     = 30
	DefaultWidth   = 1280
	DefaultHeight  = 720
	fetchErrHeader = "X-Depotview-Fetch-Error"
)

// DispatcherFactory returns the action dispatcher for connections viewing
// depot. refresh refetches the depot in the background and is meant to run
// after a successful mutation.
type DispatcherFactory func(depot string, refresh func()) interact.Dispatcher

// Server serves depot scenes over HTTP and websockets.
type Server struct {
	provider provider.Provider
	grid     scene.GridConfig
	viewport viewer.Size
	camera   *camera.Camera
	fps      int
	origins  []string
	ttl      time.Duration
	interval time.Duration
	actions  []interact.Action
	dispatch DispatcherFactory
	metrics  http.Handler
	logger   *log.Logger

	sessions *session.MemoryStore
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	depots map[string]*depot
	conns  map[string]*conn
}

// Option configures a Server.
type Option func(*Server)

// WithGrid sets the floor grid of every depot scene.
func WithGrid(g scene.GridConfig) Option { return func(s *Server) { s.grid = g } }

// WithViewport sets the container size used when a client does not send one.
func WithViewport(width, height float64) Option {
	return func(s *Server) { s.viewport = viewer.Size{Width: width, Height: height} }
}

// WithCamera sets the starting camera of every connection.
func WithCamera(c camera.Camera) Option { return func(s *Server) { s.camera = &c } }

// WithFPS sets the frame rate of each connection's render loop.
func WithFPS(fps int) Option { return func(s *Server) { s.fps = fps } }

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// "*" or an empty list accepts any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithSessionTTL sets how long an idle connection is kept.
func WithSessionTTL(ttl time.Duration) Option { return func(s *Server) { s.ttl = ttl } }

// WithRefreshInterval refetches every open depot periodically. Zero
// disables it.
func WithRefreshInterval(d time.Duration) Option { return func(s *Server) { s.interval = d } }

// WithActions replaces the action menu entries.
func WithActions(actions ...interact.Action) Option {
	return func(s *Server) { s.actions = actions }
}

// WithDispatcherFactory enables menu actions. Without it every action is
// rejected as unsupported.
func WithDispatcherFactory(f DispatcherFactory) Option { return func(s *Server) { s.dispatch = f } }

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a server reading scenes from p. Call Close to stop the
// background refreshes and drop open connections.
func New(p provider.Provider, opts ...Option) (*Server, error) {
	if p == nil {
		return nil, errors.Config("server needs a provider")
	}
	s := &Server{
		provider: p,
		grid:     scene.DefaultGrid,
		viewport: viewer.Size{Width: DefaultWidth, Height: DefaultHeight},
		fps:      DefaultFPS,
		ttl:      session.DefaultTTL,
		logger:   log.Default(),
		depots:   map[string]*depot{},
		conns:    map[string]*conn{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.grid.Validate(); err != nil {
		return nil, err
	}
	if err := s.viewport.Validate(); err != nil {
		return nil, err
	}
	if s.fps <= 0 || s.fps > loop.MaxFPS {
		return nil, errors.Config("fps must be in (0, %d], got %d", loop.MaxFPS, s.fps)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sessions = session.NewMemoryStore(session.WithEvictFunc(s.evict))
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	go s.sessions.RunCleanup(s.ctx, session.DefaultCleanupInterval)
	return s, nil
}

// Close stops background work and closes every connection.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

// Sessions returns the session store.
func (s *Server) Sessions() *session.MemoryStore { return s.sessions }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		// The websocket route must stay outside gzip: the upgrade hijacks
		// the connection.
		r.Get("/depots/{depot}/ws", s.handleWS)

		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
			r.Use(s.logRequests)
			r.Get("/depots", s.handleDepots)
			r.Get("/depots/{depot}/scene", s.handleScene)
			r.Get("/depots/{depot}/floor.svg", s.handleFloor)
			r.Get("/depots/{depot}/stock", s.handleStock)
			r.Get("/depots/{depot}/categories", s.handleCategories)
			r.Get("/depots/{depot}/locations/{location}/history", s.handleHistory)
			r.Post("/depots/{depot}/refresh", s.handleRefresh)
			r.Get("/sessions", s.handleSessions)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "elapsed", time.Since(start).Round(time.Microsecond))
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.origins) == 0 || slices.Contains(s.origins, "*") {
		return true
	}
	return slices.Contains(s.origins, origin)
}

// depot is the shared scene of one depot.
type depot struct {
	id        string
	store     *scene.Store
	refresher *provider.Refresher
	ready     chan struct{}
	err       error
}

// depot returns the shared scene of id, fetching it on first use. Depots
// the provider does not know are not kept.
func (s *Server) depot(ctx context.Context, id string) (*depot, error) {
	if err := errors.ValidateDepotID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	d, ok := s.depots[id]
	if ok {
		s.mu.Unlock()
		select {
		case <-d.ready:
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "waiting for depot %s", id)
		}
		if d.err != nil {
			return nil, d.err
		}
		return d, nil
	}

	store := scene.NewStore(s.grid)
	r, err := provider.NewRefresher(s.provider, store, id,
		provider.WithGrid(s.grid), provider.WithLogger(s.logger))
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	d = &depot{id: id, store: store, refresher: r, ready: make(chan struct{})}
	s.depots[id] = d
	s.mu.Unlock()

	if _, err := r.Refresh(ctx); errors.Has(err, errors.ErrCodeNotFound) {
		d.err = errors.New(errors.ErrCodeNotFound, "depot %s not found", id)
	}
	if d.err != nil {
		s.mu.Lock()
		delete(s.depots, id)
		s.mu.Unlock()
		close(d.ready)
		return nil, d.err
	}
	close(d.ready)

	if s.interval > 0 {
		go func() { _ = r.Watch(s.ctx, s.interval) }()
	}
	return d, nil
}

// Changed refetches depot in the background when it is being served. An
// empty ID refetches every served depot. It is safe to call from any
// goroutine, typically a provider's change feed.
func (s *Server) Changed(id string) {
	s.mu.Lock()
	var targets []*depot
	for _, d := range s.depots {
		if id == "" || d.id == id {
			targets = append(targets, d)
		}
	}
	s.mu.Unlock()

	for _, d := range targets {
		select {
		case <-d.ready:
		default:
			continue // the first fetch is still running
		}
		if d.err == nil {
			s.logger.Debug("depot changed", "depot", d.id)
			s.refreshAsync(d)
		}
	}
}

// refresh invalidates cached data of d and refetches it.
func (s *Server) refresh(ctx context.Context, d *depot) (*scene.Graph, error) {
	if c, ok := s.provider.(*provider.Cached); ok {
		if err := c.Invalidate(ctx, d.id); err != nil {
			s.logger.Warn("cache invalidation failed", "depot", d.id, "err", err)
		}
	}
	return d.refresher.Refresh(ctx)
}

func (s *Server) handleDepots(w http.ResponseWriter, r *http.Request) {
	depots, err := s.provider.Depots(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if depots == nil {
		depots = []provider.Depot{}
	}
	writeJSON(w, http.StatusOK, depots)
}

// filterFromQuery reads repeated or comma-separated filter, category and
// weight parameters.
func filterFromQuery(q url.Values) provider.Filter {
	split := func(key string) []string {
		var out []string
		for _, v := range q[key] {
			out = append(out, strings.Split(v, ",")...)
		}
		return out
	}
	return provider.Filter{
		Filters:    split("filter"),
		Categories: split("category"),
		Weights:    split("weight"),
	}.Normalize()
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	if f := filterFromQuery(r.URL.Query()); !f.IsZero() {
		s.handleFilteredScene(w, r, f)
		return
	}
	d, err := s.depot(r.Context(), chi.URLParam(r, "depot"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	setFetchError(w, d)
	s.writeScene(w, d.id, d.store.Current(), d.refresher.FillRate())
}

// handleFilteredScene builds a one-off scene from a filtered fetch. It is
// not shared with the depot's store or its websocket viewers.
func (s *Server) handleFilteredScene(w http.ResponseWriter, r *http.Request, f provider.Filter) {
	id := chi.URLParam(r, "depot")
	if err := errors.ValidateDepotID(id); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := provider.Filtered(s.provider, f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := p.Layout(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	g, err := scene.Build(l.Records, s.grid, scene.WithContext(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Debug("filtered scene", "depot", id, "filter", f, "boxes", g.Len(), "skipped", len(g.Skipped))
	s.writeScene(w, id, g, l.FillRate)
}

func (s *Server) writeScene(w http.ResponseWriter, id string, g *scene.Graph, fill float64) {
	opts := []sink.JSONOption{sink.WithDepot(id), sink.WithFillRate(fill)}
	if s.camera != nil {
		cam := *s.camera
		cam.SetAspect(s.viewport.Width, s.viewport.Height)
		opts = append(opts, sink.WithCamera(cam))
	}
	data, err := sink.RenderJSON(g, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "depot")
	if err := errors.ValidateDepotID(id); err != nil {
		s.writeError(w, err)
		return
	}
	cats, err := provider.Categories(r.Context(), s.provider, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// handleHistory returns the changes of one location. from and to are
// dates (2006-01-02) and may be omitted.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "depot")
	if err := errors.ValidateDepotID(id); err != nil {
		s.writeError(w, err)
		return
	}
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	entries, err := provider.LocationHistory(r.Context(), s.provider, id, chi.URLParam(r, "location"), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []provider.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "date %q", v)
	}
	return t, nil
}

func (s *Server) handleFloor(w http.ResponseWriter, r *http.Request) {
	d, err := s.depot(r.Context(), chi.URLParam(r, "depot"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts := []sink.SVGOption{sink.WithPopups()}
	if r.URL.Query().Get("ids") != "" {
		opts = append(opts, sink.WithBoxIDs())
	}
	if sel := r.URL.Query().Get("selected"); sel != "" {
		opts = append(opts, sink.WithSelected(sel))
	}
	setFetchError(w, d)
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(sink.RenderSVG(d.store.Current(), opts...))
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "depot")
	if err := errors.ValidateDepotID(id); err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.provider.Stock(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type refreshResponse struct {
	Depot    string  `json:"depot"`
	Version  uint64  `json:"version"`
	Boxes    int     `json:"boxes"`
	Skipped  int     `json:"skipped"`
	FillRate float64 `json:"fillRate"`
	Error    string  `json:"error,omitempty"`
}

// handleRefresh refetches a depot. A failed fetch still swaps in an empty
// scene; the response then carries the error with a 502.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "depot")
	s.mu.Lock()
	_, known := s.depots[id]
	s.mu.Unlock()

	d, err := s.depot(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var g *scene.Graph
	if known {
		g, err = s.refresh(r.Context(), d)
	} else {
		g, err = d.store.Current(), d.refresher.LastError()
	}
	resp := refreshResponse{
		Depot:    d.id,
		Version:  g.Version,
		Boxes:    g.Len(),
		Skipped:  len(g.Skipped),
		FillRate: d.refresher.FillRate(),
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = errors.UserMessage(err)
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

func setFetchError(w http.ResponseWriter, d *depot) {
	if err := d.refresher.LastError(); err != nil {
		w.Header().Set(fetchErrHeader, string(errors.GetCode(err)))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	})
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDepot, errors.ErrCodeInvalidFormat,
		errors.ErrCodeConfig, errors.ErrCodeDomain:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errors.ErrCodeFetch, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
