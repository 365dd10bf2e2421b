package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pinspot/api/internal/extension"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/health"
	"github.com/pinspot/api/pkg/jwt"
	"github.com/pinspot/api/pkg/logger"
	"github.com/pinspot/api/pkg/session"
)

// Version is the framework version reported by GET /.
const Version = "0.9.0"

// Default server timeouts.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
	defaultBearerTTL         = 30 * 24 * time.Hour
)

type phase int

const (
	phaseCreated phase = iota
	phaseSchema
	phasePlugins
	phaseDB
	phaseScopes
	phaseStarted
	phaseSealed
)

var phaseNames = [...]string{"created", "schema", "plugins", "db", "scopes", "started", "sealed"}

func (p phase) String() string { return phaseNames[p] }

// Settings are the values the App needs from configuration.
type Settings struct {
	DBURI           string
	DBName          string
	BearerSignature string
	BearerTTL       time.Duration
	Port            int
}

// App is the application server. It is built in phases that must run in
// order: AddSchema, InitPlugins, InitDB, AddScopes, AddController, Start,
// MountErrorHandler. Out-of-order calls return ErrOutOfOrder.
type App struct {
	settings        Settings
	logger          *slog.Logger
	plugins         []Plugin
	openDB          store.Opener
	shutdownTimeout time.Duration
	extensions      *extension.Registry

	mu            sync.Mutex
	phase         phase
	schema        schema.Definition
	db            *store.DB
	scopes        scope.Set
	errorHandler  ErrorHandler
	middlewares   []Middleware
	httpMws       []HTTPMiddleware
	routes        []route
	checks        health.Checks
	shutdownHooks []func(context.Context) error
	server        *http.Server
	addr          string
	serveErr      chan error
	stopOnce      sync.Once
	stopErr       error

	router atomic.Pointer[http.Handler]

	tokensOnce sync.Once
	tokens     *jwt.Service
	tokensErr  error
}

// Option configures the App.
type Option func(*App)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithPlugins sets the plugins initialized by InitPlugins, in order.
func WithPlugins(plugins ...Plugin) Option {
	return func(a *App) {
		a.plugins = append(a.plugins, plugins...)
	}
}

// WithDBOpener replaces how InitDB opens the database.
func WithDBOpener(open store.Opener) Option {
	return func(a *App) {
		if open != nil {
			a.openDB = open
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates an App. Nothing is connected or listening until the phase
// methods run.
func New(settings Settings, opts ...Option) *App {
	a := &App{
		settings:        settings,
		logger:          logger.NewNope(),
		openDB:          store.Open,
		shutdownTimeout: defaultShutdownTimeout,
		extensions:      extension.NewRegistry(),
		checks:          make(health.Checks),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Logger() *slog.Logger            { return a.logger }
func (a *App) Extensions() *extension.Registry { return a.extensions }
func (a *App) Settings() Settings              { return a.settings }

// Server returns the host for middleware and ad-hoc routes.
func (a *App) Server() Router { return &server{a: a} }

func (a *App) Schema() schema.Definition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.schema
}

func (a *App) Scopes() scope.Set {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scopes
}

// DB returns the database handle, or nil before InitDB.
func (a *App) DB() *store.DB {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db
}

// Addr returns the bound listener address once Start has run.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Tokens returns the bearer token service built from the bearer signature.
func (a *App) Tokens() (*jwt.Service, error) {
	a.tokensOnce.Do(func() {
		ttl := a.settings.BearerTTL
		if ttl <= 0 {
			ttl = defaultBearerTTL
		}
		a.tokens, a.tokensErr = jwt.NewService(a.settings.BearerSignature, jwt.WithTTL(ttl))
	})
	return a.tokens, a.tokensErr
}

// expect checks the current phase against the allowed range. Callers hold mu.
func (a *App) expect(op string, from, to phase) error {
	if a.phase == phaseSealed && to < phaseSealed {
		return fmt.Errorf("%s: %w", op, ErrSealed)
	}
	if a.phase < from || a.phase > to {
		return fmt.Errorf("%s in phase %q, want %q..%q: %w", op, a.phase, from, to, ErrOutOfOrder)
	}
	return nil
}

// AddSchema registers the data shape. It must precede InitPlugins.
func (a *App) AddSchema(def schema.Definition) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("add schema", phaseCreated, phaseSchema); err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}
	a.schema = a.schema.Merge(def)
	a.phase = phaseSchema
	return nil
}

// InitPlugins runs every plugin's Init in registration order.
func (a *App) InitPlugins() error {
	a.mu.Lock()
	if err := a.expect("init plugins", phaseSchema, phaseSchema); err != nil {
		a.mu.Unlock()
		return err
	}
	a.phase = phasePlugins
	plugins := a.plugins
	a.mu.Unlock()

	for _, p := range plugins {
		if err := p.Init(a); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		a.logger.Debug("plugin initialized", slog.String("plugin", p.Name()))
	}
	return nil
}

// Extend attaches an extension by capability name.
func (a *App) Extend(name extension.Name, v any) error {
	a.mu.Lock()
	err := a.expect("extend", phasePlugins, phaseStarted)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return a.extensions.Extend(name, v)
}

// InitDB connects the database, applies the schema indexes and registers
// the readiness check and the disconnect hook.
func (a *App) InitDB(ctx context.Context) (*store.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("init db", phasePlugins, phasePlugins); err != nil {
		return nil, err
	}
	db, err := a.openDB(ctx, a.settings.DBURI, a.settings.DBName, a.schema)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.checks["mongo"] = db.Ping
	a.shutdownHooks = append(a.shutdownHooks, db.Close)
	a.phase = phaseDB
	a.logger.Info("database initialized", slog.String("database", db.Name()))
	return db, nil
}

// UseSession attaches the session middleware to the stack. Routes
// registered before this call do not see sessions.
func (a *App) UseSession(st session.Store, cfg SessionConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("use session", phaseDB, phaseStarted); err != nil {
		return err
	}
	sm, err := NewSessionManager(st, cfg, a.logger)
	if err != nil {
		return err
	}
	a.middlewares = append(a.middlewares, sm.middleware())
	return nil
}

// AddScopes registers the role to scope mapping used by controllers.
func (a *App) AddScopes(set scope.Set) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("add scopes", phaseDB, phaseScopes); err != nil {
		return err
	}
	a.scopes = a.scopes.Merge(set)
	a.phase = phaseScopes
	return nil
}

// AddController mounts a route bundle with scope authorization.
func (a *App) AddController(ctrl Controller) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("add controller "+ctrl.Name, phaseScopes, phaseScopes); err != nil {
		return err
	}
	for _, rt := range ctrl.Routes {
		h := rt.Handler
		if rt.Scope != "" {
			h = requireScope(a.scopes, rt.Scope)(h)
		}
		if err := a.handle(rt.Method, joinPath(ctrl.Base, rt.Path), h); err != nil {
			return fmt.Errorf("controller %s: %w", ctrl.Name, err)
		}
	}
	a.logger.Debug("controller registered",
		slog.String("controller", ctrl.Name),
		slog.Int("routes", len(ctrl.Routes)),
	)
	return nil
}

// AddReadinessCheck adds a named check to GET /health/ready.
func (a *App) AddReadinessCheck(name string, fn health.CheckFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks[name] = fn
}

// OnShutdown registers a hook run after the server stops, in order.
func (a *App) OnShutdown(hook func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownHooks = append(a.shutdownHooks, hook)
}

// MountErrorHandler installs the terminal error handler, seals the stack
// and starts routing. Until then every request gets 503.
func (a *App) MountErrorHandler(eh ErrorHandler) error {
	if eh == nil {
		return ErrNoHandler
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("mount error handler", phaseStarted, phaseStarted); err != nil {
		return err
	}
	a.errorHandler = eh
	h := a.compile()
	a.router.Store(&h)
	a.phase = phaseSealed
	a.logger.Info("routes mounted", slog.Int("routes", len(a.routes)))
	return nil
}

// ServeHTTP dispatches to the compiled router, or answers 503 until the
// error handler is mounted.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := a.router.Load()
	if h == nil {
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	(*h).ServeHTTP(w, r)
}

// Handler returns the App wrapped in the net/http middleware.
func (a *App) Handler() http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wrapHTTP()
}

// wrapHTTP applies the UseHTTP middleware, first registered outermost.
// Callers hold mu.
func (a *App) wrapHTTP() http.Handler {
	var h http.Handler = a
	for i := len(a.httpMws) - 1; i >= 0; i-- {
		h = a.httpMws[i](h)
	}
	return h
}

func (a *App) listenAddr() string {
	return ":" + strconv.Itoa(a.settings.Port)
}
