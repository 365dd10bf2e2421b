package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/auth"
	"github.com/pinspot/api/internal/buildinfo"
	"github.com/pinspot/api/internal/config"
	"github.com/pinspot/api/internal/controllers"
	"github.com/pinspot/api/internal/extension"
	"github.com/pinspot/api/internal/plugins"
	"github.com/pinspot/api/internal/routes"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/middlewares"
	"github.com/pinspot/api/pkg/cache"
	"github.com/pinspot/api/pkg/logger"
	"github.com/pinspot/api/pkg/mailchimp"
	"github.com/pinspot/api/pkg/mailer"
	"github.com/pinspot/api/pkg/mailer/resend"
	"github.com/pinspot/api/pkg/monitor"
	"github.com/pinspot/api/pkg/redis"
	"github.com/pinspot/api/pkg/session"
	"github.com/pinspot/api/pkg/slack"
)

const requestTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// serve loads the configuration, binds monitoring and logging, then runs
// the bootstrap and blocks until shutdown.
func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mon, err := monitor.Init(cfg.Monitor, buildinfo.Version)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger, logger.WithExtractors(middlewares.RequestIDExtractor()))
	slog.SetDefault(log)

	a, err := bootstrap(ctx, cfg, runtime{
		logger:  log,
		monitor: mon.Middleware(),
		flush:   mon.Flush,
	})
	if err != nil {
		return err
	}

	log.Info("pinspot api ready",
		slog.String("version", buildinfo.Version),
		slog.String("address", a.Addr()))
	return a.Wait(ctx)
}

// runtime is what bootstrap needs besides the configuration.
type runtime struct {
	logger  *slog.Logger
	monitor app.HTTPMiddleware
	flush   func(context.Context) error
	options []app.Option
}

// sessionConfig re-persists every loaded session and never stores one that
// was not written to.
func sessionConfig(cfg config.Session) app.SessionConfig {
	return app.SessionConfig{
		Secret:            cfg.Key,
		MaxAge:            cfg.MaxAge,
		Secure:            cfg.Secure,
		Resave:            true,
		SaveUninitialized: false,
	}
}

// bootstrap brings the server up in a fixed order and returns it sealed
// and serving. Each step depends on the ones before it; the error handler
// goes last so nothing is answered before every route exists.
func bootstrap(ctx context.Context, cfg *config.Config, rt runtime) (*app.App, error) {
	opts := append([]app.Option{
		app.WithLogger(rt.logger),
		app.WithPlugins(plugins.Defaults(requestTimeout, cfg.CORSAllowedOrigins)...),
	}, rt.options...)
	a := app.New(app.Settings{
		Port:            cfg.Port,
		DBURI:           cfg.MongoURI,
		DBName:          cfg.MongoDatabase,
		BearerSignature: cfg.BearerSignature,
		BearerTTL:       cfg.BearerTTL,
	}, opts...)

	if rt.monitor != nil {
		if err := a.Server().UseHTTP(rt.monitor); err != nil {
			return nil, err
		}
	}
	if rt.flush != nil {
		a.OnShutdown(rt.flush)
	}

	if err := a.AddSchema(schema.Default()); err != nil {
		return nil, err
	}
	if err := a.InitPlugins(); err != nil {
		return nil, err
	}
	if err := extend(a, cfg); err != nil {
		return nil, err
	}

	db, err := a.InitDB(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := openRedis(ctx, a, cfg)
	if err != nil {
		return nil, shutdownOnError(a, err)
	}

	err = a.UseSession(session.NewCacheStore(
		cache.New[session.Session](rc, "sessions", cfg.Session.MaxAge),
		cache.New[string](rc, "session_tokens", cfg.Session.MaxAge),
	), sessionConfig(cfg.Session))
	if err != nil {
		return nil, shutdownOnError(a, err)
	}
	if err := a.AddScopes(scope.Default()); err != nil {
		return nil, shutdownOnError(a, err)
	}

	manager, err := newManager(a, cfg, db, rc)
	if err != nil {
		return nil, shutdownOnError(a, err)
	}
	for _, ctrl := range []app.Controller{
		controllers.Users(db.Users, db.Pins, a.Scopes(), manager.Forget),
		controllers.Pins(db.Pins, a.Scopes()),
	} {
		if err := a.AddController(ctrl); err != nil {
			return nil, shutdownOnError(a, err)
		}
	}

	if err := a.Start(ctx); err != nil {
		return nil, shutdownOnError(a, err)
	}

	if err := identity(a, cfg, db, manager); err != nil {
		return nil, shutdownOnError(a, err)
	}
	err = routes.Mount(a.Server(), routes.Deps{
		APIName:    cfg.APIName,
		Users:      db.Users,
		Invites:    db.Invites,
		Pins:       db.Pins,
		Extensions: a.Extensions(),
		Scopes:     a.Scopes(),
	})
	if err != nil {
		return nil, shutdownOnError(a, err)
	}
	if err := a.MountErrorHandler(routes.Errors(a, db)); err != nil {
		return nil, shutdownOnError(a, err)
	}
	return a, nil
}

// extend registers the configured mail, chat and marketing integrations.
// Unconfigured ones are skipped and their features degrade.
func extend(a *app.App, cfg *config.Config) error {
	log := a.Logger()

	if cfg.Resend.APIKey != "" {
		sender, err := resend.New(cfg.Resend)
		if err != nil {
			return err
		}
		m := mailer.New(sender, mailer.NewRenderer(mailer.Templates()), cfg.Mailer)
		if err := a.Extend(extension.MailerName, m); err != nil {
			return err
		}
	} else {
		log.Warn("mailer disabled, RESEND_API_KEY is not set")
	}

	if cfg.Slack.WebhookURL != "" {
		n, err := slack.New(cfg.Slack)
		if err != nil {
			return err
		}
		if err := a.Extend(extension.SlackName, n); err != nil {
			return err
		}
	}

	if cfg.Mailchimp.APIKey != "" {
		mc, err := mailchimp.New(cfg.Mailchimp)
		if err != nil {
			return err
		}
		if err := a.Extend(extension.MailchimpName, mc); err != nil {
			return err
		}
	}
	return nil
}

// openRedis connects when REDIS_URL is set. A nil client makes the caches
// fall back to process memory.
func openRedis(ctx context.Context, a *app.App, cfg *config.Config) (goredis.UniversalClient, error) {
	if cfg.RedisURL == "" {
		a.Logger().Warn("redis disabled, sessions are kept in process memory")
		return nil, nil
	}
	rc, err := redis.Open(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.AddReadinessCheck("redis", redis.Healthcheck(rc))
	a.OnShutdown(redis.Shutdown(rc))
	return rc, nil
}

func newManager(a *app.App, cfg *config.Config, db *store.DB, rc goredis.UniversalClient) (*auth.Manager, error) {
	tokens, err := a.Tokens()
	if err != nil {
		return nil, err
	}

	var ser auth.Serializer
	switch cfg.Session.Serialize {
	case config.SerializeFull:
		ser = auth.FullUser()
	case config.SerializeID:
		users := cache.New[schema.User](rc, "users", auth.DefaultUserCacheTTL)
		ser = auth.ByID(db.Users, users, auth.DefaultUserCacheTTL)
	default:
		return nil, fmt.Errorf("unknown SESSION_SERIALIZE %q", cfg.Session.Serialize)
	}
	return auth.NewManager(tokens, auth.WithSerializer(ser), auth.WithLogger(a.Logger()))
}

// identity installs the session user middleware, the strategies and the
// /auth routes. It runs after Start, so only routes added from here on
// see the session user.
func identity(a *app.App, cfg *config.Config, db *store.DB, m *auth.Manager) error {
	if err := a.Server().Use(m.Initialize()); err != nil {
		return err
	}

	m.Use(auth.NewLocal(db.Users,
		auth.WithWelcomeMail(a.Extensions()),
		auth.WithInvites(db.Invites),
		auth.WithLocalLogger(a.Logger()),
	))
	for name, newProvider := range auth.Providers {
		pc := cfg.OAuth.Provider(name)
		if pc.ClientID == "" {
			continue
		}
		p, err := newProvider(pc)
		if err != nil {
			return fmt.Errorf("oauth %s: %w", name, err)
		}
		m.Use(auth.NewOAuth(p, db.Users, a.Logger()))
	}
	a.Logger().Info("identity strategies registered", slog.Any("strategies", m.Strategies()))

	return m.Routes(a.Server())
}

func shutdownOnError(a *app.App, err error) error {
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(fmt.Errorf("bootstrap: %w", err), a.Shutdown(sctx))
}
