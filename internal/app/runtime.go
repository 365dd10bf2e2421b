package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start binds the listener and begins serving. Requests get 503 until the
// error handler is mounted.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("start", phaseScopes, phaseScopes); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.listenAddr())
	if err != nil {
		return err
	}

	a.server = &http.Server{
		Handler:           a.wrapHTTP(),
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	a.addr = ln.Addr().String()
	a.serveErr = make(chan error, 1)
	a.phase = phaseStarted

	srv, errCh := a.server, a.serveErr
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.logger.Info("server started", slog.String("address", a.addr))
	return nil
}

// Wait blocks until SIGINT, SIGTERM, ctx cancellation or a serve failure,
// then shuts down.
func (a *App) Wait(ctx context.Context) error {
	a.mu.Lock()
	errCh := a.serveErr
	a.mu.Unlock()
	if errCh == nil {
		return ErrNotStarted
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
	defer scancel()
	return errors.Join(serveErr, a.Shutdown(sctx))
}

// Shutdown stops the server and runs the shutdown hooks. It is safe to call
// more than once; later calls return the first result.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		srv := a.server
		hooks := a.shutdownHooks
		a.mu.Unlock()

		a.logger.Info("shutting down server")
		var errs []error
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		for _, hook := range hooks {
			if err := hook(ctx); err != nil {
				errs = append(errs, err)
				a.logger.Error("shutdown hook failed", slog.Any("error", err))
			}
		}
		a.stopErr = errors.Join(errs...)
		if a.stopErr != nil {
			a.logger.Error("shutdown completed with errors")
			return
		}
		a.logger.Info("shutdown completed")
	})
	return a.stopErr
}
