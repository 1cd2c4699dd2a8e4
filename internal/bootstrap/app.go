package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
	"github.com/yanqian/points-dashboard/internal/infra/config"
	"github.com/yanqian/points-dashboard/internal/infra/invalidation"
)

// App encapsulates the HTTP server lifecycle and the dashboard background loops.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	svc    dashboard.Service
	bus    invalidation.Bus
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, svc dashboard.Service, bus invalidation.Bus) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With("component", "bootstrap"),
		server: server,
		svc:    svc,
		bus:    bus,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.Address)
	if err != nil {
		return err
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()
	go a.sweep(loopCtx)
	go a.listen(loopCtx)

	// request contexts end on shutdown, otherwise open streams hold Shutdown
	// until its deadline
	requestCtx, cancelRequests := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRequests()
	a.server.BaseContext = func(net.Listener) context.Context { return requestCtx }
	a.server.RegisterOnShutdown(cancelRequests)

	go func() {
		a.logger.Info("http server starting", "address", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) sweep(ctx context.Context) {
	interval := a.cfg.Dashboard.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.svc.Sweep(now)
		}
	}
}

func (a *App) listen(ctx context.Context) {
	err := a.bus.Listen(ctx, func(msg dashboard.Invalidation) {
		a.svc.Invalidate(msg)
	})
	if err != nil {
		a.logger.Error("invalidation listener stopped", "error", err)
	}
}
