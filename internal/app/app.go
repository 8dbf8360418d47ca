package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/stand-kart/internal/catalog"
	"github.com/xenking/stand-kart/internal/domain/account"
	"github.com/xenking/stand-kart/internal/domain/delivery"
	"github.com/xenking/stand-kart/internal/domain/fulfillment"
	"github.com/xenking/stand-kart/internal/domain/order"
	"github.com/xenking/stand-kart/internal/handler"
	"github.com/xenking/stand-kart/pkg/health"
	"github.com/xenking/stand-kart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("wizard_store", cfg.Wizard.Store),
	)
	ctx = zctx.Base(ctx, lg)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	b, err := openBackend(ctx, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer b.Close()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	api, err := newHandler(ctx, lg, m, cfg, b, healthSvc)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           api,
		// Recovery runs before InjectLogger, so the base context carries the
		// logger too. Cancellation is dropped to let requests drain.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHandler builds the domain services over b and returns the API with
// health endpoints behind the middleware chain.
func newHandler(ctx context.Context, lg *zap.Logger, tel httpmiddleware.Telemetry, cfg *Config, b *backend, hc *health.Health) (http.Handler, error) {
	accounts := account.NewService(b.accounts)
	if len(cfg.Staff) > 0 {
		provisioned, err := accounts.Provision(ctx, cfg.Staff)
		if err != nil {
			return nil, errors.Wrap(err, "provision staff")
		}
		lg.Info("Staff provisioned", zap.Int("count", len(provisioned)))
	}

	orderService, err := order.NewService(b.orders,
		order.WithTracerProvider(tel.TracerProvider()),
		order.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	h := handler.NewHandler(
		accounts,
		catalog.New(b.products, cfg.Catalog.TTL),
		orderService,
		fulfillment.NewRouter(b.orders),
		delivery.NewWizard(b.sessions, orderService, cfg.Wizard.TTL),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", hc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", hc.ReadyEndpoint)
	h.Register(mux)

	// LogRequests and Labeler read the matched pattern, so nothing between
	// them and the mux may replace the request.
	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.AccountKey,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("stand-api", tel),
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	), nil
}
