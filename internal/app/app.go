package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	biz, err := cfg.Pricing.Business()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	st, err := openStorage(ctx, lg, cfg, biz.Seed)
	if err != nil {
		return err
	}
	defer st.close()

	healthSvc := health.New(10 * time.Second)
	healthSvc.Register(health.Liveness, health.Check{
		Name: "goroutines",
		Func: health.MaxGoroutines(10000),
	})
	if st.pinger != nil {
		healthSvc.Register(health.Readiness, health.Check{
			Name:    "postgres",
			Timeout: 5 * time.Second,
			Func:    health.Ping(st.pinger),
		})
	}

	// Domain services.
	carts := cart.NewStore()
	calc := pricing.NewCalculator(biz.Rules)
	payments := payment.NewProcessor(st.ledger, biz.MinPayment, lg.Named("payment"))
	checkoutSvc, err := checkout.NewService(st.customers, calc, payments, lg.Named("checkout"),
		checkout.WithObserver(checkout.ObserverFuncs{
			CheckoutCommitted: func(ctx context.Context, o *order.Order) {
				zctx.From(ctx).Info("Order placed",
					zap.String("order", o.Number),
					zap.String("customer", o.CustomerID),
					zap.String("payment", o.PaymentID),
					zap.Stringer("total", o.Summary.Total),
				)
			},
			CartCleared: func(_ context.Context, customerID string) {
				carts.OnCartCleared(customerID)
			},
		}),
		checkout.WithMeterProvider(m.MeterProvider()),
		checkout.WithTracerProvider(m.TracerProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Rate:    cfg.RateLimit.Rate,
		Burst:   cfg.RateLimit.Burst,
		TTL:     cfg.RateLimit.TTL,
		KeyFunc: handler.RateLimitKey,
	})

	h := handler.New(handler.Config{PaymentLimit: limiter.Middleware()}, handler.Deps{
		Catalog:   cat,
		Carts:     carts,
		Customers: st.customers,
		Pricing:   calc,
		Payments:  payments,
		Records:   st.records,
		Checkout:  checkoutSvc,
		Orders:    order.NewService(st.orders, lg.Named("order")),
		Auth:      auth.NewAuthenticator(st.keys, []byte(cfg.APIKeyPepper)),
	})

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.Handle("GET /livez", healthSvc.Handler(health.Liveness))
	mux.Handle("GET /readyz", healthSvc.Handler(health.Readiness))
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument("storefront-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(ctx)
	})
	g.Go(func() error {
		return limiter.Run(ctx)
	})
	g.Go(func() error {
		return expireCheckouts(ctx, lg, checkoutSvc, cfg.Checkout.TTL)
	})
	g.Go(func() error {
		// Graceful shutdown: wait for context cancellation, drain, then stop.
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// expireCheckouts drops abandoned checkout transactions until ctx is done.
func expireCheckouts(ctx context.Context, lg *zap.Logger, svc *checkout.Service, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ticker := time.NewTicker(min(ttl/2, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := svc.Expire(now.Add(-ttl)); n > 0 {
				lg.Debug("Expired checkout transactions", zap.Int("count", n))
			}
		}
	}
}
