package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"campuspark/pkg/config"
	"campuspark/pkg/contracts"
	"campuspark/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const paymentsPathPrefix = "/api/v1/payments"

// Worker is a long-running background loop owned by the application, such as
// a Kafka consumer. Start blocks until ctx is cancelled.
type Worker interface {
	Start(ctx context.Context) error
	Close() error
}

type namedWorker struct {
	name   string
	worker Worker
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.RequesterRateLimiter
	healthHandler    http.Handler
	appHttpHandler   http.Handler

	workers      []namedWorker
	workerCancel context.CancelFunc
	workerWG     sync.WaitGroup
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

func (a *Application) SetApp(health *HealthHandler, appHandlers ...contracts.Handler) {
	a.setHealthHandler(health)
	a.setAppHandler(appHandlers...)
	a.setAppServer()
}

// AddWorker registers a background loop started by Run and closed on shutdown.
func (a *Application) AddWorker(name string, w Worker) {
	a.workers = append(a.workers, namedWorker{name: name, worker: w})
}

// Handler returns the fully wired HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) setHealthHandler(health *HealthHandler) {
	healthRouter := httprouter.New()
	health.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandlers ...contracts.Handler) {
	appRouter := httprouter.New()
	for _, h := range appHandlers {
		h.RegisterRoutes(appRouter)
	}

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewRequesterRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.DefaultRequesterExtractor,
		a.cfg.Log,
	)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.Idempotency(a.idempotencyStore, "Idempotency-Key")(appHttpHandler)
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	appHttpHandler = middleware.RequesterRateLimit(a.rateLimiter)(appHttpHandler)
	appHttpHandler = middleware.PaymentSignatureVerification(a.cfg.PaymentWebhookSecret, paymentsPathPrefix, a.cfg.Log)(appHttpHandler)
	if a.cfg.PaymentWebhookSecret == "" {
		a.cfg.Log.Warn("PAYMENT_WEBHOOK_SECRET not set, payment callbacks will be rejected")
	}
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) startWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	a.workerCancel = cancel

	for _, nw := range a.workers {
		nw := nw
		a.workerWG.Add(1)
		go func() {
			defer a.workerWG.Done()
			a.cfg.Log.Info("Starting background worker", "worker", nw.name)
			if err := nw.worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Background worker stopped with error", "worker", nw.name, "error", err)
			}
		}()
	}
}

func (a *Application) stopWorkers() {
	if a.workerCancel != nil {
		a.workerCancel()
	}
	a.workerWG.Wait()
	for _, nw := range a.workers {
		if err := nw.worker.Close(); err != nil {
			a.cfg.Log.Error("Failed to close background worker", "worker", nw.name, "error", err)
		}
	}
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	a.startWorkers()
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.stopWorkers()
		a.cfg.GracefulShutdown()
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.stopWorkers()
	a.cfg.Log.Info("Background workers stopped")

	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Server stopped gracefully")
}
