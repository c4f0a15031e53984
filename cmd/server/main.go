package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/shawarma-timaro/storefront/internal/auth"
	"github.com/shawarma-timaro/storefront/internal/blob"
	"github.com/shawarma-timaro/storefront/internal/config"
	"github.com/shawarma-timaro/storefront/internal/domain"
	"github.com/shawarma-timaro/storefront/internal/messaging"
	"github.com/shawarma-timaro/storefront/internal/mirror"
	"github.com/shawarma-timaro/storefront/internal/orders"
	"github.com/shawarma-timaro/storefront/internal/products"
	"github.com/shawarma-timaro/storefront/internal/telemetry"
	"github.com/shawarma-timaro/storefront/internal/users"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	orderMirror := mirror.NewOrders(cfg.StateDir, logger)
	productMirror := mirror.NewProducts(cfg.StateDir, logger)
	blobs := blob.NewDiskStore(cfg.MediaDir, cfg.MediaBaseURL)
	verifier := auth.NewVerifier([]byte(cfg.JWTSecret))

	var createdEvents, statusEvents *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		createdEvents = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderCreated)
		defer func() { _ = createdEvents.Close() }()
		statusEvents = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderStatusChanged)
		defer func() { _ = statusEvents.Close() }()
	}

	var orderService orders.OrderService
	var productService *products.Service
	var userRepo *users.Repository

	if cfg.DatabaseURL == "" {
		logger.Warn("no database configured, serving orders from the local mirror only")
		orderService = orders.NewLocalService(orderMirror)
	} else {
		db, err := telemetry.OpenDB("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		if err := db.Ping(); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}

		svc := orders.NewService(orders.NewRepository(db), orderMirror,
			publisherOrNil(createdEvents), publisherOrNil(statusEvents), logger)
		if err := svc.Initialize(ctx); err != nil {
			logger.Error("failed to reconcile mirrored orders", "error", err)
		}
		orderService = svc

		productService = products.NewService(products.NewRepository(db), productMirror, blobs, logger)
		if err := seedCatalog(ctx, productService, cfg.SeedFile); err != nil {
			logger.Error("failed to seed catalog", "error", err, "file", cfg.SeedFile)
		}

		userRepo = users.NewRepository(db)
	}

	orderHandler, err := orders.NewHandler(orderService, logger)
	if err != nil {
		logger.Error("failed to create order handler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()

	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}

	route("POST /orders", verifier.OptionalUser(orderHandler.HandleCreate))
	route("GET /orders/my", verifier.RequireUser(orderHandler.HandleListMine))
	route("GET /orders/{id}", verifier.OptionalUser(orderHandler.HandleGet))
	route("GET /admin/orders", verifier.RequireAdmin(orderHandler.HandleListAll))
	route("PATCH /admin/orders/{id}/status", verifier.RequireAdmin(orderHandler.HandleUpdateStatus))
	route("DELETE /admin/orders/{id}", verifier.RequireAdmin(orderHandler.HandleDelete))

	if productService != nil {
		productHandler := products.NewHandler(productService, logger)
		route("GET /products", productHandler.HandleList)
		route("GET /products/{id}", productHandler.HandleGet)
		route("POST /admin/products", verifier.RequireAdmin(productHandler.HandleCreate))
		route("PUT /admin/products/{id}", verifier.RequireAdmin(productHandler.HandleUpdate))
		route("DELETE /admin/products/{id}", verifier.RequireAdmin(productHandler.HandleDelete))
	} else {
		// Menu browsing still works without a database: serve whatever the
		// mirror last cached.
		route("GET /products", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(orders.SourceHeader, string(domain.SourceMirror))
			_ = json.NewEncoder(w).Encode(productMirror.ListAll())
		})
	}

	if userRepo != nil {
		userHandler := users.NewHandler(userRepo, logger)
		route("POST /auth/session", verifier.RequireUser(userHandler.HandleSession))
		route("GET /profile", verifier.RequireUser(userHandler.HandleGetProfile))
		route("PUT /profile", verifier.RequireUser(userHandler.HandleUpdateProfile))
		route("GET /admin/users", verifier.RequireAdmin(userHandler.HandleListUsers))
	}

	mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// publisherOrNil keeps a typed-nil *Producer from leaking into the
// EventPublisher interface.
func publisherOrNil(p *messaging.Producer) orders.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func seedCatalog(ctx context.Context, svc *products.Service, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var seed []domain.Product
	if err := json.Unmarshal(data, &seed); err != nil {
		return err
	}

	return svc.SeedIfEmpty(ctx, seed)
}
