package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"github.com/angelmondragon/medorders-backend/api/controllers"
	"github.com/angelmondragon/medorders-backend/api/routes"
	"github.com/angelmondragon/medorders-backend/internal/events"
	"github.com/angelmondragon/medorders-backend/internal/notifications"
	"github.com/angelmondragon/medorders-backend/internal/orders"
	product "github.com/angelmondragon/medorders-backend/internal/products"
	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/internal/store/fsstore"
	"github.com/angelmondragon/medorders-backend/internal/store/sqlstore"
	"github.com/angelmondragon/medorders-backend/internal/stream"
	razorpaywebhook "github.com/angelmondragon/medorders-backend/internal/webhooks/razorpay"
	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/db"
	"github.com/angelmondragon/medorders-backend/pkg/env"
	"github.com/angelmondragon/medorders-backend/pkg/instance"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
	"github.com/angelmondragon/medorders-backend/pkg/metrics"
	"github.com/angelmondragon/medorders-backend/pkg/migrate"
	"github.com/angelmondragon/medorders-backend/pkg/pubsub"
	"github.com/angelmondragon/medorders-backend/pkg/razorpay"
	"github.com/angelmondragon/medorders-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap store", err)
		os.Exit(1)
	}
	defer closeStore()

	readiness := []controllers.ReadinessCheck{{Name: "store", Pinger: st}}

	var webhookGuard *razorpaywebhook.IdempotencyGuard
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		webhookGuard, err = razorpaywebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "razorpay-webhook")
		if err != nil {
			logg.Error(ctx, "failed to create webhook idempotency guard", err)
			os.Exit(1)
		}
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	} else {
		logg.Warn(ctx, "redis not configured; webhook replays are absorbed by order status only")
	}

	var gateway orders.PaymentGateway
	if cfg.Razorpay.Enabled() {
		client, err := razorpay.New(cfg.Razorpay)
		if err != nil {
			logg.Error(ctx, "failed to create razorpay client", err)
			os.Exit(1)
		}
		gateway = client
	} else {
		logg.Warn(ctx, "razorpay keys not configured; online orders are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := events.NewRegistry()
	hub := stream.NewHub(logg, cfg.App.CORSAllowedOrigins)
	defer hub.Close()
	bus.Subscribe("stream", hub.Handle)

	if strings.TrimSpace(cfg.PubSub.OrdersTopic) != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		forwarder, err := notifications.NewTopicForwarder(psClient.OrdersPublisher())
		if err != nil {
			logg.Error(ctx, "failed to create pubsub forwarder", err)
			os.Exit(1)
		}
		bus.Subscribe("pubsub", forwarder.Handle)
		readiness = append(readiness, controllers.ReadinessCheck{Name: "pubsub", Pinger: psClient})
	}

	if cfg.Firebase.MessagingEnabled {
		notifier, err := newPushNotifier(ctx, cfg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap firebase messaging", err)
			os.Exit(1)
		}
		bus.Subscribe("push", notifier.Handle)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Store:   st,
		Events:  bus,
		Gateway: gateway,
		Metrics: metrics.NewOrderMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}
	productSvc, err := product.NewService(st, nil)
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}
	webhookSvc, err := razorpaywebhook.NewService(razorpaywebhook.ServiceParams{
		Store:   st,
		Events:  bus,
		Metrics: metrics.NewWebhookMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create razorpay webhook service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	id := instance.GetID()
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     id,
		"store_driver": cfg.Store.Driver,
		"subscribers":  bus.Len(),
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ordersSvc,
			productSvc,
			hub,
			webhookSvc,
			webhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "api server shutdown failed", err)
		}
	}
}

// openStore connects the configured backend and returns a close func.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (store.Store, func(), error) {
	if cfg.Store.Driver == config.StoreDriverFirestore {
		client, err := fsstore.NewClient(ctx, cfg.GCP)
		if err != nil {
			return nil, nil, err
		}
		st, err := fsstore.New(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logg.Info(logg.WithField(ctx, "project_id", cfg.GCP.ProjectID), "firestore store ready")
		return st, func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing firestore", err)
			}
		}, nil
	}

	dbClient, err := db.New(ctx, cfg.Store.Driver, cfg.DB, logg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		closeDB()
		return nil, nil, err
	}
	st, err := sqlstore.New(dbClient)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return st, closeDB, nil
}

func newPushNotifier(ctx context.Context, cfg *config.Config) (*notifications.PushNotifier, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.GCP.CredentialsFile); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GCP.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return notifications.NewPushNotifier(client, cfg.Firebase.TopicPrefix)
}
