package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"intake/internal/events"
	jwttoken "intake/internal/jwt_token"
	"intake/internal/notify"
	"intake/internal/platform/config"
	"intake/internal/platform/httpserver"
	"intake/internal/platform/logger"
	platformmetrics "intake/internal/platform/metrics"
	platformredis "intake/internal/platform/redis"
	"intake/internal/registration/handler"
	registrationmetrics "intake/internal/registration/metrics"
	"intake/internal/registration/service"
	"intake/internal/registration/store"
	credentialstore "intake/internal/registration/store/credential"
	"intake/internal/registration/store/idempotency"
	personstore "intake/internal/registration/store/person"
	requeststore "intake/internal/registration/store/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var (
		persons     service.PersonStore
		requests    service.RequestStore
		credentials service.CredentialStore
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := store.EnsureSchema(context.Background(), db); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		persons = personstore.NewPostgres(db, cfg.Phone)
		requests = requeststore.NewPostgres(db)
		credentials = credentialstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		persons = personstore.NewMemory(cfg.Phone)
		requests = requeststore.NewMemory()
		credentials = credentialstore.NewMemory()
		log.Warn("no database configured, using in-memory stores")
	}

	var guard handler.SubmissionGuard = idempotency.NewMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guard = idempotency.NewRedis(redisClient.Client)
		log.Info("using redis submission guard")
	}

	publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("failed to build kafka publisher", "error", err)
		os.Exit(1)
	}
	if publisher != nil {
		defer publisher.Close()
	}

	httpMetrics := platformmetrics.New()
	sagaMetrics := registrationmetrics.New()
	notifier := notify.NewLogNotifier(log)

	resolver := service.NewResolver(persons, cfg.Phone)
	checker := service.NewChecker(requests, log)

	serviceOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(sagaMetrics),
		service.WithNotifier(notifier),
		service.WithStaffContact(cfg.StaffContact),
	}
	if publisher != nil {
		serviceOpts = append(serviceOpts, service.WithEventPublisher(publisher))
	}

	saga := service.NewSaga(persons, requests, credentials, resolver, checker, cfg.Phone, serviceOpts...)
	requestsSvc := service.NewRequests(requests, checker, serviceOpts...)
	personsSvc := service.NewPersons(persons, resolver, serviceOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "intake")
	staffValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	h := handler.New(saga, requestsSvc, personsSvc, guard, log, httpMetrics, staffValidator, cfg.SubmissionTTL)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting intake server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
