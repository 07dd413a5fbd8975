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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apihttp "sensegrid-cloud/internal/api/http"
	"sensegrid-cloud/internal/auth"
	"sensegrid-cloud/internal/config"
	"sensegrid-cloud/internal/logger"
	"sensegrid-cloud/internal/observability/metrics"
	registryapp "sensegrid-cloud/internal/registry/application"
	registryrepo "sensegrid-cloud/internal/registry/infrastructure/postgres"
	registryhttp "sensegrid-cloud/internal/registry/interfaces/http"
	rulesadapter "sensegrid-cloud/internal/rules/adapters/telemetry"
	rulesapp "sensegrid-cloud/internal/rules/application"
	rules "sensegrid-cloud/internal/rules/domain"
	rulesrepo "sensegrid-cloud/internal/rules/infrastructure/postgres"
	ruleshttp "sensegrid-cloud/internal/rules/interfaces/http"
	"sensegrid-cloud/internal/rules/notify"
	telemetryrepo "sensegrid-cloud/internal/telemetry/infrastructure/postgres"
	telemetryhttp "sensegrid-cloud/internal/telemetry/interfaces/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Logger.Fatal().Err(err).Msg("config load failed")
	}
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	metrics.Init(db, logger.WithComponent("metrics"))

	tenantRepo, err := registryrepo.NewTenantRepository(db)
	if err != nil {
		log.Fatal().Err(err).Msg("tenant repository failed")
	}
	deviceRepo, err := registryrepo.NewDeviceRepository(db)
	if err != nil {
		log.Fatal().Err(err).Msg("device repository failed")
	}
	registryService, err := registryapp.NewService(tenantRepo, deviceRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("registry service failed")
	}
	registryHandler, err := registryhttp.NewHandler(registryService)
	if err != nil {
		log.Fatal().Err(err).Msg("registry handler failed")
	}

	measurementRepo := telemetryrepo.NewMeasurementRepository(db)
	seriesQuery := telemetryrepo.NewSeriesQuery(db)
	ingestHandler, err := telemetryhttp.NewIngestHandler(measurementRepo, tenantRepo, deviceRepo, logger.WithComponent("ingest"))
	if err != nil {
		log.Fatal().Err(err).Msg("ingest handler failed")
	}
	portalHandler, err := apihttp.NewPortalHandler(tenantRepo, deviceRepo, seriesQuery)
	if err != nil {
		log.Fatal().Err(err).Msg("portal handler failed")
	}

	ruleRepo := rulesrepo.NewRuleRepository(db)
	alertRepo := rulesrepo.NewAlertRepository(db)
	latestReader := rulesadapter.NewLatestReader(db)

	broker := ruleshttp.NewSSEBroker()
	publishers := []rules.AlertPublisher{broker}
	if cfg.AlertWebhookURL != "" {
		webhook, err := notify.NewWebhookPublisher(cfg.AlertWebhookURL)
		if err != nil {
			log.Fatal().Err(err).Msg("webhook publisher failed")
		}
		publishers = append(publishers, webhook)
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatal().Err(err).Msg("kafka publisher failed")
		}
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}

	engine, err := rulesapp.NewEngine(
		ruleRepo,
		latestReader,
		alertRepo,
		rulesapp.WithPublisher(notify.NewMultiPublisher(publishers...)),
		rulesapp.WithDefaultCooldown(cfg.DefaultCooldown),
		rulesapp.WithLogger(logger.WithComponent("engine")),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("engine failed")
	}
	scheduler := rulesapp.NewScheduler(engine, cfg.EvalInterval, logger.WithComponent("scheduler"))

	rulesService, err := rulesapp.NewService(
		ruleRepo,
		alertRepo,
		rulesapp.WithAlertPageLimit(cfg.AlertPageLimit),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("rules service failed")
	}
	rulesHandler, err := ruleshttp.NewHandler(rulesService, ruleshttp.WithDeviceChecker(auth.NewDeviceChecker(deviceRepo)))
	if err != nil {
		log.Fatal().Err(err).Msg("rules handler failed")
	}
	exportHandler, err := ruleshttp.NewExportHandler(rulesService)
	if err != nil {
		log.Fatal().Err(err).Msg("export handler failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(ctx)
	}()

	mux := http.NewServeMux()
	mux.Handle("/ingest/http/", ingestHandler)
	mux.Handle("/portal/", portalHandler)
	mux.Handle("/api/v1/tenants", registryHandler)
	mux.Handle("/api/v1/tenants/", registryHandler)
	mux.Handle("/api/v1/rules", rulesHandler)
	mux.Handle("/api/v1/alerts", rulesHandler)
	mux.Handle("/api/v1/alerts/stream", ruleshttp.NewStreamHandler(broker))
	mux.Handle("/api/v1/exports/alerts.xlsx", exportHandler)
	mux.Handle("/api/v1/exports/alerts.pdf", exportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	if cfg.JWTSecret != "" {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/api/v1/alerts/stream"}, []string{"/ingest/"})
		handler = auth.NewMiddleware([]byte(cfg.JWTSecret), policy).Wrap(handler)
	}
	handler = loggingMiddleware(handler, logger.WithComponent("http"))

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	<-schedulerDone
	log.Info().Msg("stopped")
}

func loggingMiddleware(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", resp.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE streaming working behind the middleware.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
