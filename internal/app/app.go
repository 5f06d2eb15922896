package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/ibanking/internal/health"
	"github.com/vladislavdragonenkov/ibanking/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ibanking/internal/service/account"
	"github.com/vladislavdragonenkov/ibanking/internal/service/auth"
	"github.com/vladislavdragonenkov/ibanking/internal/service/customer"
	"github.com/vladislavdragonenkov/ibanking/internal/service/email"
	"github.com/vladislavdragonenkov/ibanking/internal/service/idempotency"
	"github.com/vladislavdragonenkov/ibanking/internal/service/ledger"
	"github.com/vladislavdragonenkov/ibanking/internal/service/lockreg"
	"github.com/vladislavdragonenkov/ibanking/internal/service/notify"
	"github.com/vladislavdragonenkov/ibanking/internal/service/outbox"
	"github.com/vladislavdragonenkov/ibanking/internal/service/rest"
	"github.com/vladislavdragonenkov/ibanking/internal/service/settlement"
	"github.com/vladislavdragonenkov/ibanking/internal/version"
)

const shutdownTimeout = 5 * time.Second

// RunPayment запускает Payment service: REST API, фоновые воркеры,
// метрики и health-пробы. Блокируется до отмены ctx.
func RunPayment(ctx context.Context, cfg PaymentConfig) error {
	logger := log.WithField("component", "payment-app")

	deps, err := NewPaymentDependencies(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return err
	}

	accountClient := account.NewClient(cfg.AccountServiceURL, nil, nil)
	locks := lockreg.NewRegistry()

	var orchestrator settlement.Orchestrator
	if producer != nil {
		orchestrator = settlement.NewOrchestratorWithKafka(
			deps.Payments, accountClient, locks, deps.Outbox, deps.Timeline, producer, logger)
	} else {
		orchestrator = settlement.NewOrchestrator(
			deps.Payments, accountClient, locks, deps.Outbox, deps.Timeline, logger)
	}

	api := rest.NewPaymentAPI(
		deps.Payments, deps.Timeline, deps.Outbox, deps.Idempotency,
		orchestrator, verifier, nil)

	// Фоновые воркеры живут до отмены ctx.
	if producer != nil {
		publisher := kafka.NewOutboxPublisher(producer, kafka.TopicPaymentEvents)
		dlqPublisher := kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)
		outboxWorker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		)
		go outboxWorker.Run(ctx)
	} else {
		logger.Info("kafka is not configured, outbox worker is disabled")
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.Idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")))
	go cleanupWorker.Run(ctx)

	var consumer *kafka.Consumer
	if producer != nil && cfg.CustomerServiceURL != "" && cfg.EmailGatewayURL != "" {
		worker := notify.NewWorker(
			customer.NewClient(cfg.CustomerServiceURL, nil, nil),
			email.NewClient(cfg.EmailGatewayURL, cfg.EmailFrom, nil, nil),
			nil,
		)
		consumer, err = kafka.NewConsumerWithDLQ(
			strings.Split(cfg.KafkaBrokers, ","),
			"ibanking-notify",
			[]string{kafka.TopicSettlementEvents},
			worker.HandleMessage,
			producer,
			3,
		)
		if err != nil {
			logger.WithError(err).Warn("failed to create notify consumer, notifications disabled")
			consumer = nil
		} else if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Warn("failed to start notify consumer")
			consumer = nil
		}
	}
	defer func() {
		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Warn("failed to stop notify consumer")
			}
		}
	}()

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.Store != nil {
		store := deps.Store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return store.Ping(checkCtx)
		}))
	}
	healthHandler.RegisterChecker("account-service",
		healthcheck.NewHTTPChecker("account-service", cfg.AccountServiceURL+"/livez", nil))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	return serveHTTP(ctx, cfg.HTTPAddr, api.Router(), logger.WithField("addr", cfg.HTTPAddr))
}

// RunAccount запускает Account service: REST-леджер, метрики и health-пробы.
func RunAccount(ctx context.Context, cfg AccountConfig) error {
	logger := log.WithField("component", "account-app")

	deps, err := NewAccountDependencies(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	svc := ledger.NewService(deps.Accounts, nil)
	api := rest.NewAccountAPI(svc, nil)

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.Store != nil {
		store := deps.Store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return store.Ping(checkCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	return serveHTTP(ctx, cfg.HTTPAddr, withProbes(api.Router()), logger.WithField("addr", cfg.HTTPAddr))
}

// withProbes добавляет liveness-пробу к основному router.
// Payment service проверяет её перед вызовами леджера.
func withProbes(next http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.Handle("/", next)
	return mux
}

// serveHTTP запускает HTTP-сервер и останавливает его по отмене ctx.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *log.Entry) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем http сервер")
		shutdownHTTP(srv, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
