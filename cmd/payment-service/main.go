package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/app"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfig формирует конфигурацию приложения, позволяя переопределить значения через переменные окружения.
func readConfig() app.PaymentConfig {
	cfg := app.DefaultPaymentConfig()
	if v := os.Getenv("IBK_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("IBK_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("IBK_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("IBK_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("IBK_ACCOUNT_SERVICE_URL"); v != "" {
		cfg.AccountServiceURL = v
	}
	if v := os.Getenv("IBK_CUSTOMER_SERVICE_URL"); v != "" {
		cfg.CustomerServiceURL = v
	}
	if v := os.Getenv("IBK_EMAIL_GATEWAY_URL"); v != "" {
		cfg.EmailGatewayURL = v
	}
	if v := os.Getenv("IBK_EMAIL_FROM"); v != "" {
		cfg.EmailFrom = v
	}
	if v := os.Getenv("IBK_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	return cfg
}

func main() {
	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"account_url":  cfg.AccountServiceURL,
	}).Info("запускаем Payment service")

	if err := app.RunPayment(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("Payment service остановлен")
}
