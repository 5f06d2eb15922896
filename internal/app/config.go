package app

// PaymentConfig описывает настройки запуска Payment service.
type PaymentConfig struct {
	HTTPAddr    string
	MetricsAddr string

	// PostgresDSN пустой — используется in-memory хранилище (dev/demo).
	PostgresDSN string
	// KafkaBrokers пустой — событийная шина и нотификации выключены.
	KafkaBrokers string

	AccountServiceURL  string
	CustomerServiceURL string
	EmailGatewayURL    string
	EmailFrom          string

	JWTSecret string
}

// DefaultPaymentConfig возвращает конфигурацию dev-режима.
func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{
		HTTPAddr:          ":8080",
		MetricsAddr:       ":9090",
		AccountServiceURL: "http://localhost:8081",
		JWTSecret:         "dev-secret",
	}
}

// AccountConfig описывает настройки запуска Account service.
type AccountConfig struct {
	HTTPAddr    string
	MetricsAddr string
	PostgresDSN string
}

// DefaultAccountConfig возвращает конфигурацию dev-режима.
func DefaultAccountConfig() AccountConfig {
	return AccountConfig{
		HTTPAddr:    ":8081",
		MetricsAddr: ":9091",
	}
}
