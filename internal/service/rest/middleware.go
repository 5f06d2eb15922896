package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

type contextKey string

const subjectContextKey contextKey = "auth-subject"

// SubjectFromContext возвращает subject проверенного токена.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectContextKey).(string)
	return subject
}

// BearerAuth проверяет заголовок Authorization до любого шага обработки.
// Отклонение по токену происходит раньше каких-либо обращений к хранилищу.
func BearerAuth(verifier domain.TokenVerifier, logger *log.Entry) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "rest-auth")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "TOKEN_MISSING", "bearer token is required")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				code := "TOKEN_INVALID"
				if errors.Is(err, domain.ErrTokenExpired) {
					code = "TOKEN_EXPIRED"
				}
				logger.WithError(err).Debug("token rejected")
				writeError(w, http.StatusUnauthorized, code, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), subjectContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger логирует завершённые запросы в стиле остальных компонентов.
func RequestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "rest")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      recorder.status,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
