package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка некорректной суммы (<= 0).
	ErrAmountInvalid = errors.New("amount_minor must be greater than zero")
	// Ошибка отрицательного баланса счёта.
	ErrBalanceNegative = errors.New("balance_minor must be non-negative")
	// Ошибка неизвестного статуса платежа.
	ErrPaymentStatusInvalid = errors.New("payment status is invalid")
	// Ошибка отсутствующего идентификатора счёта.
	ErrAccountRequired = errors.New("account_id is required")
	// Ошибка отсутствующего идентификатора платёжного требования.
	ErrPaymentIDRequired = errors.New("payment_id is required")

	// ErrPaymentNotFound возвращается, если требование не найдено в репозитории.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrNoUnpaidPayment — у клиента нет ни одного требования со статусом unpaid.
	ErrNoUnpaidPayment = errors.New("no unpaid payment found")
	// ErrPaymentAlreadySettled — попытка перевести требование из конечного статуса.
	ErrPaymentAlreadySettled = errors.New("payment already settled")
	// ErrPaymentVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrPaymentVersionConflict = errors.New("payment version conflict")

	// ErrAccountNotFound возвращается леджером, если счёт не существует.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientFunds — баланс меньше суммы списания; мутация не выполнялась.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountUnavailable — Account service недоступен или ответил ошибкой транспорта.
	ErrAccountUnavailable = errors.New("account service unavailable")
	// ErrBalanceUpdateFailed — леджер отклонил списание по неожиданной причине.
	ErrBalanceUpdateFailed = errors.New("balance update failed")

	// ErrSettlementInProgress — по счёту клиента уже идёт расчёт; клиент может повторить позже.
	ErrSettlementInProgress = errors.New("another settlement is in progress for this customer")
	// ErrReconcileRequired — списание в леджере прошло, локальный commit не состоялся.
	// Требуется операторская сверка; ошибка никогда не схлопывается в success или rejection.
	ErrReconcileRequired = errors.New("settlement partial failure: reconciliation required")

	// ErrTokenInvalid — bearer-токен не прошёл проверку подписи или структуры.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired — срок действия bearer-токена истёк.
	ErrTokenExpired = errors.New("token is expired")

	// ErrCustomerUnavailable — профиль клиента недоступен (затрагивает только нотификации).
	ErrCustomerUnavailable = errors.New("customer service unavailable")
	// ErrCustomerNotFound — профиль клиента не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrEmailSendFailed — почтовый шлюз отклонил отправку.
	ErrEmailSendFailed = errors.New("email send failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован с тем же hash.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrPaymentVersionConflict)
}

// IsBusy проверяет, что расчёт отклонён из-за уже идущей транзакции по счёту.
func IsBusy(err error) bool {
	return errors.Is(err, ErrSettlementInProgress)
}

// IsPartialFailure проверяет, что расчёт завершился частичным сбоем:
// удалённое списание прошло, локальная фиксация — нет.
func IsPartialFailure(err error) bool {
	return errors.Is(err, ErrReconcileRequired)
}

// IsRejection проверяет, что попытка расчёта отклонена без каких-либо побочных эффектов:
// её безопасно повторить сразу либо после действия пользователя.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrSettlementInProgress,
		ErrNoUnpaidPayment,
		ErrPaymentNotFound,
		ErrPaymentAlreadySettled,
		ErrAccountNotFound,
		ErrInsufficientFunds,
		ErrAccountUnavailable,
		ErrBalanceUpdateFailed,
		ErrTokenInvalid,
		ErrTokenExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsUnavailable проверяет, что сбой вызван недоступностью внешнего сервиса.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrAccountUnavailable) || errors.Is(err, ErrCustomerUnavailable)
}
