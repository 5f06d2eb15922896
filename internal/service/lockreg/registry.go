// Пакет lockreg реализует реестр per-customer мьютексов.
// Реестр сериализует попытки расчёта по одному счёту внутри одного процесса;
// cross-process корректность обеспечивает атомарный compare-and-debit леджера.
package lockreg

import "sync"

// Handle — владение блокировкой на время одной попытки расчёта.
// Release обязателен на каждом пути выхода и безопасен при повторном вызове.
type Handle struct {
	registry *Registry
	key      string
	released bool
	mu       sync.Mutex
}

// Release безусловно освобождает блокировку.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.registry.release(h.key)
}

// Registry хранит по одному мьютексу на ключ (счёт/клиент).
// Записи создаются лениво и не удаляются: для ограниченной клиентской базы
// рост памяти ограничен количеством когда-либо конкурировавших счетов.
type Registry struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewRegistry создаёт пустой реестр. Владелец — контекст сервиса,
// а не process-wide singleton; время жизни совпадает с временем жизни приложения.
func NewRegistry() *Registry {
	return &Registry{held: make(map[string]bool)}
}

// TryAcquire пытается захватить блокировку без ожидания.
// Возвращает (handle, true) при успехе и (nil, false), если ключ уже занят:
// конкурирующая попытка — это retry-условие клиента, не задача планирования.
func (r *Registry) TryAcquire(key string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held[key] {
		return nil, false
	}
	r.held[key] = true
	return &Handle{registry: r, key: key}, true
}

// Len возвращает число ключей, известных реестру (для диагностики и тестов).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.held)
}

func (r *Registry) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held[key] = false
}
