package clipboard

import "errors"

// Ошибки ядра буфера обмена.
// Отсутствие записей у пользователя ошибкой не считается: это пустое состояние (nil, версия 0).
var (
	ErrInvalidInput         = errors.New("некорректные входные данные")
	ErrStorageUnavailable   = errors.New("хранилище недоступно")
	ErrConcurrencyViolation = errors.New("нарушен порядок версий")
	ErrTooManyWaiters       = errors.New("превышен лимит ожидающих запросов")
)
