package metrics

import "errors"

var (
	// ErrPushgatewayURLRequired — не указан URL Pushgateway при включённых метриках.
	ErrPushgatewayURLRequired = errors.New("metrics: pushgateway URL обязателен когда метрики включены")

	// ErrPushgatewayURLInvalid — URL Pushgateway без схемы или host.
	ErrPushgatewayURLInvalid = errors.New("metrics: невалидный pushgateway URL")

	// ErrJobNameRequired — не указано имя job.
	ErrJobNameRequired = errors.New("metrics: job name обязателен")

	// ErrInvalidTimeout — таймаут не положителен.
	ErrInvalidTimeout = errors.New("metrics: timeout должен быть положительным")
)
