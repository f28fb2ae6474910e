package sink

import "errors"

var (
	// ErrUnknownFormat возвращается для неизвестного формата вывода.
	ErrUnknownFormat = errors.New("sink: неизвестный формат")

	// ErrUnknownType возвращается фабрикой для неизвестного типа sink'а.
	ErrUnknownType = errors.New("sink: неизвестный тип")

	// ErrUnknownEncoding возвращается для неизвестной кодировки вывода.
	ErrUnknownEncoding = errors.New("sink: неизвестная кодировка")

	// ErrFilePathRequired возвращается если не указан путь файла.
	ErrFilePathRequired = errors.New("sink: путь к файлу обязателен")

	// ErrInvalidTable возвращается для невалидного имени SQL таблицы.
	ErrInvalidTable = errors.New("sink: невалидное имя таблицы")

	// ErrDSNRequired возвращается если не указана строка подключения к БД.
	ErrDSNRequired = errors.New("sink: dsn обязателен")

	// ErrWebhookURLRequired возвращается если у webhook sink'а нет URL.
	ErrWebhookURLRequired = errors.New("sink: webhook url обязателен")

	// ErrTelegramTokenRequired возвращается если не указан токен бота.
	ErrTelegramTokenRequired = errors.New("sink: telegram botToken обязателен")

	// ErrTelegramChatRequired возвращается если не указан ни один чат.
	ErrTelegramChatRequired = errors.New("sink: telegram chatIds обязательны")

	// ErrNilWriter возвращается при передаче nil writer/функции/handler.
	ErrNilWriter = errors.New("sink: nil writer")
)
