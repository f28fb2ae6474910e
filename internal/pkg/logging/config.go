package logging

// Форматы вывода.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Типы вывода.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Значения по умолчанию. Используются в DefaultConfig и в internal/config.
const (
	DefaultLevel      = "info"
	DefaultFormat     = FormatText
	DefaultOutput     = OutputStderr
	DefaultFilePath   = "/var/log/logtree/diag.log"
	DefaultMaxSize    = 100 // MB
	DefaultMaxBackups = 3
	DefaultMaxAge     = 7 // days
	DefaultCompress   = true
)

// Config — настройки журнала.
type Config struct {
	// Format — "text" или "json".
	Format string

	// Level — минимальный уровень. Принимаются имена из таблицы уровней
	// logtree (trace, debug, info, warn, error, critical).
	Level string

	// Output — "stderr" или "file".
	Output string

	// FilePath — путь к файлу при Output == "file".
	FilePath string

	// MaxSize — размер файла в МБ до ротации.
	MaxSize int

	// MaxBackups — число хранимых архивов.
	MaxBackups int

	// MaxAge — срок хранения архивов в днях.
	MaxAge int

	// Compress — сжимать архивы gzip.
	Compress bool
}

// DefaultConfig возвращает Config со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		Level:      DefaultLevel,
		Format:     DefaultFormat,
		Output:     DefaultOutput,
		FilePath:   DefaultFilePath,
		MaxSize:    DefaultMaxSize,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAge,
		Compress:   DefaultCompress,
	}
}
