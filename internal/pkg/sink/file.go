package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Kargones/logtree/internal/constants"
)

// Значения по умолчанию для FileConfig.
const (
	DefaultMaxSize    = 100 // MB
	DefaultMaxBackups = 3
	DefaultMaxAge     = 7 // days
)

// FileConfig содержит параметры файлового sink'а с ротацией.
type FileConfig struct {
	// Path — путь к файлу лога. Обязателен.
	Path string

	// MaxSize — максимальный размер файла в мегабайтах перед ротацией.
	MaxSize int

	// MaxBackups — количество хранимых backup файлов.
	MaxBackups int

	// MaxAge — максимальный возраст backup файлов в днях.
	MaxAge int

	// Compress — сжимать ли backup файлы в gzip.
	Compress bool
}

// NewFileSink создаёт WriterSink поверх файла с ротацией через lumberjack.
// Директория файла создаётся при необходимости.
// Нулевые MaxSize/MaxBackups/MaxAge заменяются значениями по умолчанию.
func NewFileSink(cfg FileConfig, opts ...Option) (*WriterSink, error) {
	if cfg.Path == "" {
		return nil, ErrFilePathRequired
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermStandard); err != nil {
			return nil, fmt.Errorf("sink: не удалось создать директорию логов %q: %w", dir, err)
		}
	}

	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}

	return NewWriterSink(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,    // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,     // days
		Compress:   cfg.Compress,
	}, opts...)
}
