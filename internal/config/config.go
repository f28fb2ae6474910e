// Package config загружает конфигурацию logtree: YAML файл, затем
// переопределения из переменных окружения LT_*.
//
// Порядок: значения по умолчанию (defaultConfig) -> YAML файл, проверенный
// встроенной JSON Schema -> переменные окружения и env-default для
// незаданных полей -> семантическая проверка Validate.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/Kargones/logtree/internal/pkg/proxy"
)

// Команды CLI.
const (
	CommandEmit   = "emit"
	CommandServe  = "serve"
	CommandLevels = "levels"
)

// ErrUnknownCommand — LT_COMMAND не совпадает ни с одной командой.
var ErrUnknownCommand = errors.New("config: неизвестная команда")

// Params — параметры запуска, читаются только из окружения.
type Params struct {
	// Command — команда: emit, serve, levels.
	Command string `env:"LT_COMMAND" env-default:"emit"`

	// ConfigPath — путь к YAML файлу. Пусто — только окружение.
	ConfigPath string `env:"LT_CONFIG"`

	// Logger — имя логгера для emit.
	Logger string `env:"LT_LOGGER"`

	// Level — уровень сообщения для emit.
	Level string `env:"LT_LEVEL" env-default:"info"`

	// Message — текст сообщения для emit.
	Message string `env:"LT_MESSAGE"`

	// Output — формат вывода результата: text, json или yaml.
	Output string `env:"LT_OUTPUT_FORMAT" env-default:"text"`
}

// Config — полная конфигурация приложения.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Tree     TreeConfig     `yaml:"tree"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Receiver ReceiverConfig `yaml:"receiver"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// GetParams читает параметры запуска из окружения.
func GetParams() (*Params, error) {
	p := &Params{}
	if err := cleanenv.ReadEnv(p); err != nil {
		return nil, fmt.Errorf("не удалось прочитать параметры запуска: %w", err)
	}
	switch p.Command {
	case CommandEmit, CommandServe, CommandLevels:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, p.Command)
	}
	return p, nil
}

// Load загружает конфигурацию из файла path (может быть пустым) и
// окружения, затем проверяет её.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось прочитать переменные окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse проверяет YAML документ по схеме и разбирает его поверх cfg.
// Поля, отсутствующие в документе, сохраняют прежние значения.
func Parse(data []byte, cfg *Config) error {
	if err := validateSchema(data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("ошибка разбора YAML: %w", err)
	}
	return nil
}

// Validate проверяет согласованность секций.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Logging.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Tree.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Proxy.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Receiver.validate(); err != nil {
		errs = append(errs, err)
	}
	m := c.Metrics.ToMetrics()
	if err := m.Validate(); err != nil {
		errs = append(errs, err)
	}
	t := c.Tracing.ToTracing()
	if err := t.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// defaultConfig задаёт значения, для которых ноль из YAML осмыслен
// (false, 0 повторов, sampling 0.0), и дерево по умолчанию.
// env-default применяется к любому нулевому полю и такой ноль потерял бы.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Compress: true},
		Tree:    defaultTree(),
		Proxy:   ProxyConfig{MaxRetries: proxy.DefaultMaxRetries},
		Tracing: TracingConfig{Insecure: true, SamplingRate: 1.0},
	}
}
