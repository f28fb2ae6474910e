// Package level содержит таблицу уровней логирования: символьные имена
// и соответствующие им числовые ранги.
//
// Ранг 0 (Unset) означает "уровень не задан": логгер наследует уровень
// от предка, а sink без порога принимает все записи.
package level

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Level — числовой ранг критичности записи. Больше — критичнее.
type Level int

// Поддерживаемые уровни.
const (
	Unset    Level = 0
	Trace    Level = 5
	Debug    Level = 10
	Info     Level = 20
	Warn     Level = 30
	Error    Level = 40
	Critical Level = 50
)

// ErrUnknownLevel возвращается при разборе неизвестного имени уровня.
var ErrUnknownLevel = errors.New("level: неизвестное имя уровня")

// entry — строка таблицы уровней.
type entry struct {
	name  string
	level Level
}

// table — таблица уровней в порядке возрастания ранга.
var table = []entry{
	{"trace", Trace},
	{"debug", Debug},
	{"info", Info},
	{"warn", Warn},
	{"error", Error},
	{"critical", Critical},
}

// aliases — дополнительные имена, принимаемые Parse.
var aliases = map[string]Level{
	"warning": Warn,
	"fatal":   Critical,
}

// All возвращает все уровни таблицы в порядке возрастания ранга.
func All() []Level {
	out := make([]Level, len(table))
	for i, e := range table {
		out[i] = e.level
	}
	return out
}

// Aliases возвращает дополнительные имена и канонические имена уровней,
// на которые они указывают.
func Aliases() map[string]string {
	out := make(map[string]string, len(aliases))
	for alias, l := range aliases {
		out[alias] = l.Name()
	}
	return out
}

// Names возвращает имена уровней таблицы в порядке возрастания ранга.
func Names() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.name
	}
	return out
}

// Parse возвращает ранг по символьному имени (регистр не важен).
// Пустая строка и "unset" дают Unset. Для неизвестного имени
// возвращается ErrUnknownLevel.
func Parse(name string) (Level, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "unset" {
		return Unset, nil
	}
	for _, e := range table {
		if e.name == n {
			return e.level, nil
		}
	}
	if l, ok := aliases[n]; ok {
		return l, nil
	}
	return Unset, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
}

// String возвращает имя уровня в верхнем регистре.
// Для рангов вне таблицы возвращается "LEVEL(N)".
func (l Level) String() string {
	if l == Unset {
		return "UNSET"
	}
	for _, e := range table {
		if e.level == l {
			return strings.ToUpper(e.name)
		}
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// Name возвращает имя уровня в нижнем регистре, как в конфигурации.
func (l Level) Name() string {
	return strings.ToLower(l.String())
}

// ToSlog конвертирует Level в slog.Level.
// Промежуточные ранги округляются вниз до ближайшего уровня таблицы.
func (l Level) ToSlog() slog.Level {
	switch {
	case l >= Error:
		return slog.LevelError
	case l >= Warn:
		return slog.LevelWarn
	case l >= Info:
		return slog.LevelInfo
	case l >= Debug:
		return slog.LevelDebug
	default:
		// trace и ниже — ниже debug на одну ступень slog
		return slog.LevelDebug - 4
	}
}

// known сообщает, есть ли ранг в таблице уровней.
func (l Level) known() bool {
	for _, e := range table {
		if e.level == l {
			return true
		}
	}
	return false
}

// MarshalText реализует encoding.TextMarshaler.
// Ранги вне таблицы сериализуются числом.
func (l Level) MarshalText() ([]byte, error) {
	if l != Unset && !l.known() {
		return []byte(strconv.Itoa(int(l))), nil
	}
	return []byte(l.Name()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
// Принимает как имя уровня, так и число.
func (l *Level) UnmarshalText(b []byte) error {
	if n, err := strconv.Atoi(string(b)); err == nil {
		*l = Level(n)
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
