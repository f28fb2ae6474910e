package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/valyala/fastjson"

	"github.com/Kargones/logtree/internal/pkg/level"
)

// Ошибки импорта записей.
var (
	// ErrMissingTimestamp — во входных данных нет поля timestamp.
	ErrMissingTimestamp = errors.New("record: отсутствует timestamp")

	// ErrInvalidTimestamp — timestamp не удалось привести к time.Time.
	ErrInvalidTimestamp = errors.New("record: невалидный timestamp")

	// ErrInvalidField — поле имеет неподдерживаемый тип.
	ErrInvalidField = errors.New("record: невалидное поле")
)

// Import строит Record из внешнего набора полей, полученного из другого
// процесса. Все поля копируются как есть, timestamp приводится к time.Time.
// Неизвестные ключи верхнего уровня сохраняются в Fields и имеют
// приоритет над одноимёнными ключами вложенного объекта fields.
//
// Timestamp принимается как time.Time, строка RFC 3339 или число
// миллисекунд Unix epoch.
func Import(data map[string]any) (*Record, error) {
	raw, ok := data[KeyTimestamp]
	if !ok {
		return nil, ErrMissingTimestamp
	}
	ts, err := coerceTime(raw)
	if err != nil {
		return nil, err
	}

	r := &Record{Timestamp: ts}

	// Сначала поля из fields, затем ключи верхнего уровня:
	// при совпадении имён побеждает ключ верхнего уровня.
	if v, ok := data[KeyFields]; ok && v != nil {
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%T", ErrInvalidField, KeyFields, v)
		}
		for fk, fv := range fields {
			r.Set(fk, fv)
		}
	}

	for k, v := range data {
		switch k {
		case KeyTimestamp, KeyFields:
		case KeyName:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s=%T", ErrInvalidField, k, v)
			}
			r.Name = s
		case KeyMessage:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s=%T", ErrInvalidField, k, v)
			}
			r.Message = s
		case KeyLevel:
			l, err := coerceLevel(v)
			if err != nil {
				return nil, err
			}
			r.Level = l
		case KeyArgs:
			args, ok := v.([]any)
			if !ok && v != nil {
				return nil, fmt.Errorf("%w: %s=%T", ErrInvalidField, k, v)
			}
			r.Args = args
		default:
			r.Set(k, v)
		}
	}

	return r, nil
}

// coerceTime приводит значение timestamp к time.Time.
func coerceTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed, nil
		}
		ms, numErr := strconv.ParseInt(t, 10, 64)
		if numErr != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, t)
		}
		return time.UnixMilli(ms), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, t.String())
		}
		return fromMillis(f)
	case float64:
		return fromMillis(t)
	case int64:
		return time.UnixMilli(t), nil
	case int:
		return time.UnixMilli(int64(t)), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrInvalidTimestamp, v)
	}
}

// fromMillis переводит дробные миллисекунды в time.Time.
func fromMillis(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, f)
	}
	ms := int64(f)
	rem := f - float64(ms)
	return time.UnixMilli(ms).Add(time.Duration(rem * float64(time.Millisecond))), nil
}

// coerceLevel приводит значение уровня к level.Level.
func coerceLevel(v any) (level.Level, error) {
	switch l := v.(type) {
	case level.Level:
		return l, nil
	case float64:
		return level.Level(int(l)), nil
	case int:
		return level.Level(l), nil
	case int64:
		return level.Level(int(l)), nil
	case json.Number:
		n, err := l.Int64()
		if err != nil {
			return level.Unset, fmt.Errorf("%w: level=%q", ErrInvalidField, l.String())
		}
		return level.Level(int(n)), nil
	case string:
		return level.Parse(l)
	default:
		return level.Unset, fmt.Errorf("%w: level=%T", ErrInvalidField, v)
	}
}

// parserPool переиспользует парсеры fastjson между вызовами ParseJSON.
var parserPool fastjson.ParserPool

// DecodeJSON разбирает один JSON-объект или массив объектов в наборы
// полей для Import. Числа возвращаются как float64.
func DecodeJSON(b []byte) ([]map[string]any, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("record: невалидный JSON: %w", err)
	}

	var items []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeArray:
		items, _ = v.Array() //nolint:errcheck // тип проверен выше
	case fastjson.TypeObject:
		items = []*fastjson.Value{v}
	default:
		return nil, fmt.Errorf("%w: ожидался объект или массив, получено %s", ErrInvalidField, v.Type())
	}

	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		data, ok := toAny(item).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: элемент %d не является объектом", ErrInvalidField, i)
		}
		out = append(out, data)
	}
	return out, nil
}

// ParseJSON разбирает одну запись или пакет записей и импортирует
// их через Import. Первая невалидная запись прерывает разбор.
func ParseJSON(b []byte) ([]*Record, error) {
	items, err := DecodeJSON(b)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(items))
	for i, data := range items {
		r, err := Import(data)
		if err != nil {
			return nil, fmt.Errorf("элемент %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// toAny конвертирует fastjson.Value в значения encoding/json:
// map[string]any, []any, string, float64, bool, nil.
// Значение разбирается полностью до возврата парсера в пул.
func toAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		o, _ := v.Object() //nolint:errcheck // тип проверен выше
		m := make(map[string]any, o.Len())
		o.Visit(func(key []byte, val *fastjson.Value) {
			m[string(key)] = toAny(val)
		})
		return m
	case fastjson.TypeArray:
		arr, _ := v.Array() //nolint:errcheck // тип проверен выше
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i] = toAny(item)
		}
		return out
	case fastjson.TypeString:
		sb, _ := v.StringBytes() //nolint:errcheck // тип проверен выше
		return string(sb)
	case fastjson.TypeNumber:
		f, _ := v.Float64() //nolint:errcheck // тип проверен выше
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
