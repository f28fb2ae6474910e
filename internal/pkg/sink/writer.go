package sink

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/Kargones/logtree/internal/pkg/record"
)

// WriteFunc — простая функция записи готовой строки лога.
type WriteFunc func(line []byte) error

// FuncSink адаптирует WriteFunc к интерфейсу Sink: форматирует запись
// форматтером по умолчанию (или заданным через WithFormatter) и передаёт
// результат функции. Вызовы функции сериализуются.
type FuncSink struct {
	Threshold
	mu        sync.Mutex
	fn        WriteFunc
	formatter Formatter
	enc       *encoding.Encoder
}

// Compile-time проверки реализации интерфейса
var (
	_ Sink = (*FuncSink)(nil)
	_ Sink = (*WriterSink)(nil)
)

// NewFuncSink создаёт Sink из функции записи.
func NewFuncSink(fn WriteFunc, opts ...Option) (*FuncSink, error) {
	if fn == nil {
		return nil, ErrNilWriter
	}
	o := buildOptions(opts)
	enc, err := lookupEncoder(o.encoding)
	if err != nil {
		return nil, err
	}
	return &FuncSink{
		Threshold: Threshold{min: o.level},
		fn:        fn,
		formatter: o.formatter,
		enc:       enc,
	}, nil
}

// Write реализует Sink.
func (s *FuncSink) Write(rec *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := render(s.formatter, s.enc, rec)
	if err != nil {
		return err
	}
	return s.fn(line)
}

// WriterSink пишет отформатированные записи в io.Writer.
// Записи сериализуются мьютексом: одна строка — один вызов Write.
type WriterSink struct {
	Threshold
	mu        sync.Mutex
	w         io.Writer
	formatter Formatter
	enc       *encoding.Encoder
}

// NewWriterSink создаёт WriterSink поверх w.
func NewWriterSink(w io.Writer, opts ...Option) (*WriterSink, error) {
	if w == nil {
		return nil, ErrNilWriter
	}
	o := buildOptions(opts)
	enc, err := lookupEncoder(o.encoding)
	if err != nil {
		return nil, err
	}
	return &WriterSink{
		Threshold: Threshold{min: o.level},
		w:         w,
		formatter: o.formatter,
		enc:       enc,
	}, nil
}

// Write реализует Sink.
func (s *WriterSink) Write(rec *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := render(s.formatter, s.enc, rec)
	if err != nil {
		return err
	}
	_, err = s.w.Write(line)
	return err
}

// Close закрывает writer, если он реализует io.Closer.
func (s *WriterSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// render форматирует запись и при необходимости перекодирует строку.
func render(f Formatter, enc *encoding.Encoder, rec *record.Record) ([]byte, error) {
	line, err := f.Format(rec)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return line, nil
	}
	out, err := enc.Bytes(line)
	if err != nil {
		return nil, fmt.Errorf("sink: ошибка перекодирования: %w", err)
	}
	return out, nil
}

// lookupEncoder возвращает encoder для кодировки по имени WHATWG.
// Символы, не представимые в целевой кодировке, заменяются.
// Для пустого имени и UTF-8 возвращает nil (перекодирование не нужно).
func lookupEncoder(name string) (*encoding.Encoder, error) {
	if name == "" {
		return nil, nil
	}
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	if canonical, _ := htmlindex.Name(e); canonical == "utf-8" { //nolint:errcheck // имя уже найдено
		return nil, nil
	}
	return encoding.ReplaceUnsupported(e.NewEncoder()), nil
}
