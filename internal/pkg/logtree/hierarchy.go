package logtree

import (
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/Kargones/logtree/internal/pkg/level"
)

// Separator разделяет компоненты имени логгера.
const Separator = "."

// Hierarchy — реестр логгеров с точечными именами поверх одного Context.
// Logger("a.b.c") создаёт недостающих предков "a.b" и "a", корень
// имеет пустое имя. Реестр — единственное место, где хранится
// соответствие имён логгерам: сами логгеры знают только родителя.
//
// Hierarchy безопасна для конкурентного использования; настройка
// полученных логгеров — нет (см. Logger).
type Hierarchy struct {
	ctx  *Context
	root *Logger

	mu      sync.Mutex
	loggers map[string]*Logger
}

// NewHierarchy создаёт реестр с корневым логгером уровня rootLevel.
// При c == nil создаётся Context по умолчанию.
func NewHierarchy(c *Context, rootLevel level.Level) *Hierarchy {
	if c == nil {
		c = NewContext()
	}
	root := New(c, "", rootLevel)
	return &Hierarchy{
		ctx:     c,
		root:    root,
		loggers: map[string]*Logger{"": root},
	}
}

// Root возвращает корневой логгер.
func (h *Hierarchy) Root() *Logger {
	return h.root
}

// Context возвращает общий Context реестра.
func (h *Hierarchy) Context() *Context {
	return h.ctx
}

// Logger возвращает логгер с именем name, создавая его и недостающих
// предков. Новые логгеры создаются без уровня (наследуют).
func (h *Hierarchy) Logger(name string) *Logger {
	name = strings.Trim(name, Separator)

	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.loggers[name]; ok {
		return l
	}

	parent := h.root
	var prefix string
	for _, part := range strings.Split(name, Separator) {
		if part == "" {
			continue
		}
		if prefix == "" {
			prefix = part
		} else {
			prefix += Separator + part
		}
		l, ok := h.loggers[prefix]
		if !ok {
			l = New(h.ctx, prefix, level.Unset)
			l.parent = parent
			h.loggers[prefix] = l
		}
		parent = l
	}
	return parent
}

// Lookup возвращает существующий логгер, не создавая новых.
func (h *Hierarchy) Lookup(name string) (*Logger, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.loggers[strings.Trim(name, Separator)]
	return l, ok
}

// Nearest возвращает ближайший зарегистрированный логгер для name:
// сам логгер, иначе ближайшего существующего предка по точечному
// префиксу, иначе корень. Новые логгеры не создаются, поэтому метод
// подходит для имён из внешних источников.
func (h *Hierarchy) Nearest(name string) *Logger {
	name = strings.Trim(name, Separator)

	h.mu.Lock()
	defer h.mu.Unlock()

	for name != "" {
		if l, ok := h.loggers[name]; ok {
			return l
		}
		i := strings.LastIndex(name, Separator)
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return h.root
}

// Names возвращает отсортированные имена всех зарегистрированных логгеров.
func (h *Hierarchy) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.loggers))
	for name := range h.loggers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close закрывает все sinks зарегистрированных логгеров, реализующие
// io.Closer. Sink, добавленный к нескольким логгерам, закрывается один раз.
func (h *Hierarchy) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[io.Closer]struct{})
	var errs []error
	for _, l := range h.loggers {
		for _, s := range l.sinks {
			c, ok := s.(io.Closer)
			if !ok {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
