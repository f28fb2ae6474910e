package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Kargones/logtree/internal/config"
	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/proxy"
)

// LevelInfo — строка таблицы уровней.
type LevelInfo struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// LevelsData — результат команды levels.
type LevelsData struct {
	Levels  []LevelInfo       `json:"levels"`
	Aliases map[string]string `json:"aliases"`
}

// WriteText реализует output.TextRenderer.
func (d *LevelsData) WriteText(w io.Writer) error {
	for _, l := range d.Levels {
		if _, err := fmt.Fprintf(w, "  %-10s %3d\n", l.Name, l.Rank); err != nil {
			return err
		}
	}
	return nil
}

// Levels возвращает таблицу уровней.
func Levels() *LevelsData {
	all := level.All()
	d := &LevelsData{
		Levels:  make([]LevelInfo, 0, len(all)),
		Aliases: level.Aliases(),
	}
	for _, l := range all {
		d.Levels = append(d.Levels, LevelInfo{Name: l.Name(), Rank: int(l)})
	}
	return d
}

// EmitData — результат команды emit.
type EmitData struct {
	Logger  string `json:"logger"`
	Level   string `json:"level"`
	Enabled bool   `json:"enabled"`
}

// WriteText реализует output.TextRenderer.
func (d *EmitData) WriteText(w io.Writer) error {
	state := "записано"
	if !d.Enabled {
		state = "отфильтровано уровнем логгера"
	}
	_, err := fmt.Fprintf(w, "  %s [%s]: %s\n", displayName(d.Logger), d.Level, state)
	return err
}

func displayName(name string) string {
	if name == "" {
		return "root"
	}
	return name
}

// Emit записывает одно сообщение через дерево h. Неизвестный уровень
// возвращает ошибку до записи.
func Emit(ctx context.Context, h *logtree.Hierarchy, p *config.Params) (*EmitData, error) {
	lvl, err := level.Parse(p.Level)
	if err != nil {
		return nil, err
	}
	if lvl == level.Unset {
		return nil, fmt.Errorf("%w: уровень сообщения не задан", level.ErrUnknownLevel)
	}

	l := h.Logger(p.Logger)
	d := &EmitData{Logger: l.Name(), Level: lvl.Name(), Enabled: l.IsEnabledFor(lvl)}
	l.LogContext(ctx, lvl, p.Message)
	return d, nil
}

// Server — HTTP сервер команды serve: Receiver, метрики и healthz.
type Server struct {
	cfg      config.ReceiverConfig
	logger   logging.Logger
	receiver *proxy.Receiver
	srv      *http.Server
}

// NewServer создаёт сервер поверх иерархии h.
func NewServer(cfg config.ReceiverConfig, h *logtree.Hierarchy, collector metrics.Collector, logger logging.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	recv, err := proxy.NewReceiver(h, cfg.ToReceiver(), logger.Component("receiver"))
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, recv)
	if cfg.MetricsPath != "" && collector != nil {
		mux.Handle(cfg.MetricsPath, collector.Handler())
	}
	mux.HandleFunc(config.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok") //nolint:errcheck // healthz best-effort
	})

	return &Server{
		cfg:      cfg,
		logger:   logger,
		receiver: recv,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler возвращает маршрутизатор сервера.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Serve слушает cfg.Listen до отмены ctx, затем завершает активные
// запросы за ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		s.receiver.Close()
		return fmt.Errorf("receiver: listen %s: %w", s.cfg.Listen, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	defer s.receiver.Close()

	s.logger.Info("receiver запущен",
		"addr", ln.Addr().String(),
		"path", s.cfg.Path,
		"auth", s.cfg.Token != "",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("receiver: завершение", "reason", context.Cause(ctx).Error())
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("receiver: shutdown: %w", err)
	}
	<-errCh
	return nil
}
