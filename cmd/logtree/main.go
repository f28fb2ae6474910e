// Package main содержит точку входа logtree.
//
// Команда выбирается переменной LT_COMMAND:
//   - emit — записать одно сообщение (LT_LOGGER, LT_LEVEL, LT_MESSAGE) через дерево логгеров;
//   - serve — принимать записи от удалённых proxy по HTTP;
//   - levels — вывести таблицу уровней.
//
// Результат выводится в stdout в формате LT_OUTPUT_FORMAT (text или json).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kargones/logtree/internal/app"
	"github.com/Kargones/logtree/internal/config"
	"github.com/Kargones/logtree/internal/constants"
	"github.com/Kargones/logtree/internal/di"
	"github.com/Kargones/logtree/internal/pkg/apperrors"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/output"
	"github.com/Kargones/logtree/internal/pkg/tracing"
)

// Коды завершения процесса.
const (
	exitOK          = 0
	exitCommandFail = 8
	exitConfigFail  = 5
)

// closeTimeout ограничивает отправку накопленных записей proxy и
// завершение трейсинга при выходе.
const closeTimeout = 5 * time.Second

func main() {
	os.Exit(run(context.Background(), os.Stdout, os.Stderr))
}

// run выполняет команду и возвращает exit code. os.Exit вызывается
// только в main, чтобы отработали все defer.
func run(ctx context.Context, stdout, stderr io.Writer) int {
	start := time.Now()

	params, err := config.GetParams()
	if err != nil {
		// Формат вывода ещё не известен.
		return failWith(output.NewTextWriter(), stdout, stderr, "", start, "", apperrors.NewAppError(apperrors.ErrCommandNotFound, "неизвестная команда", err), exitConfigFail)
	}
	w := output.NewWriter(params.Output)

	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return failWith(w, stdout, stderr, params.Command, start, "", apperrors.NewAppError(apperrors.ErrConfigLoad, "не удалось загрузить конфигурацию", err), exitConfigFail)
	}

	a, err := di.InitializeApp(cfg)
	if err != nil {
		return failWith(w, stdout, stderr, params.Command, start, "", apperrors.NewAppError(apperrors.ErrConfigValidate, "не удалось инициализировать приложение", err), exitConfigFail)
	}
	l := a.Logger.With("trace_id", a.TraceID, "command", params.Command)
	l.Debug("Информация о сборке", slog.String("version", constants.Version))

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			l.Error("ошибка завершения", slog.String("error", err.Error()))
		}
	}()

	if params.Command == config.CommandServe {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	ctx, span := tracing.StartCommand(ctx, params.Command, a.TraceID)
	defer span.End()

	data, err := execute(ctx, params, a)
	a.MetricsCollector.RecordCommandEnd(params.Command, time.Since(start), err == nil)
	pushMetrics(a.MetricsCollector, l)

	if err != nil {
		span.RecordError(err)
		l.Error("Ошибка выполнения команды", slog.String("error", err.Error()))
		if apperrors.CodeOf(err) == "" {
			err = apperrors.NewAppError(apperrors.ErrCommandExec, "ошибка выполнения команды", err)
		}
		return failWith(w, stdout, stderr, params.Command, start, a.TraceID, err, exitCommandFail)
	}

	res := &output.Result{
		Status:   output.StatusSuccess,
		Command:  params.Command,
		Data:     data,
		Metadata: metadata(start, a.TraceID),
	}
	if err := w.Write(stdout, res); err != nil {
		fmt.Fprintf(stderr, "Ошибка вывода результата: %v\n", err)
		return exitCommandFail
	}
	return exitOK
}

// execute выполняет команду params.Command и возвращает её данные.
func execute(ctx context.Context, params *config.Params, a *di.App) (any, error) {
	switch params.Command {
	case config.CommandLevels:
		return app.Levels(), nil
	case config.CommandEmit:
		return app.Emit(ctx, a.Hierarchy, params)
	case config.CommandServe:
		srv, err := app.NewServer(a.Config.Receiver, a.Hierarchy, a.MetricsCollector, a.Logger)
		if err != nil {
			return nil, err
		}
		return nil, srv.Serve(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownCommand, params.Command)
	}
}

// pushMetrics отправляет метрики с собственным таймаутом: контекст serve
// к этому моменту уже отменён сигналом.
func pushMetrics(c metrics.Collector, l logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := c.Push(ctx); err != nil {
		l.Warn("не удалось отправить метрики", slog.String("error", err.Error()))
	}
}

func metadata(start time.Time, traceID string) *output.Metadata {
	return &output.Metadata{
		DurationMs: time.Since(start).Milliseconds(),
		TraceID:    traceID,
		APIVersion: output.APIVersion,
	}
}

// failWith выводит результат со статусом error и возвращает code.
func failWith(w output.Writer, stdout, stderr io.Writer, command string, start time.Time, traceID string, err error, code int) int {
	info := &output.ErrorInfo{Code: apperrors.CodeOf(err), Message: err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		info.Message = appErr.Message + ": " + appErr.Cause.Error()
	}

	res := &output.Result{
		Status:   output.StatusError,
		Command:  command,
		Error:    info,
		Metadata: metadata(start, traceID),
	}
	if werr := w.Write(stdout, res); werr != nil {
		fmt.Fprintf(stderr, "%s: %v\n", info.Code, err)
	}
	return code
}
