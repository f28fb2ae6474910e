package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "с причиной",
			err:  NewAppError(ErrSinkWrite, "ошибка записи в sink", errors.New("disk full")),
			want: "SINK.WRITE_FAILED: ошибка записи в sink (disk full)",
		},
		{
			name: "без причины",
			err:  NewAppError(ErrLevelUnknown, "неизвестный уровень", nil),
			want: "LEVEL.UNKNOWN: неизвестный уровень",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	full := errors.New("queue full")
	err := NewAppError(ErrProxyDropped, "запись отброшена", full)

	assert.Same(t, full, err.Unwrap())
	assert.ErrorIs(t, fmt.Errorf("proxy: %w", err), full)
	assert.Nil(t, NewAppError(ErrProxyDropped, "x", nil).Unwrap())
}

func TestAppError_JSON(t *testing.T) {
	err := NewAppError(ErrRecordImport, "не удалось импортировать запись", errors.New("token=secret"))

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"code":"RECORD.IMPORT_FAILED","message":"не удалось импортировать запись"}`, string(data))
	assert.NotContains(t, string(data), "secret", "Cause не сериализуется")
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"AppError", NewAppError(ErrProcessorFailed, "panic в процессоре", nil), ErrProcessorFailed},
		{"обёрнутый", fmt.Errorf("обёртка: %w", NewAppError(ErrConfigLoad, "x", nil)), ErrConfigLoad},
		{"внешний код важнее", NewAppError(ErrCommandExec, "x", NewAppError(ErrProxySend, "y", nil)), ErrCommandExec},
		{"обычная ошибка", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
