package proxy

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/record"
)

// ReceiverConfig — настройки Receiver.
type ReceiverConfig struct {
	// Token — ожидаемый bearer-токен. Пусто — без проверки.
	Token string

	// MaxBodySize — максимальный размер тела запроса (после распаковки).
	MaxBodySize int64
}

// ReceiveResult — ответ Receiver.
type ReceiveResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// Receiver принимает записи от HTTPProxy (один объект или JSON-массив,
// при Content-Encoding: zstd — сжатый) и диспетчеризует их в локальную
// иерархию. Записи импортируются без процессоров и без проверки уровня
// логгера: уровень уже проверен в процессе-источнике.
type Receiver struct {
	hierarchy *logtree.Hierarchy
	config    ReceiverConfig
	logger    logging.Logger
	decoder   *zstd.Decoder
}

var _ http.Handler = (*Receiver)(nil)

// NewReceiver создаёт Receiver поверх иерархии h.
func NewReceiver(h *logtree.Hierarchy, config ReceiverConfig, logger logging.Logger) (*Receiver, error) {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	logger = logging.OrNop(logger)
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(config.MaxBodySize)))
	if err != nil {
		return nil, err
	}
	return &Receiver{
		hierarchy: h,
		config:    config,
		logger:    logger,
		decoder:   dec,
	}, nil
}

// Close освобождает ресурсы zstd декодера.
func (r *Receiver) Close() {
	r.decoder.Close()
}

// ServeHTTP реализует http.Handler.
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !r.authorized(req) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := r.readBody(w, req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, zstd.ErrDecoderSizeExceeded) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.logger.Warn("receiver: ошибка чтения тела запроса", "error", err.Error())
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	res, err := r.Ingest(body)
	if err != nil {
		r.logger.Warn("receiver: невалидный JSON", "error", err.Error(), "remote", req.RemoteAddr)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res) //nolint:errcheck // клиент мог отключиться
}

// Ingest разбирает тело запроса, импортирует и диспетчеризует записи.
// Запись передаётся ближайшему существующему логгеру (Hierarchy.Nearest):
// имена от отправителя не добавляются в реестр.
// Ошибка возвращается только для невалидного JSON; невалидные записи
// пропускаются и учитываются в Rejected.
func (r *Receiver) Ingest(body []byte) (ReceiveResult, error) {
	items, err := record.DecodeJSON(body)
	if err != nil {
		return ReceiveResult{}, err
	}

	var res ReceiveResult
	root := r.hierarchy.Root()
	for _, data := range items {
		rec, err := root.ImportRecord(data)
		if err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		r.hierarchy.Nearest(rec.Name).Dispatch(rec)
		res.Accepted++
	}

	r.logger.Debug("receiver: пачка записей принята",
		"accepted", res.Accepted,
		"rejected", res.Rejected,
	)
	return res, nil
}

func (r *Receiver) authorized(req *http.Request) bool {
	if r.config.Token == "" {
		return true
	}
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(r.config.Token)) == 1
}

func (r *Receiver) readBody(w http.ResponseWriter, req *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.config.MaxBodySize))
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(req.Header.Get("Content-Encoding"), CompressionZstd) {
		return r.decoder.DecodeAll(body, nil)
	}
	return body, nil
}
