package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/proxy"
	"github.com/Kargones/logtree/internal/pkg/sink"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logtree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Logging.Compress)

	assert.Equal(t, "info", cfg.Tree.RootLevel)
	assert.Equal(t, []string{DefaultSinkName}, cfg.Tree.RootSinks)
	assert.Equal(t, sink.TypeStderr, cfg.Tree.Sinks[DefaultSinkName].Type)

	assert.False(t, cfg.Proxy.Enabled)
	assert.Equal(t, proxy.DefaultMaxRetries, cfg.Proxy.MaxRetries)
	assert.Equal(t, time.Second, cfg.Proxy.FlushInterval)

	assert.Equal(t, ":8080", cfg.Receiver.Listen)
	assert.Equal(t, "/ingest", cfg.Receiver.Path)
	assert.Equal(t, int64(proxy.DefaultMaxBodySize), cfg.Receiver.MaxBodySize)

	assert.Equal(t, "logtree", cfg.Metrics.JobName)
	assert.True(t, cfg.Tracing.Insecure)
	assert.InDelta(t, 1.0, cfg.Tracing.SamplingRate, 1e-9)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Compress, "false из YAML не заменяется умолчанием")
	assert.Equal(t, "stderr", cfg.Logging.Output, "незаданные поля получают env-default")

	assert.Equal(t, "warn", cfg.Tree.RootLevel)
	assert.Equal(t, []string{"hostname", "record_id", "trace_context"}, cfg.Tree.Processors)
	assert.Equal(t, map[string]string{"service": "billing"}, cfg.Tree.Static)
	assert.Len(t, cfg.Tree.Sinks, 3)
	assert.Equal(t, []string{"billing", "billing.invoice"}, cfg.Tree.LoggerNames())

	invoice := cfg.Tree.Loggers["billing.invoice"]
	assert.False(t, invoice.ShouldPropagate())
	assert.True(t, cfg.Tree.Loggers["billing"].ShouldPropagate())

	audit, err := cfg.Tree.Sinks["audit"].ToSink()
	require.NoError(t, err)
	assert.Equal(t, level.Error, audit.Level)
	assert.Equal(t, "/tmp/logtree/audit.log", audit.File.Path)

	h := cfg.Proxy.ToHTTP()
	assert.Equal(t, "http://collector:8080/ingest", h.URL)
	assert.Equal(t, 250*time.Millisecond, h.FlushInterval)
	assert.Equal(t, 0, h.MaxRetries, "0 повторов из YAML сохраняется")
	assert.Equal(t, proxy.CompressionZstd, h.Compression)
	assert.Equal(t, "billing", h.Headers["X-Source"])

	assert.Equal(t, ":9090", cfg.Receiver.Listen)
	assert.Equal(t, "s3cr3t", cfg.Receiver.ToReceiver().Token)

	assert.False(t, cfg.Tracing.Insecure)
	assert.InDelta(t, 0.25, cfg.Tracing.SamplingRate, 1e-9)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("LT_ROOT_LEVEL", "error")
	t.Setenv("LT_PROXY_URL", "https://other:8443/ingest")
	t.Setenv("LT_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Tree.RootLevel)
	assert.Equal(t, "https://other:8443/ingest", cfg.Proxy.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "tree:\n  rooot: info\n"},
		{"bad level", "tree:\n  rootLevel: verbose\n"},
		{"bad processor", "tree:\n  processors: [geoip]\n"},
		{"bad duration", "proxy:\n  flushInterval: soon\n"},
		{"sampling out of range", "tracing:\n  samplingRate: 2\n"},
		{"not yaml", "tree: [\n"},
		{"unknown sink ref", "tree:\n  rootSinks: [nowhere]\n"},
		{"file sink without path", "tree:\n  sinks:\n    f:\n      type: file\n"},
		{"proxy without url", "proxy:\n  enabled: true\n"},
		{"metrics without url", "metrics:\n  enabled: true\n"},
		{"webhook without urls", "tree:\n  sinks:\n    w:\n      type: webhook\n"},
		{"webhook bad url", "tree:\n  sinks:\n    w:\n      type: webhook\n      webhook:\n        urls: [\"hooks\"]\n"},
		{"telegram without chats", "tree:\n  sinks:\n    tg:\n      type: telegram\n      telegram:\n        botToken: x\n"},
		{"unknown webhook key", "tree:\n  sinks:\n    w:\n      type: webhook\n      webhook:\n        url: http://h\n"},
		{"receiver path on healthz", "receiver:\n  path: /healthz\n"},
		{"metrics path equals ingest", "receiver:\n  path: /ingest\n  metricsPath: /ingest\n"},
		{"metrics path on healthz", "receiver:\n  metricsPath: /healthz\n"},
		{"metrics path relative", "receiver:\n  metricsPath: metrics\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_NotifySinks(t *testing.T) {
	content := `
tree:
  rootSinks: [console, oncall, chat]
  sinks:
    console:
      type: stderr
    oncall:
      type: webhook
      level: critical
      webhook:
        urls: ["https://hooks.example.com/logtree"]
        headers: {Authorization: "Bearer x"}
        maxRetries: 2
        retryBackoff: 500ms
        rules:
          includeLoggers: [billing]
          rateLimitWindow: 5m
    chat:
      type: telegram
      telegram:
        botToken: "123:abc"
        chatIds: ["-100"]
        rules:
          excludeLoggers: [noisy]
          rateLimitWindow: -1s
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	hook, err := cfg.Tree.Sinks["oncall"].ToSink()
	require.NoError(t, err)
	assert.Equal(t, sink.TypeWebhook, hook.Type)
	assert.Equal(t, level.Critical, hook.Level)
	assert.Equal(t, []string{"https://hooks.example.com/logtree"}, hook.Webhook.URLs)
	assert.Equal(t, "Bearer x", hook.Webhook.Headers["Authorization"])
	assert.Equal(t, 2, hook.Webhook.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, hook.Webhook.RetryBackoff)
	assert.Equal(t, []string{"billing"}, hook.Webhook.Rules.IncludeLoggers)
	assert.Equal(t, 5*time.Minute, hook.Webhook.Rules.RateLimitWindow)

	tg, err := cfg.Tree.Sinks["chat"].ToSink()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", tg.Telegram.BotToken)
	assert.Equal(t, []string{"-100"}, tg.Telegram.ChatIDs)
	assert.Equal(t, []string{"noisy"}, tg.Telegram.Rules.ExcludeLoggers)
	assert.Equal(t, -time.Second, tg.Telegram.Rules.RateLimitWindow)

	s, err := sink.New(tg)
	require.NoError(t, err)
	assert.Equal(t, sink.DefaultNotifyLevel, s.Level())
}

func TestTreeConfig_Validate(t *testing.T) {
	tree := defaultTree()
	tree.RootLevel = "info"
	require.NoError(t, tree.Validate())

	tree.Loggers = map[string]LoggerConfig{
		"a":   {Sinks: []string{"missing"}},
		"a.b": {Processors: []string{"geoip"}, Level: "loud"},
	}
	err := tree.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSink)
	assert.ErrorIs(t, err, ErrUnknownProcessor)
	assert.ErrorIs(t, err, level.ErrUnknownLevel)
}

func TestGetParams(t *testing.T) {
	p, err := GetParams()
	require.NoError(t, err)
	assert.Equal(t, CommandEmit, p.Command)
	assert.Equal(t, "info", p.Level)
	assert.Equal(t, "text", p.Output)

	t.Setenv("LT_COMMAND", "serve")
	t.Setenv("LT_CONFIG", "/etc/logtree.yaml")
	p, err = GetParams()
	require.NoError(t, err)
	assert.Equal(t, CommandServe, p.Command)
	assert.Equal(t, "/etc/logtree.yaml", p.ConfigPath)

	t.Setenv("LT_COMMAND", "purge")
	_, err = GetParams()
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
