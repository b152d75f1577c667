package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level. Failures are
// logged at warn level. It implements PipelineHooks, CacheHooks and
// ServerHooks.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates log-backed hooks. A nil logger uses log.Default().
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{logger: l}
}

func (h *LogHooks) OnParseStart(_ context.Context, source string, size int) {
	h.logger.Debug("parse", "source", source, "bytes", size)
}

func (h *LogHooks) OnParseComplete(_ context.Context, source string, rules int, cached bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("parse failed", "source", source, "err", err)
		return
	}
	h.logger.Debug("parsed", "source", source, "rules", rules, "cached", cached, "took", d.Round(time.Microsecond))
}

func (h *LogHooks) OnMergeComplete(_ context.Context, sources, targets int, d time.Duration) {
	h.logger.Debug("merged", "sources", sources, "targets", targets, "took", d.Round(time.Microsecond))
}

func (h *LogHooks) OnSerializeComplete(_ context.Context, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("serialize failed", "err", err)
		return
	}
	h.logger.Debug("serialized", "bytes", size, "took", d.Round(time.Microsecond))
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, requestID, method, path string) {
	h.logger.Debug("request", "id", requestID, "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, requestID, method, path string, status int, d time.Duration) {
	h.logger.Info("response", "id", requestID, "method", method, "path", path, "status", status, "took", d.Round(time.Microsecond))
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ ServerHooks   = (*LogHooks)(nil)
)
