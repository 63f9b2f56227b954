package api

import (
	"time"

	"MarketPulse/internal/alert"
	models "MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusEchoHandler exposes the diagnostic read side: liveness, throttle
// pressure and the last computed indicator values per pair.
type StatusEchoHandler struct {
	logger     *xlogger.Logger
	store      domrepo.CandleStore
	collector  *usecase.CandleCollector
	throttler  *alert.Throttler
	snapshots  cache.Service
	symbols    []string
	timeframes []domrepo.Timeframe
	startedAt  time.Time
}

func NewStatusEchoHandler(
	logger *xlogger.Logger,
	store domrepo.CandleStore,
	collector *usecase.CandleCollector,
	throttler *alert.Throttler,
	snapshots cache.Service,
	symbols []string,
	timeframes []domrepo.Timeframe,
) *StatusEchoHandler {
	return &StatusEchoHandler{
		logger:     logger,
		store:      store,
		collector:  collector,
		throttler:  throttler,
		snapshots:  snapshots,
		symbols:    symbols,
		timeframes: timeframes,
		startedAt:  time.Now(),
	}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/status", h.Status)
	g := e.Group("/api")
	g.GET("/indicators", h.Indicators)
	g.GET("/indicators/:symbol", h.IndicatorsForSymbol)
	g.DELETE("/indicators/:symbol", h.InvalidateIndicators)
	g.GET("/candles/:symbol", h.Candles)
}

func (h *StatusEchoHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check: store unreachable", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("storage unreachable"))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":           "ok",
		"stream_connected": h.collector.IsConnected(),
	})
}

func (h *StatusEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"uptime_seconds":       int64(time.Since(h.startedAt).Seconds()),
		"stream_connected":     h.collector.IsConnected(),
		"symbols":              h.symbols,
		"timeframes":           h.timeframes,
		"alerts_last_hour":     h.throttler.SentLastHour(),
		"alerts_consolidating": h.throttler.PendingCount(),
	})
}

// Indicators returns the latest snapshot for every configured pair.
func (h *StatusEchoHandler) Indicators(c echo.Context) error {
	ctx := c.Request().Context()
	out := make([]models.IndicatorSnapshot, 0, len(h.symbols)*len(h.timeframes))
	for _, symbol := range h.symbols {
		for _, tf := range h.timeframes {
			var snap models.IndicatorSnapshot
			if err := h.snapshots.Get(ctx, usecase.SnapshotKey(symbol, string(tf)), &snap); err != nil {
				continue // pair not evaluated yet
			}
			out = append(out, snap)
		}
	}
	return xhttp.SuccessResponse(c, out)
}

// tfQuery is the validated timeframe selector shared by the per-symbol
// endpoints.
type tfQuery struct {
	TF string `query:"tf" default:"4h" validate:"oneof=1m 5m 15m 1h 4h 1d 1w 1M"`
}

// IndicatorsForSymbol returns the snapshot for one pair.
func (h *StatusEchoHandler) IndicatorsForSymbol(c echo.Context) error {
	symbol := c.Param("symbol")

	var q tfQuery
	if errs := xhttp.ReadAndValidateRequest(c, &q); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	tf := domrepo.Timeframe(q.TF)

	var snap models.IndicatorSnapshot
	if err := h.snapshots.Get(c.Request().Context(), usecase.SnapshotKey(symbol, string(tf)), &snap); err != nil {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundErrorf("no snapshot for %s %s", symbol, tf))
	}
	return xhttp.SuccessResponse(c, snap)
}

// InvalidateIndicators drops the cached snapshots for one symbol. The next
// evaluation cycle repopulates them.
func (h *StatusEchoHandler) InvalidateIndicators(c echo.Context) error {
	symbol := c.Param("symbol")
	if err := h.snapshots.DeleteByPattern(c.Request().Context(), usecase.SnapshotPattern(symbol)); err != nil {
		h.logger.Error("snapshot invalidation failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("snapshot invalidation failed"))
	}
	return xhttp.NoContentResponse(c)
}

// Candles returns the most recent closed candles for one pair, newest last.
// `limit` caps the row count, `since` (RFC3339 or unix seconds) trims older
// rows from the result.
func (h *StatusEchoHandler) Candles(c echo.Context) error {
	symbol := c.Param("symbol")

	var q tfQuery
	if errs := xhttp.ReadAndValidateRequest(c, &q); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	tf := domrepo.Timeframe(q.TF)

	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, ok := xhttp.ParseTime(raw)
		if !ok {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_FORMAT",
				Field:   "since",
				Message: "since must be RFC3339 or unix seconds",
			}})
		}
		since = t
	}

	candles, err := h.store.GetRecentCandles(c.Request().Context(), symbol, tf, limit)
	if err != nil {
		h.logger.Error("candle read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("candle read failed"))
	}
	if !since.IsZero() {
		cutoff := since.UnixMilli()
		trimmed := candles[:0]
		for _, cd := range candles {
			if cd.OpenTime >= cutoff {
				trimmed = append(trimmed, cd)
			}
		}
		candles = trimmed
	}
	return xhttp.SuccessResponse(c, candles)
}
