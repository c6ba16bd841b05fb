package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/executor"
	"WhaleTrail/internal/strategy"
	xhttp "WhaleTrail/pkg/http"
	xlogger "WhaleTrail/pkg/logger"
)

// TradesEchoHandler serves the read-only trading API: open positions,
// recent whale movements and the hot-pairs board.
type TradesEchoHandler struct {
	logger  *xlogger.Logger
	engine  *strategy.Engine
	history *strategy.History
	volumes *strategy.VolumeTracker
	exec    *executor.Executor
}

func NewTradesEchoHandler(logger *xlogger.Logger, engine *strategy.Engine, history *strategy.History, volumes *strategy.VolumeTracker, exec *executor.Executor) *TradesEchoHandler {
	return &TradesEchoHandler{
		logger:  logger,
		engine:  engine,
		history: history,
		volumes: volumes,
		exec:    exec,
	}
}

func (h *TradesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/trades/active", h.ActiveTrades)
	g.GET("/movements/recent", h.RecentMovements)
	g.GET("/pairs/hot", h.HotPairs)
	g.GET("/orders", h.Orders)
	g.GET("/portfolio", h.Portfolio)
}

func (h *TradesEchoHandler) ActiveTrades(c echo.Context) error {
	trades := h.engine.ActiveTrades()
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}

func (h *TradesEchoHandler) RecentMovements(c echo.Context) error {
	req := &models.RecentMovementsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	movements := h.history.Recent(req.Limit, req.Token)
	if since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{}); !since.IsZero() {
		filtered := movements[:0]
		for _, m := range movements {
			if m.Event.Timestamp >= since.Unix() {
				filtered = append(filtered, m)
			}
		}
		movements = filtered
	}
	return xhttp.ListResponse(c, movements, int64(len(movements)))
}

func (h *TradesEchoHandler) HotPairs(c echo.Context) error {
	req := &models.HotPairsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pairs := h.volumes.HotPairs()
	if req.MinCount > 0 {
		filtered := pairs[:0]
		for _, p := range pairs {
			if p.TradeCount+p.SwapCount >= req.MinCount {
				filtered = append(filtered, p)
			}
		}
		pairs = filtered
	}
	return xhttp.ListResponse(c, pairs, int64(len(pairs)))
}

func (h *TradesEchoHandler) Orders(c echo.Context) error {
	orders := h.exec.Orders()
	return xhttp.ListResponse(c, orders, int64(len(orders)))
}

func (h *TradesEchoHandler) Portfolio(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Portfolio())
}
