package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/stratlab/auth"
	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/optimize"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/service"
	"github.com/rustyeddy/stratlab/strategies"
)

type errorBody struct {
	Code   string           `json:"code"`
	Error  string           `json:"error"`
	Stats  *backtest.Stats  `json:"stats,omitempty"`
	Trades []backtest.Trade `json:"trades,omitempty"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Code: code, Error: msg})
}

// classify maps an error to its HTTP status and stable code. Order
// matters: an optimization failure may wrap any of the others.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, optimize.ErrOptimization):
		return http.StatusBadRequest, "optimization_failed"
	case errors.Is(err, pricing.ErrTickerNotFound):
		return http.StatusNotFound, "ticker_not_found"
	case errors.Is(err, strategies.ErrNotFound):
		return http.StatusNotFound, "strategy_not_found"
	case errors.Is(err, journal.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, backtest.ErrInsufficientTrades):
		return http.StatusUnprocessableEntity, "insufficient_trades"
	case errors.Is(err, backtest.ErrStrategyExecution):
		return http.StatusInternalServerError, "strategy_execution"
	case errors.Is(err, strategies.ErrInvalidParam), errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, auth.ErrAnonymous):
		return http.StatusUnauthorized, "sign_in_required"
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict, "user_exists"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	body := errorBody{Code: code, Error: err.Error()}

	var ite *backtest.InsufficientTradesError
	if errors.As(err, &ite) && ite.Result != nil {
		body.Stats = &ite.Result.Stats
		body.Trades = ite.Result.Trades
	}
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, "invalid_request", err.Error())
}
