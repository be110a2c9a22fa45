package api

import (
	"SignalForge/internal/domain/models"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Evaluate runs a dry cycle for the posted snapshot. Cooldowns and the
// wallet are untouched.
func (h *Handler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.evaluate.Evaluate(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Patterns(c echo.Context) error {
	req := &models.PatternsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p := usecase.GetPatternsParams{
		Symbol: req.Symbol,
		Source: req.Source,
		Limit:  req.Limit,
	}
	var ok bool
	if req.From != "" {
		if p.From, ok = xhttp.ParseTime(req.From); !ok {
			return xhttp.AppErrorResponse(c, xhttp.InvalidTimeError("from", req.From))
		}
	}
	if req.To != "" {
		if p.To, ok = xhttp.ParseTime(req.To); !ok {
			return xhttp.AppErrorResponse(c, xhttp.InvalidTimeError("to", req.To))
		}
	}

	ctx := c.Request().Context()
	cacheable := p.Source == "archive" && h.cache != nil && h.cacheTTL > 0
	key := cache.Key("patterns", p.Symbol, req.From, req.To, p.Limit)
	if cacheable {
		var cached usecase.GetPatternsResult
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			c.Response().Header().Set("X-Cache", "HIT")
			return xhttp.SuccessResponse(c, &cached)
		}
	}

	res, err := h.patterns.GetPatterns(ctx, p)
	if err != nil {
		return h.errorResponse(c, "patterns", err)
	}
	if cacheable {
		if err := h.cache.Set(ctx, key, res, h.cacheTTL); err != nil {
			h.logger.Warn("patterns cache write failed", xlogger.Error(err))
		}
		c.Response().Header().Set("X-Cache", "MISS")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Overview(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.overview.Get(c.Request().Context()))
}

func (h *Handler) Wallet(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.wallet.Holdings())
}
