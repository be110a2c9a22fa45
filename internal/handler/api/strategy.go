package api

import (
	"SignalForge/internal/domain/models"
	xhttp "SignalForge/pkg/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) strategyResponse() models.StrategyResponse {
	return models.StrategyResponse{Strategy: h.strategy.Read(), Personality: h.strategy.Profile()}
}

func (h *Handler) GetStrategy(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.strategyResponse())
}

// PatchStrategy merges the posted fields. Out-of-range thresholds are
// clamped, not rejected.
func (h *Handler) PatchStrategy(c echo.Context) error {
	req := &models.StrategyPatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	patch := req.Patch()
	if patch.Empty() {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("no strategy fields to update"))
	}
	if err := h.strategy.Update(c.Request().Context(), patch); err != nil {
		return h.errorResponse(c, "strategy update", err)
	}
	return xhttp.SuccessResponse(c, h.strategyResponse())
}

func (h *Handler) StrategyHistory(c echo.Context) error {
	req := &models.LogRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hist, err := h.strategy.History(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, "strategy history", err)
	}
	return xhttp.ListResponse(c, tail(hist, req.Limit), int64(len(hist)))
}

// tail returns at most n of the newest entries, oldest first.
func tail[T any](items []T, n int) []T {
	if items == nil {
		return []T{}
	}
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}
