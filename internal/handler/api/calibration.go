package api

import (
	"context"

	"SignalForge/internal/domain/models"
	xhttp "SignalForge/pkg/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) ReplayLog(c echo.Context) error {
	return listLog(h, c, "replay log", h.calibration.ReplayLog)
}

func (h *Handler) MutationLog(c echo.Context) error {
	return listLog(h, c, "mutation log", h.calibration.MutationLog)
}

func (h *Handler) CloneLog(c echo.Context) error {
	return listLog(h, c, "clone log", h.calibration.CloneLog)
}

func listLog[T any](h *Handler, c echo.Context, op string, load func(context.Context) ([]T, error)) error {
	req := &models.LogRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	entries, err := load(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, op, err)
	}
	return xhttp.ListResponse(c, tail(entries, req.Limit), int64(len(entries)))
}

func (h *Handler) RunReplay(c echo.Context) error {
	res, err := h.calibration.RunReplay(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, "replay", err)
	}
	h.logger.Info("replay triggered via api")
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) RunMutation(c echo.Context) error {
	res, err := h.calibration.RunMutation(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, "mutation", err)
	}
	h.logger.Info("mutation triggered via api")
	return xhttp.SuccessResponse(c, res)
}

// RunClones simulates clone candidates; with ?apply=true the best one is
// written to the strategy store.
func (h *Handler) RunClones(c echo.Context) error {
	req := &models.CloneRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	run := h.calibration.Simulate
	if req.Apply || xhttp.ParseBoolDefault(c.QueryParam("apply"), false) {
		run = h.calibration.ApplyBest
	}
	res, err := run(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, "clones", err)
	}
	return xhttp.SuccessResponse(c, res)
}
