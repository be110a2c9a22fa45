package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/calibration"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"

	"github.com/labstack/echo/v4"
)

type StrategyService interface {
	Read() models.StrategyConfig
	Profile() models.PersonalityProfile
	Update(ctx context.Context, patch models.StrategyPatch) error
	History(ctx context.Context) ([]models.StrategyUpdate, error)
}

type CalibrationService interface {
	usecase.CalibrationLogs
	RunReplay(ctx context.Context) (models.ReplayResult, error)
	RunMutation(ctx context.Context) (models.MutationRecord, error)
	Simulate(ctx context.Context) (models.CloneRun, error)
	ApplyBest(ctx context.Context) (models.CloneRun, error)
}

// Handler serves the strategy, calibration and signal APIs.
type Handler struct {
	logger      *xlogger.Logger
	strategy    StrategyService
	calibration CalibrationService
	evaluate    *usecase.EvaluateUseCase
	patterns    *usecase.PatternsUseCase
	overview    *usecase.OverviewUseCase
	wallet      usecase.HoldingsReader

	cache    cache.Service
	cacheTTL time.Duration
}

type Option func(*Handler)

// WithWallet exposes the paper wallet at /api/wallet.
func WithWallet(w usecase.HoldingsReader) Option { return func(h *Handler) { h.wallet = w } }

// WithResponseCache caches archive pattern queries for ttl.
func WithResponseCache(c cache.Service, ttl time.Duration) Option {
	return func(h *Handler) { h.cache, h.cacheTTL = c, ttl }
}

func NewHandler(
	logger *xlogger.Logger,
	strategy StrategyService,
	cal CalibrationService,
	evaluate *usecase.EvaluateUseCase,
	patterns *usecase.PatternsUseCase,
	overview *usecase.OverviewUseCase,
	opts ...Option,
) *Handler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &Handler{
		logger:      logger,
		strategy:    strategy,
		calibration: cal,
		evaluate:    evaluate,
		patterns:    patterns,
		overview:    overview,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ xhttp.Handler = (*Handler)(nil)

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/overview", h.Overview)

	g.GET("/strategy", h.GetStrategy)
	g.PATCH("/strategy", h.PatchStrategy)
	g.GET("/strategy/history", h.StrategyHistory)

	g.GET("/calibration/replay", h.ReplayLog)
	g.GET("/calibration/mutations", h.MutationLog)
	g.GET("/calibration/clones", h.CloneLog)
	g.POST("/calibration/replay", h.RunReplay)
	g.POST("/calibration/mutate", h.RunMutation)
	g.POST("/calibration/clones", h.RunClones)

	g.POST("/evaluate", h.Evaluate)
	g.GET("/patterns", h.Patterns)
	if h.wallet != nil {
		g.GET("/wallet", h.Wallet)
	}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse maps domain errors onto API errors. Unknown errors are
// logged and reported as 500.
func (h *Handler) errorResponse(c echo.Context, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, models.ErrDataUnavailable), errors.Is(err, usecase.ErrInvalidRange):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, calibration.ErrNoHistory), errors.Is(err, calibration.ErrNoReplay):
		appErr = xhttp.ConflictError(err.Error())
	case errors.Is(err, usecase.ErrArchiveDisabled):
		appErr = xhttp.UnavailableError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.UnavailableError("request timed out")
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}
