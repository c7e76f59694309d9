package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"volatiq/internal/domain/models"
	"volatiq/internal/service/ratelimit"
	"volatiq/internal/usecase"
	xhttp "volatiq/pkg/http"
	xlogger "volatiq/pkg/logger"
)

// RateLimits bounds request rates per client IP on the expensive endpoints.
type RateLimits struct {
	Enabled       bool
	PredictPerSec float64
	ExplainPerSec float64
	Burst         float64
}

// PredictHandler exposes the prediction service over Echo.
type PredictHandler struct {
	logger  *xlogger.Logger
	svc     *usecase.PredictionService
	health  *usecase.HealthMonitor
	limiter *ratelimit.Limiter
	limits  RateLimits
}

func NewPredictHandler(logger *xlogger.Logger, svc *usecase.PredictionService, health *usecase.HealthMonitor, limits RateLimits) *PredictHandler {
	return &PredictHandler{
		logger:  logger,
		svc:     svc,
		health:  health,
		limiter: ratelimit.New(),
		limits:  limits,
	}
}

func (h *PredictHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Info)
	e.GET("/health", h.Health)
	e.POST("/predict", h.Predict)
	e.POST("/explain", h.Explain)
	e.GET("/model/info", h.ModelInfo)
}

// Info describes the API surface.
func (h *PredictHandler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Welcome to the VolatiQ API",
		"version": usecase.ModelVersion,
		"status":  "operational",
		"endpoints": map[string]string{
			"/":           "API info",
			"/health":     "Health check",
			"/predict":    "POST: Predict volatility (expects JSON {\"features\": [[...], ...]})",
			"/explain":    "POST: Per-feature attributions (expects JSON {\"features\": [[...], ...]})",
			"/model/info": "GET: Model metadata",
			"/metrics":    "GET: Prometheus metrics",
		},
	})
}

// Health reports composite readiness; 503 while unhealthy.
func (h *PredictHandler) Health(c echo.Context) error {
	resp := h.health.Check(c.Request().Context())
	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

func (h *PredictHandler) Predict(c echo.Context) error {
	if !h.allow(c, "predict", h.limits.PredictPerSec) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("predict rate limit exceeded"))
	}

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resp, err := h.svc.Predict(c.Request().Context(), req)
	if err != nil {
		return h.requestError(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *PredictHandler) Explain(c echo.Context) error {
	if !h.allow(c, "explain", h.limits.ExplainPerSec) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("explain rate limit exceeded"))
	}

	req := &models.ExplainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resp, err := h.svc.Explain(c.Request().Context(), req)
	if err != nil {
		return h.requestError(c, "explain", err)
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *PredictHandler) ModelInfo(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.ModelInfo())
}

// requestError maps tagged domain errors onto HTTP statuses: validation to
// 400, unavailable to 503, computation to 500.
func (h *PredictHandler) requestError(c echo.Context, op string, err error) error {
	var rerr *models.RequestError
	if !errors.As(err, &rerr) {
		h.logger.Error(op+" failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("internal server error"))
	}

	switch {
	case rerr.IsValidation():
		h.logger.Warn("invalid "+op+" request", xlogger.String("reason", string(rerr.Reason)))
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError(string(rerr.Reason), "features", rerr.Message, http.StatusBadRequest))
	case rerr.Reason == models.ReasonServiceUnavailable:
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(rerr.Message))
	default:
		h.logger.Error(op+" failed", xlogger.Error(rerr))
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError(string(rerr.Reason), "", rerr.Message, http.StatusInternalServerError))
	}
}

func (h *PredictHandler) allow(c echo.Context, endpoint string, perSec float64) bool {
	if !h.limits.Enabled || perSec <= 0 {
		return true
	}
	burst := h.limits.Burst
	if burst < 1 {
		burst = 1
	}
	return h.limiter.Allow(endpoint+":"+c.RealIP(), burst, perSec)
}
