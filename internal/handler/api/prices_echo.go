package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	models "FinLoad/internal/domain/models"
	"FinLoad/internal/usecase"
	xhttp "FinLoad/pkg/http"
	xlogger "FinLoad/pkg/logger"
	xutil "FinLoad/pkg/util"
)

// defaultLookback is the range served when from is omitted.
const defaultLookback = 30 * 24 * time.Hour

// PricesEchoHandler serves stored price history.
type PricesEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.PricesUseCase
	now    func() time.Time
}

func NewPricesEchoHandler(logger *xlogger.Logger, uc *usecase.PricesUseCase) *PricesEchoHandler {
	return &PricesEchoHandler{logger: logger, uc: uc, now: time.Now}
}

func (h *PricesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/prices", h.Prices)
	g.GET("/symbols/:symbol/latest", h.Latest)
}

func (h *PricesEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.uc.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "store": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Prices returns bars for symbol in [from, to]. A date-only to covers the whole day.
func (h *PricesEchoHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := h.now().UTC()
	if req.To != "" {
		t, ok := xutil.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid to %q", req.To))
		}
		if len(req.To) == len(models.DateLayout) {
			t = xutil.EndOfDay(t)
		}
		to = t
	}
	from := to.Add(-defaultLookback)
	if req.From != "" {
		t, ok := xutil.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid from %q", req.From))
		}
		from = t
	}

	res, err := h.uc.GetPrices(c.Request().Context(), usecase.GetPricesParams{
		Symbol: strings.ToUpper(req.Symbol),
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Error("prices usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PricesEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestPriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	row, err := h.uc.Latest(c.Request().Context(), strings.ToUpper(req.Symbol))
	if err != nil {
		h.logger.Error("latest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, row)
}
