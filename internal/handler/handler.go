package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/internal/errs"
	"github.com/shelfbridge/loansync-service/internal/model"
	"github.com/shelfbridge/loansync-service/pkg/validate"
)

type Handler struct {
	svc LoanService
	log *zap.Logger
}

func New(log *zap.Logger, svc LoanService) *Handler {
	return &Handler{
		svc: svc,
		log: log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig()),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/setup", h.Setup)
	api.POST("/sync", h.Sync)

	api.GET("/loans", h.GetLoans)
	api.DELETE("/loans/:loanId", h.ReturnLoan)
	api.POST("/loans/:loanId/renew", h.RenewLoan)
	api.POST("/downloads", h.Download)

	api.GET("/holds", h.GetHolds)
	api.POST("/holds", h.CreateHold)
	api.DELETE("/holds/:holdId", h.CancelHold)
	api.POST("/holds/:holdId/suspend", h.SuspendHold)
	api.POST("/holds/:holdId/borrow", h.BorrowHold)

	api.GET("/cards", h.GetCards)
	api.GET("/books", h.GetBooks)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) Setup(c echo.Context) error {
	var req model.SetupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if err := h.svc.Setup(c.Request().Context(), req.Code); err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type syncResponse struct {
	Loans    int       `json:"loans"`
	Holds    int       `json:"holds"`
	Cards    int       `json:"cards"`
	SyncedAt time.Time `json:"syncedAt"`
}

func (h *Handler) Sync(c echo.Context) error {
	snap, err := h.svc.Sync(c.Request().Context(), true)
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, syncResponse{
		Loans:    len(snap.Loans),
		Holds:    len(snap.Holds),
		Cards:    len(snap.Cards),
		SyncedAt: snap.SyncedAt,
	})
}

func (h *Handler) GetLoans(c echo.Context) error {
	loans, err := h.svc.Loans(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ReturnLoan(c echo.Context) error {
	if err := h.svc.ReturnLoan(c.Request().Context(), c.Param("loanId")); err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RenewLoan(c echo.Context) error {
	loan, err := h.svc.RenewLoan(c.Request().Context(), c.Param("loanId"))
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) Download(c echo.Context) error {
	var req model.DownloadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	results, err := h.svc.Download(c.Request().Context(), req.LoanIDs)
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) GetHolds(c echo.Context) error {
	holds, err := h.svc.Holds(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, holds)
}

func (h *Handler) CreateHold(c echo.Context) error {
	var req model.CreateHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	hold, err := h.svc.CreateHold(c.Request().Context(), req.TitleID, req.CardID)
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusCreated, hold)
}

func (h *Handler) CancelHold(c echo.Context) error {
	if err := h.svc.CancelHold(c.Request().Context(), c.Param("holdId")); err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SuspendHold(c echo.Context) error {
	var req model.SuspendHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	hold, err := h.svc.SuspendHold(c.Request().Context(), c.Param("holdId"), req.Days)
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, hold)
}

func (h *Handler) BorrowHold(c echo.Context) error {
	loan, err := h.svc.BorrowHold(c.Request().Context(), c.Param("holdId"))
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) GetCards(c echo.Context) error {
	cards, err := h.svc.Cards(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, cards)
}

func (h *Handler) GetBooks(c echo.Context) error {
	books, err := h.svc.ListBooks(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(httpCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, books)
}

func httpCode(err error) int {
	var netErr *errs.NetworkError
	switch {
	case errors.Is(err, errs.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrLoanNotInSnapshot):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, errs.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrFormatUnavailable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
