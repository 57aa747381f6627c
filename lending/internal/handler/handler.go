package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	mw "github.com/Astemirdum/lending-service/pkg/middleware"
	"github.com/Astemirdum/lending-service/pkg/validate"
)

type Limits struct {
	Checkout int
	Return   int
	Window   time.Duration
}

var defaultLimits = Limits{
	Checkout: 5,
	Return:   10,
	Window:   5 * time.Minute,
}

type Handler struct {
	borrowSvc  BorrowingService
	catalogSvc CatalogService
	idem       IdempotencyStore
	limits     Limits
	log        *zap.Logger
}

type Option func(*Handler)

// WithIdempotency enables Idempotency-Key replay for checkouts.
func WithIdempotency(store IdempotencyStore) Option {
	return func(h *Handler) {
		h.idem = store
	}
}

// WithLimits sets the per client limits of the checkout and return endpoints.
// Zero fields keep the defaults.
func WithLimits(l Limits) Option {
	return func(h *Handler) {
		if l.Checkout > 0 {
			h.limits.Checkout = l.Checkout
		}
		if l.Return > 0 {
			h.limits.Return = l.Return
		}
		if l.Window > 0 {
			h.limits.Window = l.Window
		}
	}
}

func New(borrowSvc BorrowingService, catalogSvc CatalogService, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		borrowSvc:  borrowSvc,
		catalogSvc: catalogSvc,
		limits:     defaultLimits,
		log:        log.Named("handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
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
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		mw.NewRateLimiter(apiRPS),
	)

	borrows := api.Group("/borrows")
	borrows.POST("/checkout", h.Checkout,
		mw.NewWindowLimiter(h.limits.Checkout, h.limits.Window, "Too many checkout requests, please try again later"))
	borrows.PUT("/return/:id", h.ReturnItem,
		mw.NewWindowLimiter(h.limits.Return, h.limits.Window, "Too many return requests, please try again later"))
	borrows.GET("/current/:borrowerId", h.ListActive)
	borrows.GET("/overdue", h.ListOverdue)
	borrows.GET("/range", h.ListInRange)
	borrows.GET("/report/overdue-last-month", h.OverdueLastMonth)
	borrows.GET("/report/last-month", h.CheckedOutLastMonth)
	borrows.GET("/report/summary", h.Summary)

	books := api.Group("/books")
	books.POST("", h.CreateBook)
	books.GET("", h.SearchBooks)
	books.GET("/:id", h.GetBook)
	books.PATCH("/:id", h.UpdateBook)
	books.POST("/:id/copies", h.ProvisionCopies)
	books.DELETE("/:id", h.DeleteBook)

	borrowers := api.Group("/borrowers")
	borrowers.POST("", h.CreateBorrower)
	borrowers.GET("", h.ListBorrowers)
	borrowers.GET("/:id", h.GetBorrower)
	borrowers.PATCH("/:id", h.UpdateBorrower)
	borrowers.DELETE("/:id", h.DeleteBorrower)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps error kinds onto status codes. Store failures are logged and
// hidden behind a generic message.
func (h *Handler) httpError(err error) *echo.HTTPError {
	switch errs.Kind(err) {
	case errs.ErrNotFound:
		return echo.NewHTTPError(http.StatusNotFound, errs.Message(err))
	case errs.ErrConflict, errs.ErrIntegrity:
		return echo.NewHTTPError(http.StatusConflict, errs.Message(err))
	case errs.ErrInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, errs.Message(err))
	}
	h.log.Error("internal", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
