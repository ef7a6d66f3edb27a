package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
	"github.com/bibliotec/catalog-service/pkg/auth"
	md "github.com/bibliotec/catalog-service/pkg/middleware"
	"github.com/bibliotec/catalog-service/pkg/validate"
)

type Handler struct {
	catalogSvc CatalogService
	log        *zap.Logger
}

func New(catalogSvc CatalogService, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc: catalogSvc,
		log:        log,
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

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/readers", h.ListReaders, auth.Require(auth.OpManageReaders))
	api.POST("/readers", h.RegisterReader, auth.Require(auth.OpManageReaders))
	api.DELETE("/readers/:readerId", h.DeleteReader, auth.Require(auth.OpManageReaders))

	api.GET("/books", h.ListBooks, auth.Require(auth.OpBrowseCatalog))
	api.POST("/books", h.AddBook, auth.Require(auth.OpManageBooks))
	api.DELETE("/books/:bookId", h.DeleteBook, auth.Require(auth.OpManageBooks))
	api.GET("/books/:bookId/availability", h.Availability, auth.Require(auth.OpBrowseCatalog))

	api.GET("/orders", h.ListOrders, auth.Require(auth.OpIssueOrder))
	api.POST("/orders", h.CreateOrder, auth.Require(auth.OpCreateOrder))
	api.GET("/orders/code/:code", h.LookupOrder, auth.Require(auth.OpIssueOrder))
	api.POST("/orders/:orderId/issue", h.IssueOrder, auth.Require(auth.OpIssueOrder))

	api.GET("/loans", h.ListLoans, auth.Require(auth.OpManageLoans))
	api.POST("/loans", h.CreateLoan, auth.Require(auth.OpManageLoans))
	api.POST("/loans/:loanId/return", h.ReturnLoan, auth.Require(auth.OpManageLoans))

	api.GET("/reports/overdue", h.OverdueReport, auth.Require(auth.OpViewReports))
	api.GET("/reports/popular", h.PopularReport, auth.Require(auth.OpViewReports))
	api.GET("/reports/summary", h.SummaryReport, auth.Require(auth.OpViewReports))

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps the service error taxonomy to HTTP statuses.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrUnavailable),
		errors.Is(err, errs.ErrAlreadyIssued),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrInUse),
		errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" is invalid")
	}
	return id, nil
}

func (h *Handler) RegisterReader(c echo.Context) error {
	var req model.CreateReaderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	reader, err := h.catalogSvc.RegisterReader(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, reader)
}

func (h *Handler) ListReaders(c echo.Context) error {
	readers, err := h.catalogSvc.ListReaders(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, readers)
}

func (h *Handler) DeleteReader(c echo.Context) error {
	id, err := pathID(c, "readerId")
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteReader(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	book, err := h.catalogSvc.AddBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

// ListBooks lists the catalog; with any of the title/author/keywords query
// params present it becomes a substring search.
func (h *Handler) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()
	req := model.SearchBooksRequest{
		Title:    c.QueryParam("title"),
		Author:   c.QueryParam("author"),
		Keywords: c.QueryParam("keywords"),
	}
	if req.Title == "" && req.Author == "" && req.Keywords == "" {
		books, err := h.catalogSvc.ListBooks(ctx)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, books)
	}
	books, err := h.catalogSvc.SearchBooks(ctx, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := pathID(c, "bookId")
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteBook(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Availability(c echo.Context) error {
	id, err := pathID(c, "bookId")
	if err != nil {
		return err
	}
	resp, err := h.catalogSvc.Availability(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var req model.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	resp, err := h.catalogSvc.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListOrders(c echo.Context) error {
	orders, err := h.catalogSvc.ListOrders(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) LookupOrder(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	order, err := h.catalogSvc.LookupPendingOrderByCode(c.Request().Context(), code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) IssueOrder(c echo.Context) error {
	id, err := pathID(c, "orderId")
	if err != nil {
		return err
	}
	var req model.IssueOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	loan, err := h.catalogSvc.IssueOrder(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) CreateLoan(c echo.Context) error {
	var req model.CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	loan, err := h.catalogSvc.CreateLoan(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) ListLoans(c echo.Context) error {
	loans, err := h.catalogSvc.ListLoans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ReturnLoan(c echo.Context) error {
	id, err := pathID(c, "loanId")
	if err != nil {
		return err
	}
	var req model.ReturnLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	loan, err := h.catalogSvc.ReturnLoan(c.Request().Context(), id, req.ReturnDate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// asOfDate reads the asOf query param, defaulting to today.
func asOfDate(c echo.Context) (model.Date, error) {
	asOfParam := c.QueryParam("asOf")
	if asOfParam == "" {
		now := time.Now().UTC()
		return model.NewDate(now.Year(), now.Month(), now.Day()), nil
	}
	t, err := time.Parse(time.DateOnly, asOfParam)
	if err != nil {
		return model.Date{}, echo.NewHTTPError(http.StatusBadRequest, "asOf is invalid")
	}
	return model.Date{Time: t}, nil
}

func (h *Handler) OverdueReport(c echo.Context) error {
	asOf, err := asOfDate(c)
	if err != nil {
		return err
	}
	loans, err := h.catalogSvc.ListOverdue(c.Request().Context(), asOf)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) PopularReport(c echo.Context) error {
	books, err := h.catalogSvc.PopularBooks(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) SummaryReport(c echo.Context) error {
	asOf, err := asOfDate(c)
	if err != nil {
		return err
	}
	summary, err := h.catalogSvc.ReportSummary(c.Request().Context(), asOf)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}
