package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/lending-service/lending/internal/model"
)

func (h *Handler) Checkout(c echo.Context) error {
	var req model.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if key := c.Request().Header.Get(HeaderIdempotencyKey); key != "" && h.idem != nil {
		return h.checkoutOnce(c, key, req)
	}

	rec, err := h.borrowSvc.Checkout(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ReturnItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.borrowSvc.ReturnItem(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ListActive(c echo.Context) error {
	borrowerID, err := paramID(c, "borrowerId")
	if err != nil {
		return err
	}
	items, err := h.borrowSvc.ListActive(c.Request().Context(), borrowerID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) ListOverdue(c echo.Context) error {
	items, err := h.borrowSvc.ListOverdue(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

// ListInRange lists borrowings checked out between startDate and endDate inclusive.
func (h *Handler) ListInRange(c echo.Context) error {
	start, end, ok, err := dateRange(c)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "startDate and endDate are required")
	}
	items, err := h.borrowSvc.ListInRange(c.Request().Context(), start, end)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) OverdueLastMonth(c echo.Context) error {
	w := h.borrowSvc.LastMonth()
	items, err := h.borrowSvc.ListOverdueInWindow(c.Request().Context(), w)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, model.Report{Window: w, Items: nonNil(items)})
}

func (h *Handler) CheckedOutLastMonth(c echo.Context) error {
	w := h.borrowSvc.LastMonth()
	items, err := h.borrowSvc.ListCheckedOutInWindow(c.Request().Context(), w)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, model.Report{Window: w, Items: nonNil(items)})
}

// Summary reports over [startDate, endDate) when both are given, over the last month otherwise.
func (h *Handler) Summary(c echo.Context) error {
	start, end, ok, err := dateRange(c)
	if err != nil {
		return err
	}
	w := h.borrowSvc.LastMonth()
	if ok {
		w = model.DateWindow{Start: start, End: end}
	}
	sum, err := h.borrowSvc.Summary(c.Request().Context(), w)
	if err != nil {
		return h.httpError(err)
	}
	sum.Overdue = nonNil(sum.Overdue)
	sum.CheckedOut = nonNil(sum.CheckedOut)
	return c.JSON(http.StatusOK, sum)
}

// dateRange reads startDate and endDate. ok is false when neither is set.
func dateRange(c echo.Context) (start, end time.Time, ok bool, err error) {
	rawStart, rawEnd := c.QueryParam("startDate"), c.QueryParam("endDate")
	if rawStart == "" && rawEnd == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, false, echo.NewHTTPError(http.StatusBadRequest, "startDate and endDate are required")
	}
	if start, err = model.ParseDate(rawStart); err != nil {
		return time.Time{}, time.Time{}, false, echo.NewHTTPError(http.StatusBadRequest, "startDate must be YYYY-MM-DD")
	}
	if end, err = model.ParseDate(rawEnd); err != nil {
		return time.Time{}, time.Time{}, false, echo.NewHTTPError(http.StatusBadRequest, "endDate must be YYYY-MM-DD")
	}
	return start, end, true, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
