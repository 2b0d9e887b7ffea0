package loan

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	loansvc "booklending/service/loan"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc loansvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func caller(c echo.Context) loansvc.Caller {
	uid, _ := c.Get("user_id").(int64)
	role, _ := c.Get("role").(string)
	return loansvc.Caller{ID: uid, Role: role}
}

// POST /v1/loans
func (h *Controller) Create(c echo.Context) error {
	var req CreateLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	create := loansvc.CreateReq{UserID: req.UserID, BookID: req.BookID}
	if req.BorrowDate != "" {
		t, err := time.Parse(time.RFC3339, req.BorrowDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "borrow_date must be RFC3339"})
		}
		create.BorrowDate = &t
	}
	if req.DueDate != "" {
		t, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "due_date must be RFC3339"})
		}
		create.DueDate = &t
	}

	l, err := h.Svc.Create(c.Request().Context(), caller(c), create)
	if err != nil {
		return h.mapErr(c, "loan create", err)
	}
	return c.JSON(http.StatusCreated, l)
}

// POST /v1/loans/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ReturnLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	var at *time.Time
	if req.ReturnDate != "" {
		t, err := time.Parse(time.RFC3339, req.ReturnDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "return_date must be RFC3339"})
		}
		at = &t
	}

	l, err := h.Svc.Return(c.Request().Context(), caller(c), id, at)
	if err != nil {
		return h.mapErr(c, "loan return", err)
	}
	return c.JSON(http.StatusOK, l)
}

// GET /v1/loans/:id
func (h *Controller) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	l, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, "loan get", err)
	}
	return c.JSON(http.StatusOK, l)
}

// GET /v1/loans
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return h.mapErr(c, "loan list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/loans/my
func (h *Controller) My(c echo.Context) error {
	cl := caller(c)
	rows, err := h.Svc.ListByUser(c.Request().Context(), cl, cl.ID)
	if err != nil {
		return h.mapErr(c, "loan my", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/loans/my-active
func (h *Controller) MyActive(c echo.Context) error {
	cl := caller(c)
	rows, err := h.Svc.ListActiveByUser(c.Request().Context(), cl, cl.ID)
	if err != nil {
		return h.mapErr(c, "loan my active", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/loans/user/:userId
func (h *Controller) ByUser(c echo.Context) error {
	uid, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || uid <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	rows, err := h.Svc.ListByUser(c.Request().Context(), caller(c), uid)
	if err != nil {
		return h.mapErr(c, "loan by user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/loans/user/:userId/active
func (h *Controller) ActiveByUser(c echo.Context) error {
	uid, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || uid <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	rows, err := h.Svc.ListActiveByUser(c.Request().Context(), caller(c), uid)
	if err != nil {
		return h.mapErr(c, "loan active by user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/loans/overdue
func (h *Controller) ListOverdue(c echo.Context) error {
	rows, err := h.Svc.ListOverdue(c.Request().Context())
	if err != nil {
		return h.mapErr(c, "loan overdue", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/loans/sweep-overdue
func (h *Controller) Sweep(c echo.Context) error {
	n, err := h.Svc.Sweep(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return h.mapErr(c, "loan sweep", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transitioned": n})
}

// GET /v1/loans/stats
func (h *Controller) Stats(c echo.Context) error {
	st, err := h.Svc.GetStats(c.Request().Context())
	if err != nil {
		return h.mapErr(c, "loan stats", err)
	}
	return c.JSON(http.StatusOK, st)
}

// DELETE /v1/loans/:id
func (h *Controller) Remove(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Remove(c.Request().Context(), id); err != nil {
		return h.mapErr(c, "loan remove", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

func (h *Controller) mapErr(c echo.Context, op string, err error) error {
	switch loansvc.Code(err) {
	case loansvc.ErrBookNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
	case loansvc.ErrLoanNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
	case loansvc.ErrNoCopies:
		return c.JSON(http.StatusConflict, echo.Map{"message": "no copies available"})
	case loansvc.ErrAlreadyBorrowed:
		return c.JSON(http.StatusConflict, echo.Map{"message": "user already has this book on loan"})
	case loansvc.ErrLoanStillOpen:
		return c.JSON(http.StatusConflict, echo.Map{"message": "loan is still open; return it first"})
	case loansvc.ErrOverdueBooks:
		return c.JSON(http.StatusPreconditionFailed, echo.Map{"message": "user has overdue books"})
	case loansvc.ErrAlreadyReturned:
		return c.JSON(http.StatusPreconditionFailed, echo.Map{"message": "loan already returned"})
	case loansvc.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case loansvc.ErrInvalidInput:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid input"})
	case loansvc.ErrCorruption:
		h.Log.Error(op, "err", err, "corruption", true)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "inventory corruption detected"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
