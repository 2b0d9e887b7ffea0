package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	usersvc "booklending/service/user"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc usersvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/auth/profile
func (h *Controller) Profile(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	u, err := h.Svc.Profile(c.Request().Context(), uid)
	if err != nil {
		return h.mapErr(c, "profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// GET /v1/users
func (h *Controller) List(c echo.Context) error {
	users, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return h.mapErr(c, "user list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": users})
}

// GET /v1/users/:id
func (h *Controller) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	u, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, "user get", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// PUT /v1/users/:id
func (h *Controller) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpdateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	u, err := h.Svc.Update(c.Request().Context(), id, usersvc.UpdateReq{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		return h.mapErr(c, "user update", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// DELETE /v1/users/:id
func (h *Controller) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return h.mapErr(c, "user delete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

func (h *Controller) mapErr(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, usersvc.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	case errors.Is(err, usersvc.ErrBadInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
	case errors.Is(err, usersvc.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"message": "email already registered"})
	case errors.Is(err, usersvc.ErrHasLoans):
		return c.JSON(http.StatusConflict, echo.Map{"message": "user has loan records"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
