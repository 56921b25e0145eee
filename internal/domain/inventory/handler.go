package inventory

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medorders/medorders/internal/platform/auth"
	"github.com/medorders/medorders/pkg/money"
	"github.com/medorders/medorders/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/catalog")
	g.GET("", h.List, auth.RequireRole("admin", "doctor", "nurse"))
	g.GET("/:id", h.Get, auth.RequireRole("admin", "doctor", "nurse"))

	write := api.Group("/catalog", auth.RequireRole("admin"))
	write.POST("", h.Create)
	write.PUT("/:id", h.Update)
}

type entryRequest struct {
	Kind      Kind   `json:"kind"`
	RefID     string `json:"ref_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Active    *bool  `json:"active"`
}

func (h *Handler) Create(c echo.Context) error {
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	price, err := money.New(req.UnitPrice)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e := &Entry{
		Kind:      req.Kind,
		RefID:     req.RefID,
		Name:      req.Name,
		UnitPrice: price,
		Active:    true,
	}
	if req.Active != nil {
		e.Active = *req.Active
	}
	if err := h.svc.Create(c.Request().Context(), e); err != nil {
		return catalogHTTPError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return catalogHTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return catalogHTTPError(err)
	}
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name != "" {
		e.Name = req.Name
	}
	if req.UnitPrice != 0 {
		price, err := money.New(req.UnitPrice)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		e.UnitPrice = price
	}
	if req.Active != nil {
		e.Active = *req.Active
	}
	if err := h.svc.Update(c.Request().Context(), e); err != nil {
		return catalogHTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), Kind(c.QueryParam("kind")), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func catalogHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrRefTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
