package patients

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medorders/medorders/internal/platform/auth"
	"github.com/medorders/medorders/pkg/pagination"
)

const dateLayout = "02/01/2006"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients", auth.RequireRole("admin", "doctor", "nurse"))
	g.GET("", h.List)
	g.GET("/:idCard", h.GetByIDCard)

	write := api.Group("/patients", auth.RequireRole("admin"))
	write.POST("", h.Create)
	write.PUT("/:idCard", h.Update)
	write.PUT("/:idCard/insurance", h.SetPolicy)
}

type policyRequest struct {
	Company        string `json:"company"`
	PolicyNumber   string `json:"policy_number"`
	Active         bool   `json:"active"`
	ExpirationDate string `json:"expiration_date"`
}

func (r *policyRequest) toPolicy() (*InsurancePolicy, error) {
	p := &InsurancePolicy{
		Company:      r.Company,
		PolicyNumber: r.PolicyNumber,
		Active:       r.Active,
	}
	if r.ExpirationDate != "" {
		exp, err := time.Parse(dateLayout, r.ExpirationDate)
		if err != nil {
			return nil, errors.New("expiration_date must be DD/MM/YYYY")
		}
		p.ExpirationDate = exp
	}
	return p, nil
}

type patientRequest struct {
	IDCard    string         `json:"id_card"`
	FullName  string         `json:"full_name"`
	BirthDate string         `json:"birth_date"`
	Gender    *string        `json:"gender"`
	Address   *string        `json:"address"`
	Phone     *string        `json:"phone"`
	Email     *string        `json:"email"`
	Insurance *policyRequest `json:"insurance_policy"`
}

func (r *patientRequest) toPatient() (*Patient, error) {
	p := &Patient{
		IDCard:   r.IDCard,
		FullName: r.FullName,
		Gender:   r.Gender,
		Address:  r.Address,
		Phone:    r.Phone,
		Email:    r.Email,
	}
	if r.BirthDate != "" {
		bd, err := time.Parse(dateLayout, r.BirthDate)
		if err != nil {
			return nil, errors.New("birth_date must be DD/MM/YYYY")
		}
		p.BirthDate = &bd
	}
	if r.Insurance != nil {
		policy, err := r.Insurance.toPolicy()
		if err != nil {
			return nil, err
		}
		p.Policy = policy
	}
	return p, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := req.toPatient()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), p); err != nil {
		return patientHTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetByIDCard(c echo.Context) error {
	p, err := h.svc.GetByIDCard(c.Request().Context(), c.Param("idCard"))
	if err != nil {
		return patientHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	existing, err := h.svc.GetByIDCard(c.Request().Context(), c.Param("idCard"))
	if err != nil {
		return patientHTTPError(err)
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := req.toPatient()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated.ID = existing.ID
	updated.IDCard = existing.IDCard
	updated.VersionID = existing.VersionID
	if updated.Policy == nil {
		updated.Policy = existing.Policy
	}
	if err := h.svc.Update(c.Request().Context(), updated); err != nil {
		return patientHTTPError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) SetPolicy(c echo.Context) error {
	var req policyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	policy, err := req.toPolicy()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.SetPolicy(c.Request().Context(), c.Param("idCard"), policy)
	if err != nil {
		return patientHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func patientHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrIDCardTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
