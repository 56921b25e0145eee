package billing

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medorders/medorders/internal/domain/orders"
	"github.com/medorders/medorders/internal/domain/patients"
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
	g := api.Group("/billing", auth.RequireRole("admin"))
	g.POST("", h.Generate)
	g.GET("", h.List)
	g.GET("/:orderNumber", h.GetByOrderNumber)

	api.GET("/patients/:idCard/copay-summary", h.CopaySummary, auth.RequireRole("admin"))
}

type generateRequest struct {
	OrderNumber   string `json:"order_number"`
	PatientIDCard string `json:"patient_id_card"`
	DoctorName    string `json:"doctor_name"`
	InvoiceDate   string `json:"invoice_date"`
}

func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	invoiceDate, err := time.Parse(dateLayout, req.InvoiceDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invoice_date must be DD/MM/YYYY")
	}
	generatedBy := auth.UserIDFromContext(c.Request().Context())

	b, err := h.svc.Generate(c.Request().Context(), GenerateInput{
		OrderNumber:   req.OrderNumber,
		PatientIDCard: req.PatientIDCard,
		DoctorName:    req.DoctorName,
		InvoiceDate:   invoiceDate,
		GeneratedBy:   generatedBy,
	})
	if err != nil {
		return billingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetByOrderNumber(c echo.Context) error {
	b, err := h.svc.GetByOrderNumber(c.Request().Context(), c.Param("orderNumber"))
	if err != nil {
		return billingHTTPError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CopaySummary(c echo.Context) error {
	year := time.Now().Year()
	if y := c.QueryParam("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		year = parsed
	}
	summary, err := h.svc.CopaySummary(c.Request().Context(), c.Param("idCard"), year)
	if err != nil {
		return billingHTTPError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func billingHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, orders.ErrNotFound), errors.Is(err, patients.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyBilled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrCopaymentLimitExceeded), errors.Is(err, ErrPolicyExpired):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, orders.ErrInvalidOrderState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
