package orders

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medorders/medorders/internal/platform/auth"
	"github.com/medorders/medorders/pkg/money"
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
	g := api.Group("/orders")

	read := g.Group("", auth.RequireRole("doctor", "nurse", "admin"))
	read.GET("", h.List)
	read.GET("/:number", h.Get)

	doctor := g.Group("", auth.RequireRole("doctor"))
	doctor.POST("", h.Create)
	doctor.POST("/:number/items", h.AddItem)
	doctor.PUT("/:number/items/:itemNumber", h.UpdateItem)
	doctor.DELETE("/:number/items/:itemNumber", h.RemoveItem)
	doctor.POST("/:number/diagnosis", h.RecordDiagnosis)

	g.POST("/:number/results", h.RecordResults, auth.RequireRole("nurse", "doctor"))
}

// Item payloads. Each family has its own shape; a request carries exactly
// one non-empty family.

type medicationPayload struct {
	MedicationID      string `json:"medication_id"`
	Dosage            string `json:"dosage"`
	TreatmentDuration string `json:"treatment_duration"`
	Cost              int64  `json:"cost"`
}

type procedurePayload struct {
	ProcedureID        string  `json:"procedure_id"`
	Quantity           int     `json:"quantity"`
	Frequency          string  `json:"frequency"`
	SpecialistRequired bool    `json:"specialist_required"`
	SpecialtyID        *string `json:"specialty_id"`
	Cost               int64   `json:"cost"`
}

type diagnosticAidPayload struct {
	DiagnosticID       string  `json:"diagnostic_id"`
	Quantity           int     `json:"quantity"`
	SpecialistRequired bool    `json:"specialist_required"`
	SpecialtyID        *string `json:"specialty_id"`
	Cost               int64   `json:"cost"`
}

type itemsPayload struct {
	Medications    []medicationPayload    `json:"medications"`
	Procedures     []procedurePayload     `json:"procedures"`
	DiagnosticAids []diagnosticAidPayload `json:"diagnostic_aids"`
}

func (p itemsPayload) families() int {
	n := 0
	if len(p.Medications) > 0 {
		n++
	}
	if len(p.Procedures) > 0 {
		n++
	}
	if len(p.DiagnosticAids) > 0 {
		n++
	}
	return n
}

func (p itemsPayload) toItems() ([]Item, error) {
	var items []Item
	for _, m := range p.Medications {
		cost, err := money.New(m.Cost)
		if err != nil {
			return nil, err
		}
		items = append(items, MedicationItem{
			MedicationID:      m.MedicationID,
			Dosage:            m.Dosage,
			TreatmentDuration: m.TreatmentDuration,
			LineCost:          cost,
		})
	}
	for _, pr := range p.Procedures {
		cost, err := money.New(pr.Cost)
		if err != nil {
			return nil, err
		}
		items = append(items, ProcedureItem{
			ProcedureID:        pr.ProcedureID,
			Quantity:           pr.Quantity,
			Frequency:          pr.Frequency,
			SpecialistRequired: pr.SpecialistRequired,
			SpecialtyID:        pr.SpecialtyID,
			LineCost:           cost,
		})
	}
	for _, d := range p.DiagnosticAids {
		cost, err := money.New(d.Cost)
		if err != nil {
			return nil, err
		}
		items = append(items, DiagnosticAidItem{
			DiagnosticID:       d.DiagnosticID,
			Quantity:           d.Quantity,
			SpecialistRequired: d.SpecialistRequired,
			SpecialtyID:        d.SpecialtyID,
			LineCost:           cost,
		})
	}
	return items, nil
}

type createOrderRequest struct {
	OrderNumber   string `json:"order_number"`
	PatientIDCard string `json:"patient_id_card"`
	DoctorIDCard  string `json:"doctor_id_card"`
	OrderDate     string `json:"order_date"`
	itemsPayload
}

func (h *Handler) Create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.families() != 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "an order carries exactly one item family")
	}
	date, err := time.Parse(dateLayout, req.OrderDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "order_date must be DD/MM/YYYY")
	}
	items, err := req.toItems()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	o, err := h.svc.Create(c.Request().Context(), req.OrderNumber, req.PatientIDCard, req.DoctorIDCard, date, items)
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) Get(c echo.Context) error {
	o, err := h.svc.Get(c.Request().Context(), c.Param("number"))
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
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

func (h *Handler) AddItem(c echo.Context) error {
	item, err := bindSingleItem(c)
	if err != nil {
		return err
	}
	o, err := h.svc.AddItem(c.Request().Context(), c.Param("number"), item)
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	itemNumber, err := strconv.Atoi(c.Param("itemNumber"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item number")
	}
	item, err := bindSingleItem(c)
	if err != nil {
		return err
	}
	o, err := h.svc.UpdateItem(c.Request().Context(), c.Param("number"), itemNumber, item)
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	itemNumber, err := strconv.Atoi(c.Param("itemNumber"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item number")
	}
	o, err := h.svc.RemoveItem(c.Request().Context(), c.Param("number"), itemNumber)
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}

type recordResultsRequest struct {
	ResultText string `json:"result_text"`
}

func (h *Handler) RecordResults(c echo.Context) error {
	var req recordResultsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.RecordResults(c.Request().Context(), c.Param("number"), req.ResultText)
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}

type recordDiagnosisRequest struct {
	DiagnosisText string           `json:"diagnosis_text"`
	FollowUp      *followUpRequest `json:"follow_up"`
}

type followUpRequest struct {
	OrderNumber string `json:"order_number"`
	OrderDate   string `json:"order_date"`
	itemsPayload
}

func (h *Handler) RecordDiagnosis(c echo.Context) error {
	var req recordDiagnosisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var followUp *FollowUp
	if req.FollowUp != nil {
		if req.FollowUp.families() != 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "a follow-up order carries exactly one item family")
		}
		date, err := time.Parse(dateLayout, req.FollowUp.OrderDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "follow_up.order_date must be DD/MM/YYYY")
		}
		items, err := req.FollowUp.toItems()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		followUp = &FollowUp{
			OrderNumber: req.FollowUp.OrderNumber,
			Date:        date,
			Items:       items,
		}
	}
	o, err := h.svc.RecordDiagnosis(c.Request().Context(), c.Param("number"), req.DiagnosisText, followUp)
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}

// bindSingleItem decodes a request carrying exactly one item in exactly one
// family.
func bindSingleItem(c echo.Context) (Item, error) {
	var p itemsPayload
	if err := c.Bind(&p); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.families() != 1 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request carries exactly one item family")
	}
	items, err := p.toItems()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(items) != 1 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request carries exactly one item")
	}
	return items[0], nil
}

func orderHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNumberTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidOrderState):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
