package orders

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/pkg/money"
)

// Category is the single item family an order is restricted to. It is fixed
// when the order is created and every item on the order shares it.
type Category string

const (
	CategoryMedication Category = "medication"
	CategoryProcedure  Category = "procedure"
	CategoryDiagnostic Category = "diagnostic"
)

// Status tracks the diagnostic follow-up workflow. Orders start in
// StatusCreated and end in StatusBilled; the intermediate states apply to
// diagnostic orders only. An order never changes category; a follow-up is
// always a new order.
type Status string

const (
	StatusCreated          Status = "created"
	StatusResultsRecorded  Status = "results_recorded"
	StatusDiagnosisUpdated Status = "diagnosis_updated"
	StatusBilled           Status = "billed"
)

var (
	// ErrInvalidOrderState is returned for structural violations: a malformed
	// order number, a category mismatch on append, a duplicate item number,
	// an invalid item, or a workflow transition the order does not allow.
	ErrInvalidOrderState = errors.New("invalid order state")

	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrNumberTaken is returned when an order number already exists in the
	// store. The caller may retry with a different number.
	ErrNumberTaken = errors.New("order number already taken")
)

var (
	orderNumberPattern  = regexp.MustCompile(`^\d{1,6}$`)
	doctorIDCardPattern = regexp.MustCompile(`^\d{1,10}$`)
)

// Item is the closed set of order line variants. Concrete types are
// MedicationItem, ProcedureItem and DiagnosticAidItem; persistence and
// rendering dispatch on the concrete type.
type Item interface {
	Category() Category
	Cost() money.Money
	Validate() error
}

// MedicationItem is a prescribed medication line.
type MedicationItem struct {
	MedicationID      string      `json:"medication_id"`
	Dosage            string      `json:"dosage"`
	TreatmentDuration string      `json:"treatment_duration"`
	LineCost          money.Money `json:"cost"`
}

func (m MedicationItem) Category() Category { return CategoryMedication }
func (m MedicationItem) Cost() money.Money  { return m.LineCost }

func (m MedicationItem) Validate() error {
	if strings.TrimSpace(m.MedicationID) == "" {
		return fmt.Errorf("%w: medication id is required", ErrInvalidOrderState)
	}
	if strings.TrimSpace(m.Dosage) == "" {
		return fmt.Errorf("%w: dosage is required", ErrInvalidOrderState)
	}
	if strings.TrimSpace(m.TreatmentDuration) == "" {
		return fmt.Errorf("%w: treatment duration is required", ErrInvalidOrderState)
	}
	return nil
}

// ProcedureItem is an ordered clinical procedure line.
type ProcedureItem struct {
	ProcedureID        string      `json:"procedure_id"`
	Quantity           int         `json:"quantity"`
	Frequency          string      `json:"frequency"`
	SpecialistRequired bool        `json:"specialist_required"`
	SpecialtyID        *string     `json:"specialty_id,omitempty"`
	LineCost           money.Money `json:"cost"`
}

func (p ProcedureItem) Category() Category { return CategoryProcedure }
func (p ProcedureItem) Cost() money.Money  { return p.LineCost }

func (p ProcedureItem) Validate() error {
	if strings.TrimSpace(p.ProcedureID) == "" {
		return fmt.Errorf("%w: procedure id is required", ErrInvalidOrderState)
	}
	if p.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOrderState)
	}
	return validateSpecialist(p.SpecialistRequired, p.SpecialtyID)
}

// DiagnosticAidItem is an ordered diagnostic aid line.
type DiagnosticAidItem struct {
	DiagnosticID       string      `json:"diagnostic_id"`
	Quantity           int         `json:"quantity"`
	SpecialistRequired bool        `json:"specialist_required"`
	SpecialtyID        *string     `json:"specialty_id,omitempty"`
	LineCost           money.Money `json:"cost"`
}

func (d DiagnosticAidItem) Category() Category { return CategoryDiagnostic }
func (d DiagnosticAidItem) Cost() money.Money  { return d.LineCost }

func (d DiagnosticAidItem) Validate() error {
	if strings.TrimSpace(d.DiagnosticID) == "" {
		return fmt.Errorf("%w: diagnostic id is required", ErrInvalidOrderState)
	}
	if d.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOrderState)
	}
	return validateSpecialist(d.SpecialistRequired, d.SpecialtyID)
}

// specialty id is set if and only if a specialist is required
func validateSpecialist(required bool, specialtyID *string) error {
	if required && (specialtyID == nil || strings.TrimSpace(*specialtyID) == "") {
		return fmt.Errorf("%w: specialty id is required when a specialist is required", ErrInvalidOrderState)
	}
	if !required && specialtyID != nil {
		return fmt.Errorf("%w: specialty id must be empty when no specialist is required", ErrInvalidOrderState)
	}
	return nil
}

// Line is an item together with its number within the order. Numbers are
// unique and assigned sequentially starting at 1.
type Line struct {
	Number int  `json:"item_number"`
	Item   Item `json:"item"`
}

// Order is a clinical order: an immutable header plus a list of items of a
// single category. The header never changes after creation; items may be
// appended, updated or removed by item number, never across categories.
type Order struct {
	ID            uuid.UUID `json:"id"`
	Number        string    `json:"order_number"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorIDCard  string    `json:"doctor_id_card"`
	Date          time.Time `json:"order_date"`
	Category      Category  `json:"category"`
	Status        Status    `json:"status"`
	ResultText    *string   `json:"result_text,omitempty"`
	DiagnosisText *string   `json:"diagnosis_text,omitempty"`
	FollowUpFor   *string   `json:"follow_up_for,omitempty"`
	Lines         []Line    `json:"items"`
	VersionID     int       `json:"version_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// New creates an order whose category is fixed by the first item.
func New(number string, patientID uuid.UUID, doctorIDCard string, date time.Time, first Item) (*Order, error) {
	if !orderNumberPattern.MatchString(number) {
		return nil, fmt.Errorf("%w: order number must be 1-6 digits, got %q", ErrInvalidOrderState, number)
	}
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient id is required", ErrInvalidOrderState)
	}
	if !doctorIDCardPattern.MatchString(doctorIDCard) {
		return nil, fmt.Errorf("%w: doctor id card must be 1-10 digits, got %q", ErrInvalidOrderState, doctorIDCard)
	}
	if first == nil {
		return nil, fmt.Errorf("%w: an order requires at least one item", ErrInvalidOrderState)
	}
	if err := first.Validate(); err != nil {
		return nil, err
	}
	return &Order{
		Number:       number,
		PatientID:    patientID,
		DoctorIDCard: doctorIDCard,
		Date:         date,
		Category:     first.Category(),
		Status:       StatusCreated,
		Lines:        []Line{{Number: 1, Item: first}},
	}, nil
}

// AddItem appends item with the next sequential item number. The order is
// left unchanged if the item is invalid or of a different category.
func (o *Order) AddItem(item Item) error {
	if o.Status == StatusBilled {
		return fmt.Errorf("%w: order %s is already billed", ErrInvalidOrderState, o.Number)
	}
	if item.Category() != o.Category {
		return fmt.Errorf("%w: cannot add a %s item to a %s order", ErrInvalidOrderState, item.Category(), o.Category)
	}
	if err := item.Validate(); err != nil {
		return err
	}
	next := len(o.Lines) + 1
	for _, l := range o.Lines {
		if l.Number == next {
			return fmt.Errorf("%w: item number %d already exists", ErrInvalidOrderState, next)
		}
	}
	o.Lines = append(o.Lines, Line{Number: next, Item: item})
	return nil
}

// UpdateItem replaces the item with the given number. The replacement must
// share the order's category.
func (o *Order) UpdateItem(number int, item Item) error {
	if o.Status == StatusBilled {
		return fmt.Errorf("%w: order %s is already billed", ErrInvalidOrderState, o.Number)
	}
	if item.Category() != o.Category {
		return fmt.Errorf("%w: cannot put a %s item on a %s order", ErrInvalidOrderState, item.Category(), o.Category)
	}
	if err := item.Validate(); err != nil {
		return err
	}
	for i, l := range o.Lines {
		if l.Number == number {
			o.Lines[i].Item = item
			return nil
		}
	}
	return fmt.Errorf("%w: item %d does not exist on order %s", ErrInvalidOrderState, number, o.Number)
}

// RemoveItem removes one item by number and renumbers the remaining items so
// they stay sequential from 1. Removing the last item is not allowed; an
// order always carries at least one item.
func (o *Order) RemoveItem(number int) error {
	if o.Status == StatusBilled {
		return fmt.Errorf("%w: order %s is already billed", ErrInvalidOrderState, o.Number)
	}
	if len(o.Lines) == 1 {
		return fmt.Errorf("%w: cannot remove the last item from order %s", ErrInvalidOrderState, o.Number)
	}
	idx := -1
	for i, l := range o.Lines {
		if l.Number == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: item %d does not exist on order %s", ErrInvalidOrderState, number, o.Number)
	}
	o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
	for i := range o.Lines {
		o.Lines[i].Number = i + 1
	}
	return nil
}

// TotalCost sums the line costs. Each line's cost is the already-computed
// line total, not a per-unit price.
func (o *Order) TotalCost() money.Money {
	var total money.Money
	for _, l := range o.Lines {
		total = total.Add(l.Item.Cost())
	}
	return total
}

// RecordResults attaches result text to a diagnostic order.
func (o *Order) RecordResults(text string) error {
	if o.Category != CategoryDiagnostic {
		return fmt.Errorf("%w: results can only be recorded on diagnostic orders", ErrInvalidOrderState)
	}
	if o.Status != StatusCreated {
		return fmt.Errorf("%w: order %s is in state %s, expected %s", ErrInvalidOrderState, o.Number, o.Status, StatusCreated)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: result text is required", ErrInvalidOrderState)
	}
	o.ResultText = &text
	o.Status = StatusResultsRecorded
	return nil
}

// RecordDiagnosis attaches a doctor's diagnosis to a diagnostic order whose
// results were recorded. A follow-up order referencing this diagnosis is
// created separately with a fresh order number.
func (o *Order) RecordDiagnosis(text string) error {
	if o.Category != CategoryDiagnostic {
		return fmt.Errorf("%w: a diagnosis can only be recorded on diagnostic orders", ErrInvalidOrderState)
	}
	if o.Status != StatusResultsRecorded {
		return fmt.Errorf("%w: order %s is in state %s, expected %s", ErrInvalidOrderState, o.Number, o.Status, StatusResultsRecorded)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: diagnosis text is required", ErrInvalidOrderState)
	}
	o.DiagnosisText = &text
	o.Status = StatusDiagnosisUpdated
	return nil
}

// MarkBilled moves the order to its terminal state. Called once billing
// generation has succeeded; billed orders reject every further mutation.
func (o *Order) MarkBilled() error {
	if o.Status == StatusBilled {
		return fmt.Errorf("%w: order %s is already billed", ErrInvalidOrderState, o.Number)
	}
	o.Status = StatusBilled
	return nil
}

// GetVersionID returns the current version.
func (o *Order) GetVersionID() int { return o.VersionID }

// SetVersionID sets the current version.
func (o *Order) SetVersionID(v int) { o.VersionID = v }
