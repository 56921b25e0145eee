package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/internal/domain/patients"
	"github.com/medorders/medorders/pkg/money"
)

// Billing maps to the billing table: the persisted snapshot of one
// Calculation, linked to an order. Created exactly once per order and never
// updated afterwards.
type Billing struct {
	ID                    uuid.UUID   `db:"id" json:"id"`
	OrderNumber           string      `db:"order_number" json:"order_number"`
	PatientID             uuid.UUID   `db:"patient_id" json:"patient_id"`
	PatientName           string      `db:"patient_name" json:"patient_name"`
	DoctorName            string      `db:"doctor_name" json:"doctor_name"`
	InvoiceDate           time.Time   `db:"invoice_date" json:"invoice_date"`
	TotalCost             money.Money `db:"total_cost" json:"total_cost"`
	Copay                 money.Money `db:"copay_amount" json:"copay_amount"`
	InsuranceCoverage     money.Money `db:"insurance_coverage" json:"insurance_coverage"`
	FinalAmount           money.Money `db:"final_amount" json:"final_amount"`
	RequiresFullPayment   bool        `db:"requires_full_payment" json:"requires_full_payment"`
	AppliedMedications    int         `db:"applied_medications" json:"applied_medications"`
	AppliedProcedures     int         `db:"applied_procedures" json:"applied_procedures"`
	AppliedDiagnosticAids int         `db:"applied_diagnostic_aids" json:"applied_diagnostic_aids"`
	GeneratedAt           time.Time   `db:"generated_at" json:"generated_at"`
	GeneratedBy           string      `db:"generated_by" json:"generated_by"`
}

// CopaySummary reports a patient's ledger position for one calendar year.
type CopaySummary struct {
	Year               int                    `json:"year"`
	Total              money.Money            `json:"total"`
	RemainingAllowance money.Money            `json:"remaining_allowance"`
	Events             []*patients.CopayEvent `json:"events"`
}
