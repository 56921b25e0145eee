package patients

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/pkg/money"
)

var (
	// ErrNotFound is returned when a patient does not exist.
	ErrNotFound = errors.New("patient not found")

	// ErrIDCardTaken is returned when a patient with the same id card
	// already exists.
	ErrIDCardTaken = errors.New("patient id card already registered")
)

var idCardPattern = regexp.MustCompile(`^\d+$`)

// InsurancePolicy is a patient's single optional insurance policy.
type InsurancePolicy struct {
	Company        string    `db:"insurance_company" json:"company"`
	PolicyNumber   string    `db:"insurance_policy_number" json:"policy_number"`
	Active         bool      `db:"insurance_active" json:"active"`
	ExpirationDate time.Time `db:"insurance_expires_at" json:"expiration_date"`
}

// RemainingDays returns the number of whole days from ref until the policy
// expires, 0 when ref is past the expiration date or the policy is absent.
func (p *InsurancePolicy) RemainingDays(ref time.Time) int {
	if p == nil {
		return 0
	}
	days := int(p.ExpirationDate.Sub(ref).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Patient maps to the patient table. The copay running total is not stored
// here; it lives in the year-scoped ledger.
type Patient struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	IDCard    string           `db:"id_card" json:"id_card"`
	FullName  string           `db:"full_name" json:"full_name"`
	BirthDate *time.Time       `db:"birth_date" json:"birth_date,omitempty"`
	Gender    *string          `db:"gender" json:"gender,omitempty"`
	Address   *string          `db:"address" json:"address,omitempty"`
	Phone     *string          `db:"phone" json:"phone,omitempty"`
	Email     *string          `db:"email" json:"email,omitempty"`
	Policy    *InsurancePolicy `json:"insurance_policy,omitempty"`
	VersionID int              `db:"version_id" json:"version_id"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields a new patient record requires.
func (p *Patient) Validate() error {
	if !idCardPattern.MatchString(p.IDCard) {
		return fmt.Errorf("id card must be numeric, got %q", p.IDCard)
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("full name is required")
	}
	if p.Policy != nil {
		if strings.TrimSpace(p.Policy.Company) == "" {
			return fmt.Errorf("insurance company is required")
		}
		if strings.TrimSpace(p.Policy.PolicyNumber) == "" {
			return fmt.Errorf("insurance policy number is required")
		}
	}
	return nil
}

// GetVersionID returns the current version.
func (p *Patient) GetVersionID() int { return p.VersionID }

// SetVersionID sets the current version.
func (p *Patient) SetVersionID(v int) { p.VersionID = v }

// CopayEvent is one append-only entry in the patient's copay ledger. The
// year total is derived from these events; the summary row exists so the
// running total can be locked and bumped atomically during billing.
type CopayEvent struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	PatientID  uuid.UUID   `db:"patient_id" json:"patient_id"`
	Year       int         `db:"year" json:"year"`
	Amount     money.Money `db:"amount" json:"amount"`
	BillingID  uuid.UUID   `db:"billing_id" json:"billing_id"`
	RecordedAt time.Time   `db:"recorded_at" json:"recorded_at"`
}
