package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/medorders/medorders/internal/domain/patients"
	"github.com/medorders/medorders/pkg/money"
)

// Policy constants. The standard copay is charged per billed order; the cap
// bounds what a patient pays in copayments within one calendar year.
const (
	StandardCopay  money.Money = 50_000
	AnnualCopayCap money.Money = 1_000_000
)

var (
	// ErrCopaymentLimitExceeded is returned when charging the standard copay
	// would push the patient past the annual cap. The operation fails hard:
	// no billing record is written and the ledger is untouched.
	ErrCopaymentLimitExceeded = errors.New("annual copayment limit exceeded")

	// ErrPolicyExpired distinguishes "has a policy, but it is inactive or
	// expired" from "has no policy" for callers that care.
	ErrPolicyExpired = errors.New("insurance policy expired")

	// ErrNotFound is returned when a billing record does not exist.
	ErrNotFound = errors.New("billing not found")

	// ErrAlreadyBilled is returned when the order has already been billed.
	ErrAlreadyBilled = errors.New("order already billed")
)

// Calculation is the payment split for one order. It is a value object:
// computed once, never mutated.
type Calculation struct {
	TotalCost             money.Money `json:"total_cost"`
	Copay                 money.Money `json:"copay_amount"`
	InsuranceCoverage     money.Money `json:"insurance_coverage"`
	PatientResponsibility money.Money `json:"patient_responsibility"`
	RequiresFullPayment   bool        `json:"requires_full_payment"`
}

// Eligible reports whether the policy covers anything at ref: it must be
// present, active and unexpired.
func Eligible(policy *patients.InsurancePolicy, ref time.Time) bool {
	return policy != nil && policy.Active && policy.RemainingDays(ref) > 0
}

// Compute derives the payment split for an order total given the patient's
// insurance policy and their copay total for the billing year. It is pure:
// committing the resulting copay to the ledger is the caller's job.
//
// Without eligible insurance the patient pays the full total. With it, the
// patient pays the standard copay (never more than the total) and insurance
// covers the rest. If the standard copay no longer fits under the annual
// cap the whole operation fails with ErrCopaymentLimitExceeded.
func Compute(total money.Money, policy *patients.InsurancePolicy, yearTotal money.Money, ref time.Time) (Calculation, error) {
	if !Eligible(policy, ref) {
		return Calculation{
			TotalCost:             total,
			Copay:                 total,
			InsuranceCoverage:     0,
			PatientResponsibility: total,
			RequiresFullPayment:   true,
		}, nil
	}

	remaining := money.Money(0)
	if yearTotal < AnnualCopayCap {
		remaining = AnnualCopayCap - yearTotal
	}
	if StandardCopay > remaining {
		return Calculation{}, fmt.Errorf("%w: standard copay %s exceeds remaining allowance %s",
			ErrCopaymentLimitExceeded, StandardCopay, remaining)
	}

	copay := money.Min(StandardCopay, total)
	coverage, err := total.Sub(copay)
	if err != nil {
		return Calculation{}, err
	}
	return Calculation{
		TotalCost:             total,
		Copay:                 copay,
		InsuranceCoverage:     coverage,
		PatientResponsibility: copay,
		RequiresFullPayment:   false,
	}, nil
}
