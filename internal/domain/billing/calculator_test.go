package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/medorders/medorders/internal/domain/patients"
	"github.com/medorders/medorders/pkg/money"
)

func activePolicy(ref time.Time) *patients.InsurancePolicy {
	return &patients.InsurancePolicy{
		Company:        "Sura",
		PolicyNumber:   "POL-100",
		Active:         true,
		ExpirationDate: ref.AddDate(0, 6, 0),
	}
}

func TestComputeInsuredUnderCap(t *testing.T) {
	ref := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	calc, err := Compute(money.Money(200_000), activePolicy(ref), 0, ref)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if calc.Copay != 50_000 {
		t.Errorf("copay = %d, want 50000", calc.Copay)
	}
	if calc.InsuranceCoverage != 150_000 {
		t.Errorf("coverage = %d, want 150000", calc.InsuranceCoverage)
	}
	if calc.PatientResponsibility != 50_000 {
		t.Errorf("patient responsibility = %d, want 50000", calc.PatientResponsibility)
	}
	if calc.RequiresFullPayment {
		t.Error("insured patient should not require full payment")
	}
}

func TestComputeUninsured(t *testing.T) {
	ref := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	calc, err := Compute(money.Money(45_000), nil, 0, ref)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !calc.RequiresFullPayment {
		t.Error("uninsured patient should require full payment")
	}
	if calc.Copay != 45_000 {
		t.Errorf("copay = %d, want 45000", calc.Copay)
	}
	if calc.InsuranceCoverage != 0 {
		t.Errorf("coverage = %d, want 0", calc.InsuranceCoverage)
	}
}

func TestComputeCapExceeded(t *testing.T) {
	ref := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)

	_, err := Compute(money.Money(200_000), activePolicy(ref), money.Money(980_000), ref)
	if !errors.Is(err, ErrCopaymentLimitExceeded) {
		t.Fatalf("err = %v, want ErrCopaymentLimitExceeded", err)
	}
}

func TestComputeCopayNeverExceedsTotal(t *testing.T) {
	ref := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	calc, err := Compute(money.Money(30_000), activePolicy(ref), 0, ref)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if calc.Copay != 30_000 {
		t.Errorf("copay = %d, want the full total 30000", calc.Copay)
	}
	if calc.InsuranceCoverage != 0 {
		t.Errorf("coverage = %d, want 0", calc.InsuranceCoverage)
	}
}

func TestComputeExpiredPolicyFallsBackToFullPayment(t *testing.T) {
	ref := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	expired := &patients.InsurancePolicy{
		Company:        "Sura",
		PolicyNumber:   "POL-101",
		Active:         true,
		ExpirationDate: ref.AddDate(0, -1, 0),
	}

	calc, err := Compute(money.Money(80_000), expired, 0, ref)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !calc.RequiresFullPayment {
		t.Error("expired policy should require full payment")
	}
}

func TestEligible(t *testing.T) {
	ref := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if Eligible(nil, ref) {
		t.Error("nil policy should not be eligible")
	}
	p := activePolicy(ref)
	if !Eligible(p, ref) {
		t.Error("active unexpired policy should be eligible")
	}
	p.Active = false
	if Eligible(p, ref) {
		t.Error("inactive policy should not be eligible")
	}
}
