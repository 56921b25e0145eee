package patients

import (
	"strings"
	"testing"
	"time"
)

func TestRemainingDays(t *testing.T) {
	ref := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	var p *InsurancePolicy

	cases := []struct {
		name   string
		policy InsurancePolicy
		want   int
	}{
		{"thirty days left", InsurancePolicy{ExpirationDate: ref.AddDate(0, 0, 30)}, 30},
		{"already expired", InsurancePolicy{ExpirationDate: ref.AddDate(0, 0, -5)}, 0},
		{"no expiration date", InsurancePolicy{}, 0},
	}
	for _, tc := range cases {
		if got := tc.policy.RemainingDays(ref); got != tc.want {
			t.Errorf("%s: RemainingDays = %d, want %d", tc.name, got, tc.want)
		}
	}

	if p.RemainingDays(ref) != 0 {
		t.Error("nil policy should report zero remaining days")
	}
}

func TestPatientValidate(t *testing.T) {
	valid := Patient{IDCard: "1017223344", FullName: "Ana Gomez"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := []struct {
		name string
		p    Patient
		want string
	}{
		{"alpha id card", Patient{IDCard: "10A7", FullName: "Ana"}, "id card"},
		{"empty id card", Patient{FullName: "Ana"}, "id card"},
		{"missing name", Patient{IDCard: "1017"}, "full name"},
		{"policy without company", Patient{IDCard: "1017", FullName: "Ana", Policy: &InsurancePolicy{PolicyNumber: "P-1"}}, "company"},
		{"policy without number", Patient{IDCard: "1017", FullName: "Ana", Policy: &InsurancePolicy{Company: "Sura"}}, "policy number"},
	}
	for _, tc := range cases {
		err := tc.p.Validate()
		if err == nil {
			t.Errorf("%s: expected an error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %q, want mention of %q", tc.name, err, tc.want)
		}
	}
}
