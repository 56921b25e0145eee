package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/pkg/money"
)

func testDate() time.Time {
	return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
}

func medItem(id string, cost money.Money) MedicationItem {
	return MedicationItem{
		MedicationID:      id,
		Dosage:            "400mg",
		TreatmentDuration: "5 days",
		LineCost:          cost,
	}
}

func diagItem(id string, cost money.Money) DiagnosticAidItem {
	return DiagnosticAidItem{DiagnosticID: id, Quantity: 1, LineCost: cost}
}

func TestNewFixesCategory(t *testing.T) {
	o, err := New("100001", uuid.New(), "1098765432", testDate(), medItem("ibuprofen-400", 10_000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.Category != CategoryMedication {
		t.Errorf("category = %s, want medication", o.Category)
	}
	if o.Status != StatusCreated {
		t.Errorf("status = %s, want created", o.Status)
	}
	if len(o.Lines) != 1 || o.Lines[0].Number != 1 {
		t.Errorf("lines = %+v, want a single line numbered 1", o.Lines)
	}
}

func TestNewRejectsBadNumber(t *testing.T) {
	for _, number := range []string{"", "1234567", "12a4", "-12"} {
		if _, err := New(number, uuid.New(), "1098765432", testDate(), medItem("m", 1)); !errors.Is(err, ErrInvalidOrderState) {
			t.Errorf("New(%q) err = %v, want ErrInvalidOrderState", number, err)
		}
	}
}

func TestAddItemRejectsOtherCategory(t *testing.T) {
	o, err := New("100001", uuid.New(), "1098765432", testDate(), medItem("ibuprofen-400", 10_000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.AddItem(diagItem("xray-chest", 80_000)); !errors.Is(err, ErrInvalidOrderState) {
		t.Fatalf("err = %v, want ErrInvalidOrderState", err)
	}
	if len(o.Lines) != 1 {
		t.Errorf("lines = %d, want 1 (order unchanged after rejection)", len(o.Lines))
	}
}

func TestItemNumbersStaySequential(t *testing.T) {
	o, _ := New("100001", uuid.New(), "1098765432", testDate(), medItem("a", 1_000))
	if err := o.AddItem(medItem("b", 2_000)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := o.AddItem(medItem("c", 3_000)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if err := o.RemoveItem(2); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(o.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(o.Lines))
	}
	for i, l := range o.Lines {
		if l.Number != i+1 {
			t.Errorf("line %d has number %d, want %d", i, l.Number, i+1)
		}
	}
	if o.Lines[1].Item.(MedicationItem).MedicationID != "c" {
		t.Errorf("renumbering changed item order: %+v", o.Lines)
	}
}

func TestRemoveLastItemRejected(t *testing.T) {
	o, _ := New("100001", uuid.New(), "1098765432", testDate(), medItem("a", 1_000))
	if err := o.RemoveItem(1); !errors.Is(err, ErrInvalidOrderState) {
		t.Fatalf("err = %v, want ErrInvalidOrderState", err)
	}
}

func TestUpdateItemKeepsNumber(t *testing.T) {
	o, _ := New("100001", uuid.New(), "1098765432", testDate(), medItem("a", 1_000))
	o.AddItem(medItem("b", 2_000))

	if err := o.UpdateItem(2, medItem("b2", 5_000)); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got := o.Lines[1].Item.(MedicationItem).MedicationID; got != "b2" {
		t.Errorf("item 2 = %s, want b2", got)
	}
	if err := o.UpdateItem(9, medItem("x", 1)); !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("err = %v, want ErrInvalidOrderState for missing item", err)
	}
}

func TestTotalCostSumsLineTotals(t *testing.T) {
	o, _ := New("100001", uuid.New(), "1098765432", testDate(), medItem("a", 10_000))
	o.AddItem(medItem("b", 25_000))
	if got := o.TotalCost(); got != 35_000 {
		t.Errorf("total = %d, want 35000", got)
	}
}

func TestSpecialistRequiresSpecialty(t *testing.T) {
	specialty := "radiology"

	cases := []struct {
		name string
		item Item
		ok   bool
	}{
		{"required with specialty", ProcedureItem{ProcedureID: "p", Quantity: 1, SpecialistRequired: true, SpecialtyID: &specialty, LineCost: 1}, true},
		{"required without specialty", ProcedureItem{ProcedureID: "p", Quantity: 1, SpecialistRequired: true, LineCost: 1}, false},
		{"not required with specialty", DiagnosticAidItem{DiagnosticID: "d", Quantity: 1, SpecialtyID: &specialty, LineCost: 1}, false},
		{"not required without specialty", DiagnosticAidItem{DiagnosticID: "d", Quantity: 1, LineCost: 1}, true},
	}
	for _, tc := range cases {
		err := tc.item.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidOrderState) {
			t.Errorf("%s: err = %v, want ErrInvalidOrderState", tc.name, err)
		}
	}
}

func TestDiagnosticWorkflow(t *testing.T) {
	o, err := New("200001", uuid.New(), "1098765432", testDate(), diagItem("xray-chest", 80_000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := o.RecordDiagnosis("early"); !errors.Is(err, ErrInvalidOrderState) {
		t.Fatalf("diagnosis before results: err = %v, want ErrInvalidOrderState", err)
	}

	if err := o.RecordResults("opacity in left lung"); err != nil {
		t.Fatalf("RecordResults: %v", err)
	}
	if o.Status != StatusResultsRecorded {
		t.Errorf("status = %s, want results_recorded", o.Status)
	}
	if err := o.RecordResults("again"); !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("second RecordResults err = %v, want ErrInvalidOrderState", err)
	}

	if err := o.RecordDiagnosis("pneumonia"); err != nil {
		t.Fatalf("RecordDiagnosis: %v", err)
	}
	if o.Status != StatusDiagnosisUpdated {
		t.Errorf("status = %s, want diagnosis_updated", o.Status)
	}
}

func TestResultsOnlyOnDiagnosticOrders(t *testing.T) {
	o, _ := New("100001", uuid.New(), "1098765432", testDate(), medItem("a", 1_000))
	if err := o.RecordResults("text"); !errors.Is(err, ErrInvalidOrderState) {
		t.Fatalf("err = %v, want ErrInvalidOrderState", err)
	}
}

func TestBilledOrderRejectsMutation(t *testing.T) {
	o, _ := New("100001", uuid.New(), "1098765432", testDate(), medItem("a", 1_000))
	o.AddItem(medItem("b", 2_000))
	if err := o.MarkBilled(); err != nil {
		t.Fatalf("MarkBilled: %v", err)
	}

	if err := o.AddItem(medItem("c", 1)); !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("AddItem on billed order err = %v, want ErrInvalidOrderState", err)
	}
	if err := o.UpdateItem(1, medItem("a2", 1)); !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("UpdateItem on billed order err = %v, want ErrInvalidOrderState", err)
	}
	if err := o.RemoveItem(1); !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("RemoveItem on billed order err = %v, want ErrInvalidOrderState", err)
	}
	if err := o.MarkBilled(); !errors.Is(err, ErrInvalidOrderState) {
		t.Errorf("second MarkBilled err = %v, want ErrInvalidOrderState", err)
	}
}
