package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/internal/domain/orders"
	"github.com/medorders/medorders/internal/domain/patients"
	"github.com/medorders/medorders/pkg/money"
)

type mockOrderStore struct {
	byNumber map[string]*orders.Order
}

func (m *mockOrderStore) GetByNumber(_ context.Context, number string) (*orders.Order, error) {
	o, ok := m.byNumber[number]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderStore) Update(_ context.Context, o *orders.Order) error {
	m.byNumber[o.Number] = o
	return nil
}

type mockPatientStore struct {
	byCard map[string]*patients.Patient
}

func (m *mockPatientStore) GetByIDCard(_ context.Context, idCard string) (*patients.Patient, error) {
	p, ok := m.byCard[idCard]
	if !ok {
		return nil, patients.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientStore) GetByID(_ context.Context, id uuid.UUID) (*patients.Patient, error) {
	for _, p := range m.byCard {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, patients.ErrNotFound
}

type yearKey struct {
	patient uuid.UUID
	year    int
}

type mockLedger struct {
	totals map[yearKey]money.Money
	events []*patients.CopayEvent
}

func newMockLedger() *mockLedger {
	return &mockLedger{totals: make(map[yearKey]money.Money)}
}

func (m *mockLedger) YearTotal(_ context.Context, patientID uuid.UUID, year int) (money.Money, error) {
	return m.totals[yearKey{patientID, year}], nil
}

func (m *mockLedger) LockYearTotal(_ context.Context, patientID uuid.UUID, year int) (money.Money, error) {
	return m.totals[yearKey{patientID, year}], nil
}

func (m *mockLedger) Append(_ context.Context, ev *patients.CopayEvent) error {
	m.events = append(m.events, ev)
	m.totals[yearKey{ev.PatientID, ev.Year}] += ev.Amount
	return nil
}

func (m *mockLedger) Events(_ context.Context, patientID uuid.UUID, year int) ([]*patients.CopayEvent, error) {
	var out []*patients.CopayEvent
	for _, ev := range m.events {
		if ev.PatientID == patientID && ev.Year == year {
			out = append(out, ev)
		}
	}
	return out, nil
}

type mockBillingRepo struct {
	byOrder map[string]*Billing
}

func newMockBillingRepo() *mockBillingRepo {
	return &mockBillingRepo{byOrder: make(map[string]*Billing)}
}

func (m *mockBillingRepo) Create(_ context.Context, b *Billing) error {
	if _, ok := m.byOrder[b.OrderNumber]; ok {
		return ErrAlreadyBilled
	}
	b.ID = uuid.New()
	m.byOrder[b.OrderNumber] = b
	return nil
}

func (m *mockBillingRepo) GetByOrderNumber(_ context.Context, orderNumber string) (*Billing, error) {
	b, ok := m.byOrder[orderNumber]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *mockBillingRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*Billing, int, error) {
	var out []*Billing
	for _, b := range m.byOrder {
		if b.PatientID == patientID {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (m *mockBillingRepo) List(_ context.Context, _, _ int) ([]*Billing, int, error) {
	var out []*Billing
	for _, b := range m.byOrder {
		out = append(out, b)
	}
	return out, len(out), nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func testOrder(t *testing.T, number string, patientID uuid.UUID, cost money.Money) *orders.Order {
	t.Helper()
	o, err := orders.New(number, patientID, "1098765432", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		orders.MedicationItem{
			MedicationID:      "ibuprofen-400",
			Dosage:            "400mg",
			TreatmentDuration: "5 days",
			LineCost:          cost,
		})
	if err != nil {
		t.Fatalf("orders.New: %v", err)
	}
	return o
}

func testPatient(idCard string, policy *patients.InsurancePolicy) *patients.Patient {
	return &patients.Patient{
		ID:       uuid.New(),
		IDCard:   idCard,
		FullName: "Ana Gomez",
		Policy:   policy,
	}
}

type billingFixture struct {
	svc    *Service
	repo   *mockBillingRepo
	orders *mockOrderStore
	ledger *mockLedger
}

func newBillingFixture(o *orders.Order, p *patients.Patient) *billingFixture {
	repo := newMockBillingRepo()
	orderStore := &mockOrderStore{byNumber: map[string]*orders.Order{o.Number: o}}
	patientStore := &mockPatientStore{byCard: map[string]*patients.Patient{p.IDCard: p}}
	ledger := newMockLedger()
	return &billingFixture{
		svc:    NewService(repo, orderStore, patientStore, ledger, passthroughTx{}),
		repo:   repo,
		orders: orderStore,
		ledger: ledger,
	}
}

func TestGenerateInsured(t *testing.T) {
	invoiceDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := testPatient("1017223344", activePolicy(invoiceDate))
	o := testOrder(t, "100001", p.ID, money.Money(200_000))
	f := newBillingFixture(o, p)

	b, err := f.svc.Generate(context.Background(), GenerateInput{
		OrderNumber:   "100001",
		PatientIDCard: p.IDCard,
		DoctorName:    "Dr. Rivas",
		InvoiceDate:   invoiceDate,
		GeneratedBy:   "admin-1",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if b.Copay != 50_000 || b.InsuranceCoverage != 150_000 {
		t.Errorf("split = copay %d coverage %d, want 50000/150000", b.Copay, b.InsuranceCoverage)
	}
	if b.FinalAmount != 0 {
		t.Errorf("final amount = %d, want 0", b.FinalAmount)
	}
	if b.AppliedMedications != 1 {
		t.Errorf("applied medications = %d, want 1", b.AppliedMedications)
	}
	if o.Status != orders.StatusBilled {
		t.Errorf("order status = %s, want billed", o.Status)
	}

	stored, err := f.repo.GetByOrderNumber(context.Background(), "100001")
	if err != nil {
		t.Fatalf("GetByOrderNumber: %v", err)
	}
	if b.GeneratedAt.IsZero() || !stored.GeneratedAt.Equal(b.GeneratedAt) {
		t.Errorf("stored generated_at = %s, want the response timestamp %s", stored.GeneratedAt, b.GeneratedAt)
	}

	total, _ := f.ledger.YearTotal(context.Background(), p.ID, 2026)
	if total != 50_000 {
		t.Errorf("ledger total = %d, want 50000", total)
	}
	if len(f.ledger.events) != 1 || f.ledger.events[0].BillingID != b.ID {
		t.Errorf("ledger events = %+v, want one event linked to billing %s", f.ledger.events, b.ID)
	}
}

func TestGenerateUninsuredRequiresFullPayment(t *testing.T) {
	invoiceDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := testPatient("1017223344", nil)
	o := testOrder(t, "100002", p.ID, money.Money(45_000))
	f := newBillingFixture(o, p)

	b, err := f.svc.Generate(context.Background(), GenerateInput{
		OrderNumber:   "100002",
		PatientIDCard: p.IDCard,
		DoctorName:    "Dr. Rivas",
		InvoiceDate:   invoiceDate,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !b.RequiresFullPayment {
		t.Error("uninsured billing should require full payment")
	}
	if b.Copay != 45_000 || b.InsuranceCoverage != 0 {
		t.Errorf("split = copay %d coverage %d, want 45000/0", b.Copay, b.InsuranceCoverage)
	}
}

func TestGenerateCapExceededLeavesNoTrace(t *testing.T) {
	invoiceDate := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	p := testPatient("1017223344", activePolicy(invoiceDate))
	o := testOrder(t, "100003", p.ID, money.Money(200_000))
	f := newBillingFixture(o, p)
	f.ledger.totals[yearKey{p.ID, 2026}] = 980_000

	_, err := f.svc.Generate(context.Background(), GenerateInput{
		OrderNumber:   "100003",
		PatientIDCard: p.IDCard,
		DoctorName:    "Dr. Rivas",
		InvoiceDate:   invoiceDate,
	})
	if !errors.Is(err, ErrCopaymentLimitExceeded) {
		t.Fatalf("err = %v, want ErrCopaymentLimitExceeded", err)
	}
	if o.Status == orders.StatusBilled {
		t.Error("order must not be billed after a cap failure")
	}
	if len(f.ledger.events) != 0 {
		t.Errorf("ledger gained %d events, want 0", len(f.ledger.events))
	}
	if total := f.ledger.totals[yearKey{p.ID, 2026}]; total != 980_000 {
		t.Errorf("ledger total = %d, want untouched 980000", total)
	}
	if _, err := f.repo.GetByOrderNumber(context.Background(), "100003"); !errors.Is(err, ErrNotFound) {
		t.Error("no billing record should exist after a cap failure")
	}
}

func TestGenerateAlreadyBilled(t *testing.T) {
	invoiceDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := testPatient("1017223344", activePolicy(invoiceDate))
	o := testOrder(t, "100004", p.ID, money.Money(60_000))
	f := newBillingFixture(o, p)

	in := GenerateInput{
		OrderNumber:   "100004",
		PatientIDCard: p.IDCard,
		DoctorName:    "Dr. Rivas",
		InvoiceDate:   invoiceDate,
	}
	if _, err := f.svc.Generate(context.Background(), in); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if _, err := f.svc.Generate(context.Background(), in); !errors.Is(err, ErrAlreadyBilled) {
		t.Fatalf("second Generate err = %v, want ErrAlreadyBilled", err)
	}
}

func TestGenerateWrongPatient(t *testing.T) {
	invoiceDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	owner := testPatient("1017223344", nil)
	other := testPatient("1099887766", nil)
	o := testOrder(t, "100005", owner.ID, money.Money(60_000))

	f := newBillingFixture(o, owner)
	f.svc.patients.(*mockPatientStore).byCard[other.IDCard] = other

	_, err := f.svc.Generate(context.Background(), GenerateInput{
		OrderNumber:   "100005",
		PatientIDCard: other.IDCard,
		DoctorName:    "Dr. Rivas",
		InvoiceDate:   invoiceDate,
	})
	if err == nil {
		t.Fatal("expected an error billing another patient's order")
	}
}

func TestCopaySummary(t *testing.T) {
	p := testPatient("1017223344", nil)
	o := testOrder(t, "100006", p.ID, money.Money(60_000))
	f := newBillingFixture(o, p)
	f.ledger.Append(context.Background(), &patients.CopayEvent{
		PatientID: p.ID, Year: 2026, Amount: 150_000, BillingID: uuid.New(),
	})

	summary, err := f.svc.CopaySummary(context.Background(), p.IDCard, 2026)
	if err != nil {
		t.Fatalf("CopaySummary: %v", err)
	}
	if summary.Total != 150_000 {
		t.Errorf("total = %d, want 150000", summary.Total)
	}
	if summary.RemainingAllowance != 850_000 {
		t.Errorf("remaining = %d, want 850000", summary.RemainingAllowance)
	}
	if len(summary.Events) != 1 {
		t.Errorf("events = %d, want 1", len(summary.Events))
	}
}
