package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medorders/medorders/internal/platform/db"
	"github.com/medorders/medorders/pkg/money"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const uniqueViolation = "23505"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const billingCols = `id, order_number, patient_id, patient_name, doctor_name, invoice_date,
	total_cost, copay_amount, insurance_coverage, final_amount, requires_full_payment,
	applied_medications, applied_procedures, applied_diagnostic_aids,
	generated_at, generated_by`

func (r *repoPG) scanBilling(row pgx.Row) (*Billing, error) {
	var (
		b                     Billing
		total, copay          int64
		coverage, finalAmount int64
	)
	err := row.Scan(&b.ID, &b.OrderNumber, &b.PatientID, &b.PatientName, &b.DoctorName, &b.InvoiceDate,
		&total, &copay, &coverage, &finalAmount, &b.RequiresFullPayment,
		&b.AppliedMedications, &b.AppliedProcedures, &b.AppliedDiagnosticAids,
		&b.GeneratedAt, &b.GeneratedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.TotalCost = money.Money(total)
	b.Copay = money.Money(copay)
	b.InsuranceCoverage = money.Money(coverage)
	b.FinalAmount = money.Money(finalAmount)
	return &b, nil
}

func (r *repoPG) Create(ctx context.Context, b *Billing) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing (id, order_number, patient_id, patient_name, doctor_name, invoice_date,
			total_cost, copay_amount, insurance_coverage, final_amount, requires_full_payment,
			applied_medications, applied_procedures, applied_diagnostic_aids,
			generated_at, generated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		b.ID, b.OrderNumber, b.PatientID, b.PatientName, b.DoctorName, b.InvoiceDate,
		b.TotalCost.Int64(), b.Copay.Int64(), b.InsuranceCoverage.Int64(), b.FinalAmount.Int64(),
		b.RequiresFullPayment, b.AppliedMedications, b.AppliedProcedures, b.AppliedDiagnosticAids,
		b.GeneratedAt, b.GeneratedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: order %s", ErrAlreadyBilled, b.OrderNumber)
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByOrderNumber(ctx context.Context, orderNumber string) (*Billing, error) {
	return r.scanBilling(r.conn(ctx).QueryRow(ctx,
		`SELECT `+billingCols+` FROM billing WHERE order_number = $1`, orderNumber))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Billing, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM billing WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billingCols+` FROM billing WHERE patient_id = $1
		 ORDER BY generated_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Billing, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billing`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billingCols+` FROM billing ORDER BY generated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*Billing, int, error) {
	var items []*Billing
	for rows.Next() {
		b, err := r.scanBilling(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}
