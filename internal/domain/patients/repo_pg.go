package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const patientCols = `id, id_card, full_name, birth_date, gender, address, phone, email,
	insurance_company, insurance_policy_number, insurance_active, insurance_expires_at,
	version_id, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var (
		p            Patient
		company      *string
		policyNumber *string
		active       *bool
		expiresAt    *time.Time
	)
	err := row.Scan(&p.ID, &p.IDCard, &p.FullName, &p.BirthDate, &p.Gender, &p.Address, &p.Phone, &p.Email,
		&company, &policyNumber, &active, &expiresAt,
		&p.VersionID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if company != nil && policyNumber != nil && active != nil && expiresAt != nil {
		p.Policy = &InsurancePolicy{
			Company:        *company,
			PolicyNumber:   *policyNumber,
			Active:         *active,
			ExpirationDate: *expiresAt,
		}
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	var company, policyNumber *string
	var active *bool
	var expiresAt interface{}
	if p.Policy != nil {
		company, policyNumber, active = &p.Policy.Company, &p.Policy.PolicyNumber, &p.Policy.Active
		expiresAt = p.Policy.ExpirationDate
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, id_card, full_name, birth_date, gender, address, phone, email,
			insurance_company, insurance_policy_number, insurance_active, insurance_expires_at, version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1)`,
		p.ID, p.IDCard, p.FullName, p.BirthDate, p.Gender, p.Address, p.Phone, p.Email,
		company, policyNumber, active, expiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrIDCardTaken, p.IDCard)
		}
		return err
	}
	p.VersionID = 1
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByIDCard(ctx context.Context, idCard string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id_card = $1`, idCard))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	var company, policyNumber *string
	var active *bool
	var expiresAt interface{}
	if p.Policy != nil {
		company, policyNumber, active = &p.Policy.Company, &p.Policy.PolicyNumber, &p.Policy.Active
		expiresAt = p.Policy.ExpirationDate
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient
		SET full_name=$3, birth_date=$4, gender=$5, address=$6, phone=$7, email=$8,
			insurance_company=$9, insurance_policy_number=$10, insurance_active=$11, insurance_expires_at=$12,
			version_id=version_id+1, updated_at=NOW()
		WHERE id = $1 AND version_id = $2`,
		p.ID, p.VersionID, p.FullName, p.BirthDate, p.Gender, p.Address, p.Phone, p.Email,
		company, policyNumber, active, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %s was modified concurrently", p.IDCard)
	}
	p.VersionID++
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Copay Ledger ===========

type copayLedgerPG struct{ pool *pgxpool.Pool }

func NewCopayLedgerPG(pool *pgxpool.Pool) CopayLedger { return &copayLedgerPG{pool: pool} }

func (r *copayLedgerPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *copayLedgerPG) YearTotal(ctx context.Context, patientID uuid.UUID, year int) (money.Money, error) {
	var total int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT total FROM patient_copay_year WHERE patient_id = $1 AND year = $2`,
		patientID, year).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return money.Money(total), nil
}

func (r *copayLedgerPG) LockYearTotal(ctx context.Context, patientID uuid.UUID, year int) (money.Money, error) {
	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_copay_year (patient_id, year, total, version_id)
		VALUES ($1, $2, 0, 1)
		ON CONFLICT (patient_id, year) DO NOTHING`, patientID, year); err != nil {
		return 0, err
	}
	var total int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT total FROM patient_copay_year WHERE patient_id = $1 AND year = $2 FOR UPDATE`,
		patientID, year).Scan(&total)
	if err != nil {
		return 0, err
	}
	return money.Money(total), nil
}

func (r *copayLedgerPG) Append(ctx context.Context, ev *CopayEvent) error {
	ev.ID = uuid.New()
	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO copay_event (id, patient_id, year, amount, billing_id)
		VALUES ($1,$2,$3,$4,$5)`,
		ev.ID, ev.PatientID, ev.Year, ev.Amount.Int64(), ev.BillingID); err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_copay_year
		SET total = total + $3, version_id = version_id + 1
		WHERE patient_id = $1 AND year = $2`,
		ev.PatientID, ev.Year, ev.Amount.Int64())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("copay year row missing for patient %s year %d", ev.PatientID, ev.Year)
	}
	return nil
}

func (r *copayLedgerPG) Events(ctx context.Context, patientID uuid.UUID, year int) ([]*CopayEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, year, amount, billing_id, recorded_at
		FROM copay_event WHERE patient_id = $1 AND year = $2 ORDER BY recorded_at`,
		patientID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*CopayEvent
	for rows.Next() {
		var ev CopayEvent
		var amount int64
		if err := rows.Scan(&ev.ID, &ev.PatientID, &ev.Year, &amount, &ev.BillingID, &ev.RecordedAt); err != nil {
			return nil, err
		}
		ev.Amount = money.Money(amount)
		events = append(events, &ev)
	}
	return events, rows.Err()
}
