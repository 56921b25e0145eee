package orders

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const uniqueViolation = "23505"

const orderCols = `id, order_number, patient_id, doctor_id_card, order_date,
	category, status, result_text, diagnosis_text, follow_up_for,
	version_id, created_at, updated_at`

func (r *repoPG) scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.PatientID, &o.DoctorIDCard, &o.Date,
		&o.Category, &o.Status, &o.ResultText, &o.DiagnosisText, &o.FollowUpFor,
		&o.VersionID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_order (id, order_number, patient_id, doctor_id_card, order_date,
			category, status, result_text, diagnosis_text, follow_up_for, version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1)`,
		o.ID, o.Number, o.PatientID, o.DoctorIDCard, o.Date,
		o.Category, o.Status, o.ResultText, o.DiagnosisText, o.FollowUpFor)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrNumberTaken, o.Number)
		}
		return err
	}
	o.VersionID = 1
	return r.insertLines(ctx, o.ID, o.Lines)
}

func (r *repoPG) insertLines(ctx context.Context, orderID uuid.UUID, lines []Line) error {
	for _, l := range lines {
		var (
			refID              string
			dosage, duration   *string
			quantity           *int
			frequency          *string
			specialistRequired bool
			specialtyID        *string
			cost               money.Money
		)
		switch it := l.Item.(type) {
		case MedicationItem:
			refID, dosage, duration, cost = it.MedicationID, &it.Dosage, &it.TreatmentDuration, it.LineCost
		case ProcedureItem:
			refID, quantity, frequency, cost = it.ProcedureID, &it.Quantity, &it.Frequency, it.LineCost
			specialistRequired, specialtyID = it.SpecialistRequired, it.SpecialtyID
		case DiagnosticAidItem:
			refID, quantity, cost = it.DiagnosticID, &it.Quantity, it.LineCost
			specialistRequired, specialtyID = it.SpecialistRequired, it.SpecialtyID
		default:
			return fmt.Errorf("unsupported item type %T", l.Item)
		}

		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO clinical_order_item (order_id, item_number, category, ref_id,
				dosage, treatment_duration, quantity, frequency,
				specialist_required, specialty_id, cost)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			orderID, l.Number, l.Item.Category(), refID,
			dosage, duration, quantity, frequency,
			specialistRequired, specialtyID, cost.Int64())
		if err != nil {
			return fmt.Errorf("insert item %d: %w", l.Number, err)
		}
	}
	return nil
}

func (r *repoPG) loadLines(ctx context.Context, orderID uuid.UUID) ([]Line, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT item_number, category, ref_id, dosage, treatment_duration,
			quantity, frequency, specialist_required, specialty_id, cost
		FROM clinical_order_item WHERE order_id = $1 ORDER BY item_number`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var (
			number             int
			category           Category
			refID              string
			dosage, duration   *string
			quantity           *int
			frequency          *string
			specialistRequired bool
			specialtyID        *string
			cost               int64
		)
		if err := rows.Scan(&number, &category, &refID, &dosage, &duration,
			&quantity, &frequency, &specialistRequired, &specialtyID, &cost); err != nil {
			return nil, err
		}

		var item Item
		switch category {
		case CategoryMedication:
			item = MedicationItem{
				MedicationID:      refID,
				Dosage:            deref(dosage),
				TreatmentDuration: deref(duration),
				LineCost:          money.Money(cost),
			}
		case CategoryProcedure:
			item = ProcedureItem{
				ProcedureID:        refID,
				Quantity:           derefInt(quantity),
				Frequency:          deref(frequency),
				SpecialistRequired: specialistRequired,
				SpecialtyID:        specialtyID,
				LineCost:           money.Money(cost),
			}
		case CategoryDiagnostic:
			item = DiagnosticAidItem{
				DiagnosticID:       refID,
				Quantity:           derefInt(quantity),
				SpecialistRequired: specialistRequired,
				SpecialtyID:        specialtyID,
				LineCost:           money.Money(cost),
			}
		default:
			return nil, fmt.Errorf("unknown item category %q", category)
		}
		lines = append(lines, Line{Number: number, Item: item})
	}
	return lines, rows.Err()
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := r.scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM clinical_order WHERE order_number = $1`, number))
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.loadLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repoPG) Update(ctx context.Context, o *Order) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_order
		SET status=$3, result_text=$4, diagnosis_text=$5,
			version_id=version_id+1, updated_at=NOW()
		WHERE id = $1 AND version_id = $2`,
		o.ID, o.VersionID, o.Status, o.ResultText, o.DiagnosisText)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s was modified concurrently", o.Number)
	}
	o.VersionID++

	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM clinical_order_item WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	return r.insertLines(ctx, o.ID, o.Lines)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clinical_order WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orderCols+` FROM clinical_order WHERE patient_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(ctx, rows, total)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_order`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orderCols+` FROM clinical_order ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(ctx, rows, total)
}

func (r *repoPG) collect(ctx context.Context, rows pgx.Rows, total int) ([]*Order, int, error) {
	var items []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	// item lists are loaded after iteration; pgx allows one open query per conn
	for _, o := range items {
		lines, err := r.loadLines(ctx, o.ID)
		if err != nil {
			return nil, 0, err
		}
		o.Lines = lines
	}
	return items, total, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
