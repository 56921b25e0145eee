package inventory

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

const entryCols = `id, kind, ref_id, name, unit_price, active, version_id, created_at, updated_at`

func (r *repoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e     Entry
		price int64
	)
	err := row.Scan(&e.ID, &e.Kind, &e.RefID, &e.Name, &price, &e.Active,
		&e.VersionID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.UnitPrice = money.Money(price)
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_price (id, kind, ref_id, name, unit_price, active, version_id)
		VALUES ($1,$2,$3,$4,$5,$6,1)`,
		e.ID, e.Kind, e.RefID, e.Name, e.UnitPrice.Int64(), e.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s/%s", ErrRefTaken, e.Kind, e.RefID)
		}
		return err
	}
	e.VersionID = 1
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM inventory_price WHERE id = $1`, id))
}

func (r *repoPG) GetByRef(ctx context.Context, kind Kind, refID string) (*Entry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM inventory_price WHERE kind = $1 AND ref_id = $2`, kind, refID))
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_price
		SET name=$3, unit_price=$4, active=$5, version_id=version_id+1, updated_at=now()
		WHERE id=$1 AND version_id=$2`,
		e.ID, e.VersionID, e.Name, e.UnitPrice.Int64(), e.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog entry %s was modified concurrently", e.ID)
	}
	e.VersionID++
	return nil
}

func (r *repoPG) List(ctx context.Context, kind Kind, limit, offset int) ([]*Entry, int, error) {
	where, args := "", []interface{}{}
	if kind != "" {
		where = " WHERE kind = $1"
		args = append(args, kind)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_price`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM inventory_price%s ORDER BY kind, ref_id LIMIT $%d OFFSET $%d`,
			entryCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
