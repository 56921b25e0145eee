package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/pkg/money"
)

var (
	// ErrNotFound is returned when a catalog entry does not exist.
	ErrNotFound = errors.New("catalog entry not found")

	// ErrRefTaken is returned when (kind, ref id) is already cataloged.
	ErrRefTaken = errors.New("catalog reference already taken")
)

// Kind is the catalog family an entry prices. The values match the order
// item categories so prices can be resolved straight from an order line.
type Kind string

const (
	KindMedication Kind = "medication"
	KindProcedure  Kind = "procedure"
	KindDiagnostic Kind = "diagnostic"
)

func (k Kind) valid() bool {
	switch k {
	case KindMedication, KindProcedure, KindDiagnostic:
		return true
	}
	return false
}

// Entry maps to the inventory_price table: one priced catalog item. RefID is
// the identifier order lines carry (medication id, procedure id, diagnostic
// id) and is unique within its kind.
type Entry struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	Kind      Kind        `db:"kind" json:"kind"`
	RefID     string      `db:"ref_id" json:"ref_id"`
	Name      string      `db:"name" json:"name"`
	UnitPrice money.Money `db:"unit_price" json:"unit_price"`
	Active    bool        `db:"active" json:"active"`
	VersionID int         `db:"version_id" json:"version_id"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

func (e *Entry) Validate() error {
	if !e.Kind.valid() {
		return fmt.Errorf("unknown catalog kind %q", e.Kind)
	}
	if strings.TrimSpace(e.RefID) == "" {
		return fmt.Errorf("ref id is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if e.UnitPrice <= 0 {
		return fmt.Errorf("unit price must be positive")
	}
	return nil
}

// GetVersionID returns the current version.
func (e *Entry) GetVersionID() int { return e.VersionID }

// SetVersionID sets the current version.
func (e *Entry) SetVersionID(v int) { e.VersionID = v }
