package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item ítem de inventario (dato de referencia, solo lectura para el kardex).
// ReferencePurchasePrice es el costo de respaldo cuando aún no existe saldo.
type Item struct {
	ID                     string
	Code                   string // código único
	Name                   string
	ReferencePurchasePrice decimal.Decimal
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
