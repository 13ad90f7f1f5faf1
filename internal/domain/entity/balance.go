package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scale decimales con que se guardan cantidades, costos y valores (NUMERIC(20,6)).
const Scale int32 = 6

// BalanceKey identidad compuesta de un saldo.
type BalanceKey struct {
	ItemID      string
	WarehouseID string
}

// Balance saldo actual de un ítem en una bodega, derivado de los movimientos.
// Se crea con el primer movimiento del par y nunca se elimina.
type Balance struct {
	ItemID      string
	WarehouseID string
	Quantity    decimal.Decimal // puede ser negativo solo si se permitió stock negativo
	UnitCost    decimal.Decimal // costo promedio ponderado
	UpdatedAt   time.Time
}

// NewBalance construye un saldo vacío para el par.
func NewBalance(itemID, warehouseID string) *Balance {
	return &Balance{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Quantity:    decimal.Zero,
		UnitCost:    decimal.Zero,
	}
}

// Key devuelve la identidad del saldo.
func (b *Balance) Key() BalanceKey {
	return BalanceKey{ItemID: b.ItemID, WarehouseID: b.WarehouseID}
}

// Value valorización del saldo (Quantity * UnitCost).
func (b *Balance) Value() decimal.Decimal {
	return b.Quantity.Mul(b.UnitCost)
}

// Equal compara cantidad y costo a Scale decimales (ignora UpdatedAt).
func (b *Balance) Equal(o *Balance) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.ItemID == o.ItemID && b.WarehouseID == o.WarehouseID &&
		b.Quantity.Round(Scale).Equal(o.Quantity.Round(Scale)) &&
		b.UnitCost.Round(Scale).Equal(o.UnitCost.Round(Scale))
}
