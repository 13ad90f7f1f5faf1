package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Replay recalcula desde cero el saldo de (itemID, warehouseID) a partir de su historial.
// Los movimientos se recorren en orden cronológico (MovementDate, luego ID); la bodega
// destino suma y la bodega origen resta, tanto en cantidad como en valor.
//
// Tras cada entrada con cantidad positiva el valor acumulado se expresa como
// cantidad × promedio redondeado, igual que el saldo incremental, que solo guarda el
// promedio a entity.Scale decimales. Así un historial consistente reproduce el saldo exacto.
//
// Resultado: Quantity = max(0, cantidad acumulada); UnitCost = valor / cantidad si la
// cantidad acumulada es positiva, cero en otro caso. Es una función pura e idempotente.
func Replay(itemID, warehouseID string, movements []*entity.Movement) entity.Balance {
	ordered := make([]*entity.Movement, 0, len(movements))
	for _, m := range movements {
		if m.ItemID == itemID && m.Touches(warehouseID) {
			ordered = append(ordered, m)
		}
	}
	SortChronological(ordered)

	qty := decimal.Zero
	value := decimal.Zero
	for _, m := range ordered {
		movValue := m.Quantity.Mul(m.UnitCost)
		if m.SourceWarehouseID == warehouseID {
			qty = qty.Sub(m.Quantity)
			value = value.Sub(movValue)
		}
		if m.DestinationWarehouseID == warehouseID {
			qty = qty.Add(m.Quantity)
			value = value.Add(movValue)
			if qty.IsPositive() {
				value = qty.Mul(RoundCost(value.Div(qty)))
			}
		}
	}

	out := entity.Balance{ItemID: itemID, WarehouseID: warehouseID, Quantity: decimal.Zero, UnitCost: decimal.Zero}
	if qty.IsPositive() {
		out.Quantity = qty
		out.UnitCost = RoundCost(value.Div(qty))
	}
	return out
}

// SortChronological ordena por fecha de negocio ascendente y desempata por ID.
func SortChronological(movements []*entity.Movement) {
	sort.SliceStable(movements, func(i, j int) bool {
		a, b := movements[i], movements[j]
		if !a.MovementDate.Equal(b.MovementDate) {
			return a.MovementDate.Before(b.MovementDate)
		}
		return a.ID < b.ID
	})
}

// SortNewestFirst ordena por fecha de negocio descendente y desempata por ID descendente.
func SortNewestFirst(movements []*entity.Movement) {
	sort.SliceStable(movements, func(i, j int) bool {
		a, b := movements[i], movements[j]
		if !a.MovementDate.Equal(b.MovementDate) {
			return a.MovementDate.After(b.MovementDate)
		}
		return a.ID > b.ID
	})
}
