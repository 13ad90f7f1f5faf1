package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Si la nueva cantidad no es positiva se conserva el costo actual (evita división por cero).
// El resultado se redondea a entity.Scale decimales, la misma escala con que se persiste.
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return costoActual
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return RoundCost(num.Div(sum))
}

// RoundCost lleva un costo o valor a la escala de persistencia.
func RoundCost(v decimal.Decimal) decimal.Decimal {
	return v.Round(entity.Scale)
}

// ApplyInbound devuelve el saldo resultante de recibir qty unidades a unitCost.
// No modifica el saldo recibido.
func ApplyInbound(b entity.Balance, qty, unitCost decimal.Decimal) entity.Balance {
	b.UnitCost = CostCalculator(b.Quantity, b.UnitCost, qty, unitCost)
	b.Quantity = b.Quantity.Add(qty)
	return b
}

// ApplyOutbound devuelve el saldo resultante de retirar qty unidades.
// El costo unitario nunca cambia en una salida. Sin stock negativo la cantidad
// se recorta en cero.
func ApplyOutbound(b entity.Balance, qty decimal.Decimal, allowNegative bool) entity.Balance {
	b.Quantity = b.Quantity.Sub(qty)
	if !allowNegative && b.Quantity.IsNegative() {
		b.Quantity = decimal.Zero
	}
	return b
}
