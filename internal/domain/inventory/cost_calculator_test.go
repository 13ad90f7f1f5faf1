package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// CostCalculator
// ──────────────────────────────────────────────────────────────────────────────

func TestCostCalculator(t *testing.T) {
	cases := []struct {
		name                      string
		qty, cost, inQty, inCost string
		want                      string
	}{
		{"saldo vacío adopta costo entrante", "0", "0", "100", "10", "10"},
		{"promedio exacto", "100", "10", "50", "16", "12"},
		{"mismo costo no cambia", "10", "5", "10", "5", "5"},
		{"resultado no positivo conserva costo", "-50", "7", "50", "99", "7"},
		{"negativo que vuelve a positivo", "-10", "4", "20", "10", "16"},
		{"promedio periódico se redondea a seis decimales", "1", "1", "2", "2", "1.666667"},
		{"redondeo hacia arriba en el sexto decimal", "2", "1", "1", "0", "0.666667"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inventory.CostCalculator(d(tc.qty), d(tc.cost), d(tc.inQty), d(tc.inCost))
			assert.True(t, got.Equal(d(tc.want)), "esperado %s, obtenido %s", tc.want, got)
		})
	}
}

func TestApplyInbound_NoMutaOriginal(t *testing.T) {
	b := entity.Balance{ItemID: "i", WarehouseID: "w", Quantity: d("100"), UnitCost: d("10")}
	got := inventory.ApplyInbound(b, d("50"), d("16"))

	assert.True(t, got.Quantity.Equal(d("150")))
	assert.True(t, got.UnitCost.Equal(d("12")))
	assert.True(t, b.Quantity.Equal(d("100")), "el saldo original no debe cambiar")
}

func TestApplyOutbound(t *testing.T) {
	b := entity.Balance{Quantity: d("125"), UnitCost: d("12")}

	t.Run("salida normal conserva costo", func(t *testing.T) {
		got := inventory.ApplyOutbound(b, d("25"), false)
		assert.True(t, got.Quantity.Equal(d("100")))
		assert.True(t, got.UnitCost.Equal(d("12")))
	})

	t.Run("sin stock negativo recorta en cero", func(t *testing.T) {
		got := inventory.ApplyOutbound(b, d("1000"), false)
		assert.True(t, got.Quantity.IsZero())
		assert.True(t, got.UnitCost.Equal(d("12")))
	})

	t.Run("con stock negativo queda negativo y conserva costo", func(t *testing.T) {
		got := inventory.ApplyOutbound(b, d("1000"), true)
		assert.True(t, got.Quantity.Equal(d("-875")))
		assert.True(t, got.UnitCost.Equal(d("12")))
	})
}
