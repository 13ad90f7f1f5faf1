package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestBalance_EqualAEscalaDePersistencia(t *testing.T) {
	d := decimal.RequireFromString
	stored := &entity.Balance{ItemID: "i", WarehouseID: "w", Quantity: d("1.000000"), UnitCost: d("1.666667")}

	// NUMERIC(20,6) devuelve ceros a la derecha; no es descuadre.
	assert.True(t, stored.Equal(&entity.Balance{ItemID: "i", WarehouseID: "w", Quantity: d("1"), UnitCost: d("1.6666670")}))
	// Diferencias por debajo de la escala se redondean antes de comparar.
	assert.True(t, stored.Equal(&entity.Balance{ItemID: "i", WarehouseID: "w", Quantity: d("1"), UnitCost: d("1.66666666")}))
	// Una unidad en el sexto decimal sí lo es.
	assert.False(t, stored.Equal(&entity.Balance{ItemID: "i", WarehouseID: "w", Quantity: d("1"), UnitCost: d("1.666668")}))
	assert.False(t, stored.Equal(&entity.Balance{ItemID: "i", WarehouseID: "x", Quantity: d("1"), UnitCost: d("1.666667")}))

	var nilBalance *entity.Balance
	assert.True(t, nilBalance.Equal(nil))
	assert.False(t, stored.Equal(nil))
}
