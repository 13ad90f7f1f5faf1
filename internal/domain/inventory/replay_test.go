package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

var day0 = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func mov(id int64, kind entity.MovementKind, qty, cost, src, dst string, offset time.Duration) *entity.Movement {
	return &entity.Movement{
		ID:                     id,
		ItemID:                 "ITEM",
		Kind:                   kind,
		Quantity:               d(qty),
		UnitCost:               d(cost),
		TotalValue:             d(qty).Mul(d(cost)),
		SourceWarehouseID:      src,
		DestinationWarehouseID: dst,
		MovementDate:           day0.Add(offset),
	}
}

func TestReplay_EntradasYSalida(t *testing.T) {
	history := []*entity.Movement{
		mov(1, entity.KindPurchaseReceipt, "100", "10", "", "A", 0),
		mov(2, entity.KindPurchaseReceipt, "50", "16", "", "A", time.Hour),
		mov(3, entity.KindSale, "25", "12", "A", "", 2*time.Hour),
	}
	got := inventory.Replay("ITEM", "A", history)

	assert.True(t, got.Quantity.Equal(d("125")))
	assert.True(t, got.UnitCost.Equal(d("12")))
}

func TestReplay_TrasladoAfectaAmbosLados(t *testing.T) {
	history := []*entity.Movement{
		mov(1, entity.KindEntry, "150", "12", "", "A", 0),
		mov(2, entity.KindTransfer, "50", "12", "A", "B", time.Hour),
	}

	a := inventory.Replay("ITEM", "A", history)
	b := inventory.Replay("ITEM", "B", history)

	assert.True(t, a.Quantity.Equal(d("100")))
	assert.True(t, a.UnitCost.Equal(d("12")))
	assert.True(t, b.Quantity.Equal(d("50")))
	assert.True(t, b.UnitCost.Equal(d("12")))
}

func TestReplay_OrdenCronologicoNoDeInsercion(t *testing.T) {
	// El ID 2 tiene fecha de negocio anterior al ID 1.
	history := []*entity.Movement{
		mov(1, entity.KindSale, "10", "5", "A", "", time.Hour),
		mov(2, entity.KindEntry, "10", "5", "", "A", 0),
	}
	got := inventory.Replay("ITEM", "A", history)
	assert.True(t, got.Quantity.IsZero())
}

func TestReplay_SaldoNegativoSeReportaEnCero(t *testing.T) {
	history := []*entity.Movement{
		mov(1, entity.KindEntry, "10", "5", "", "A", 0),
		mov(2, entity.KindScrap, "30", "5", "A", "", time.Hour),
	}
	got := inventory.Replay("ITEM", "A", history)
	assert.True(t, got.Quantity.IsZero())
	assert.True(t, got.UnitCost.IsZero())
}

func TestReplay_IgnoraOtrosItemsYBodegas(t *testing.T) {
	other := mov(9, entity.KindEntry, "999", "1", "", "A", 0)
	other.ItemID = "OTRO"
	history := []*entity.Movement{
		mov(1, entity.KindEntry, "10", "3", "", "A", 0),
		mov(2, entity.KindEntry, "10", "7", "", "B", 0),
		other,
	}
	got := inventory.Replay("ITEM", "A", history)
	assert.True(t, got.Quantity.Equal(d("10")))
	assert.True(t, got.UnitCost.Equal(d("3")))
}

func TestReplay_Idempotente(t *testing.T) {
	history := []*entity.Movement{
		mov(1, entity.KindEntry, "3", "1", "", "A", 0),
		mov(2, entity.KindEntry, "7", "2.5", "", "A", time.Minute),
		mov(3, entity.KindExit, "4", "2.05", "A", "", 2*time.Minute),
	}
	first := inventory.Replay("ITEM", "A", history)
	second := inventory.Replay("ITEM", "A", history)
	require.True(t, first.Equal(&second))
}

func TestSortNewestFirst(t *testing.T) {
	list := []*entity.Movement{
		mov(1, entity.KindEntry, "1", "1", "", "A", 0),
		mov(2, entity.KindEntry, "1", "1", "", "A", time.Hour),
		mov(3, entity.KindEntry, "1", "1", "", "A", time.Hour),
	}
	inventory.SortNewestFirst(list)
	assert.Equal(t, []int64{3, 2, 1}, []int64{list[0].ID, list[1].ID, list[2].ID})
}

// ──────────────────────────────────────────────────────────────────────────────
// Promedios periódicos: el replay debe reproducir la escala del saldo incremental
// ──────────────────────────────────────────────────────────────────────────────

func TestReplay_PromedioPeriodicoCoincideConIncremental(t *testing.T) {
	// 1 @ 1 + 2 @ 2 = 3 @ 1.666667; dos ventas de 1 costeadas al promedio guardado.
	history := []*entity.Movement{
		mov(1, entity.KindEntry, "1", "1", "", "A", 0),
		mov(2, entity.KindEntry, "2", "2", "", "A", time.Hour),
		mov(3, entity.KindSale, "1", "1.666667", "A", "", 2*time.Hour),
		mov(4, entity.KindSale, "1", "1.666667", "A", "", 3*time.Hour),
	}

	incremental := entity.Balance{ItemID: "ITEM", WarehouseID: "A"}
	incremental = inventory.ApplyInbound(incremental, d("1"), d("1"))
	incremental = inventory.ApplyInbound(incremental, d("2"), d("2"))
	incremental = inventory.ApplyOutbound(incremental, d("1"), false)
	incremental = inventory.ApplyOutbound(incremental, d("1"), false)

	got := inventory.Replay("ITEM", "A", history)

	assert.True(t, got.Quantity.Equal(d("1")))
	assert.True(t, got.UnitCost.Equal(d("1.666667")), "obtenido %s", got.UnitCost)
	assert.True(t, incremental.Equal(&got), "incremental %s @ %s, replay %s @ %s",
		incremental.Quantity, incremental.UnitCost, got.Quantity, got.UnitCost)
}

func TestReplay_EntradaTrasSalidasPeriodicas(t *testing.T) {
	// Tras vender al promedio redondeado, la nueva entrada parte de 7 × 1.758333 = 12.308331.
	history := []*entity.Movement{
		mov(1, entity.KindEntry, "3", "1", "", "A", 0),
		mov(2, entity.KindEntry, "7", "2.5", "", "A", time.Hour),
		mov(3, entity.KindEntry, "2", "0.3", "", "A", 2*time.Hour),
		mov(4, entity.KindSale, "5", "1.758333", "A", "", 3*time.Hour),
		mov(5, entity.KindEntry, "1", "1.7", "", "A", 4*time.Hour),
	}

	incremental := entity.Balance{ItemID: "ITEM", WarehouseID: "A"}
	incremental = inventory.ApplyInbound(incremental, d("3"), d("1"))
	incremental = inventory.ApplyInbound(incremental, d("7"), d("2.5"))
	incremental = inventory.ApplyInbound(incremental, d("2"), d("0.3"))
	require.True(t, incremental.UnitCost.Equal(d("1.758333")), "obtenido %s", incremental.UnitCost)
	incremental = inventory.ApplyOutbound(incremental, d("5"), false)
	incremental = inventory.ApplyInbound(incremental, d("1"), d("1.7"))

	got := inventory.Replay("ITEM", "A", history)
	assert.True(t, incremental.Equal(&got), "incremental %s @ %s, replay %s @ %s",
		incremental.Quantity, incremental.UnitCost, got.Quantity, got.UnitCost)
	assert.True(t, got.Quantity.Equal(d("8")))
	assert.True(t, got.UnitCost.Equal(d("1.751041")), "obtenido %s", got.UnitCost)
}
