package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const (
	itemID = "item-1"
	whA    = "wh-a"
	whB    = "wh-b"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// newStore store en memoria con un ítem (precio de referencia 9) y dos bodegas.
func newStore() *memory.Store {
	s := memory.New()
	s.AddItem(entity.Item{ID: itemID, Code: "TOR-001", Name: "Tornillo", ReferencePurchasePrice: d("9")})
	s.AddWarehouse(entity.Warehouse{ID: whA, Name: "Bodega A"})
	s.AddWarehouse(entity.Warehouse{ID: whB, Name: "Bodega B"})
	return s
}

func newRegister(s *memory.Store, cfg inventory.Config) *inventory.RegisterMovementUseCase {
	return inventory.NewRegisterMovementUseCase(s, s.ItemRepo(), s.WarehouseRepo(), cfg)
}

func entry(qty, price string) inventory.MovementInputDTO {
	return inventory.MovementInputDTO{
		ItemID: itemID, Kind: entity.KindEntry, Quantity: d(qty),
		DestinationWarehouseID: whA, UnitPrice: dp(price),
	}
}

func sale(qty string) inventory.MovementInputDTO {
	return inventory.MovementInputDTO{
		ItemID: itemID, Kind: entity.KindSale, Quantity: d(qty), SourceWarehouseID: whA,
	}
}

// seed150at12 deja la bodega A en 150 @ 12 (100 @ 10 + 50 @ 16).
func seed150at12(t *testing.T, uc *inventory.RegisterMovementUseCase) {
	t.Helper()
	ctx := context.Background()
	_, err := uc.CreateMovement(ctx, entry("100", "10"))
	require.NoError(t, err)
	_, err = uc.CreateMovement(ctx, entry("50", "16"))
	require.NoError(t, err)
}

func balanceOf(t *testing.T, s *memory.Store, wh string) *entity.Balance {
	t.Helper()
	b, err := s.BalanceRepo().Get(context.Background(), itemID, wh)
	require.NoError(t, err)
	return b
}

func countMovements(t *testing.T, s *memory.Store) int {
	t.Helper()
	list, err := s.MovementRepo().List(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	return len(list)
}

// ─────────────────────────────────────────────────────────────────────────────
// Inyección de fallas de almacenamiento
// ─────────────────────────────────────────────────────────────────────────────

var errDisk = errors.New("disco lleno")

// failingRunner delega en el store pero hace fallar la escritura de saldos.
type failingRunner struct {
	inner *memory.Store
}

func (r failingRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	balanceRepo repository.BalanceRepository,
) error) error {
	return r.inner.Run(ctx, func(movRepo repository.MovementRepository, balanceRepo repository.BalanceRepository) error {
		return fn(movRepo, failingBalances{BalanceRepository: balanceRepo})
	})
}

type failingBalances struct {
	repository.BalanceRepository
}

func (failingBalances) Upsert(context.Context, *entity.Balance) error { return errDisk }
