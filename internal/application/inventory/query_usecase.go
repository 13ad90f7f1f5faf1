package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// StockQueryUseCase consultas de solo lectura sobre saldos y kardex.
type StockQueryUseCase struct {
	balanceRepo   repository.BalanceRepository
	movementRepo  repository.MovementRepository
	itemRepo      repository.ItemRepository
	warehouseRepo repository.WarehouseRepository
}

// NewStockQueryUseCase construye el caso de uso de consultas.
func NewStockQueryUseCase(
	balanceRepo repository.BalanceRepository,
	movementRepo repository.MovementRepository,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
) *StockQueryUseCase {
	return &StockQueryUseCase{
		balanceRepo:   balanceRepo,
		movementRepo:  movementRepo,
		itemRepo:      itemRepo,
		warehouseRepo: warehouseRepo,
	}
}

// AvailableQuantity cantidad en saldo del par; cero si nunca tuvo movimientos.
func (uc *StockQueryUseCase) AvailableQuantity(ctx context.Context, itemID, warehouseID string) (decimal.Decimal, error) {
	if itemID == "" || warehouseID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	b, err := uc.balanceRepo.Get(ctx, itemID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	return b.Quantity, nil
}

// CurrentCost costo promedio vigente del par. Si no hay saldo o su cantidad es cero
// se devuelve el precio de compra de referencia del ítem.
func (uc *StockQueryUseCase) CurrentCost(ctx context.Context, itemID, warehouseID string) (decimal.Decimal, error) {
	if itemID == "" || warehouseID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	b, err := uc.balanceRepo.Get(ctx, itemID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	if b != nil && !b.Quantity.IsZero() {
		return b.UnitCost, nil
	}
	item, err := uc.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("obtener ítem: %w", err)
	}
	if item == nil {
		return decimal.Zero, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	return item.ReferencePurchasePrice, nil
}

// History devuelve movimientos filtrados, del más reciente al más antiguo.
// Es una instantánea: una página no se puede reanudar si el kardex cambia entre llamadas.
func (uc *StockQueryUseCase) History(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.NewInvalidMovement("kind", fmt.Sprintf("tipo de movimiento desconocido %q", filter.Kind))
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.NewInvalidMovement("from", "debe ser anterior a to")
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	return uc.movementRepo.List(ctx, filter)
}

// StockSummary consolida cantidad y valor del ítem en todas sus bodegas.
func (uc *StockQueryUseCase) StockSummary(ctx context.Context, itemID string) (*entity.StockSummary, error) {
	if itemID == "" {
		return nil, domain.ErrInvalidInput
	}
	item, err := uc.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("obtener ítem: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	balances, err := uc.balanceRepo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	summary := &entity.StockSummary{
		ItemID:        item.ID,
		ItemCode:      item.Code,
		TotalQuantity: decimal.Zero,
		TotalValue:    decimal.Zero,
		AverageCost:   decimal.Zero,
		Warehouses:    make([]entity.WarehouseStock, 0, len(balances)),
	}
	for _, b := range balances {
		name := b.WarehouseID
		wh, err := uc.warehouseRepo.GetByID(ctx, b.WarehouseID)
		if err != nil {
			return nil, fmt.Errorf("obtener bodega: %w", err)
		}
		if wh != nil {
			name = wh.Name
		}
		value := b.Value()
		summary.Warehouses = append(summary.Warehouses, entity.WarehouseStock{
			WarehouseID:   b.WarehouseID,
			WarehouseName: name,
			Quantity:      b.Quantity,
			UnitCost:      b.UnitCost,
			Value:         value,
		})
		summary.TotalQuantity = summary.TotalQuantity.Add(b.Quantity)
		summary.TotalValue = summary.TotalValue.Add(value)
	}
	if summary.TotalQuantity.GreaterThan(decimal.Zero) {
		summary.AverageCost = summary.TotalValue.Div(summary.TotalQuantity)
	}
	sort.Slice(summary.Warehouses, func(i, j int) bool {
		return summary.Warehouses[i].WarehouseName < summary.Warehouses[j].WarehouseName
	})
	return summary, nil
}
