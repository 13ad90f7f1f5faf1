package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Config opciones del motor.
type Config struct {
	// AllowNegativeStock permite salidas que dejen el saldo por debajo de cero.
	AllowNegativeStock bool
}

// RegisterMovementUseCase registra movimientos de inventario de forma transaccional:
// valida, bloquea el/los saldo(s) afectados, calcula el costo, inserta el movimiento
// y actualiza los saldos dentro de una misma unidad de trabajo.
type RegisterMovementUseCase struct {
	txRunner      TxRunner
	itemRepo      repository.ItemRepository
	warehouseRepo repository.WarehouseRepository
	allowNegative bool
	now           func() time.Time
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(
	txRunner TxRunner,
	itemRepo repository.ItemRepository,
	warehouseRepo repository.WarehouseRepository,
	cfg Config,
) *RegisterMovementUseCase {
	return &RegisterMovementUseCase{
		txRunner:      txRunner,
		itemRepo:      itemRepo,
		warehouseRepo: warehouseRepo,
		allowNegative: cfg.AllowNegativeStock,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// MovementInputDTO entrada para registrar un movimiento.
// Entradas: DestinationWarehouseID. Salidas: SourceWarehouseID. TRANSFER: ambas.
// UnitPrice solo se usa en entradas; en salidas y traslados el costo sale del saldo origen.
type MovementInputDTO struct {
	UserID                 string
	ItemID                 string
	Kind                   entity.MovementKind
	Quantity               decimal.Decimal
	SourceWarehouseID      string
	DestinationWarehouseID string
	UnitPrice              *decimal.Decimal
	DocumentNo             string
	DocumentType           string
	Description            string
	MovementDate           *time.Time
	// AllowNegativeStock habilita stock negativo solo para esta llamada.
	AllowNegativeStock bool
}

// movementRefs datos de referencia resueltos antes de abrir la transacción.
type movementRefs struct {
	item        *entity.Item
	source      *entity.Warehouse
	destination *entity.Warehouse
}

// CreateMovement valida la solicitud y la aplica en su propia unidad de trabajo.
// Errores: domain.ErrInvalidInput, domain.ErrNotFound, *domain.InsufficientStockError
// (errors.Is ErrInsufficientStock) o domain.ErrWriteFailed envolviendo la falla de almacenamiento.
func (uc *RegisterMovementUseCase) CreateMovement(ctx context.Context, input MovementInputDTO) (*entity.Movement, error) {
	if err := ValidateMovement(input); err != nil {
		return nil, err
	}
	refs, err := uc.resolveRefs(ctx, input)
	if err != nil {
		return nil, err
	}

	var created *entity.Movement
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		balanceRepo repository.BalanceRepository,
	) error {
		mov, err := uc.apply(ctx, movRepo, balanceRepo, refs, input)
		if err != nil {
			return err
		}
		created = mov
		return nil
	})
	if err != nil {
		if domain.IsBusinessError(err) {
			return nil, err
		}
		return nil, domain.WriteFailure(err)
	}
	return created, nil
}

// CreateMovementInTx aplica el movimiento usando los repositorios de una unidad de trabajo
// abierta por el llamador (p. ej. un flujo de facturación que escribe sus propios registros en
// la misma transacción). Commit/Rollback quedan a cargo del llamador.
func (uc *RegisterMovementUseCase) CreateMovementInTx(
	ctx context.Context,
	movRepo repository.MovementRepository,
	balanceRepo repository.BalanceRepository,
	input MovementInputDTO,
) (*entity.Movement, error) {
	if err := ValidateMovement(input); err != nil {
		return nil, err
	}
	refs, err := uc.resolveRefs(ctx, input)
	if err != nil {
		return nil, err
	}
	mov, err := uc.apply(ctx, movRepo, balanceRepo, refs, input)
	if err != nil {
		if domain.IsBusinessError(err) {
			return nil, err
		}
		return nil, domain.WriteFailure(err)
	}
	return mov, nil
}

// ValidateMovement rechaza solicitudes mal formadas sin tocar el almacenamiento.
func ValidateMovement(input MovementInputDTO) error {
	if input.ItemID == "" {
		return domain.NewInvalidMovement("item_id", "es requerido")
	}
	if !input.Kind.Valid() {
		return domain.NewInvalidMovement("kind", fmt.Sprintf("tipo de movimiento desconocido %q", input.Kind))
	}
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return domain.NewInvalidMovement("quantity", "debe ser mayor que cero")
	}
	if exceedsScale(input.Quantity) {
		return domain.NewInvalidMovement("quantity", fmt.Sprintf("admite como máximo %d decimales", entity.Scale))
	}
	if input.Kind.RequiresSource() && input.SourceWarehouseID == "" {
		return domain.NewInvalidMovement("source_warehouse_id", fmt.Sprintf("es requerido para %s", input.Kind))
	}
	if !input.Kind.RequiresSource() && input.SourceWarehouseID != "" {
		return domain.NewInvalidMovement("source_warehouse_id", fmt.Sprintf("no aplica para %s", input.Kind))
	}
	if input.Kind.RequiresDestination() && input.DestinationWarehouseID == "" {
		return domain.NewInvalidMovement("destination_warehouse_id", fmt.Sprintf("es requerido para %s", input.Kind))
	}
	if !input.Kind.RequiresDestination() && input.DestinationWarehouseID != "" {
		return domain.NewInvalidMovement("destination_warehouse_id", fmt.Sprintf("no aplica para %s", input.Kind))
	}
	if input.Kind == entity.KindTransfer && input.SourceWarehouseID == input.DestinationWarehouseID {
		return domain.NewInvalidMovement("destination_warehouse_id", "debe ser distinta de la bodega origen")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return domain.NewInvalidMovement("unit_price", "no puede ser negativo")
	}
	if input.UnitPrice != nil && exceedsScale(*input.UnitPrice) {
		return domain.NewInvalidMovement("unit_price", fmt.Sprintf("admite como máximo %d decimales", entity.Scale))
	}
	return nil
}

// exceedsScale indica si v tiene más decimales significativos de los que se persisten.
func exceedsScale(v decimal.Decimal) bool {
	return !v.Equal(v.Truncate(entity.Scale))
}

// resolveRefs valida que el ítem y las bodegas existan. Son datos de referencia de solo
// lectura, por eso se consultan fuera de la transacción.
func (uc *RegisterMovementUseCase) resolveRefs(ctx context.Context, input MovementInputDTO) (*movementRefs, error) {
	item, err := uc.itemRepo.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, fmt.Errorf("obtener ítem: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, input.ItemID)
	}
	refs := &movementRefs{item: item}
	if input.SourceWarehouseID != "" {
		if refs.source, err = uc.getWarehouse(ctx, input.SourceWarehouseID); err != nil {
			return nil, err
		}
	}
	if input.DestinationWarehouseID != "" {
		if refs.destination, err = uc.getWarehouse(ctx, input.DestinationWarehouseID); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func (uc *RegisterMovementUseCase) getWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	wh, err := uc.warehouseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener bodega: %w", err)
	}
	if wh == nil {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, id)
	}
	return wh, nil
}

// apply ejecuta los pasos 2 a 5 del protocolo: guarda de stock negativo, costo aplicado,
// inserción del movimiento y upsert de saldos. Los saldos se leen con bloqueo de fila.
func (uc *RegisterMovementUseCase) apply(
	ctx context.Context,
	movRepo repository.MovementRepository,
	balanceRepo repository.BalanceRepository,
	refs *movementRefs,
	input MovementInputDTO,
) (*entity.Movement, error) {
	now := uc.now()
	date := now
	if input.MovementDate != nil && !input.MovementDate.IsZero() {
		date = input.MovementDate.UTC()
	}
	allowNegative := uc.allowNegative || input.AllowNegativeStock

	var (
		unitCost decimal.Decimal
		updates  []*entity.Balance
	)
	switch input.Kind.Direction() {
	case entity.DirectionInbound:
		dst, _, err := balanceRepo.GetForUpdate(ctx, input.ItemID, input.DestinationWarehouseID)
		if err != nil {
			return nil, err
		}
		unitCost = inventory.RoundCost(refs.item.ReferencePurchasePrice)
		if input.UnitPrice != nil {
			unitCost = *input.UnitPrice
		}
		next := inventory.ApplyInbound(*dst, input.Quantity, unitCost)
		updates = append(updates, &next)

	case entity.DirectionOutbound:
		src, found, err := balanceRepo.GetForUpdate(ctx, input.ItemID, input.SourceWarehouseID)
		if err != nil {
			return nil, err
		}
		if err := checkStock(src, refs.item, refs.source, input.Quantity, allowNegative); err != nil {
			return nil, err
		}
		unitCost = sourceCost(src, found, refs.item)
		next := drainSource(src, found, unitCost, input.Quantity, allowNegative)
		updates = append(updates, &next)

	case entity.DirectionTransfer:
		src, found, dst, err := lockTransferPair(ctx, balanceRepo, input.ItemID, input.SourceWarehouseID, input.DestinationWarehouseID)
		if err != nil {
			return nil, err
		}
		if err := checkStock(src, refs.item, refs.source, input.Quantity, allowNegative); err != nil {
			return nil, err
		}
		unitCost = sourceCost(src, found, refs.item)
		nextSrc := drainSource(src, found, unitCost, input.Quantity, allowNegative)
		nextDst := inventory.ApplyInbound(*dst, input.Quantity, unitCost)
		updates = append(updates, &nextSrc, &nextDst)

	default:
		return nil, domain.NewInvalidMovement("kind", "tipo de movimiento desconocido")
	}

	mov := &entity.Movement{
		ItemID:                 input.ItemID,
		Kind:                   input.Kind,
		Quantity:               input.Quantity,
		SourceWarehouseID:      input.SourceWarehouseID,
		DestinationWarehouseID: input.DestinationWarehouseID,
		UnitCost:               unitCost,
		TotalValue:             inventory.RoundCost(input.Quantity.Mul(unitCost)),
		DocumentNo:             input.DocumentNo,
		DocumentType:           input.DocumentType,
		Description:            input.Description,
		MovementDate:           date,
		CreatedAt:              now,
		CreatedBy:              input.UserID,
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	for _, b := range updates {
		b.UpdatedAt = now
		if err := balanceRepo.Upsert(ctx, b); err != nil {
			return nil, err
		}
	}
	return mov, nil
}

// lockTransferPair bloquea ambos saldos en orden ascendente de bodega para que dos
// traslados cruzados no se bloqueen mutuamente.
func lockTransferPair(
	ctx context.Context,
	balanceRepo repository.BalanceRepository,
	itemID, sourceID, destinationID string,
) (src *entity.Balance, srcFound bool, dst *entity.Balance, err error) {
	if sourceID < destinationID {
		if src, srcFound, err = balanceRepo.GetForUpdate(ctx, itemID, sourceID); err != nil {
			return nil, false, nil, err
		}
		if dst, _, err = balanceRepo.GetForUpdate(ctx, itemID, destinationID); err != nil {
			return nil, false, nil, err
		}
		return src, srcFound, dst, nil
	}
	if dst, _, err = balanceRepo.GetForUpdate(ctx, itemID, destinationID); err != nil {
		return nil, false, nil, err
	}
	if src, srcFound, err = balanceRepo.GetForUpdate(ctx, itemID, sourceID); err != nil {
		return nil, false, nil, err
	}
	return src, srcFound, dst, nil
}

// checkStock guarda de stock negativo: disponible >= solicitado salvo que se permita negativo.
func checkStock(src *entity.Balance, item *entity.Item, wh *entity.Warehouse, qty decimal.Decimal, allowNegative bool) error {
	if allowNegative || !src.Quantity.LessThan(qty) {
		return nil
	}
	return &domain.InsufficientStockError{
		ItemID:        item.ID,
		ItemCode:      item.Code,
		WarehouseID:   wh.ID,
		WarehouseName: wh.Name,
		Available:     src.Quantity,
		Requested:     qty,
	}
}

// sourceCost costo aplicado a salidas y traslados: el promedio vigente en el origen.
// Si el origen nunca recibió nada se usa el precio de compra de referencia del ítem.
func sourceCost(src *entity.Balance, found bool, item *entity.Item) decimal.Decimal {
	if !found {
		return inventory.RoundCost(item.ReferencePurchasePrice)
	}
	return src.UnitCost
}

// drainSource descuenta la cantidad del origen conservando el costo. Un saldo nuevo
// (solo posible con stock negativo) adopta el costo aplicado como base.
func drainSource(src *entity.Balance, found bool, unitCost, qty decimal.Decimal, allowNegative bool) entity.Balance {
	next := inventory.ApplyOutbound(*src, qty, allowNegative)
	if !found {
		next.UnitCost = unitCost
	}
	return next
}
