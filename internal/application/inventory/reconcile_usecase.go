package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// errNoHistory descarta la unidad de trabajo cuando el par no tiene saldo ni movimientos.
var errNoHistory = errors.New("par sin historial")

// DriftReport compara el saldo almacenado con el reconstruido desde el kardex.
type DriftReport struct {
	Key      entity.BalanceKey
	Stored   *entity.Balance // nil si no existe saldo
	Replayed entity.Balance
	Drifted  bool
}

// ReconcileUseCase reconstruye saldos a partir del kardex para detectar y corregir descuadres.
type ReconcileUseCase struct {
	txRunner     TxRunner
	movementRepo repository.MovementRepository
	balanceRepo  repository.BalanceRepository
	log          *logger.Logger
	now          func() time.Time
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(
	txRunner TxRunner,
	movementRepo repository.MovementRepository,
	balanceRepo repository.BalanceRepository,
	log *logger.Logger,
) *ReconcileUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileUseCase{
		txRunner:     txRunner,
		movementRepo: movementRepo,
		balanceRepo:  balanceRepo,
		log:          log.Component("reconcile"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RebuildBalance recorre todo el kardex del par y sobrescribe el saldo con el resultado.
// Bloquea la fila antes de leer los movimientos para no perder escrituras concurrentes.
// Es idempotente: dos ejecuciones seguidas producen el mismo saldo.
func (uc *ReconcileUseCase) RebuildBalance(ctx context.Context, itemID, warehouseID string) (*entity.Balance, error) {
	report, err := uc.rebuild(ctx, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	out := report.Replayed
	return &out, nil
}

func (uc *ReconcileUseCase) rebuild(ctx context.Context, itemID, warehouseID string) (*DriftReport, error) {
	if itemID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	report := &DriftReport{Key: entity.BalanceKey{ItemID: itemID, WarehouseID: warehouseID}}

	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		balanceRepo repository.BalanceRepository,
	) error {
		current, found, err := balanceRepo.GetForUpdate(ctx, itemID, warehouseID)
		if err != nil {
			return err
		}
		history, err := movRepo.ListByPair(ctx, itemID, warehouseID)
		if err != nil {
			return err
		}
		if !found && len(history) == 0 {
			return errNoHistory
		}

		rebuilt := inventory.Replay(itemID, warehouseID, history)
		rebuilt.UpdatedAt = uc.now()
		if found {
			stored := *current
			report.Stored = &stored
		}
		report.Replayed = rebuilt
		report.Drifted = !found || !current.Equal(&rebuilt)
		return balanceRepo.Upsert(ctx, &rebuilt)
	})
	if errors.Is(err, errNoHistory) {
		report.Replayed = *entity.NewBalance(itemID, warehouseID)
		return report, nil
	}
	if err != nil {
		return nil, domain.WriteFailure(err)
	}
	if report.Drifted {
		uc.logDrift(report)
	}
	return report, nil
}

// DetectDrift reconstruye en memoria sin escribir.
func (uc *ReconcileUseCase) DetectDrift(ctx context.Context, itemID, warehouseID string) (*DriftReport, error) {
	if itemID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	stored, err := uc.balanceRepo.Get(ctx, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	history, err := uc.movementRepo.ListByPair(ctx, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	rebuilt := inventory.Replay(itemID, warehouseID, history)
	report := &DriftReport{
		Key:      entity.BalanceKey{ItemID: itemID, WarehouseID: warehouseID},
		Stored:   stored,
		Replayed: rebuilt,
	}
	switch {
	case stored == nil:
		report.Drifted = len(history) > 0
	default:
		report.Drifted = !stored.Equal(&rebuilt)
	}
	return report, nil
}

// RebuildAll reconstruye todos los saldos existentes y devuelve los que estaban descuadrados.
// Se detiene en el primer error de almacenamiento.
func (uc *ReconcileUseCase) RebuildAll(ctx context.Context) ([]DriftReport, error) {
	keys, err := uc.balanceRepo.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar saldos: %w", err)
	}
	drifted := make([]DriftReport, 0)
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		report, err := uc.rebuild(ctx, k.ItemID, k.WarehouseID)
		if err != nil {
			return drifted, fmt.Errorf("reconstruir %s/%s: %w", k.ItemID, k.WarehouseID, err)
		}
		if report.Drifted {
			drifted = append(drifted, *report)
		}
	}
	uc.log.Info().
		Int("balances", len(keys)).
		Int("drifted", len(drifted)).
		Msg("reconciliación completada")
	return drifted, nil
}

func (uc *ReconcileUseCase) logDrift(r *DriftReport) {
	ev := uc.log.Warn().
		Str("item_id", r.Key.ItemID).
		Str("warehouse_id", r.Key.WarehouseID).
		Str("replayed_quantity", r.Replayed.Quantity.String()).
		Str("replayed_unit_cost", r.Replayed.UnitCost.String())
	if r.Stored != nil {
		ev = ev.
			Str("stored_quantity", r.Stored.Quantity.String()).
			Str("stored_unit_cost", r.Stored.UnitCost.String())
	}
	ev.Msg("descuadre de saldo corregido")
}
