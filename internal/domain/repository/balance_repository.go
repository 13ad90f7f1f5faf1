package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// BalanceRepository define el puerto para consultar/actualizar saldos por ítem+bodega.
// Usado dentro de transacciones para garantizar consistencia con el kardex.
type BalanceRepository interface {
	// Get devuelve nil si el par nunca tuvo movimientos.
	Get(ctx context.Context, itemID, warehouseID string) (*entity.Balance, error)
	// GetForUpdate bloquea la fila del par hasta el fin de la transacción.
	// found=false indica que el saldo no existía (se devuelve uno vacío).
	GetForUpdate(ctx context.Context, itemID, warehouseID string) (balance *entity.Balance, found bool, err error)
	Upsert(ctx context.Context, balance *entity.Balance) error
	ListByItem(ctx context.Context, itemID string) ([]*entity.Balance, error)
	ListKeys(ctx context.Context) ([]entity.BalanceKey, error)
}
