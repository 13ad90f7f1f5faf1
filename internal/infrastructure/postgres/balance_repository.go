package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

// Get obtiene el saldo del par; nil si no existe.
func (r *BalanceRepo) Get(ctx context.Context, itemID, warehouseID string) (*entity.Balance, error) {
	query := `
		SELECT item_id, warehouse_id, quantity, unit_cost, updated_at
		FROM stock_balances WHERE item_id = $1 AND warehouse_id = $2`
	b, err := scanBalance(r.q.QueryRow(ctx, query, itemID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock balance: %w", err)
	}
	return b, nil
}

// GetForUpdate obtiene el saldo y bloquea la fila hasta el fin de la transacción.
// Si el par no existía inserta una fila en cero para tener algo que bloquear: dos
// transacciones que llegan a la vez al mismo par nuevo quedan serializadas por la
// clave primaria. found indica si el saldo existía antes de esta llamada.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, itemID, warehouseID string) (*entity.Balance, bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO stock_balances (item_id, warehouse_id, quantity, unit_cost, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (item_id, warehouse_id) DO NOTHING`, itemID, warehouseID)
	if err != nil {
		return nil, false, fmt.Errorf("reserve stock balance: %w", err)
	}
	found := tag.RowsAffected() == 0

	query := `
		SELECT item_id, warehouse_id, quantity, unit_cost, updated_at
		FROM stock_balances WHERE item_id = $1 AND warehouse_id = $2
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, itemID, warehouseID))
	if err != nil {
		return nil, false, fmt.Errorf("get stock balance for update: %w", err)
	}
	return b, found, nil
}

// Upsert inserta o actualiza cantidad y costo del par.
func (r *BalanceRepo) Upsert(ctx context.Context, b *entity.Balance) error {
	query := `
		INSERT INTO stock_balances (item_id, warehouse_id, quantity, unit_cost, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, unit_cost = EXCLUDED.unit_cost, updated_at = EXCLUDED.updated_at`
	if _, err := r.q.Exec(ctx, query, b.ItemID, b.WarehouseID, b.Quantity, b.UnitCost, b.UpdatedAt); err != nil {
		return fmt.Errorf("upsert stock balance: %w", err)
	}
	return nil
}

// ListByItem saldos del ítem en todas las bodegas.
func (r *BalanceRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.Balance, error) {
	query := `
		SELECT item_id, warehouse_id, quantity, unit_cost, updated_at
		FROM stock_balances WHERE item_id = $1
		ORDER BY warehouse_id`
	rows, err := r.q.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list stock balances: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Balance, 0)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// ListKeys claves de todos los saldos, ordenadas.
func (r *BalanceRepo) ListKeys(ctx context.Context) ([]entity.BalanceKey, error) {
	rows, err := r.q.Query(ctx, `SELECT item_id, warehouse_id FROM stock_balances ORDER BY item_id, warehouse_id`)
	if err != nil {
		return nil, fmt.Errorf("list stock balance keys: %w", err)
	}
	defer rows.Close()

	keys := make([]entity.BalanceKey, 0)
	for rows.Next() {
		var k entity.BalanceKey
		if err := rows.Scan(&k.ItemID, &k.WarehouseID); err != nil {
			return nil, fmt.Errorf("scan stock balance key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func scanBalance(row pgx.Row) (*entity.Balance, error) {
	var b entity.Balance
	if err := row.Scan(&b.ItemID, &b.WarehouseID, &b.Quantity, &b.UnitCost, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
