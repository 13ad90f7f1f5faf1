package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, item_id, kind, quantity, source_warehouse_id, destination_warehouse_id,
	unit_cost, total_value, document_no, document_type, description, movement_date, created_at, created_by`

// MovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento y asigna el ID generado por la secuencia.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO stock_movements (item_id, kind, quantity, source_warehouse_id, destination_warehouse_id,
			unit_cost, total_value, document_no, document_type, description, movement_date, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.ItemID, string(m.Kind), m.Quantity, nullable(m.SourceWarehouseID), nullable(m.DestinationWarehouseID),
		m.UnitCost, m.TotalValue, m.DocumentNo, m.DocumentType, m.Description, m.MovementDate, m.CreatedAt,
		nullable(m.CreatedBy),
	).Scan(&m.ID)
	if err != nil {
		if isCheckViolation(err) {
			return domain.NewInvalidMovement("movement", err.Error())
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID; nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// List lista movimientos filtrados, del más reciente al más antiguo.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ItemID != "" {
		conds = append(conds, "item_id = "+arg(f.ItemID))
	}
	if f.WarehouseID != "" {
		p := arg(f.WarehouseID)
		conds = append(conds, "(source_warehouse_id = "+p+" OR destination_warehouse_id = "+p+")")
	}
	if f.Kind != "" {
		conds = append(conds, "kind = "+arg(string(f.Kind)))
	}
	if f.From != nil {
		conds = append(conds, "movement_date >= "+arg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "movement_date <= "+arg(*f.To))
	}

	query := `SELECT ` + movementColumns + ` FROM stock_movements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY movement_date DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}
	return r.queryMovements(ctx, query, args...)
}

// ListByPair historial completo del par en orden cronológico (fecha, luego id).
func (r *MovementRepo) ListByPair(ctx context.Context, itemID, warehouseID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE item_id = $1 AND (source_warehouse_id = $2 OR destination_warehouse_id = $2)
		ORDER BY movement_date, id`
	return r.queryMovements(ctx, query, itemID, warehouseID)
}

func (r *MovementRepo) queryMovements(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m             entity.Movement
		kind          string
		src, dst, usr *string
	)
	err := row.Scan(
		&m.ID, &m.ItemID, &kind, &m.Quantity, &src, &dst,
		&m.UnitCost, &m.TotalValue, &m.DocumentNo, &m.DocumentType, &m.Description,
		&m.MovementDate, &m.CreatedAt, &usr,
	)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	m.SourceWarehouseID = deref(src)
	m.DestinationWarehouseID = deref(dst)
	m.CreatedBy = deref(usr)
	return &m, nil
}
