package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter filtros para el historial. Campos vacíos/nil no filtran.
// WarehouseID coincide tanto con la bodega origen como con la destino.
type MovementFilter struct {
	ItemID      string
	WarehouseID string
	Kind        entity.MovementKind
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// MovementRepository define el puerto de persistencia para el kardex (solo inserción).
type MovementRepository interface {
	// Create persiste el movimiento y le asigna ID monótono.
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id int64) (*entity.Movement, error)
	// List devuelve movimientos del más reciente al más antiguo.
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// ListByPair devuelve todos los movimientos del par en orden cronológico.
	ListByPair(ctx context.Context, itemID, warehouseID string) ([]*entity.Movement, error)
}
