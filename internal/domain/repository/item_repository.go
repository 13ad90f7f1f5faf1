package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ItemRepository lectura de ítems (datos de referencia externos).
// GetByID devuelve (nil, nil) si no existe.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Item, error)
}
