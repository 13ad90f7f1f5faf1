package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una unidad de trabajo, pasando repositorios atados a ella.
// Si fn devuelve error todo lo escrito se descarta; si no, se confirma de forma atómica.
// Cada llamada crea su propia unidad de trabajo: no hay sesión compartida entre llamadores.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		balanceRepo repository.BalanceRepository,
	) error) error
}
