// Package storage elige el backend del kardex según LEDGER_STORE.
package storage

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Backend puertos del kardex sobre un almacenamiento concreto.
type Backend struct {
	TxRunner   inventory.TxRunner
	Movements  repository.MovementRepository
	Balances   repository.BalanceRepository
	Items      repository.ItemRepository
	Warehouses repository.WarehouseRepository
	// Health nil si el backend no tiene conexión que verificar.
	Health func(ctx context.Context) error
	Close  func()
}

// Open abre el backend configurado. En postgres aplica las migraciones antes de devolver.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backend, error) {
	switch cfg.Ledger.Store {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrar esquema: %w", err)
		}
		log.Info().Str("store", cfg.Ledger.Store).Msg("almacenamiento listo")
		return &Backend{
			TxRunner:   postgres.NewTxRunner(pool),
			Movements:  postgres.NewMovementRepository(pool),
			Balances:   postgres.NewBalanceRepository(pool),
			Items:      postgres.NewItemRepository(pool),
			Warehouses: postgres.NewWarehouseRepository(pool),
			Health:     pool.Ping,
			Close:      pool.Close,
		}, nil

	case config.StoreSQLite:
		s, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("store", cfg.Ledger.Store).Str("path", cfg.SQLite.Path).Msg("almacenamiento listo")
		return &Backend{
			TxRunner:   s,
			Movements:  s.MovementRepo(),
			Balances:   s.BalanceRepo(),
			Items:      s.ItemRepo(),
			Warehouses: s.WarehouseRepo(),
			Health:     s.Ping,
			Close: func() {
				if err := s.Close(); err != nil {
					log.Error().Err(err).Msg("cerrar sqlite")
				}
			},
		}, nil

	case config.StoreMemory:
		// Sin semilla no hay ítems ni bodegas y todo movimiento respondería 404.
		if cfg.Ledger.SeedFile == "" {
			return nil, fmt.Errorf("LEDGER_STORE=memory requiere LEDGER_SEED_FILE")
		}
		s := memory.New()
		items, warehouses, err := LoadSeed(s, cfg.Ledger.SeedFile)
		if err != nil {
			return nil, err
		}
		log.Warn().
			Str("seed", cfg.Ledger.SeedFile).
			Int("items", items).
			Int("warehouses", warehouses).
			Msg("almacenamiento en memoria: los movimientos se pierden al reiniciar")
		return &Backend{
			TxRunner:   s,
			Movements:  s.MovementRepo(),
			Balances:   s.BalanceRepo(),
			Items:      s.ItemRepo(),
			Warehouses: s.WarehouseRepo(),
			Close:      func() {},
		}, nil
	}
	return nil, fmt.Errorf("LEDGER_STORE desconocido %q", cfg.Ledger.Store)
}
