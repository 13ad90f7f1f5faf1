package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/storage"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const seedYAML = `items:
  - id: item-1
    code: TOR-001
    name: Tornillo
    reference_purchase_price: "9.50"
  - id: item-2
    code: TUE-002
    name: Tuerca
warehouses:
  - id: wh-a
    name: Bodega A
    address: Calle 1
`

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOpen_Memoria(t *testing.T) {
	cfg := &config.Config{Ledger: config.LedgerConfig{
		Store:    config.StoreMemory,
		SeedFile: writeSeed(t, "seed.yaml", seedYAML),
	}}
	b, err := storage.Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Health)
	list, err := b.Movements.List(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	item, err := b.Items.GetByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "TOR-001", item.Code)
	assert.Equal(t, "9.5", item.ReferencePurchasePrice.String())

	wh, err := b.Warehouses.GetByID(context.Background(), "wh-a")
	require.NoError(t, err)
	require.NotNil(t, wh)
	assert.Equal(t, "Bodega A", wh.Name)
}

func TestOpen_MemoriaSinSemilla(t *testing.T) {
	cfg := &config.Config{Ledger: config.LedgerConfig{Store: config.StoreMemory}}
	_, err := storage.Open(context.Background(), cfg, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_SEED_FILE")
}

func TestLoadSeed_JSON(t *testing.T) {
	path := writeSeed(t, "seed.json", `{"items":[{"id":"i","code":"C","name":"N","reference_purchase_price":"1.25"}],"warehouses":[{"id":"w","name":"W"}]}`)
	s := memory.New()

	items, warehouses, err := storage.LoadSeed(s, path)
	require.NoError(t, err)
	assert.Equal(t, 1, items)
	assert.Equal(t, 1, warehouses)
	item, err := s.ItemRepo().GetByID(context.Background(), "i")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "1.25", item.ReferencePurchasePrice.String())
}

func TestLoadSeed_Invalida(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"sin bodegas", "items:\n  - id: i\n    code: C\n"},
		{"ítem sin code", "items:\n  - id: i\nwarehouses:\n  - id: w\n"},
		{"precio no numérico", "items:\n  - id: i\n    code: C\n    reference_purchase_price: abc\nwarehouses:\n  - id: w\n"},
		{"precio con siete decimales", "items:\n  - id: i\n    code: C\n    reference_purchase_price: \"1.1234567\"\nwarehouses:\n  - id: w\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := storage.LoadSeed(memory.New(), writeSeed(t, "seed.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, _, err := storage.LoadSeed(memory.New(), filepath.Join(t.TempDir(), "no-existe.yaml"))
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.Config{
		Ledger: config.LedgerConfig{Store: config.StoreSQLite},
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "ledger.db")},
	}
	b, err := storage.Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	require.NotNil(t, b.Health)
	assert.NoError(t, b.Health(context.Background()))
	keys, err := b.Balances.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpen_StoreDesconocido(t *testing.T) {
	cfg := &config.Config{Ledger: config.LedgerConfig{Store: "mongo"}}
	_, err := storage.Open(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
