package storage

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

// seedFile datos de referencia para el backend en memoria (YAML, JSON o TOML).
//
//	items:
//	  - id: item-1
//	    code: TOR-001
//	    name: Tornillo
//	    reference_purchase_price: "9.50"
//	warehouses:
//	  - id: wh-a
//	    name: Bodega A
type seedFile struct {
	Items []struct {
		ID                     string `mapstructure:"id"`
		Code                   string `mapstructure:"code"`
		Name                   string `mapstructure:"name"`
		ReferencePurchasePrice string `mapstructure:"reference_purchase_price"`
	} `mapstructure:"items"`
	Warehouses []struct {
		ID      string `mapstructure:"id"`
		Name    string `mapstructure:"name"`
		Address string `mapstructure:"address"`
	} `mapstructure:"warehouses"`
}

// LoadSeed carga ítems y bodegas de path en el store en memoria.
func LoadSeed(s *memory.Store, path string) (items, warehouses int, err error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return 0, 0, fmt.Errorf("leer semilla %s: %w", path, err)
	}
	var seed seedFile
	if err := v.Unmarshal(&seed); err != nil {
		return 0, 0, fmt.Errorf("decodificar semilla %s: %w", path, err)
	}
	if len(seed.Items) == 0 || len(seed.Warehouses) == 0 {
		return 0, 0, fmt.Errorf("semilla %s: se requiere al menos un ítem y una bodega", path)
	}

	for _, it := range seed.Items {
		if it.ID == "" || it.Code == "" {
			return 0, 0, fmt.Errorf("semilla %s: ítem sin id o code", path)
		}
		price := decimal.Zero
		if it.ReferencePurchasePrice != "" {
			price, err = decimal.NewFromString(it.ReferencePurchasePrice)
			if err != nil {
				return 0, 0, fmt.Errorf("semilla %s: precio de %s: %w", path, it.ID, err)
			}
		}
		if price.IsNegative() || !price.Equal(price.Truncate(entity.Scale)) {
			return 0, 0, fmt.Errorf("semilla %s: precio de %s fuera de rango", path, it.ID)
		}
		s.AddItem(entity.Item{ID: it.ID, Code: it.Code, Name: it.Name, ReferencePurchasePrice: price})
	}
	for _, wh := range seed.Warehouses {
		if wh.ID == "" {
			return 0, 0, fmt.Errorf("semilla %s: bodega sin id", path)
		}
		s.AddWarehouse(entity.Warehouse{ID: wh.ID, Name: wh.Name, Address: wh.Address})
	}
	return len(seed.Items), len(seed.Warehouses), nil
}
