package entity

import "github.com/shopspring/decimal"

// WarehouseStock posición de un ítem en una bodega dentro del resumen.
type WarehouseStock struct {
	WarehouseID   string
	WarehouseName string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	Value         decimal.Decimal
}

// StockSummary consolidado de un ítem en todas las bodegas con saldo.
// AverageCost = TotalValue / TotalQuantity (cero si TotalQuantity <= 0).
type StockSummary struct {
	ItemID        string
	ItemCode      string
	TotalQuantity decimal.Decimal
	TotalValue    decimal.Decimal
	AverageCost   decimal.Decimal
	Warehouses    []WarehouseStock
}
