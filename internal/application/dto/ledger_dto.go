package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/ledger/movements.
type RegisterMovementRequest struct {
	ItemID                 string           `json:"item_id" validate:"required,max=64"`
	Kind                   string           `json:"kind" validate:"required,oneof=ENTRY PURCHASE_RECEIPT PRODUCTION_OUTPUT COUNT_SURPLUS RETURN_IN EXIT SALE PRODUCTION_CONSUMPTION COUNT_SHORTFALL SCRAP RETURN_OUT TRANSFER"`
	Quantity               decimal.Decimal  `json:"quantity"`
	SourceWarehouseID      string           `json:"source_warehouse_id,omitempty" validate:"max=64"`
	DestinationWarehouseID string           `json:"destination_warehouse_id,omitempty" validate:"max=64"`
	UnitPrice              *decimal.Decimal `json:"unit_price,omitempty"`
	DocumentNo             string           `json:"document_no,omitempty" validate:"max=64"`
	DocumentType           string           `json:"document_type,omitempty" validate:"max=64"`
	Description            string           `json:"description,omitempty" validate:"max=500"`
	MovementDate           *time.Time       `json:"movement_date,omitempty"`
	AllowNegativeStock     bool             `json:"allow_negative_stock,omitempty"`
}

// MovementResponse salida de un movimiento del kardex.
type MovementResponse struct {
	ID                     int64           `json:"id"`
	ItemID                 string          `json:"item_id"`
	Kind                   string          `json:"kind"`
	Quantity               decimal.Decimal `json:"quantity"`
	SourceWarehouseID      string          `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID string          `json:"destination_warehouse_id,omitempty"`
	UnitCost               decimal.Decimal `json:"unit_cost"`
	TotalValue             decimal.Decimal `json:"total_value"`
	DocumentNo             string          `json:"document_no,omitempty"`
	DocumentType           string          `json:"document_type,omitempty"`
	Description            string          `json:"description,omitempty"`
	MovementDate           time.Time       `json:"movement_date"`
	CreatedAt              time.Time       `json:"created_at"`
	CreatedBy              string          `json:"created_by,omitempty"`
}

// HistoryQuery query string de GET /api/ledger/movements. Fechas en RFC3339.
type HistoryQuery struct {
	ItemID      string `query:"item_id"`
	WarehouseID string `query:"warehouse_id"`
	Kind        string `query:"kind"`
	From        string `query:"from"`
	To          string `query:"to"`
	PageRequest
}

// MovementListResponse historial paginado (más reciente primero).
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// StockPositionResponse cantidad disponible y costo vigente de un par ítem/bodega.
type StockPositionResponse struct {
	ItemID            string          `json:"item_id"`
	WarehouseID       string          `json:"warehouse_id"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	CurrentCost       decimal.Decimal `json:"current_cost"`
}

// BalanceResponse saldo materializado.
type BalanceResponse struct {
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Value       decimal.Decimal `json:"value"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// WarehouseStockDTO detalle por bodega del resumen de stock.
type WarehouseStockDTO struct {
	WarehouseID   string          `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Value         decimal.Decimal `json:"value"`
}

// StockSummaryResponse consolidado de un ítem en todas sus bodegas.
type StockSummaryResponse struct {
	ItemID        string              `json:"item_id"`
	ItemCode      string              `json:"item_code"`
	TotalQuantity decimal.Decimal     `json:"total_quantity"`
	TotalValue    decimal.Decimal     `json:"total_value"`
	AverageCost   decimal.Decimal     `json:"average_cost"` // TotalValue / TotalQuantity
	Warehouses    []WarehouseStockDTO `json:"warehouses"`
}

// DriftResponse comparación entre el saldo almacenado y el reconstruido.
type DriftResponse struct {
	ItemID      string           `json:"item_id"`
	WarehouseID string           `json:"warehouse_id"`
	Stored      *BalanceResponse `json:"stored,omitempty"` // nil si no existe saldo
	Replayed    BalanceResponse  `json:"replayed"`
	Drifted     bool             `json:"drifted"`
}

// InsufficientStockDetail detalle adjunto al error 409.
type InsufficientStockDetail struct {
	ItemID        string          `json:"item_id"`
	ItemCode      string          `json:"item_code"`
	WarehouseID   string          `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	Available     decimal.Decimal `json:"available"`
	Requested     decimal.Decimal `json:"requested"`
}
