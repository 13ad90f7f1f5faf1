package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento de inventario (conjunto cerrado).
// La clase direccional de cada tipo se resuelve en Direction().
type MovementKind string

const (
	// Entradas
	KindEntry             MovementKind = "ENTRY"              // entrada manual
	KindPurchaseReceipt   MovementKind = "PURCHASE_RECEIPT"   // recepción de compra
	KindProductionOutput  MovementKind = "PRODUCTION_OUTPUT"  // producto terminado
	KindCountSurplus      MovementKind = "COUNT_SURPLUS"      // sobrante de conteo
	KindReturnIn          MovementKind = "RETURN_IN"          // devolución de cliente

	// Salidas
	KindExit                  MovementKind = "EXIT"                   // salida manual
	KindSale                  MovementKind = "SALE"                   // venta / despacho
	KindProductionConsumption MovementKind = "PRODUCTION_CONSUMPTION" // consumo de producción
	KindCountShortfall        MovementKind = "COUNT_SHORTFALL"        // faltante de conteo
	KindScrap                 MovementKind = "SCRAP"                  // merma / baja
	KindReturnOut             MovementKind = "RETURN_OUT"             // devolución a proveedor

	// Traslado entre bodegas
	KindTransfer MovementKind = "TRANSFER"
)

// Direction clase direccional de un movimiento.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionInbound
	DirectionOutbound
	DirectionTransfer
)

func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "inbound"
	case DirectionOutbound:
		return "outbound"
	case DirectionTransfer:
		return "transfer"
	}
	return "unknown"
}

// Direction devuelve la clase del tipo. DirectionUnknown si el tipo no pertenece al conjunto.
func (k MovementKind) Direction() Direction {
	switch k {
	case KindEntry, KindPurchaseReceipt, KindProductionOutput, KindCountSurplus, KindReturnIn:
		return DirectionInbound
	case KindExit, KindSale, KindProductionConsumption, KindCountShortfall, KindScrap, KindReturnOut:
		return DirectionOutbound
	case KindTransfer:
		return DirectionTransfer
	}
	return DirectionUnknown
}

// Valid indica si el tipo es uno de los definidos.
func (k MovementKind) Valid() bool {
	return k.Direction() != DirectionUnknown
}

// RequiresSource indica si el tipo exige bodega origen.
func (k MovementKind) RequiresSource() bool {
	d := k.Direction()
	return d == DirectionOutbound || d == DirectionTransfer
}

// RequiresDestination indica si el tipo exige bodega destino.
func (k MovementKind) RequiresDestination() bool {
	d := k.Direction()
	return d == DirectionInbound || d == DirectionTransfer
}

// MovementKinds lista todos los tipos soportados.
func MovementKinds() []MovementKind {
	return []MovementKind{
		KindEntry, KindPurchaseReceipt, KindProductionOutput, KindCountSurplus, KindReturnIn,
		KindExit, KindSale, KindProductionConsumption, KindCountShortfall, KindScrap, KindReturnOut,
		KindTransfer,
	}
}

// Movement representa un asiento inmutable del kardex. Nunca se edita ni se borra:
// las correcciones se registran con movimientos de ajuste en sentido contrario.
type Movement struct {
	ID                     int64
	ItemID                 string
	Kind                   MovementKind
	Quantity               decimal.Decimal // siempre > 0; el sentido lo da Kind
	SourceWarehouseID      string          // vacío en entradas
	DestinationWarehouseID string          // vacío en salidas
	UnitCost               decimal.Decimal // costo aplicado
	TotalValue             decimal.Decimal // Quantity * UnitCost
	DocumentNo             string
	DocumentType           string
	Description            string
	MovementDate           time.Time // fecha de negocio, independiente de CreatedAt
	CreatedAt              time.Time
	CreatedBy              string
}

// Touches indica si el movimiento afecta la bodega dada (origen o destino).
func (m *Movement) Touches(warehouseID string) bool {
	return m.SourceWarehouseID == warehouseID || m.DestinationWarehouseID == warehouseID
}
