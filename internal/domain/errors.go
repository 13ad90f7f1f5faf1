package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrWriteFailed       = errors.New("fallo de escritura en el kardex")
)

// InvalidMovementError solicitud de movimiento mal formada; se rechaza antes de escribir.
type InvalidMovementError struct {
	Field  string
	Reason string
}

func (e *InvalidMovementError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

// Is permite errors.Is(err, ErrInvalidInput).
func (e *InvalidMovementError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidMovement construye un error de validación.
func NewInvalidMovement(field, reason string) error {
	return &InvalidMovementError{Field: field, Reason: reason}
}

// InsufficientStockError lleva el detalle suficiente para que el llamador
// arme el mensaje sin volver a consultar.
type InsufficientStockError struct {
	ItemID        string
	ItemCode      string
	WarehouseID   string
	WarehouseName string
	Available     decimal.Decimal
	Requested     decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: ítem %s en bodega %s (disponible %s, solicitado %s)",
		ErrInsufficientStock, e.ItemCode, e.WarehouseName, e.Available.String(), e.Requested.String())
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Shortfall cantidad faltante (Requested - Available).
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// WriteFailure envuelve una falla de almacenamiento ocurrida dentro de la unidad de trabajo.
// Conserva la causa original: errors.Is funciona contra ErrWriteFailed y contra la causa.
func WriteFailure(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrWriteFailed, err)
}

// IsBusinessError indica si err pertenece a la taxonomía de rechazo previo a escritura.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrNotFound)
}
