package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LedgerHandler maneja las peticiones HTTP del kardex (protegido).
type LedgerHandler struct {
	register  *inventory.RegisterMovementUseCase
	query     *inventory.StockQueryUseCase
	reconcile *inventory.ReconcileUseCase
	validate  *validator.Validate
	log       *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(
	register *inventory.RegisterMovementUseCase,
	query *inventory.StockQueryUseCase,
	reconcile *inventory.ReconcileUseCase,
	log *logger.Logger,
) *LedgerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerHandler{
		register:  register,
		query:     query,
		reconcile: reconcile,
		validate:  validator.New(),
		log:       log.Component("http"),
	}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "item_id, kind, quantity, bodegas según el tipo"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements [post]
func (h *LedgerHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if fields := h.validateStruct(in); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Fields: fields})
	}
	// Solo admin puede forzar stock negativo por petición.
	if in.AllowNegativeStock && GetRole(c) != jwt.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "allow_negative_stock requiere rol admin"})
	}
	out, err := h.register.RegisterMovementFromRequest(c.Context(), userID, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListMovements godoc
// @Summary      Historial del kardex (más reciente primero)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  false  "Ítem"
// @Param        warehouse_id  query  string  false  "Bodega (origen o destino)"
// @Param        kind          query  string  false  "Tipo de movimiento"
// @Param        from          query  string  false  "Desde (RFC3339)"
// @Param        to            query  string  false  "Hasta (RFC3339)"
// @Param        limit         query  int     false  "Límite"  default(100)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ledger/movements [get]
func (h *LedgerHandler) ListMovements(c *fiber.Ctx) error {
	var q dto.HistoryQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if fields := h.validateStruct(q); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Fields: fields})
	}
	q.DefaultPage()

	filter := repository.MovementFilter{
		ItemID:      q.ItemID,
		WarehouseID: q.WarehouseID,
		Kind:        entity.MovementKind(q.Kind),
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	var err error
	if filter.From, err = parseTimeParam(q.From); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339", Fields: map[string]string{"from": err.Error()}})
	}
	if filter.To, err = parseTimeParam(q.To); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339", Fields: map[string]string{"to": err.Error()}})
	}

	list, err := h.query.History(c.Context(), filter)
	if err != nil {
		return h.writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, inventory.ToMovementResponse(m))
	}
	return c.JSON(dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset},
	})
}

// GetPosition godoc
// @Summary      Cantidad disponible y costo vigente de un ítem en una bodega
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        item_id       path  string  true  "Ítem"
// @Param        warehouse_id  path  string  true  "Bodega"
// @Success      200  {object}  dto.StockPositionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/balances/{item_id}/{warehouse_id} [get]
func (h *LedgerHandler) GetPosition(c *fiber.Ctx) error {
	itemID, warehouseID := c.Params("item_id"), c.Params("warehouse_id")
	qty, err := h.query.AvailableQuantity(c.Context(), itemID, warehouseID)
	if err != nil {
		return h.writeError(c, err)
	}
	cost, err := h.query.CurrentCost(c.Context(), itemID, warehouseID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.StockPositionResponse{
		ItemID:            itemID,
		WarehouseID:       warehouseID,
		AvailableQuantity: qty,
		CurrentCost:       cost,
	})
}

// GetSummary godoc
// @Summary      Stock consolidado de un ítem en todas sus bodegas
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        item_id  path  string  true  "Ítem"
// @Success      200  {object}  dto.StockSummaryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/items/{item_id}/summary [get]
func (h *LedgerHandler) GetSummary(c *fiber.Ctx) error {
	sum, err := h.query.StockSummary(c.Context(), c.Params("item_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	out := dto.StockSummaryResponse{
		ItemID:        sum.ItemID,
		ItemCode:      sum.ItemCode,
		TotalQuantity: sum.TotalQuantity,
		TotalValue:    sum.TotalValue,
		AverageCost:   sum.AverageCost,
		Warehouses:    make([]dto.WarehouseStockDTO, 0, len(sum.Warehouses)),
	}
	for _, w := range sum.Warehouses {
		out.Warehouses = append(out.Warehouses, dto.WarehouseStockDTO{
			WarehouseID:   w.WarehouseID,
			WarehouseName: w.WarehouseName,
			Quantity:      w.Quantity,
			UnitCost:      w.UnitCost,
			Value:         w.Value,
		})
	}
	return c.JSON(out)
}

// RebuildBalance godoc
// @Summary      Reconstruir saldo desde el kardex (solo admin)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        item_id       path  string  true  "Ítem"
// @Param        warehouse_id  path  string  true  "Bodega"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/ledger/balances/{item_id}/{warehouse_id}/rebuild [post]
func (h *LedgerHandler) RebuildBalance(c *fiber.Ctx) error {
	b, err := h.reconcile.RebuildBalance(c.Context(), c.Params("item_id"), c.Params("warehouse_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(inventory.ToBalanceResponse(b))
}

// GetDrift godoc
// @Summary      Comparar saldo almacenado contra el reconstruido (solo admin)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        item_id       path  string  true  "Ítem"
// @Param        warehouse_id  path  string  true  "Bodega"
// @Success      200  {object}  dto.DriftResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/ledger/balances/{item_id}/{warehouse_id}/drift [get]
func (h *LedgerHandler) GetDrift(c *fiber.Ctx) error {
	report, err := h.reconcile.DetectDrift(c.Context(), c.Params("item_id"), c.Params("warehouse_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	out := dto.DriftResponse{
		ItemID:      report.Key.ItemID,
		WarehouseID: report.Key.WarehouseID,
		Replayed:    inventory.ToBalanceResponse(&report.Replayed),
		Drifted:     report.Drifted,
	}
	if report.Stored != nil {
		stored := inventory.ToBalanceResponse(report.Stored)
		out.Stored = &stored
	}
	return c.JSON(out)
}

// validateStruct devuelve los campos inválidos por nombre de campo, o nil.
func (h *LedgerHandler) validateStruct(v any) map[string]string {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// writeError traduce la taxonomía de errores del dominio a HTTP.
func (h *LedgerHandler) writeError(c *fiber.Ctx, err error) error {
	var (
		invalid *domain.InvalidMovementError
		stock   *domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: err.Error(), Fields: map[string]string{invalid.Field: invalid.Reason},
		})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.As(err, &stock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: err.Error(),
			Details: dto.InsufficientStockDetail{
				ItemID:        stock.ItemID,
				ItemCode:      stock.ItemCode,
				WarehouseID:   stock.WarehouseID,
				WarehouseName: stock.WarehouseName,
				Available:     stock.Available,
				Requested:     stock.Requested,
			},
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrWriteFailed):
		h.log.Error().Err(err).Str("path", c.Path()).Msg("fallo de escritura en el kardex")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "WRITE_FAILED", Message: "no se pudo registrar el movimiento"})
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}

func parseTimeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
