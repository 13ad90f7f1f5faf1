package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RegisterMovement *inventory.RegisterMovementUseCase
	StockQuery       *inventory.StockQueryUseCase
	Reconcile        *inventory.ReconcileUseCase
	JWTSecret        string
	ServiceName      string
	// Health verifica el almacenamiento; nil = siempre sano.
	Health func(ctx context.Context) error
	Log    *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(c.Context()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "service": deps.ServiceName})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	ledger := api.Group("/ledger", AuthMiddleware(deps.JWTSecret))
	h := NewLedgerHandler(deps.RegisterMovement, deps.StockQuery, deps.Reconcile, deps.Log)

	// Escritura: admin y bodeguero. Lectura: cualquier rol autenticado.
	ledger.Post("/movements", RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero), h.RegisterMovement)
	ledger.Get("/movements", h.ListMovements)
	ledger.Get("/balances/:item_id/:warehouse_id", h.GetPosition)
	ledger.Get("/items/:item_id/summary", h.GetSummary)

	// Reconciliación: solo admin
	admin := RequireRole(jwt.RoleAdmin)
	ledger.Post("/balances/:item_id/:warehouse_id/rebuild", admin, h.RebuildBalance)
	ledger.Get("/balances/:item_id/:warehouse_id/drift", admin, h.GetDrift)
}
