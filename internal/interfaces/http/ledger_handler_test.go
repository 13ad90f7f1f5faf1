package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newLedgerStore() *memory.Store {
	s := memory.New()
	s.AddItem(entity.Item{ID: "item-1", Code: "TOR-001", Name: "Tornillo", ReferencePurchasePrice: decimal.RequireFromString("9")})
	s.AddWarehouse(entity.Warehouse{ID: "wh-a", Name: "Bodega A"})
	s.AddWarehouse(entity.Warehouse{ID: "wh-b", Name: "Bodega B"})
	return s
}

// buildLedgerApp arma el router completo sobre el store en memoria.
// runner permite inyectar fallas de escritura; nil usa el propio store.
func buildLedgerApp(s *memory.Store, runner inventory.TxRunner) *fiber.App {
	if runner == nil {
		runner = s
	}
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		RegisterMovement: inventory.NewRegisterMovementUseCase(runner, s.ItemRepo(), s.WarehouseRepo(), inventory.Config{}),
		StockQuery:       inventory.NewStockQueryUseCase(s.BalanceRepo(), s.MovementRepo(), s.ItemRepo(), s.WarehouseRepo()),
		Reconcile:        inventory.NewReconcileUseCase(runner, s.MovementRepo(), s.BalanceRepo(), nil),
		JWTSecret:        testJWTSecret,
		ServiceName:      "stock-ledger-test",
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func seedEntries(t *testing.T, app *fiber.App) {
	t.Helper()
	for _, body := range []string{
		`{"item_id":"item-1","kind":"ENTRY","quantity":100,"destination_warehouse_id":"wh-a","unit_price":10}`,
		`{"item_id":"item-1","kind":"ENTRY","quantity":"50","destination_warehouse_id":"wh-a","unit_price":"16"}`,
	} {
		status, _ := call(t, app, http.MethodPost, "/api/ledger/movements", "bodeguero", body)
		require.Equal(t, http.StatusCreated, status)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/ledger/movements
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_Creado(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)

	status, body := call(t, app, http.MethodPost, "/api/ledger/movements", "admin",
		`{"item_id":"item-1","kind":"PURCHASE_RECEIPT","quantity":100,"destination_warehouse_id":"wh-a","unit_price":10,"document_no":"FC-1"}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "10", body["unit_cost"])
	assert.Equal(t, "1000", body["total_value"])
	assert.Equal(t, "FC-1", body["document_no"])
	assert.Equal(t, testUserID, body["created_by"])
}

func TestRegisterMovement_StockInsuficiente_409(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	seedEntries(t, app)

	status, body := call(t, app, http.MethodPost, "/api/ledger/movements", "bodeguero",
		`{"item_id":"item-1","kind":"SALE","quantity":1000,"source_warehouse_id":"wh-a"}`)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "150", details["available"])
	assert.Equal(t, "1000", details["requested"])
	assert.Equal(t, "Bodega A", details["warehouse_name"])
}

func TestRegisterMovement_StockNegativoSoloAdmin(t *testing.T) {
	s := newLedgerStore()
	app := buildLedgerApp(s, nil)
	seedEntries(t, app)
	sale := `{"item_id":"item-1","kind":"SALE","quantity":200,"source_warehouse_id":"wh-a","allow_negative_stock":true}`

	status, body := call(t, app, http.MethodPost, "/api/ledger/movements", "bodeguero", sale)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])
	b, err := s.BalanceRepo().Get(context.Background(), "item-1", "wh-a")
	require.NoError(t, err)
	assert.Equal(t, "150", b.Quantity.String(), "el rechazo no escribe")

	status, _ = call(t, app, http.MethodPost, "/api/ledger/movements", "admin", sale)
	assert.Equal(t, http.StatusCreated, status)
	b, err = s.BalanceRepo().Get(context.Background(), "item-1", "wh-a")
	require.NoError(t, err)
	assert.Equal(t, "-50", b.Quantity.String())
}

func TestRegisterMovement_Validacion_400(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"tipo fuera del conjunto", `{"item_id":"item-1","kind":"ADJUSTMENT","quantity":1,"destination_warehouse_id":"wh-a"}`, "Kind"},
		{"sin ítem", `{"kind":"ENTRY","quantity":1,"destination_warehouse_id":"wh-a"}`, "ItemID"},
		{"cantidad cero", `{"item_id":"item-1","kind":"ENTRY","quantity":0,"destination_warehouse_id":"wh-a"}`, "quantity"},
		{"traslado misma bodega", `{"item_id":"item-1","kind":"TRANSFER","quantity":1,"source_warehouse_id":"wh-a","destination_warehouse_id":"wh-a"}`, "destination_warehouse_id"},
		{"cantidad con siete decimales", `{"item_id":"item-1","kind":"ENTRY","quantity":"1.0000004","destination_warehouse_id":"wh-a"}`, "quantity"},
		{"precio con siete decimales", `{"item_id":"item-1","kind":"ENTRY","quantity":1,"destination_warehouse_id":"wh-a","unit_price":"2.1234567"}`, "unit_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, "/api/ledger/movements", "admin", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "VALIDATION", body["code"])
			fields, ok := body["fields"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestRegisterMovement_CuerpoInvalido_400(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	status, body := call(t, app, http.MethodPost, "/api/ledger/movements", "admin", `{"item_id":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_BODY", body["code"])
}

func TestRegisterMovement_ItemInexistente_404(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	status, body := call(t, app, http.MethodPost, "/api/ledger/movements", "admin",
		`{"item_id":"no-existe","kind":"ENTRY","quantity":1,"destination_warehouse_id":"wh-a"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRegisterMovement_VendedorNoRegistra_403(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	status, _ := call(t, app, http.MethodPost, "/api/ledger/movements", "vendedor",
		`{"item_id":"item-1","kind":"ENTRY","quantity":1,"destination_warehouse_id":"wh-a"}`)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRegisterMovement_SinToken_401(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	status, _ := call(t, app, http.MethodPost, "/api/ledger/movements", "",
		`{"item_id":"item-1","kind":"ENTRY","quantity":1,"destination_warehouse_id":"wh-a"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

type brokenRunner struct{ inner *memory.Store }

func (r brokenRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.BalanceRepository) error) error {
	return r.inner.Run(ctx, func(m repository.MovementRepository, b repository.BalanceRepository) error {
		if err := fn(m, b); err != nil {
			return err
		}
		return errors.New("commit rechazado")
	})
}

func TestRegisterMovement_FallaDeEscritura_500(t *testing.T) {
	s := newLedgerStore()
	app := buildLedgerApp(s, brokenRunner{inner: s})

	status, body := call(t, app, http.MethodPost, "/api/ledger/movements", "admin",
		`{"item_id":"item-1","kind":"ENTRY","quantity":1,"destination_warehouse_id":"wh-a"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "WRITE_FAILED", body["code"])

	list, err := s.MovementRepo().List(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestGetPosition(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	seedEntries(t, app)

	status, body := call(t, app, http.MethodGet, "/api/ledger/balances/item-1/wh-a", "vendedor", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "150", body["available_quantity"])
	assert.Equal(t, "12", body["current_cost"])

	status, body = call(t, app, http.MethodGet, "/api/ledger/balances/item-1/wh-b", "vendedor", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", body["available_quantity"])
	assert.Equal(t, "9", body["current_cost"])
}

func TestGetSummary(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	seedEntries(t, app)
	status, _ := call(t, app, http.MethodPost, "/api/ledger/movements", "admin",
		`{"item_id":"item-1","kind":"TRANSFER","quantity":50,"source_warehouse_id":"wh-a","destination_warehouse_id":"wh-b"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, http.MethodGet, "/api/ledger/items/item-1/summary", "vendedor", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TOR-001", body["item_code"])
	assert.Equal(t, "150", body["total_quantity"])
	assert.Equal(t, "12", body["average_cost"])
	whs, ok := body["warehouses"].([]any)
	require.True(t, ok)
	assert.Len(t, whs, 2)

	status, _ = call(t, app, http.MethodGet, "/api/ledger/items/no-existe/summary", "vendedor", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListMovements(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	seedEntries(t, app)
	status, _ := call(t, app, http.MethodPost, "/api/ledger/movements", "admin",
		`{"item_id":"item-1","kind":"SALE","quantity":5,"source_warehouse_id":"wh-a"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, http.MethodGet, "/api/ledger/movements?item_id=item-1&kind=SALE", "vendedor", "")
	assert.Equal(t, http.StatusOK, status)
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "12", items[0].(map[string]any)["unit_cost"])

	status, body = call(t, app, http.MethodGet, "/api/ledger/movements?limit=2", "vendedor", "")
	assert.Equal(t, http.StatusOK, status)
	items, _ = body["items"].([]any)
	assert.Len(t, items, 2)
	assert.Equal(t, float64(3), items[0].(map[string]any)["id"], "más reciente primero")

	status, body = call(t, app, http.MethodGet, "/api/ledger/movements?from=ayer", "vendedor", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])

	status, _ = call(t, app, http.MethodGet, "/api/ledger/movements?kind=ADJUSTMENT", "vendedor", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reconciliación (solo admin)
// ──────────────────────────────────────────────────────────────────────────────

func TestRebuildAndDrift(t *testing.T) {
	s := newLedgerStore()
	app := buildLedgerApp(s, nil)
	seedEntries(t, app)

	status, _ := call(t, app, http.MethodPost, "/api/ledger/balances/item-1/wh-a/rebuild", "bodeguero", "")
	assert.Equal(t, http.StatusForbidden, status)

	require.NoError(t, s.BalanceRepo().Upsert(context.Background(), &entity.Balance{
		ItemID: "item-1", WarehouseID: "wh-a", Quantity: decimal.RequireFromString("1"), UnitCost: decimal.RequireFromString("1"),
	}))

	status, body := call(t, app, http.MethodGet, "/api/ledger/balances/item-1/wh-a/drift", "admin", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["drifted"])

	status, body = call(t, app, http.MethodPost, "/api/ledger/balances/item-1/wh-a/rebuild", "admin", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "150", body["quantity"])
	assert.Equal(t, "12", body["unit_cost"])
	assert.Equal(t, "1800", body["value"])

	status, body = call(t, app, http.MethodGet, "/api/ledger/balances/item-1/wh-a/drift", "admin", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["drifted"])
}

func TestHealth(t *testing.T) {
	app := buildLedgerApp(newLedgerStore(), nil)
	status, body := call(t, app, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
