/*
Package sqlite implementa los puertos del kardex sobre SQLite.

Pensado para instalaciones de una sola máquina y para pruebas de integración sin
servidor. Las mismas tablas que en PostgreSQL con diferencias de dialecto:

  - Cantidades y costos se guardan como TEXT (decimal.Decimal implementa Scanner/Valuer).
  - Fechas como TEXT UTC de ancho fijo para que el orden lexicográfico sea el cronológico.
  - stock_movements es solo de inserción: triggers rechazan UPDATE y DELETE.

CONCURRENCIA:

	El pool se limita a una conexión; SQLite admite un solo escritor y así cada
	unidad de trabajo queda serializada, equivalente a bloquear los saldos que toca.
	Las transacciones se abren con BEGIN IMMEDIATE por si otro proceso comparte el archivo.

El esquema se migra en New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// timeLayout ancho fijo en UTC: comparar textos equivale a comparar fechas.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	_ inventory.TxRunner             = (*Store)(nil)
	_ repository.MovementRepository  = (*MovementRepo)(nil)
	_ repository.BalanceRepository   = (*BalanceRepo)(nil)
	_ repository.ItemRepository      = (*ItemRepo)(nil)
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
)

// dbtx lo cumplen *sql.DB y *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store kardex sobre SQLite.
type Store struct {
	db *sql.DB
}

// New abre (o crea) la base en dbPath y migra el esquema. ":memory:" para una base efímera.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("abrir base sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrar base sqlite: %w", err)
	}
	return s, nil
}

// Close cierra la conexión.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id                       TEXT PRIMARY KEY,
		code                     TEXT NOT NULL UNIQUE,
		name                     TEXT NOT NULL,
		reference_purchase_price TEXT NOT NULL DEFAULT '0',
		created_at               TEXT NOT NULL,
		updated_at               TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS warehouses (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		address    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stock_movements (
		id                       INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id                  TEXT NOT NULL REFERENCES items(id),
		kind                     TEXT NOT NULL,
		quantity                 TEXT NOT NULL,
		source_warehouse_id      TEXT REFERENCES warehouses(id),
		destination_warehouse_id TEXT REFERENCES warehouses(id),
		unit_cost                TEXT NOT NULL,
		total_value              TEXT NOT NULL,
		document_no              TEXT NOT NULL DEFAULT '',
		document_type            TEXT NOT NULL DEFAULT '',
		description              TEXT NOT NULL DEFAULT '',
		movement_date            TEXT NOT NULL,
		created_at               TEXT NOT NULL,
		created_by               TEXT,
		CHECK (source_warehouse_id IS NOT NULL OR destination_warehouse_id IS NOT NULL)
	);

	CREATE INDEX IF NOT EXISTS idx_stock_movements_src
		ON stock_movements(item_id, source_warehouse_id, movement_date, id);
	CREATE INDEX IF NOT EXISTS idx_stock_movements_dst
		ON stock_movements(item_id, destination_warehouse_id, movement_date, id);

	CREATE TRIGGER IF NOT EXISTS trg_stock_movements_no_update
		BEFORE UPDATE ON stock_movements
	BEGIN
		SELECT RAISE(ABORT, 'stock_movements es solo de inserción');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_stock_movements_no_delete
		BEFORE DELETE ON stock_movements
	BEGIN
		SELECT RAISE(ABORT, 'stock_movements es solo de inserción');
	END;

	CREATE TABLE IF NOT EXISTS stock_balances (
		item_id      TEXT NOT NULL REFERENCES items(id),
		warehouse_id TEXT NOT NULL REFERENCES warehouses(id),
		quantity     TEXT NOT NULL,
		unit_cost    TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		PRIMARY KEY (item_id, warehouse_id)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Run ejecuta fn dentro de una transacción; Commit si fn no falla, Rollback en otro caso.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	balanceRepo repository.BalanceRepository,
) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&MovementRepo{q: tx}, &BalanceRepo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// MovementRepo repositorio de movimientos fuera de transacción.
func (s *Store) MovementRepo() *MovementRepo { return &MovementRepo{q: s.db} }

// BalanceRepo repositorio de saldos fuera de transacción.
func (s *Store) BalanceRepo() *BalanceRepo { return &BalanceRepo{q: s.db} }

// ItemRepo repositorio de ítems.
func (s *Store) ItemRepo() *ItemRepo { return &ItemRepo{q: s.db} }

// WarehouseRepo repositorio de bodegas.
func (s *Store) WarehouseRepo() *WarehouseRepo { return &WarehouseRepo{q: s.db} }

// ──────────────────────────────────────────────────────────────────────────────
// Datos de referencia
// ──────────────────────────────────────────────────────────────────────────────

// CreateItem registra un ítem; genera el ID si viene vacío.
func (s *Store) CreateItem(ctx context.Context, it *entity.Item) error {
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, code, name, reference_purchase_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		it.ID, it.Code, it.Name, it.ReferencePurchasePrice, formatTime(it.CreatedAt), formatTime(it.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// CreateWarehouse registra una bodega; genera el ID si viene vacío.
func (s *Store) CreateWarehouse(ctx context.Context, w *entity.Warehouse) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouses (id, name, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Address, formatTime(w.CreatedAt), formatTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create warehouse: %w", err)
	}
	return nil
}

// ItemRepo lectura de ítems.
type ItemRepo struct{ q dbtx }

// GetByID obtiene un ítem; nil si no existe.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	var (
		it                 entity.Item
		created, updated string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, code, name, reference_purchase_price, created_at, updated_at
		FROM items WHERE id = ?`, id,
	).Scan(&it.ID, &it.Code, &it.Name, &it.ReferencePurchasePrice, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if it.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &it, nil
}

// WarehouseRepo lectura de bodegas.
type WarehouseRepo struct{ q dbtx }

// GetByID obtiene una bodega; nil si no existe.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var (
		w                entity.Warehouse
		created, updated string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, address, created_at, updated_at FROM warehouses WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.Address, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	if w.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &w, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

const movementColumns = `id, item_id, kind, quantity, source_warehouse_id, destination_warehouse_id,
	unit_cost, total_value, document_no, document_type, description, movement_date, created_at, created_by`

// MovementRepo kardex sobre SQLite.
type MovementRepo struct{ q dbtx }

// Create inserta el movimiento y asigna el ID autoincremental.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO stock_movements (item_id, kind, quantity, source_warehouse_id, destination_warehouse_id,
			unit_cost, total_value, document_no, document_type, description, movement_date, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ItemID, string(m.Kind), m.Quantity, nullString(m.SourceWarehouseID), nullString(m.DestinationWarehouseID),
		m.UnitCost, m.TotalValue, m.DocumentNo, m.DocumentType, m.Description,
		formatTime(m.MovementDate), formatTime(m.CreatedAt), nullString(m.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	m.ID = id
	return nil
}

// GetByID obtiene un movimiento; nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	list, err := r.query(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// List movimientos filtrados, del más reciente al más antiguo.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var (
		conds []string
		args  []any
	)
	if f.ItemID != "" {
		conds = append(conds, "item_id = ?")
		args = append(args, f.ItemID)
	}
	if f.WarehouseID != "" {
		conds = append(conds, "(source_warehouse_id = ? OR destination_warehouse_id = ?)")
		args = append(args, f.WarehouseID, f.WarehouseID)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.From != nil {
		conds = append(conds, "movement_date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "movement_date <= ?")
		args = append(args, formatTime(*f.To))
	}

	query := `SELECT ` + movementColumns + ` FROM stock_movements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY movement_date DESC, id DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = -1 // sin límite en SQLite
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)
	return r.query(ctx, query, args...)
}

// ListByPair historial del par en orden cronológico.
func (r *MovementRepo) ListByPair(ctx context.Context, itemID, warehouseID string) ([]*entity.Movement, error) {
	return r.query(ctx, `SELECT `+movementColumns+`
		FROM stock_movements
		WHERE item_id = ? AND (source_warehouse_id = ? OR destination_warehouse_id = ?)
		ORDER BY movement_date, id`, itemID, warehouseID, warehouseID)
}

func (r *MovementRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Movement, 0)
	for rows.Next() {
		var (
			m                 entity.Movement
			kind, date, ctime string
			src, dst, usr     sql.NullString
		)
		if err := rows.Scan(
			&m.ID, &m.ItemID, &kind, &m.Quantity, &src, &dst,
			&m.UnitCost, &m.TotalValue, &m.DocumentNo, &m.DocumentType, &m.Description,
			&date, &ctime, &usr,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Kind = entity.MovementKind(kind)
		m.SourceWarehouseID = src.String
		m.DestinationWarehouseID = dst.String
		m.CreatedBy = usr.String
		if m.MovementDate, err = parseTime(date); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime(ctime); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// Saldos
// ──────────────────────────────────────────────────────────────────────────────

// BalanceRepo saldos sobre SQLite.
type BalanceRepo struct{ q dbtx }

// Get obtiene el saldo del par; nil si no existe.
func (r *BalanceRepo) Get(ctx context.Context, itemID, warehouseID string) (*entity.Balance, error) {
	list, err := r.query(ctx, `
		SELECT item_id, warehouse_id, quantity, unit_cost, updated_at
		FROM stock_balances WHERE item_id = ? AND warehouse_id = ?`, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetForUpdate con una sola conexión y BEGIN IMMEDIATE la transacción ya tiene el
// lock de escritura de toda la base; basta con leer.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, itemID, warehouseID string) (*entity.Balance, bool, error) {
	b, err := r.Get(ctx, itemID, warehouseID)
	if err != nil {
		return nil, false, err
	}
	if b == nil {
		return entity.NewBalance(itemID, warehouseID), false, nil
	}
	return b, true, nil
}

// Upsert inserta o actualiza cantidad y costo del par.
func (r *BalanceRepo) Upsert(ctx context.Context, b *entity.Balance) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO stock_balances (item_id, warehouse_id, quantity, unit_cost, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (item_id, warehouse_id)
		DO UPDATE SET quantity = excluded.quantity, unit_cost = excluded.unit_cost, updated_at = excluded.updated_at`,
		b.ItemID, b.WarehouseID, b.Quantity, b.UnitCost, formatTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert stock balance: %w", err)
	}
	return nil
}

// ListByItem saldos del ítem ordenados por bodega.
func (r *BalanceRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.Balance, error) {
	return r.query(ctx, `
		SELECT item_id, warehouse_id, quantity, unit_cost, updated_at
		FROM stock_balances WHERE item_id = ? ORDER BY warehouse_id`, itemID)
}

// ListKeys claves de todos los saldos.
func (r *BalanceRepo) ListKeys(ctx context.Context) ([]entity.BalanceKey, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT item_id, warehouse_id FROM stock_balances ORDER BY item_id, warehouse_id`)
	if err != nil {
		return nil, fmt.Errorf("list stock balance keys: %w", err)
	}
	defer rows.Close()

	keys := make([]entity.BalanceKey, 0)
	for rows.Next() {
		var k entity.BalanceKey
		if err := rows.Scan(&k.ItemID, &k.WarehouseID); err != nil {
			return nil, fmt.Errorf("scan stock balance key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *BalanceRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Balance, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock balances: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Balance, 0)
	for rows.Next() {
		var (
			b       entity.Balance
			updated string
		)
		if err := rows.Scan(&b.ItemID, &b.WarehouseID, &b.Quantity, &b.UnitCost, &updated); err != nil {
			return nil, fmt.Errorf("scan stock balance: %w", err)
		}
		if b.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha inválida %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
