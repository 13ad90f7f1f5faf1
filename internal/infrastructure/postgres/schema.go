package postgres

import (
	"context"
	"fmt"
)

// schema es idempotente; se ejecuta sentencia por sentencia al arrancar.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id                       TEXT PRIMARY KEY,
		code                     TEXT NOT NULL UNIQUE,
		name                     TEXT NOT NULL,
		reference_purchase_price NUMERIC(20,6) NOT NULL DEFAULT 0,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS warehouses (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		address    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id                       BIGSERIAL PRIMARY KEY,
		item_id                  TEXT NOT NULL REFERENCES items(id),
		kind                     TEXT NOT NULL,
		quantity                 NUMERIC(20,6) NOT NULL CHECK (quantity > 0),
		source_warehouse_id      TEXT REFERENCES warehouses(id),
		destination_warehouse_id TEXT REFERENCES warehouses(id),
		unit_cost                NUMERIC(20,6) NOT NULL,
		total_value              NUMERIC(20,6) NOT NULL,
		document_no              TEXT NOT NULL DEFAULT '',
		document_type            TEXT NOT NULL DEFAULT '',
		description              TEXT NOT NULL DEFAULT '',
		movement_date            TIMESTAMPTZ NOT NULL,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_by               TEXT,
		CHECK (source_warehouse_id IS NOT NULL OR destination_warehouse_id IS NOT NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_src
		ON stock_movements (item_id, source_warehouse_id, movement_date, id)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_dst
		ON stock_movements (item_id, destination_warehouse_id, movement_date, id)`,
	`CREATE TABLE IF NOT EXISTS stock_balances (
		item_id      TEXT NOT NULL REFERENCES items(id),
		warehouse_id TEXT NOT NULL REFERENCES warehouses(id),
		quantity     NUMERIC(20,6) NOT NULL DEFAULT 0,
		unit_cost    NUMERIC(20,6) NOT NULL DEFAULT 0,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (item_id, warehouse_id)
	)`,
	`CREATE OR REPLACE FUNCTION stock_movements_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'stock_movements es solo de inserción';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_stock_movements_append_only ON stock_movements`,
	`CREATE TRIGGER trg_stock_movements_append_only
		BEFORE UPDATE OR DELETE ON stock_movements
		FOR EACH ROW EXECUTE FUNCTION stock_movements_append_only()`,
}

// Migrate crea las tablas del kardex si no existen.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migración paso %d: %w", i+1, err)
		}
	}
	return nil
}
