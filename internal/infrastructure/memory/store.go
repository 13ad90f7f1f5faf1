/*
Package memory implementa los puertos del kardex en memoria.

Cada unidad de trabajo (Run) trabaja sobre una copia del estado confirmado y solo la
publica si fn termina sin error; así un fallo a mitad de camino no deja nada visible.
Las unidades de trabajo se serializan con un mutex, lo que equivale a un bloqueo
pesimista sobre todos los saldos. Pensado para tests y demos, no para producción.
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

var (
	_ inventory.TxRunner             = (*Store)(nil)
	_ repository.MovementRepository  = (*MovementRepo)(nil)
	_ repository.BalanceRepository   = (*BalanceRepo)(nil)
	_ repository.ItemRepository      = (*ItemRepo)(nil)
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
)

type state struct {
	movements []*entity.Movement
	balances  map[entity.BalanceKey]entity.Balance
	nextID    int64
}

func (s *state) clone() *state {
	out := &state{
		movements: make([]*entity.Movement, len(s.movements)),
		balances:  make(map[entity.BalanceKey]entity.Balance, len(s.balances)),
		nextID:    s.nextID,
	}
	copy(out.movements, s.movements)
	for k, v := range s.balances {
		out.balances[k] = v
	}
	return out
}

// Store estado en memoria del kardex y los datos de referencia.
type Store struct {
	txMu sync.Mutex // serializa unidades de trabajo
	mu   sync.RWMutex

	committed  *state
	items      map[string]entity.Item
	warehouses map[string]entity.Warehouse
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		committed:  &state{balances: make(map[entity.BalanceKey]entity.Balance)},
		items:      make(map[string]entity.Item),
		warehouses: make(map[string]entity.Warehouse),
	}
}

// AddItem registra un ítem de referencia.
func (s *Store) AddItem(item entity.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

// AddWarehouse registra una bodega de referencia.
func (s *Store) AddWarehouse(wh entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[wh.ID] = wh
}

// Run ejecuta fn sobre una copia del estado y la confirma si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	balanceRepo repository.BalanceRepository,
) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(&MovementRepo{store: s, tx: work}, &BalanceRepo{store: s, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// MovementRepo devuelve el repositorio de movimientos fuera de transacción (solo lectura útil).
func (s *Store) MovementRepo() *MovementRepo { return &MovementRepo{store: s} }

// BalanceRepo devuelve el repositorio de saldos fuera de transacción.
func (s *Store) BalanceRepo() *BalanceRepo { return &BalanceRepo{store: s} }

// ItemRepo devuelve el repositorio de ítems.
func (s *Store) ItemRepo() *ItemRepo { return &ItemRepo{store: s} }

// WarehouseRepo devuelve el repositorio de bodegas.
func (s *Store) WarehouseRepo() *WarehouseRepo { return &WarehouseRepo{store: s} }

// read ejecuta fn sobre el estado de la transacción o, si no hay, sobre el confirmado.
func (s *Store) read(tx *state, fn func(st *state)) {
	if tx != nil {
		fn(tx)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// write igual que read pero con bloqueo exclusivo fuera de transacción.
func (s *Store) write(tx *state, fn func(st *state)) {
	if tx != nil {
		fn(tx)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.committed)
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

// MovementRepo implementación en memoria de MovementRepository.
type MovementRepo struct {
	store *Store
	tx    *state
}

// Create agrega el movimiento y le asigna el siguiente ID.
func (r *MovementRepo) Create(_ context.Context, movement *entity.Movement) error {
	r.store.write(r.tx, func(st *state) {
		st.nextID++
		movement.ID = st.nextID
		cp := *movement
		st.movements = append(st.movements, &cp)
	})
	return nil
}

// GetByID obtiene un movimiento por ID; nil si no existe.
func (r *MovementRepo) GetByID(_ context.Context, id int64) (*entity.Movement, error) {
	var out *entity.Movement
	r.store.read(r.tx, func(st *state) {
		for _, m := range st.movements {
			if m.ID == id {
				cp := *m
				out = &cp
				return
			}
		}
	})
	return out, nil
}

// List filtra y ordena del más reciente al más antiguo.
func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var list []*entity.Movement
	r.store.read(r.tx, func(st *state) {
		for _, m := range st.movements {
			if matches(m, f) {
				cp := *m
				list = append(list, &cp)
			}
		}
	})
	domaininv.SortNewestFirst(list)
	if f.Offset >= len(list) {
		return []*entity.Movement{}, nil
	}
	list = list[f.Offset:]
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

// ListByPair devuelve el historial del par en orden cronológico.
func (r *MovementRepo) ListByPair(_ context.Context, itemID, warehouseID string) ([]*entity.Movement, error) {
	var list []*entity.Movement
	r.store.read(r.tx, func(st *state) {
		for _, m := range st.movements {
			if m.ItemID == itemID && m.Touches(warehouseID) {
				cp := *m
				list = append(list, &cp)
			}
		}
	})
	domaininv.SortChronological(list)
	return list, nil
}

func matches(m *entity.Movement, f repository.MovementFilter) bool {
	if f.ItemID != "" && m.ItemID != f.ItemID {
		return false
	}
	if f.WarehouseID != "" && !m.Touches(f.WarehouseID) {
		return false
	}
	if f.Kind != "" && m.Kind != f.Kind {
		return false
	}
	if f.From != nil && m.MovementDate.Before(*f.From) {
		return false
	}
	if f.To != nil && m.MovementDate.After(*f.To) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────────────────────────────────
// Saldos
// ──────────────────────────────────────────────────────────────────────────────

// BalanceRepo implementación en memoria de BalanceRepository.
type BalanceRepo struct {
	store *Store
	tx    *state
}

// Get obtiene el saldo del par; nil si no existe.
func (r *BalanceRepo) Get(_ context.Context, itemID, warehouseID string) (*entity.Balance, error) {
	var out *entity.Balance
	r.store.read(r.tx, func(st *state) {
		if b, ok := st.balances[entity.BalanceKey{ItemID: itemID, WarehouseID: warehouseID}]; ok {
			out = &b
		}
	})
	return out, nil
}

// GetForUpdate dentro de Run el bloqueo ya lo da la serialización de unidades de trabajo.
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

// Upsert inserta o reemplaza el saldo del par.
func (r *BalanceRepo) Upsert(_ context.Context, balance *entity.Balance) error {
	r.store.write(r.tx, func(st *state) {
		st.balances[balance.Key()] = *balance
	})
	return nil
}

// ListByItem saldos del ítem ordenados por bodega.
func (r *BalanceRepo) ListByItem(_ context.Context, itemID string) ([]*entity.Balance, error) {
	var list []*entity.Balance
	r.store.read(r.tx, func(st *state) {
		for k, b := range st.balances {
			if k.ItemID == itemID {
				cp := b
				list = append(list, &cp)
			}
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].WarehouseID < list[j].WarehouseID })
	return list, nil
}

// ListKeys todas las claves de saldo, ordenadas.
func (r *BalanceRepo) ListKeys(_ context.Context) ([]entity.BalanceKey, error) {
	var keys []entity.BalanceKey
	r.store.read(r.tx, func(st *state) {
		for k := range st.balances {
			keys = append(keys, k)
		}
	})
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ItemID != keys[j].ItemID {
			return keys[i].ItemID < keys[j].ItemID
		}
		return keys[i].WarehouseID < keys[j].WarehouseID
	})
	return keys, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Datos de referencia
// ──────────────────────────────────────────────────────────────────────────────

// ItemRepo lectura de ítems en memoria.
type ItemRepo struct{ store *Store }

// GetByID obtiene un ítem; nil si no existe.
func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if it, ok := r.store.items[id]; ok {
		return &it, nil
	}
	return nil, nil
}

// WarehouseRepo lectura de bodegas en memoria.
type WarehouseRepo struct{ store *Store }

// GetByID obtiene una bodega; nil si no existe.
func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if wh, ok := r.store.warehouses[id]; ok {
		return &wh, nil
	}
	return nil, nil
}
