package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const (
	// QueueDefault cola por defecto de los jobs del kardex.
	QueueDefault = "default"
	// TaskReconcile reconstruye saldos desde el kardex.
	TaskReconcile = "ledger:reconcile"
)

// ReconcilePayload sin par ítem/bodega reconstruye todos los saldos.
type ReconcilePayload struct {
	ItemID       string    `json:"item_id,omitempty"`
	WarehouseID  string    `json:"warehouse_id,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewReconcileTask construye la tarea asynq de reconciliación.
func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, body, asynq.Queue(QueueDefault)), nil
}

// ReconcileJob procesa TaskReconcile.
type ReconcileJob struct {
	uc  *inventory.ReconcileUseCase
	log *logger.Logger
}

// NewReconcileJob construye el job.
func NewReconcileJob(uc *inventory.ReconcileUseCase, log *logger.Logger) *ReconcileJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileJob{uc: uc, log: log.Component("jobs")}
}

// Handle implementa asynq.HandlerFunc.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
	}
	if (payload.ItemID == "") != (payload.WarehouseID == "") {
		return fmt.Errorf("item_id y warehouse_id van juntos: %w", asynq.SkipRetry)
	}

	if payload.ItemID != "" {
		b, err := j.uc.RebuildBalance(ctx, payload.ItemID, payload.WarehouseID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		j.log.Info().
			Str("item_id", b.ItemID).
			Str("warehouse_id", b.WarehouseID).
			Str("quantity", b.Quantity.String()).
			Str("unit_cost", b.UnitCost.String()).
			Msg("saldo reconstruido")
		return nil
	}

	drifted, err := j.uc.RebuildAll(ctx)
	if err != nil {
		return err
	}
	ev := j.log.Info().Int("drifted", len(drifted))
	if !payload.ScheduledFor.IsZero() {
		ev = ev.Time("scheduled_for", payload.ScheduledFor)
	}
	ev.Msg("reconciliación programada ejecutada")
	return nil
}
