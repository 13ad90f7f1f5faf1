// reconcile compara los saldos almacenados con el kardex y opcionalmente los corrige.
//
// Uso:
//
//	go run ./cmd/reconcile                          # reconstruye todos los saldos
//	go run ./cmd/reconcile -item X -warehouse Y     # un solo par
//	go run ./cmd/reconcile -dry-run [-item X -warehouse Y]
//	go run ./cmd/reconcile -enqueue                 # delega la reconstrucción al worker
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/storage"
	"github.com/jhoicas/stock-ledger/internal/jobs"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	itemID := flag.String("item", "", "ID del ítem")
	warehouseID := flag.String("warehouse", "", "ID de la bodega")
	dryRun := flag.Bool("dry-run", false, "solo reportar descuadres, sin escribir")
	enqueue := flag.Bool("enqueue", false, "encolar la reconciliación en el worker (asynq)")
	flag.Parse()

	if (*itemID == "") != (*warehouseID == "") {
		fmt.Fprintln(os.Stderr, "-item y -warehouse van juntos")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})
	ctx := context.Background()

	if *enqueue {
		client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		info, err := client.EnqueueReconcile(ctx, jobs.ReconcilePayload{ItemID: *itemID, WarehouseID: *warehouseID})
		if err != nil {
			log.Fatal().Err(err).Msg("encolar reconciliación")
		}
		log.Info().Str("task_id", info.ID).Str("queue", info.Queue).Msg("reconciliación encolada")
		return
	}

	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer backend.Close()
	uc := inventory.NewReconcileUseCase(backend.TxRunner, backend.Movements, backend.Balances, log)

	switch {
	case *itemID != "" && *dryRun:
		report, err := uc.DetectDrift(ctx, *itemID, *warehouseID)
		if err != nil {
			log.Fatal().Err(err).Msg("detectar descuadre")
		}
		printReport(report)

	case *itemID != "":
		b, err := uc.RebuildBalance(ctx, *itemID, *warehouseID)
		if err != nil {
			log.Fatal().Err(err).Msg("reconstruir saldo")
		}
		fmt.Printf("%s/%s cantidad=%s costo=%s valor=%s\n", b.ItemID, b.WarehouseID, b.Quantity, b.UnitCost, b.Value())

	case *dryRun:
		keys, err := backend.Balances.ListKeys(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("listar saldos")
		}
		drifted := 0
		for _, k := range keys {
			report, err := uc.DetectDrift(ctx, k.ItemID, k.WarehouseID)
			if err != nil {
				log.Fatal().Err(err).Msg("detectar descuadre")
			}
			if report.Drifted {
				drifted++
				printReport(report)
			}
		}
		fmt.Printf("%d saldos revisados, %d descuadrados\n", len(keys), drifted)

	default:
		reports, err := uc.RebuildAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("reconstruir saldos")
		}
		for i := range reports {
			printReport(&reports[i])
		}
		fmt.Printf("%d saldos corregidos\n", len(reports))
	}
}

func printReport(r *inventory.DriftReport) {
	stored := "sin saldo"
	if r.Stored != nil {
		stored = fmt.Sprintf("%s @ %s", r.Stored.Quantity, r.Stored.UnitCost)
	}
	status := "ok"
	if r.Drifted {
		status = "DESCUADRE"
	}
	fmt.Printf("%s/%s %s almacenado=%s kardex=%s @ %s\n",
		r.Key.ItemID, r.Key.WarehouseID, status, stored, r.Replayed.Quantity, r.Replayed.UnitCost)
}
