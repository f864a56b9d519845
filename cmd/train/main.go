package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"DemandCast/internal/di"
	"DemandCast/internal/usecase"
	"DemandCast/pkg/config"
	"DemandCast/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path (empty for defaults)")
	dataPath := flag.String("data", "", "training CSV (defaults to dataset.path)")
	testSize := flag.Float64("test-size", 0, "held-out fraction in [0.1, 0.5] (defaults to dataset.test_size)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *dataPath == "" {
		*dataPath = cfg.Dataset.Path
	}
	if *testSize == 0 {
		*testSize = cfg.Dataset.TestSize
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	rc, closeRedis, err := di.ProvideRedisClient(cfg, l)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer closeRedis()
	backend, err := di.ProvideArtifactStore(cfg, rc)
	if err != nil {
		log.Fatalf("model store: %v", err)
	}
	store, closeStore := di.ProvideModelStore(cfg, backend, l)
	defer closeStore()

	trainer, err := usecase.NewTrainer(store, di.ProvideHyperparams(cfg), l, metrics.Nop{})
	if err != nil {
		log.Fatalf("trainer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("============================================================")
	fmt.Println("Demand forecast model training")
	fmt.Println("============================================================")
	fmt.Printf("\nTraining on %s (test size %.2f)...\n\n", *dataPath, *testSize)

	tm, err := trainer.Train(ctx, *dataPath, *testSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}

	m := tm.Metrics
	fmt.Println("Model trained successfully.")
	fmt.Println("\nMetrics:")
	fmt.Printf("  R2 score:         %.4f\n", m.R2Score)
	fmt.Printf("  MAE:              %.2f\n", m.MAE)
	fmt.Printf("  RMSE:             %.2f\n", m.RMSE)
	fmt.Printf("  Baseline R2:      %.4f\n", m.BaselineR2)
	fmt.Printf("  Train samples:    %d\n", m.TrainSamples)
	fmt.Printf("  Test samples:     %d\n", m.TestSamples)
	fmt.Printf("  Run id:           %s\n", tm.RunID)
	fmt.Println("\n============================================================")
	fmt.Printf("Model saved to %s store\n", store.Backend())
	fmt.Println("============================================================")
}
