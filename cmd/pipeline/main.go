// Command pipeline downloads the reservation dataset, preprocesses it,
// trains the cancellation model and prints the test metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atul219/Hotel-Reservation/pipeline"
	"github.com/atul219/Hotel-Reservation/pipeline/config"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
	logger := pipeline.NewLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := pipeline.Run(ctx, cfg, logger)
	if err != nil {
		logger.Error("Pipeline failed", err, log.PathKey, *configPath)
		stop()
		os.Exit(1)
	}

	out, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		logger.Error("Failed to encode metrics", err)
		stop()
		os.Exit(1)
	}
	fmt.Println(string(out))
}
