// Command ingest runs only the data ingestion stage: it downloads the raw
// dataset and writes the train and test splits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atul219/Hotel-Reservation/pipeline"
	"github.com/atul219/Hotel-Reservation/pipeline/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
	logger := pipeline.NewLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipeline.Ingest(ctx, cfg, logger); err != nil {
		logger.Error("Ingestion failed", err)
		stop()
		os.Exit(1)
	}
}
