package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/amazon-bsr-checker/internal/app"
	"github.com/maltedev/amazon-bsr-checker/internal/batch"
	"github.com/maltedev/amazon-bsr-checker/internal/config"
	"github.com/maltedev/amazon-bsr-checker/internal/spreadsheet"
	"github.com/maltedev/amazon-bsr-checker/pkg/logger"
)

func main() {
	in := flag.String("in", "", "input .xlsx file with an ISBN column")
	out := flag.String("out", ".", "directory for the output files")
	variant := flag.String("variant", "", "strict or lenient (default from BATCH_VARIANT)")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: bsr-batch -in books.xlsx [-out dir] [-variant strict|lenient]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *variant != "" {
		cfg.Batch.Variant = *variant
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *in, *out); err != nil {
		log.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, in, out string) error {
	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	table, err := spreadsheet.ReadFile(in)
	if err != nil {
		return err
	}

	b, err := batch.Prepare(table, components.Variant)
	if err != nil {
		return err
	}

	res, artifacts, err := components.Driver.Execute(ctx, b, out, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r%d/%d", done, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("results: %s\n", artifacts.Results)
	if artifacts.Failed != "" {
		fmt.Printf("failed:  %s (%d ISBNs)\n", artifacts.Failed, len(res.Failed))
	}
	return nil
}
