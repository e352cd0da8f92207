package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"suitedriver/internal/config"
	"suitedriver/internal/console"
	"suitedriver/internal/driver"
	"suitedriver/internal/exitcodes"
	"suitedriver/internal/history"
	"suitedriver/internal/logging"
	"suitedriver/internal/metrics"
	"suitedriver/internal/pyenv"
	"suitedriver/internal/sweep"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("suitedriver", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "Path to configuration file")
	dryRun := fs.Bool("dry-run", false, "Report what clean would delete without deleting")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: suitedriver [flags] <clean|test>")
		fmt.Fprintln(fs.Output(), "\nOperations:")
		fmt.Fprintln(fs.Output(), "  clean   delete generated test artifacts and the build-output directory")
		fmt.Fprintln(fs.Output(), "  test    run the interpreter once per discovered test file")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitcodes.InvalidConfig
	}

	op := fs.Arg(0)
	if op != "clean" && op != "test" || fs.NArg() != 1 {
		fs.Usage()
		return exitcodes.InvalidConfig
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to load config: %v\n", err)
		return exitcodes.InvalidConfig
	}

	logger := logging.NewWithConfig(cfg)

	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		logger.Printf("starting Prometheus metrics on %s", cfg.PrometheusAddress())
		metrics.StartServer(cfg.PrometheusAddress(), logger)
	}

	var db *history.DB
	if cfg.History.DatabasePath != "" {
		db, err = history.Open(cfg.History.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: failed to open history database: %v", err)
			return exitcodes.RuntimeError
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: failed to close history database: %v", err)
			}
		}()
	}

	// Context cancelled on shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		logger.Printf("received signal %v, stopping...", sig)
		cancel()
	}()

	switch op {
	case "clean":
		return runClean(cfg, *dryRun, logger, db)
	default:
		return runTest(ctx, cfg, logger, db)
	}
}

func runClean(cfg *config.Config, dryRun bool, logger *log.Logger, db *history.DB) int {
	runID := driver.NewRunID()
	started := time.Now()
	if dryRun {
		logger.Println("DRY RUN MODE: no files will be deleted")
	}

	sweeper := sweep.NewSweeper(logger, dryRun)

	res, err := sweeper.Sweep(cfg.TestDir, cfg.ArtifactPattern)
	if err != nil {
		logger.Printf("ERROR: sweep failed: %v", err)
		metrics.RunsTotal.WithLabelValues("clean", "error").Inc()
		return exitcodes.RuntimeError
	}

	outErr := sweeper.RemoveOutputDir(cfg.OutputDir)
	if outErr != nil {
		logger.Printf("ERROR: %v", outErr)
	}

	if db != nil {
		if dbErr := db.RecordClean(runID, started, res, cfg.OutputDir, outErr); dbErr != nil {
			// History is best-effort; a recording failure never fails the clean.
			logger.Printf("ERROR: failed to record clean run: %v", dbErr)
		}
	}

	if outErr != nil || !res.OK() {
		for _, failure := range res.Failures {
			logger.Printf("ERROR: could not delete %s: %v", failure.Path, failure.Err)
		}
		metrics.RunsTotal.WithLabelValues("clean", "error").Inc()
		return exitcodes.RuntimeError
	}

	logger.Printf("clean complete: %d artifacts deleted, %d bytes freed", len(res.Removed), res.BytesFreed)
	metrics.RunsTotal.WithLabelValues("clean", "success").Inc()
	return exitcodes.Success
}

func runTest(ctx context.Context, cfg *config.Config, logger *log.Logger, db *history.DB) int {
	env := pyenv.New(cfg.Venv, cfg.Interpreter)
	d := driver.New(logger, console.New(os.Stdout), cfg.Driver.Timeout())

	report, err := d.RunAll(ctx, cfg.TestDir, cfg.TestPattern, env)
	if err != nil {
		logger.Printf("ERROR: test run failed: %v", err)
		metrics.RunsTotal.WithLabelValues("test", "error").Inc()
		return exitcodes.RuntimeError
	}

	if db != nil {
		if dbErr := db.RecordTestRun(report); dbErr != nil {
			logger.Printf("ERROR: failed to record test run: %v", dbErr)
		}
	}

	if !report.OK() {
		metrics.RunsTotal.WithLabelValues("test", "failure").Inc()
		return exitcodes.SuiteFailure
	}
	metrics.RunsTotal.WithLabelValues("test", "success").Inc()
	return exitcodes.Success
}
