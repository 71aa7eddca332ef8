package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/reconcile-core/internal/cli"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/config"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/logging"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	subcommand, subArgs := args[0], args[1:]

	bootLogger := logging.NewLogger(config.LoggingConfig{Level: "info"})
	cfg := loadConfig(*configFile, bootLogger)
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, subcommand)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		os.Exit(1)
	}

	err = run(ctx, app, subcommand, subArgs)
	if closeErr := app.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		logger.Error("Command failed", "command", subcommand, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app *cli.App, subcommand string, args []string) error {
	switch subcommand {
	case "import":
		return cli.RunImport(ctx, app, args, os.Stdin)
	case "link":
		return cli.RunLink(ctx, app, args)
	case "candidates":
		return cli.RunCandidates(ctx, app, args)
	case "automatch":
		return cli.RunAutoMatch(ctx, app, args, false)
	case "settle":
		return cli.RunAutoMatch(ctx, app, args, true)
	case "batches":
		return cli.RunBatches(ctx, app, args)
	case "bank-account":
		return cli.RunBankAccount(ctx, app, args)
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %s", subcommand)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  reconcile [-config file] [-verbose] <command> [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import        Import a JSON batch of statement rows (-historical links to posted vouchers)")
	fmt.Fprintln(os.Stderr, "  link          Link pending rows of a batch to posted vouchers")
	fmt.Fprintln(os.Stderr, "  candidates    List open items of a counterparty in priority order")
	fmt.Fprintln(os.Stderr, "  automatch     Propose an allocation for a payment")
	fmt.Fprintln(os.Stderr, "  settle        Propose and apply an allocation for a payment")
	fmt.Fprintln(os.Stderr, "  batches       List import batches, or show one with -batch")
	fmt.Fprintln(os.Stderr, "  bank-account  List or add designated bank account codes")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Every command takes -tenant and -json.")
}

func loadConfig(configFile string, logger *slog.Logger) *config.Config {
	if configFile == "" {
		for _, candidate := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
				break
			}
		}
	}

	if configFile == "" {
		logger.Debug("No config file found, using environment variables")
		return config.LoadFromEnv()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Error("Failed to load config", "path", configFile, "error", err)
		os.Exit(1)
	}
	return cfg
}
