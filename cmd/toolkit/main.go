// cmd/toolkit/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/config"
	"github.com/rovshanmuradov/solana-toolkit/internal/toolkit"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/logger"
)

const usage = `Usage: toolkit [flags] <command> [args]

Commands:
  health                       probe the active endpoint once
  balance <pubkey>...          print SOL balances
  airdrop <pubkey> <sol>       request and confirm an airdrop (not on mainnet-beta)
  transfer <to> <lamports>     send lamports from --keypair or --wallet
  watch                        live health view

Flags:
`

// options флаги, не относящиеся к конфигурации тулкита.
type options struct {
	configPath  string
	keypair     string
	walletsFile string
	walletName  string
	metricsAddr string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	v := viper.New()
	fs, opts := newFlagSet(v)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(v, opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	command := fs.Arg(0)
	log, err := logger.New(&logger.Config{
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: cfg.Log.Debug,
		Quiet:       command == "watch",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg, log.Logger, opts)
	if err != nil {
		log.Error("Failed to initialize toolkit", zap.Error(err))
		return 1
	}
	defer func() { _ = app.tk.Close() }()

	if err := app.dispatch(ctx, command, fs.Args()[1:]); err != nil {
		log.Error("Command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newFlagSet(v *viper.Viper) (*pflag.FlagSet, *options) {
	opts := &options{}
	fs := pflag.NewFlagSet("toolkit", pflag.ContinueOnError)
	fs.SetInterspersed(true)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, json or toml)")
	fs.StringVar(&opts.keypair, "keypair", "", "solana-keygen JSON file of the sender")
	fs.StringVar(&opts.walletsFile, "wallets", "", "YAML wallet file")
	fs.StringVar(&opts.walletName, "wallet", "", "wallet name from --wallets")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during watch")

	fs.StringP("network", "n", "", "network name or RPC URL")
	fs.String("rpc-url", "", "explicit RPC URL, overrides --network")
	fs.String("commitment", "", "processed, confirmed or finalized")
	fs.Int("max-attempts", 0, "retry attempts per operation")
	fs.Uint32("compute-units", 0, "compute unit limit for transactions")
	fs.Uint64("priority-fee", 0, "compute unit price in micro-lamports")
	fs.String("priority-level", "", "budget profile: none, low, medium, high or extreme")
	fs.Bool("debug", false, "debug logging")
	fs.String("log-file", "", "rotated JSON log file")

	bindings := map[string]string{
		"network":                    "network",
		"rpc_url":                    "rpc-url",
		"commitment":                 "commitment",
		"retry.max_attempts":         "max-attempts",
		"transaction.compute_units":  "compute-units",
		"transaction.priority_fee":   "priority-fee",
		"transaction.priority_level": "priority-level",
		"log.debug":                  "debug",
		"log.file":                   "log-file",
	}
	for key, flag := range bindings {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}

	return fs, opts
}

// newApp собирает тулкит; метрики включаются только для watch с --metrics-addr.
func newApp(cfg *config.Config, log *zap.Logger, opts *options) (*app, error) {
	a := &app{cfg: cfg, logger: log, opts: opts}

	var tkOpts []toolkit.Option
	if opts.metricsAddr != "" {
		a.registry = newRegistry()
		tkOpts = append(tkOpts, toolkit.WithRegisterer(a.registry))
	}

	tk, err := toolkit.New(cfg, log, tkOpts...)
	if err != nil {
		return nil, err
	}
	a.tk = tk
	return a, nil
}
