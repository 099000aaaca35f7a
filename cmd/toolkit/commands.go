// cmd/toolkit/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/config"
	"github.com/rovshanmuradov/solana-toolkit/internal/toolkit"
	"github.com/rovshanmuradov/solana-toolkit/internal/ui"
	"github.com/rovshanmuradov/solana-toolkit/internal/wallet"
)

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	opts     *options
	tk       *toolkit.Toolkit
	registry *prometheus.Registry
	out      io.Writer
}

var errUsage = errors.New("invalid arguments")

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func (a *app) stdout() io.Writer {
	if a.out != nil {
		return a.out
	}
	return os.Stdout
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "health":
		return a.health(ctx)
	case "balance":
		return a.balance(ctx, args)
	case "airdrop":
		return a.airdrop(ctx, args)
	case "transfer":
		return a.transfer(ctx, args)
	case "watch":
		return a.watch(ctx)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, command)
}

func (a *app) health(ctx context.Context) error {
	state := a.tk.CheckHealth(ctx)
	out := a.stdout()

	status := "healthy"
	if !state.IsHealthy {
		status = "unhealthy"
	}
	fmt.Fprintf(out, "endpoint:   %s\n", state.Endpoint)
	fmt.Fprintf(out, "network:    %s\n", state.Network)
	fmt.Fprintf(out, "commitment: %s\n", state.Commitment)
	fmt.Fprintf(out, "status:     %s\n", status)
	fmt.Fprintf(out, "latency:    %s\n", state.Latency.Round(time.Millisecond))
	if state.LastError != "" {
		fmt.Fprintf(out, "error:      %s\n", state.LastError)
	}

	if !state.IsHealthy {
		return blockchain.NewError(blockchain.CodeUnhealthyConnection, "endpoint is unhealthy",
			map[string]interface{}{"endpoint": state.Endpoint})
	}
	return nil
}

func (a *app) balance(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: balance needs at least one pubkey", errUsage)
	}
	keys := make([]solana.PublicKey, 0, len(args))
	for _, arg := range args {
		pk, err := parsePubkey(arg)
		if err != nil {
			return err
		}
		keys = append(keys, pk)
	}

	balances, err := a.tk.GetBalances(ctx, keys)
	if err != nil {
		return err
	}
	for _, pk := range keys {
		fmt.Fprintf(a.stdout(), "%s  %s SOL\n", pk, formatSOL(balances[pk]))
	}
	return nil
}

func (a *app) airdrop(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: airdrop <pubkey> <sol>", errUsage)
	}
	to, err := parsePubkey(args[0])
	if err != nil {
		return err
	}
	lamports, err := parseSOL(args[1])
	if err != nil {
		return err
	}

	sig, err := a.tk.RequestAirdrop(ctx, to, lamports)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "airdrop confirmed: %s\n", sig)
	return nil
}

func (a *app) transfer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: transfer <to> <lamports>", errUsage)
	}
	to, err := parsePubkey(args[0])
	if err != nil {
		return err
	}
	lamports, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return blockchain.WrapError(err, blockchain.CodeInvalidInput, "invalid lamports amount",
			map[string]interface{}{"value": args[1]})
	}

	sender, err := a.sender()
	if err != nil {
		return err
	}

	result, err := a.tk.Transfer(ctx, sender, to, lamports)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "transfer %s: %s (slot %d, %s)\n",
		result.State, result.Signature, result.Slot, result.Duration.Round(time.Millisecond))
	return nil
}

// sender выбирает подписанта: --keypair или именованный кошелёк из --wallets.
func (a *app) sender() (*wallet.Wallet, error) {
	if a.opts.keypair != "" {
		return wallet.FromKeygenFile(a.opts.keypair)
	}
	if a.opts.walletsFile == "" {
		return nil, fmt.Errorf("%w: --keypair or --wallets is required", errUsage)
	}

	wallets, err := wallet.LoadWallets(a.opts.walletsFile)
	if err != nil {
		return nil, err
	}
	if a.opts.walletName == "" {
		if len(wallets) == 1 {
			for _, w := range wallets {
				return w, nil
			}
		}
		return nil, fmt.Errorf("%w: --wallet is required when the file holds several wallets", errUsage)
	}
	w, ok := wallets[a.opts.walletName]
	if !ok {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput, "wallet not found",
			map[string]interface{}{"wallet": a.opts.walletName})
	}
	return w, nil
}

func (a *app) watch(ctx context.Context) error {
	if err := a.tk.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if a.registry != nil {
		srv := &http.Server{
			Addr:              a.opts.metricsAddr,
			Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("Serving metrics", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		recovery := ui.NewRecoveryHandler(a.logger, func() (tea.Model, []tea.ProgramOption) {
			return ui.NewWatchModel(gctx, a.tk, a.cfg.Health.Interval()), []tea.ProgramOption{tea.WithAltScreen()}
		})
		return recovery.RunWithRecovery(gctx)
	})

	return g.Wait()
}

func parsePubkey(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, blockchain.WrapError(err, blockchain.CodeInvalidInput, "invalid public key",
			map[string]interface{}{"value": s})
	}
	return pk, nil
}

// parseSOL переводит десятичное количество SOL в lamports.
func parseSOL(s string) (uint64, error) {
	sol, err := strconv.ParseFloat(s, 64)
	if err != nil || sol <= 0 || math.IsInf(sol, 0) || math.IsNaN(sol) {
		return 0, blockchain.NewError(blockchain.CodeInvalidInput, "invalid SOL amount",
			map[string]interface{}{"value": s})
	}
	lamports := math.Round(sol * float64(solana.LAMPORTS_PER_SOL))
	if lamports >= math.MaxUint64 {
		return 0, blockchain.NewError(blockchain.CodeInvalidInput, "SOL amount is too large",
			map[string]interface{}{"value": s})
	}
	return uint64(lamports), nil
}

func formatSOL(lamports uint64) string {
	whole := lamports / solana.LAMPORTS_PER_SOL
	frac := lamports % solana.LAMPORTS_PER_SOL
	return fmt.Sprintf("%d.%09d", whole, frac)
}
