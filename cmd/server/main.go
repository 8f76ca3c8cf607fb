// Command server runs the swap orchestration backend: the public HTTP API,
// the per-swap deposit→swap→payout pipelines, and the notification push
// channel. Configuration comes from the environment (optionally a .env file);
// shutdown is graceful: running pipelines are cancelled and their last
// persisted status is left in place for reconciliation on restart.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aptosphere/go-swap-backend/internal/chain"
	"github.com/aptosphere/go-swap-backend/internal/config"
	httpapi "github.com/aptosphere/go-swap-backend/internal/http"
	"github.com/aptosphere/go-swap-backend/internal/notify"
	"github.com/aptosphere/go-swap-backend/internal/observability"
	"github.com/aptosphere/go-swap-backend/internal/rate"
	"github.com/aptosphere/go-swap-backend/internal/repo"
	"github.com/aptosphere/go-swap-backend/internal/services"
	"github.com/aptosphere/go-swap-backend/internal/sysutil"
	"github.com/aptosphere/go-swap-backend/internal/token"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	var out io.Writer = os.Stdout
	if cfg.LogPretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	log := zerolog.New(out).With().
		Timestamp().
		Str("service", cfg.OTEL.ServiceName).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Chain access: one fullnode client, one custodial signer.
	client := chain.NewClient(cfg.Chain.NodeURL, log)
	acct, err := chain.NewAccount(cfg.Chain.PrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid custodial private key")
	}
	wallet := chain.NewWallet(client, acct, cfg.Chain.MaxGasAmount, cfg.Chain.GasUnitPrice, cfg.Swap.SettleTimeout, log)

	// The deposit address defaults to the signer's derived address unless
	// explicitly overridden (e.g. a separate receive-only account).
	custodial := sysutil.FirstNonEmpty(cfg.Chain.CustodialAddress, wallet.Address())
	cfg.Chain.CustodialAddress = custodial

	rates := rate.NewPoolSource(client)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Token != "" {
		notifier = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.APIURL, log)
	}

	// Pipeline stages and the orchestrator that drives them.
	quoter := &services.Quoter{Registry: token.NewRegistry(), Source: rates}
	watcher := &services.DepositWatcher{
		Chain:        client,
		Address:      custodial,
		PollInterval: cfg.Swap.PollInterval,
		Timeout:      cfg.Swap.DepositTimeout,
		Log:          log,
	}
	executor := &services.SwapExecutor{
		Wallet:            wallet,
		Rates:             rates,
		Balance:           client,
		Address:           custodial,
		SubmitSlippageBps: cfg.Swap.SubmitSlippageBps,
		MaxSlippageBps:    cfg.Swap.MaxSlippageBps,
		Log:               log,
	}
	forwarder := &services.PayoutForwarder{Wallet: wallet, Log: log}
	orch := services.NewOrchestrator(db, quoter, watcher, executor, forwarder, notifier,
		custodial, cfg.Chain.ExplorerBaseURL, log)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, orch, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().
		Str("addr", srv.Addr).
		Str("version", version).
		Str("deposit_address", custodial).
		Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Stop pipelines first so no new chain transactions are submitted while
	// the HTTP server drains.
	if err := orch.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pipelines did not stop cleanly")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	log.Info().Msg("bye")
}
