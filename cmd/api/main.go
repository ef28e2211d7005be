package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loangraph/microlend/internal/auth"
	"github.com/loangraph/microlend/internal/chain"
	"github.com/loangraph/microlend/internal/config"
	"github.com/loangraph/microlend/internal/contract"
	"github.com/loangraph/microlend/internal/db"
	"github.com/loangraph/microlend/internal/domain/loan"
	"github.com/loangraph/microlend/internal/http/handlers"
	"github.com/loangraph/microlend/internal/observability"
	"github.com/loangraph/microlend/internal/oracle"
	postgresrepo "github.com/loangraph/microlend/internal/repository/postgres"
	"github.com/loangraph/microlend/internal/server"
	"github.com/loangraph/microlend/internal/ws"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hostOpts := []chain.Option{chain.WithLogger(logger)}
	var (
		pool     *pgxpool.Pool
		journal  *postgresrepo.LedgerRepository
		identity loan.IdentityVerifier
		pinger   handlers.Pinger
	)
	switch cfg.PersistenceMode {
	case "", "memory":
		logger.Warn("ledger running in memory; state is lost on restart")
	case "postgres":
		var err error
		pool, err = db.NewPostgresPool(ctx, cfg, "api")
		if err != nil {
			logger.Error("failed to connect postgres", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		journal = postgresrepo.NewLedgerRepository(pool)
		identity = postgresrepo.NewIdentityRepository(pool)
		pinger = pool
		hostOpts = append(hostOpts, chain.WithSink(journal))
	default:
		logger.Error("invalid PERSISTENCE_MODE", "mode", cfg.PersistenceMode)
		os.Exit(1)
	}

	oracles, err := oracle.NewSetFromConfig(cfg, identity)
	if err != nil {
		logger.Error("failed to build oracles", "err", err)
		os.Exit(1)
	}
	defer func() { _ = oracles.Close() }()

	host := chain.NewHost(hostOpts...)
	sys := contract.NewSystem(host, contract.SettingsFromConfig(cfg), contract.Collaborators{
		Identity:  oracles.Identity,
		Scores:    oracles.Scores,
		Approvers: oracles.Approvers,
	})

	if journal != nil {
		rows, height, err := journal.LoadRows(ctx)
		if err != nil {
			logger.Error("failed to load ledger journal", "err", err)
			os.Exit(1)
		}
		if err := host.Restore(rows, height); err != nil {
			logger.Error("failed to restore ledger", "err", err)
			os.Exit(1)
		}
		logger.Info("ledger restored", "rows", len(rows), "height", height)
	}
	if err := sys.Genesis(ctx); err != nil {
		logger.Error("genesis failed", "err", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	host.Subscribe(ws.NewNotifier(hub, logger).Listener())

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:     pinger,
		Dispatcher: contract.NewDispatcher(sys, logger),
		WSHandler:  ws.NewHandler(hub),
		JWTManager: jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runBlocks(sigCtx, logger, host, cfg.BlockInterval)

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr(), "height", host.Height())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped", "height", host.Height())
}

// runBlocks advances the ledger height once per interval.
func runBlocks(ctx context.Context, logger *slog.Logger, host *chain.Host, interval time.Duration) {
	if interval <= 0 {
		logger.Info("block ticker disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			height, err := host.Advance(runCtx, 1)
			cancel()
			if err != nil {
				logger.Error("height advance failed", "err", err, "height", height)
			}
		}
	}
}
