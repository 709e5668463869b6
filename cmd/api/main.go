package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"cattle-breeding-timeline/internal/adapters/auth/identity"
	pg "cattle-breeding-timeline/internal/adapters/storage/postgres"
	lite "cattle-breeding-timeline/internal/adapters/storage/sqlite"
	"cattle-breeding-timeline/internal/adapters/wallet/coinledger"
	"cattle-breeding-timeline/internal/platform/config"
	"cattle-breeding-timeline/internal/platform/logger"
	"cattle-breeding-timeline/internal/ports/auth"
	"cattle-breeding-timeline/internal/ports/wallet"
	"cattle-breeding-timeline/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	opts := router.Options{
		Logger:            log,
		CattleCreatePrice: cfg.CattleCreatePrice,
	}

	switch cfg.Storage {
	case "postgres":
		db, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		opts.PostgresDB = db
	case "sqlite":
		db, err := lite.Open(cfg.SQLitePath)
		if err != nil {
			log.Error("sqlite open failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		opts.SQLiteDB = db
	}

	opts.AuthVerifier = buildVerifier(cfg, log)
	opts.Wallet = buildWallet(cfg, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting server", map[string]any{
		"addr":    srv.Addr,
		"storage": cfg.Storage,
	})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func buildVerifier(cfg config.Config, log logger.Logger) auth.AuthVerifier {
	if cfg.IdentityBaseURL == "" {
		log.Warn("identity no configurada: modo dev con X-Debug-User-ID", nil)
		return nil
	}
	client, err := identity.NewClient(identity.Config{BaseURL: cfg.IdentityBaseURL})
	if err != nil {
		log.Error("identity client failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	return identity.NewVerifier(client)
}

func buildWallet(cfg config.Config, log logger.Logger) wallet.Wallet {
	if cfg.WalletBaseURL == "" {
		log.Warn("wallet no configurada: las acciones pagas no se cobran", nil)
		return nil // el router cae a la billetera permisiva
	}
	client, err := coinledger.NewClient(coinledger.Config{BaseURL: cfg.WalletBaseURL})
	if err != nil {
		log.Error("coinledger client failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	return client
}
