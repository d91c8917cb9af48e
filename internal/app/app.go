// Package app composes the loyalty service: config, database, ledger, gate
// and HTTP server.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/fidelicard/loyalty/internal/config"
	"github.com/fidelicard/loyalty/internal/db"
	"github.com/fidelicard/loyalty/internal/gate"
	"github.com/fidelicard/loyalty/internal/http/api"
	"github.com/fidelicard/loyalty/internal/ledger"
	"github.com/fidelicard/loyalty/internal/logging"
	"github.com/fidelicard/loyalty/internal/merchants"
)

// Run boots the service and blocks until ctx is cancelled or the server
// fails.
func Run(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Logging)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	set, errSet := merchants.NewSet(cfg.Ledger.Merchants)
	if errSet != nil {
		return errSet
	}
	led := ledger.New(conn, cfg.Ledger, set)

	g := gate.New(conn, cfg.Auth, cfg.Ledger.EnableOperatorAccounts)
	if cfg.Ledger.EnableOperatorAccounts {
		if errSeed := g.SeedOperators(ctx, cfg.Ledger.Operators); errSeed != nil {
			return errSeed
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(api.RequestLogger(), gin.Recovery())
	api.RegisterRoutes(engine, led, g)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.WithField("addr", cfg.Server.Addr).Info("loyalty server listening")

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		log.Info("loyalty server stopped")
		return nil
	}
}
