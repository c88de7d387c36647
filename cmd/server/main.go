package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/config"
	"github.com/Simplici0/costestimator/internal/logging"
	"github.com/Simplici0/costestimator/internal/metrics"
	"github.com/Simplici0/costestimator/internal/seed"
	"github.com/Simplici0/costestimator/internal/session"
	"github.com/Simplici0/costestimator/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	rules, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load catalog")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.WithError(err).Fatal("failed to open estimate store")
	}
	defer st.Close()

	if cfg.IsDev() {
		stats, err := seed.Run(ctx, st, seed.Config{Rules: rules, Defaults: cfg.EstimateDefaults()})
		if err != nil {
			logger.WithError(err).Fatal("failed to seed demo estimates")
		}
		logger.WithFields(logrus.Fields{"inserts": stats.Inserts, "updates": stats.Updates}).Info("demo estimates seeded")
	}

	m := metrics.New()
	sess, err := session.New(session.Options{
		Catalog:          rules,
		Store:            st,
		Defaults:         cfg.EstimateDefaults(),
		AutosaveKey:      cfg.AutosaveKey,
		AutosaveDelay:    cfg.AutosaveDelay,
		SearchDebounce:   cfg.SearchDebounce,
		SearchMinChars:   cfg.SearchMinChars,
		SearchMaxResults: cfg.SearchMaxResults,
		Logger:           logger,
		Metrics:          m,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to start session")
	}
	defer sess.Close()

	if restored, err := sess.RestoreAutosave(ctx); err != nil {
		logging.LogWarn(logger, "main", "main", "restoring autosave", nil, err)
	} else if restored {
		logger.Info("restored autosaved estimate")
	}

	srv := &server{session: sess, store: st, metrics: m, logger: logger, catalogPath: cfg.CatalogPath}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
	}()

	logger.WithFields(logrus.Fields{"addr": httpServer.Addr, "store": st.Driver(), "rules": rules.Len()}).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server stopped")
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}
