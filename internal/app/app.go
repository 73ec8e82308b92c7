// Package app wires repositories, services and handlers into one HTTP
// application.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration"
	regrepo "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration/repo"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats"
	statsrepo "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/repo"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/web"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/utilities"
)

type Config struct {
	Admin admin.Config
	// Hasher overrides the bcrypt cost used for admin passwords.
	Hasher admin.PasswordHasher
}

type App struct {
	Registrations *registration.Service
	Stats         *stats.Service
	Admin         *admin.Service

	handler http.Handler
	logger  *zap.SugaredLogger
}

// New builds the application on top of db. It does not touch the database;
// call Init before serving.
func New(db *sqlx.DB, logger *zap.SugaredLogger, cfg Config) (*App, error) {
	views, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, db.DriverName()),
	)

	statsRepo := statsrepo.NewStatsRepo(db)
	statsSvc := stats.NewService(statsRepo)
	regSvc := registration.NewService(db, regrepo.NewRegistrationRepo(db), statsRepo)
	adminSvc := admin.NewService(db, cfg.Admin, cfg.Hasher)

	regHandler := registration.NewHandler(regSvc, statsSvc, views, registration.NewMetrics(registry), logger)
	adminHandler := admin.NewHandler(adminSvc, regSvc, statsSvc, views, logger, cfg.Admin.CookieSecure)

	handler := router.RegisterRoutes(logger, router.Deps{
		Registration: regHandler,
		Admin:        adminHandler,
		AdminService: adminSvc,
		Metrics:      router.NewMetrics(registry),
		Gatherer:     registry,
		RequestIDs:   utilities.RequestIDsFromEnv(),
	})

	return &App{
		Registrations: regSvc,
		Stats:         statsSvc,
		Admin:         adminSvc,
		handler:       handler,
		logger:        logger,
	}, nil
}

// Init creates missing tables and the stats row.
func (a *App) Init(ctx context.Context) error {
	if err := a.Registrations.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := a.Stats.Ensure(ctx); err != nil {
		return err
	}
	if err := a.Admin.EnsureSchema(ctx); err != nil {
		return err
	}
	return nil
}

// BootstrapAdmin provisions the configured admin when no account exists yet.
func (a *App) BootstrapAdmin(ctx context.Context, cfg admin.Config) error {
	created, err := a.Admin.EnsureAdmin(ctx, cfg.BootstrapUsername, cfg.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	switch {
	case created:
		a.logger.Infow("admin account created", "username", cfg.BootstrapUsername)
	case cfg.BootstrapPassword == "":
		a.logger.Debugw("ADMIN_PASSWORD not set; skipping admin bootstrap")
	}
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }
