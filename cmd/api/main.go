package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "waitlist",
		Short:        "Waitlist signup service",
		Long:         "Serves the waitlist landing page, the signup API and the admin dashboard.",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(newServeCmd(), newCreateAdminCmd())
	return root
}

// runtime holds what every command needs: a logger, the database and the
// application built on it.
type runtime struct {
	logger   *zap.Logger
	sugar    *zap.SugaredLogger
	db       *sqlx.DB
	app      *app.App
	adminCfg admin.Config
}

func (rt *runtime) Close() {
	_ = rt.db.Close()
	_ = rt.logger.Sync()
}

func setup() (*runtime, error) {
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	sugar := lg.Sugar()

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	sugar.Infow("database connected", "driver", dbCfg.Driver)

	adminCfg, err := admin.ConfigFromEnv()
	if err != nil {
		db.Close()
		return nil, err
	}
	if adminCfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET not set; admin sessions will not survive a restart")
	}

	a, err := app.New(db, sugar, app.Config{Admin: adminCfg})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &runtime{logger: lg, sugar: sugar, db: db, app: a, adminCfg: adminCfg}, nil
}
