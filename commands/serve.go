package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"estante/books"
	"estante/database"
	"estante/server"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. The schema is migrated on startup unless --skip-migrate
is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not migrate the schema on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}

	if !skipMigrate {
		if err := database.RunMigrations(db, log); err != nil {
			return err
		}
	}

	catalog := books.NewOpenLibrary(cfg.CatalogURL, cfg.CatalogCoversURL, cfg.CatalogTimeout)
	return server.New(db, cfg, log, catalog).Run(ctx)
}
