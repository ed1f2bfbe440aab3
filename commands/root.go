package commands

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"estante/common"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "estante",
	Short: "Estante - social book reviews",
	Long: `Estante is a small social network for book reviews: users review books
from the OpenLibrary catalog, comment on and like each other's reviews, and
follow other readers to get a feed of their reviews.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an env file loaded before reading the environment")
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap() (common.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, err := common.LoadConfig(envFile)
	if err != nil {
		return common.Config{}, nil, nil, err
	}

	log := common.NewLogger(cfg)

	db, err := common.ConnectDb(cfg, log)
	if err != nil {
		return common.Config{}, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, log, db, nil
}
