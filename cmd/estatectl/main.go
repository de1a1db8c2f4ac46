// cmd/estatectl/main.go
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/database"
	"github.com/javajoker/estate-backend/internal/utils"
)

var (
	cfg *config.Config
	db  *gorm.DB
)

// rootCmd is the operator CLI. Every subcommand opens the database configured
// by the environment, the same way the server does.
var rootCmd = &cobra.Command{
	Use:           "estatectl",
	Short:         "Operator tools for the estate backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format)

		if db, err = database.Initialize(cfg.Database); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			database.Close(db)
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.RunMigrations(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	quotasSeedCmd.Flags().StringVarP(&quotaFile, "file", "f", "", "YAML quota file (defaults to EARLY_ACCESS_QUOTA_FILE)")
	quotasCmd.AddCommand(quotasSeedCmd)
	quotasCmd.AddCommand(quotasListCmd)

	reviewCmd.PersistentFlags().StringVar(&reviewFeedback, "feedback", "", "Feedback shown to the applicant")
	reviewCmd.PersistentFlags().StringVar(&reviewAdmin, "admin", "", "Email of the reviewing admin (defaults to the first admin)")
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(quotasCmd)
	rootCmd.AddCommand(reviewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
