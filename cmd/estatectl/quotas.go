// cmd/estatectl/quotas.go
package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/services"
)

var quotaFile string

var quotasCmd = &cobra.Command{
	Use:   "quotas",
	Short: "Inspect and seed early-access quotas",
}

var quotasSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create quota rows for roles that have none",
	Long: `Create quota rows from a YAML file or the built-in defaults.

Existing rows are never modified, so running seed against a live database
keeps the approved counts intact. Use the admin API to change a cap.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := quotaFile
		if path == "" {
			path = cfg.EarlyAccess.QuotaSeedFile
		}

		seeds, err := config.LoadQuotaSeeds(path)
		if err != nil {
			return err
		}

		approvals := services.NewApprovalService(db, cfg, nil, nil)
		created, err := approvals.SeedQuotas(cmd.Context(), seeds)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d quota(s) created, %d already present\n", created, len(seeds)-created)
		return nil
	},
}

var quotasListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show quota usage per role",
	RunE: func(cmd *cobra.Command, args []string) error {
		approvals := services.NewApprovalService(db, cfg, nil, nil)
		quotas, err := approvals.ListQuotas(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tCURRENT\tMAX\tACTIVE")
		for _, q := range quotas {
			fmt.Fprintf(w, "%s\t%d\t%d\t%t\n", q.Role, q.CurrentCount, q.MaxCount, q.IsActive)
		}
		return w.Flush()
	},
}
