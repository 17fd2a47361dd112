package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

var (
	showDomains bool
	tenantsJSON bool
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Inspect the tenant registry",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every tenant, including the public partition",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		tenants, err := persistence.NewGormTenantDirectory(e.db.DB).ListAll(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list tenants: %w", err)
		}
		if tenantsJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(tenants)
		}
		return printTenants(cmd.OutOrStdout(), tenants, showDomains)
	},
}

func printTenants(out io.Writer, tenants []tenancy.Tenant, domains bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	if domains {
		fmt.Fprintln(w, "ID\tSCHEMA\tNAME\tDOMAINS")
	} else {
		fmt.Fprintln(w, "ID\tSCHEMA\tNAME")
	}
	for _, t := range tenants {
		if domains {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.SchemaName, t.Name, strings.Join(t.Domains, ","))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.SchemaName, t.Name)
	}
	return w.Flush()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	tenantsListCmd.Flags().BoolVar(&showDomains, "domains", false, "Show the domains of every tenant")
	tenantsListCmd.Flags().BoolVar(&tenantsJSON, "json", false, "Output tenants as JSON")
	tenantsCmd.AddCommand(tenantsListCmd)
	rootCmd.AddCommand(tenantsCmd)
}
