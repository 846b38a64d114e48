package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faucetdb/foliogate/internal/model"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Inspect the project catalog",
	}
	cmd.AddCommand(newProjectListCmd())
	return cmd
}

func newProjectListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalogued projects and whether this device holds a live token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			type row struct {
				model.Project
				Unlocked bool `json:"unlocked"`
			}
			projects := a.catalog.List()
			rows := make([]row, len(projects))
			for i, p := range projects {
				rows[i] = row{Project: p, Unlocked: !p.Protected || a.access.HasValidToken(ctx, p.Slug)}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No projects in the catalog.")
				return nil
			}
			fmt.Fprintf(out, "%-24s %-10s %-9s %s\n", "SLUG", "PROTECTED", "UNLOCKED", "TITLE")
			for _, r := range rows {
				fmt.Fprintf(out, "%-24s %-10t %-9t %s\n", r.Slug, r.Protected, r.Unlocked, r.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
