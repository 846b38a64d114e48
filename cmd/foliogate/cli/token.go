package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/foliogate/internal/service"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage stored access tokens",
		Long:  "List, check, revoke and purge the access tokens held in local storage.",
	}

	cmd.AddCommand(newTokenListCmd())
	cmd.AddCommand(newTokenCheckCmd())
	cmd.AddCommand(newTokenRevokeCmd())
	cmd.AddCommand(newTokenPurgeCmd())

	return cmd
}

// ---------- token list ----------

func newTokenListCmd() *cobra.Command {
	var (
		project    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			tokens, err := a.access.ListTokens(context.Background(), project)
			if err != nil {
				return err
			}
			now := time.Now()

			type tokenRow struct {
				Prefix  string `json:"prefix"`
				Project string `json:"project"`
				Email   string `json:"email,omitempty"`
				Expires string `json:"expires"`
				Valid   bool   `json:"valid"`
			}
			rows := make([]tokenRow, len(tokens))
			for i, t := range tokens {
				rows[i] = tokenRow{
					Prefix:  t.Prefix(),
					Project: t.ProjectID,
					Email:   t.Email,
					Expires: t.ExpiresAt().Format(time.RFC3339),
					Valid:   t.ValidAt(now),
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No access tokens stored.")
				return nil
			}
			fmt.Fprintf(out, "%-8s %-24s %-28s %-26s %-6s\n", "PREFIX", "PROJECT", "EMAIL", "EXPIRES", "VALID")
			fmt.Fprintf(out, "%-8s %-24s %-28s %-26s %-6s\n", "------", "-------", "-----", "-------", "-----")
			for _, r := range rows {
				valid := "yes"
				if !r.Valid {
					valid = "no"
				}
				fmt.Fprintf(out, "%-8s %-24s %-28s %-26s %-6s\n", r.Prefix, r.Project, r.Email, r.Expires, valid)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Only list tokens for this project")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// ---------- token check ----------

func newTokenCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <project> [token]",
		Short: "Check whether a project is unlocked",
		Long:  "With a token, report whether it unlocks the project. Without one, report whether any stored token does.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			var ok bool
			if len(args) == 2 {
				ok = a.access.ValidateAccessToken(ctx, args[0], args[1])
			} else {
				ok = a.access.HasValidToken(ctx, args[0])
			}
			if !ok {
				return fmt.Errorf("%s is locked", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is unlocked\n", args[0])
			return nil
		},
	}
}

// ---------- token revoke ----------

func newTokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token-or-prefix>",
		Short: "Delete a stored token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			tok, err := a.access.FindToken(ctx, args[0])
			switch {
			case errors.Is(err, service.ErrTokenNotFound):
				return fmt.Errorf("no token starts with %q", args[0])
			case errors.Is(err, service.ErrAmbiguousToken):
				return fmt.Errorf("%q matches more than one token; give more characters", args[0])
			case err != nil:
				return err
			}
			if _, err := a.access.RevokeToken(ctx, tok.Value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s… for %s\n", tok.Prefix(), tok.ProjectID)
			return nil
		},
	}
}

// ---------- token purge ----------

func newTokenPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove expired tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.access.CleanupExpired(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired token(s)\n", n)
			return nil
		},
	}
}
