package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/foliogate/internal/model"
	"github.com/faucetdb/foliogate/internal/service"
)

func newMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Exercise the server's email endpoints",
	}
	cmd.AddCommand(newMailTestCmd())
	return cmd
}

func newMailTestCmd() *cobra.Command {
	var (
		to      string
		project string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a sample access request and approval email through the server",
		Long: `Calls /api/request-access and /api/approve-access on the configured server
with sample data. The request email goes to the administrator; the approval
email goes to --to. Nothing is written to local storage.`,
		Example: `  foliogate mail test --to you@example.com`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !service.ValidEmail(to) {
				return errors.New("--to must be a valid email address")
			}
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			api, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			out := cmd.OutOrStdout()
			req := model.AccessRequest{
				Email:     to,
				ProjectID: project,
				Message:   "This is a test access request sent by 'foliogate mail test'.",
			}
			id, err := api.NotifyAccessRequest(ctx, req, "Test Project")
			if err != nil {
				return fmt.Errorf("request-access: %w", err)
			}
			fmt.Fprintf(out, "request-access:  sent (%s)\n", id)

			hours := service.DefaultExpiryHours
			tok := model.AccessToken{
				Value:     service.GenerateToken(service.DefaultTokenLength),
				ProjectID: project,
				Email:     to,
				Expires:   service.ExpiryFrom(time.Now(), hours),
			}
			id, err = api.NotifyAccessApproved(ctx, tok, "Test Project")
			if err != nil {
				return fmt.Errorf("approve-access: %w", err)
			}
			fmt.Fprintf(out, "approve-access:  sent (%s)\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient of the sample approval email")
	cmd.Flags().StringVar(&project, "project", "test-project", "Project slug used in the sample emails")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
