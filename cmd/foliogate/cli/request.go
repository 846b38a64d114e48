package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/foliogate/internal/mailer"
	"github.com/faucetdb/foliogate/internal/model"
	"github.com/faucetdb/foliogate/internal/service"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "request",
		Aliases: []string{"requests"},
		Short:   "Review access requests",
		Long:    "List, approve and reject the access requests held in local storage.",
	}

	cmd.AddCommand(newRequestListCmd())
	cmd.AddCommand(newRequestApproveCmd())
	cmd.AddCommand(newRequestRejectCmd())

	return cmd
}

// ---------- request list ----------

func newRequestListCmd() *cobra.Command {
	var (
		project    string
		all        bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List access requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			reqs, err := a.approval.ListRequests(context.Background(), project, !all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if reqs == nil {
					reqs = []model.AccessRequest{}
				}
				return printJSON(out, reqs)
			}
			if len(reqs) == 0 {
				fmt.Fprintln(out, "No access requests.")
				return nil
			}
			fmt.Fprintf(out, "%-18s %-20s %-28s %-9s %-17s %s\n", "ID", "PROJECT", "EMAIL", "STATUS", "RECEIVED", "MESSAGE")
			for _, r := range reqs {
				fmt.Fprintf(out, "%-18s %-20s %-28s %-9s %-17s %s\n",
					r.ID, r.ProjectID, r.Email, r.Status, r.CreatedAt().Format("2006-01-02 15:04"), r.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Only list requests for this project")
	cmd.Flags().BoolVar(&all, "all", false, "Include approved and rejected requests")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// ---------- request approve ----------

func newRequestApproveCmd() *cobra.Command {
	var (
		expiry       int
		noEmail      bool
		confirmAdmin bool
	)

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a request and send the access link",
		Example: `  foliogate request approve 8cD2kLmQ0pRs7TuV --expiry 72
  foliogate request approve 8cD2kLmQ0pRs7TuV --no-email   # print the link only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			if !cmd.Flags().Changed("expiry") && a.cfg.Gate.ExpiryHours != 0 {
				expiry = a.cfg.Gate.ExpiryHours
			}
			if confirmAdmin {
				if err := checkAdminPassword(ctx, a); err != nil {
					return err
				}
			}

			approval, err := a.approval.Approve(ctx, args[0], expiry)
			if err := describeRequestError(args[0], err); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			link := mailer.AccessLink(a.cfg.Site.URL, approval.Token.ProjectID, approval.Token.Value)
			fmt.Fprintf(out, "Approved %s for %s\n", approval.Request.Email, a.catalog.Title(approval.Request.ProjectID))
			fmt.Fprintf(out, "  expires: %s\n", approval.Token.ExpiresAt().Format(time.RFC1123))
			fmt.Fprintf(out, "  link:    %s\n", link)

			if noEmail {
				return nil
			}
			id, err := a.approval.Deliver(ctx, approval)
			if err != nil {
				fmt.Fprintln(out, service.NoticeApprovalNotSent)
				fmt.Fprintf(out, "  error: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "  emailed: %s\n", id)
			return nil
		},
	}

	cmd.Flags().IntVar(&expiry, "expiry", service.DefaultExpiryHours,
		fmt.Sprintf("Token lifetime in hours, one of %v", service.ExpiryOptions))
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "Do not email the requester")
	cmd.Flags().BoolVar(&confirmAdmin, "confirm-admin", false, "Confirm the administrator password with the server first")
	return cmd
}

// ---------- request reject ----------

func newRequestRejectCmd() *cobra.Command {
	var confirmAdmin bool

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			if confirmAdmin {
				if err := checkAdminPassword(ctx, a); err != nil {
					return err
				}
			}
			req, err := a.approval.Reject(ctx, args[0])
			if err := describeRequestError(args[0], err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s for %s\n", req.Email, req.ProjectID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmAdmin, "confirm-admin", false, "Confirm the administrator password with the server first")
	return cmd
}

func describeRequestError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrInvalidExpiry):
		return fmt.Errorf("expiry must be one of %v hours", service.ExpiryOptions)
	case service.IsNotFound(err):
		return fmt.Errorf("request %q not found", id)
	case service.IsResolved(err):
		return fmt.Errorf("request %q is no longer pending", id)
	default:
		return err
	}
}

// checkAdminPassword prompts for the administrator password and verifies it
// with the HTTP service.
func checkAdminPassword(ctx context.Context, a *app) error {
	if a.api == nil {
		return errors.New("--confirm-admin needs a server: set gate.server or --server")
	}
	pw, err := promptPassword()
	if err != nil {
		return err
	}
	ok, err := a.api.CheckPassword(ctx, pw, model.PasswordTypeAdmin)
	if err != nil {
		return fmt.Errorf("verify admin password: %w", err)
	}
	if !ok {
		return errors.New(service.NoticeIncorrectPassword)
	}
	return nil
}
