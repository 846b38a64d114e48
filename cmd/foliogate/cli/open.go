package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/faucetdb/foliogate/internal/config"
	"github.com/faucetdb/foliogate/internal/service"
)

func newOpenCmd() *cobra.Command {
	var (
		requestEmail  string
		message       string
		passwordStdin bool
		attempts      int
	)

	cmd := &cobra.Command{
		Use:   "open <project-or-link>",
		Short: "Open a protected project as a visitor",
		Long: `Open a project the way a visitor would. An access link unlocks the project
directly; otherwise a stored token is used, or the password is prompted for.
With --request-email an access request is stored and the owner is notified
instead of prompting.`,
		Example: `  foliogate open secret-work
  foliogate open "https://example.com/work/secret-work?access_token=..."
  foliogate open secret-work --request-email me@example.com --message "Hiring for X"
  echo "$PASSWORD" | foliogate open secret-work --password-stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd.Context(), cmd.OutOrStdout(), args[0], openOptions{
				requestEmail:  requestEmail,
				message:       message,
				passwordStdin: passwordStdin,
				attempts:      attempts,
			})
		},
	}

	cmd.Flags().StringVar(&requestEmail, "request-email", "", "Request access with this email instead of entering a password")
	cmd.Flags().StringVar(&message, "message", "", "Message sent with the access request")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().IntVar(&attempts, "attempts", 3, "Password attempts before giving up")

	return cmd
}

type openOptions struct {
	requestEmail  string
	message       string
	passwordStdin bool
	attempts      int
}

func runOpen(ctx context.Context, out io.Writer, target string, opts openOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	if a.api == nil {
		return errors.New("no server configured: set gate.server or --server")
	}

	projectID, link, err := parseTarget(target)
	if err != nil {
		return err
	}
	checkTimeout, err := config.ParseDuration(a.cfg.Gate.CheckTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	gate, err := service.NewGate(a.access, a.api, a.api, a.catalog, service.GateConfig{
		ExpiryHours:  a.cfg.Gate.ExpiryHours,
		CheckTimeout: checkTimeout,
	}, a.logger)
	if err != nil {
		return err
	}

	// Expired tokens are dropped when a project view is prepared.
	if _, err := a.access.CleanupExpired(ctx); err != nil {
		a.logger.Warn("token cleanup failed", "error", err)
	}

	view := gate.Open(ctx, projectID, link)
	defer view.Close()
	title := a.catalog.Title(projectID)

	if view.State() == service.StateUnlocked {
		fmt.Fprintf(out, "Unlocked: %s\n", title)
		if u := view.URL(); u != "" {
			fmt.Fprintf(out, "  %s\n", u)
		}
		return nil
	}
	if n := view.Notice(); n != "" {
		fmt.Fprintln(out, n)
	}

	if opts.requestEmail != "" {
		res, err := view.RequestAccess(ctx, opts.requestEmail, opts.message)
		if errors.Is(err, service.ErrInvalidEmail) {
			return fmt.Errorf("invalid email address %q", opts.requestEmail)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Notice)
		fmt.Fprintf(out, "  request id: %s\n", res.Request.ID)
		return nil
	}

	fmt.Fprintf(out, "%s is password protected.\n", title)
	read := promptPassword
	if opts.passwordStdin {
		read = stdinPassword()
	}
	if opts.attempts < 1 {
		opts.attempts = 1
	}
	for i := 0; i < opts.attempts; i++ {
		pw, err := read()
		if err != nil {
			return err
		}
		res, err := view.SubmitPassword(ctx, pw)
		if err != nil {
			return err
		}
		if res.Outcome == service.OutcomeSuccess {
			fmt.Fprintf(out, "Unlocked: %s\n", title)
			if res.Token != nil {
				fmt.Fprintf(out, "  access saved until %s\n", res.Token.ExpiresAt().Format(time.RFC1123))
			}
			return nil
		}
		fmt.Fprintln(out, res.Notice)
		if opts.passwordStdin {
			break
		}
	}
	return errors.New("project remains locked; use --request-email to ask the owner for access")
}

// parseTarget accepts a project slug or a link of the form
// .../work/{slug}?access_token=...
func parseTarget(target string) (string, *url.URL, error) {
	if !strings.Contains(target, "/") {
		if target == "" {
			return "", nil, errors.New("empty project")
		}
		return target, nil, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", nil, fmt.Errorf("parse link: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "work" {
			slug, err := url.PathUnescape(segments[i+1])
			if err != nil {
				return "", nil, fmt.Errorf("parse link: %w", err)
			}
			return slug, u, nil
		}
	}
	return "", nil, fmt.Errorf("link %q does not name a project (expected /work/<project>)", target)
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func stdinPassword() func() (string, error) {
	r := bufio.NewReader(os.Stdin)
	return func() (string, error) {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
