package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the foliogate server is up and ready",
		Long:  "Query /healthz and /readyz on the server named by gate.server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			api, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			out := cmd.OutOrStdout()
			base := strings.TrimRight(cfg.Gate.Server, "/")
			if err := api.Healthy(ctx); err != nil {
				fmt.Fprintf(out, "Server at %s is not responding: %v\n", base, err)
				return nil
			}
			fmt.Fprintf(out, "Server is running at %s\n", base)

			status, checks, err := readiness(ctx, base)
			if err != nil {
				fmt.Fprintf(out, "  Ready:   unknown (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "  Ready:   %s\n", status)
			names := make([]string, 0, len(checks))
			for name := range checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "    %-18s %s\n", name, checks[name])
			}
			return nil
		},
	}
}

func readiness(ctx context.Context, base string) (string, map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/readyz", nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", nil, fmt.Errorf("decode readyz: %w", err)
	}
	return body.Status, body.Checks, nil
}
