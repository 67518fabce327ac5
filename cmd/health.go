package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/olynch/presentations/internal/server"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running preview server",
	Long: `Query /health on a running "deck serve" and report its status. The command
fails if the server cannot be reached or reports anything but healthy.

Examples:
  deck health
  deck health --port 4000 --verbose`,
	Args: cobra.NoArgs,
	RunE: runHealthCheck,
}

var (
	healthPort    int
	healthHost    string
	healthTimeout time.Duration
	healthVerbose bool
)

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().IntVarP(&healthPort, "port", "p", server.DefaultPort, "Port of the preview server")
	healthCmd.Flags().StringVarP(&healthHost, "host", "H", "127.0.0.1", "Host of the preview server")
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 3*time.Second, "Timeout for the request")
	healthCmd.Flags().BoolVarP(&healthVerbose, "verbose", "v", false, "Print the full health response")
}

type healthStatus struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Subscribers int    `json:"subscribers"`
}

func runHealthCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	url := "http://" + net.JoinHostPort(healthHost, strconv.Itoa(healthPort)) + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("preview server not reachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}

	var status healthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	out := cmd.OutOrStdout()
	if healthVerbose {
		fmt.Fprintln(out, string(body))
	} else {
		fmt.Fprintf(out, "%s (version %s, up %s, %d clients)\n",
			status.Status, status.Version, status.Uptime, status.Subscribers)
	}

	if status.Status != "healthy" {
		return fmt.Errorf("preview server is %s", status.Status)
	}
	return nil
}
