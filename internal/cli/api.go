package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/api"
	"github.com/sovtrack/sovtrack/internal/orchestrator"
	"github.com/sovtrack/sovtrack/internal/quota"
)

var (
	apiHost string
	apiPort int
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Start the sovtrack REST API server exposing:
- Projects (list, get, create, trigger analysis)
- Results and daily snapshots
- The model registry (list, set current model)
- Quota ledgers`,
	RunE: runAPI,
}

func init() {
	apiCmd.Flags().StringVarP(&apiHost, "host", "H", "", "host to bind (overrides config)")
	apiCmd.Flags().IntVarP(&apiPort, "port", "p", 0, "port to listen on (overrides config)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Provider connection checks would slow startup; the analyze endpoint
	// surfaces provider errors per task anyway.
	providers, err := buildProviders(ctx, false)
	if err != nil {
		return err
	}

	gate := quota.New(store, cfg.Engine.QuotaLimit, cfg.Engine.RUPerTask)
	orch := orchestrator.New(store, providers, gate, archive)
	server := api.NewServer(store, orch, providers, cfg.API.RateLimit, cfg.API.RateBurst)

	host := apiHost
	if host == "" {
		host = cfg.API.Host
	}
	port := apiPort
	if port == 0 {
		port = cfg.API.Port
	}

	fmt.Println(FormatHeader("🚀 Starting Sovtrack API Server"))
	fmt.Println(FormatLabelValue("URL:", fmt.Sprintf("http://%s:%d/api/v1", host, port)))
	fmt.Println()

	return server.Run(host, port)
}
