package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/askme/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/askme/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Routes:
  GET  /                 service name and version
  GET  /chatbot/status   delivery mode, model and cache occupancy
  POST /api/tenants      create a tenant (admin token required)
  POST /api/faqs         upload FAQs (X-API-Key)
  GET  /api/faqs         list FAQs (X-API-Key)
  POST /api/ask          ask a question, JSON or server-sent events
  GET  /api/ask/ws       ask over WebSocket

Use --mcp-port to serve the MCP tools over HTTP from the same process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr setting)")
	serveCmd.Flags().Int("mcp-port", 0, "also serve MCP over HTTP on this port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if tenantService == nil || faqService == nil || askService == nil || retrievalService == nil {
		return errors.New("services not configured")
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	mcpPort, err := cmd.Flags().GetInt("mcp-port")
	if err != nil {
		return fmt.Errorf("getting mcp-port flag: %w", err)
	}

	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if addr == "" {
		addr = settings.Server.Addr
	}
	if settings.Server.AdminToken == "" {
		logger.Warn("server.admin_token is not set; POST /api/tenants is disabled")
	}

	server := httpapi.NewServer(httpapi.Config{
		Tenants:     tenantService,
		FAQs:        faqService,
		Ask:         askService,
		Retrieval:   retrievalService,
		Settings:    settings.Server,
		DefaultMode: settings.Delivery.Mode,
		Model:       llmModel,
		Version:     version,
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr)
	})

	if mcpPort > 0 {
		mcpServer, err := newMCPServer()
		if err != nil {
			return err
		}
		mcpAddr := fmt.Sprintf(":%d", mcpPort)
		g.Go(func() error {
			logger.Info("MCP server listening on %s", mcpAddr)
			return mcpServer.RunHTTP(ctx, mcpAddr)
		})
	}

	return g.Wait()
}
