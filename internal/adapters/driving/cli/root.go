// Package cli implements the askme command line as a driving adapter.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driving"
	"github.com/custodia-labs/askme/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	tenantService    driving.TenantService
	faqService       driving.FAQService
	retrievalService driving.RetrievalService
	askService       driving.AskService
	settingsService  driving.SettingsService

	// llmModel names the generator in use, empty when LLM delivery is unavailable.
	llmModel string
)

var rootCmd = &cobra.Command{
	Use:   "askme",
	Short: "Multi-tenant FAQ retrieval service",
	Long: `askme answers questions from each tenant's own FAQ set.

Questions are matched against stored FAQ questions by semantic similarity
and the answer is streamed back, either as the stored answer or as a
response generated by a language model from the closest matches.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose { //nolint:errcheck // flag is registered below
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

// Services holds the core services the commands drive.
type Services struct {
	Tenants   driving.TenantService
	FAQs      driving.FAQService
	Retrieval driving.RetrievalService
	Ask       driving.AskService
	Settings  driving.SettingsService

	// Model names the LLM in use, empty when LLM delivery is unavailable.
	Model string
}

// SetServices injects the core services.
func SetServices(s Services) {
	tenantService = s.Tenants
	faqService = s.FAQs
	retrievalService = s.Retrieval
	askService = s.Ask
	settingsService = s.Settings
	llmModel = s.Model
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadSettings returns the current settings, or the defaults when no
// settings service is configured.
func loadSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		defaults := domain.DefaultAppSettings()
		return &defaults, nil
	}
	return settingsService.Get()
}
