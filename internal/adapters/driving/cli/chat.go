package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askme/internal/adapters/driving/tui"
	"github.com/custodia-labs/askme/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat [tenant-id]",
	Short: "Chat with a tenant in the terminal",
	Long: `Open an interactive chat with a tenant.

Answers stream into the transcript as they are delivered. In llm mode the
conversation so far is passed to the model with each question.

Controls:
  Enter     - Send
  Esc       - Stop the current answer
  PgUp/PgDn - Scroll
  Ctrl+L    - Clear the conversation
  Ctrl+C    - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("mode", "m", "", "delivery mode: direct or llm (default: tenant setting)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return fmt.Errorf("getting mode flag: %w", err)
	}
	if mode != "" && !domain.DeliveryMode(mode).IsValid() {
		return fmt.Errorf("invalid mode %q: must be direct or llm", mode)
	}

	app, err := tui.NewApp(&tui.Ports{Ask: askService, Tenants: tenantService}, args[0])
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	app.WithContext(cmd.Context()).WithMode(domain.DeliveryMode(mode))

	if err := app.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
