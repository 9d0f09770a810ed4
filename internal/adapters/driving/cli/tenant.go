package cli

import (
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askme/internal/core/domain"
)

var errTenantServiceMissing = errors.New("tenant service not configured")

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
	Long:  `Create, list and delete tenants and change per-tenant settings.`,
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a tenant and print its API key",
	Long: `Create a tenant. The generated API key is printed once and is what
clients send in the X-API-Key header.`,
	Args: cobra.ExactArgs(1),
	RunE: runTenantCreate,
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE:  runTenantList,
}

var tenantDeleteCmd = &cobra.Command{
	Use:   "delete [tenant-id]",
	Short: "Delete a tenant with its FAQs and settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runTenantDelete,
}

var tenantSetCmd = &cobra.Command{
	Use:   "set [tenant-id] [key] [value]",
	Short: "Change a tenant setting",
	Long: `Change a tenant setting.

Keys:
  delivery.mode      direct or llm
  delivery.delay_ms  pause between direct-mode chunks
  retrieval.top_k    number of FAQs retrieved per question
  chatbot.greeting   message shown when a chat opens`,
	Args: cobra.ExactArgs(3),
	RunE: runTenantSet,
}

var tenantShowCmd = &cobra.Command{
	Use:   "show [tenant-id]",
	Short: "Show a tenant and its settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runTenantShow,
}

func init() {
	tenantCreateCmd.Flags().String("mode", "", "default delivery mode (direct or llm)")
	tenantCreateCmd.Flags().String("greeting", "", "chat greeting")
	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantDeleteCmd)
	tenantCmd.AddCommand(tenantSetCmd)
	tenantCmd.AddCommand(tenantShowCmd)
	rootCmd.AddCommand(tenantCmd)
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	if tenantService == nil {
		return errTenantServiceMissing
	}

	settings := domain.TenantSettings{}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" { //nolint:errcheck // flag is registered
		settings[domain.TenantSettingDeliveryMode] = mode
	}
	if greeting, _ := cmd.Flags().GetString("greeting"); greeting != "" { //nolint:errcheck // flag is registered
		settings[domain.TenantSettingGreeting] = greeting
	}

	tenant, err := tenantService.Create(cmd.Context(), args[0], settings)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	cmd.Println("Tenant created")
	cmd.Printf("  ID:      %s\n", tenant.ID)
	cmd.Printf("  Name:    %s\n", tenant.Name)
	cmd.Printf("  API key: %s\n", tenant.APIKey)
	cmd.Println()
	cmd.Println("Store the API key now; it is not shown again by list.")
	return nil
}

func runTenantList(cmd *cobra.Command, _ []string) error {
	if tenantService == nil {
		return errTenantServiceMissing
	}

	tenants, err := tenantService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}
	if len(tenants) == 0 {
		cmd.Println("No tenants. Create one with 'askme tenant create <name>'.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runTenantDelete(cmd *cobra.Command, args []string) error {
	if tenantService == nil {
		return errTenantServiceMissing
	}

	if err := tenantService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	cmd.Printf("Deleted tenant %s\n", args[0])
	return nil
}

func runTenantSet(cmd *cobra.Command, args []string) error {
	if tenantService == nil {
		return errTenantServiceMissing
	}

	id, key, value := args[0], args[1], args[2]
	if err := tenantService.SetSetting(cmd.Context(), id, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runTenantShow(cmd *cobra.Command, args []string) error {
	if tenantService == nil {
		return errTenantServiceMissing
	}

	tenant, err := tenantService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get tenant: %w", err)
	}
	settings, err := tenantService.Settings(cmd.Context(), tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to get tenant settings: %w", err)
	}

	cmd.Printf("ID:      %s\n", tenant.ID)
	cmd.Printf("Name:    %s\n", tenant.Name)
	cmd.Printf("Created: %s\n", tenant.CreatedAt.Format("2006-01-02 15:04"))

	if len(settings) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println("Settings:")
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		cmd.Printf("  %s = %s\n", k, settings[k])
	}
	return nil
}
