package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/askme/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askme/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/services"
	"github.com/custodia-labs/askme/internal/normalisers/english"
)

// testStack is an in-memory service graph for command tests.
type testStack struct {
	store     *memory.Store
	retrieval *services.RetrievalService
	tenants   *services.TenantService
	faqs      *services.FAQService
	settings  *services.SettingsService
}

// setupTestServices wires in-memory services into the commands and
// returns a cleanup that clears them again.
func setupTestServices(t *testing.T) *testStack {
	t.Helper()
	store := memory.NewStore()
	normaliser, err := english.Shared()
	require.NoError(t, err)
	embedder := hashing.NewEmbeddingService(hashing.Config{})

	indexes, err := services.NewIndexCache(store.FAQStore(), flat.Builder{}, 8)
	require.NoError(t, err)
	retrieval := services.NewRetrievalService(normaliser, embedder, indexes, services.NewQueryCache(16, time.Minute))
	tenants := services.NewTenantService(store.TenantStore(), retrieval)
	faqs := services.NewFAQService(store.FAQStore(), normaliser, embedder, retrieval)
	settings := services.NewSettingsService(memory.NewConfigStore(), nil)

	defaults := domain.DefaultAppSettings()
	defaults.Delivery.Delay = 0
	ask := services.NewAskService(retrieval, services.NewDeliveryService(4, nil), store.TenantStore(), defaults)

	SetServices(Services{
		Tenants:   tenants,
		FAQs:      faqs,
		Retrieval: retrieval,
		Ask:       ask,
		Settings:  settings,
	})
	t.Cleanup(func() { SetServices(Services{}) })

	return &testStack{store: store, retrieval: retrieval, tenants: tenants, faqs: faqs, settings: settings}
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), input, args...)
}

func executeContext(t *testing.T, ctx context.Context, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	setContext(rootCmd, ctx)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores every flag to its default so state does not leak
// between executions of the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setContext gives every command ctx. Cobra only hands the root context to
// a subcommand that has none, so one left over from an earlier execution
// would otherwise win.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}

func (s *testStack) tenantWithFAQs(t *testing.T) *domain.Tenant {
	t.Helper()
	ctx := context.Background()
	tenant, err := s.tenants.Create(ctx, "acme", nil)
	require.NoError(t, err)
	_, err = s.faqs.StoreFAQs(ctx, tenant.ID, []domain.FAQInput{
		{Question: "What are your opening hours?", Answer: "We are open from nine to five."},
		{Question: "Where is your office?", Answer: "Our office is in Lisbon."},
	})
	require.NoError(t, err)
	return tenant
}
