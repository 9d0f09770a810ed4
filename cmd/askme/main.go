// Command askme serves tenant FAQ retrieval over HTTP, MCP and the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/askme/internal/adapters/driven/ai"
	"github.com/custodia-labs/askme/internal/adapters/driven/config/file"
	"github.com/custodia-labs/askme/internal/adapters/driven/storage"
	"github.com/custodia-labs/askme/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/askme/internal/adapters/driving/cli"
	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/services"
	"github.com/custodia-labs/askme/internal/logger"
	"github.com/custodia-labs/askme/internal/normalisers/english"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	cli.SetVersion(version)

	if err := file.LoadDotEnv(); err != nil {
		logger.Warn("Reading .env: %v", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening config: %v\n", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	closeAll, svc, err := wire(settingsService)
	if err != nil {
		// Settings stay reachable so a broken configuration can be fixed.
		logger.Warn("%v", err)
		svc = cli.Services{Settings: settingsService}
	}
	defer closeAll()
	cli.SetServices(svc)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// wire builds the service graph from the saved settings. The returned
// cleanup is always safe to call.
func wire(settingsService *services.SettingsService) (func(), cli.Services, error) {
	noop := func() {}

	settings, err := settingsService.Get()
	if err != nil {
		return noop, cli.Services{}, fmt.Errorf("loading settings: %w", err)
	}

	normaliser, err := english.Shared()
	if err != nil {
		return noop, cli.Services{}, fmt.Errorf("loading normaliser: %w", err)
	}

	store, err := storage.Open(settings.Storage)
	if err != nil {
		return noop, cli.Services{}, err
	}

	aiResult, err := ai.Init(settings)
	if err != nil {
		store.Close()
		return noop, cli.Services{}, err
	}
	cleanup := func() {
		aiResult.Close()
		if err := store.Close(); err != nil {
			logger.Warn("Closing storage: %v", err)
		}
	}

	indexes, err := services.NewIndexCache(store.FAQStore(), flat.Builder{}, settings.Cache.IndexTenants)
	if err != nil {
		cleanup()
		return noop, cli.Services{}, fmt.Errorf("creating index cache: %w", err)
	}
	queries := services.NewQueryCache(settings.Cache.QuerySize, settings.Cache.QueryTTL)

	retrieval := services.NewRetrievalService(normaliser, aiResult.Embedder, indexes, queries)
	delivery := services.NewDeliveryService(settings.Delivery.Concurrency, aiResult.Generator)

	prompts, err := file.NewPromptStore("")
	if err != nil {
		logger.Warn("Prompt templates unavailable, using built-in defaults: %v", err)
	} else {
		delivery.SetPromptStore(prompts)
	}

	var model string
	if aiResult.Generator != nil {
		model = aiResult.Generator.ModelName()
	}
	defaults := *settings
	if aiResult.FellBack {
		defaults.Delivery.Mode = domain.DeliveryModeDirect
	}

	return cleanup, cli.Services{
		Tenants:   services.NewTenantService(store.TenantStore(), retrieval),
		FAQs:      services.NewFAQService(store.FAQStore(), normaliser, aiResult.Embedder, retrieval),
		Retrieval: retrieval,
		Ask:       services.NewAskService(retrieval, delivery, store.TenantStore(), defaults),
		Settings:  settingsService,
		Model:     model,
	}, nil
}
