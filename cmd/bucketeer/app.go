// File: cmd/bucketeer/app.go
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"bucketeer/internal/config"
	"bucketeer/internal/provider/factory"
	"bucketeer/internal/service"
	"bucketeer/internal/ui/prompt"
	"bucketeer/pkg/formatter"
)

// appContainer holds all the shared dependencies for the application
// This includes configuration, services, formatters, the prompter and the logger
type appContainer struct {
	Config           *config.Config
	ConfigManager    *config.ConfigManager
	ProviderFactory  *factory.Factory
	ObjectService    *service.ObjectService
	StorageFormatter *formatter.StorageFormatter
	Prompter         prompt.Prompter
	Logger           *slog.Logger
}

type appOptions struct {
	configPath string
	format     formatter.Format
	// skipLoad builds only the config manager, so a broken config file can still be repaired
	skipLoad bool
	in       io.Reader
	out      io.Writer
}

// Creates and initializes a new application container
func newApp(opts appOptions, logger *slog.Logger) (*appContainer, error) {
	cfgManager, err := config.NewConfigManager(opts.configPath)
	if err != nil {
		return nil, err
	}

	app := &appContainer{
		ConfigManager:    cfgManager,
		StorageFormatter: formatter.NewStorageFormatter(opts.format),
		Prompter:         prompt.New(opts.in, opts.out),
		Logger:           logger,
	}
	if opts.skipLoad {
		return app, nil
	}

	cfg, err := cfgManager.LoadConfig()
	if err != nil {
		return nil, err
	}

	app.Config = cfg
	app.ProviderFactory = factory.NewFactory(cfg, logger)
	app.ObjectService = service.NewObjectService(app.ProviderFactory, cfg, logger)
	return app, nil
}

type appContextKey struct{}

func withApp(ctx context.Context, app *appContainer) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

func appFromContext(ctx context.Context) (*appContainer, error) {
	app, ok := ctx.Value(appContextKey{}).(*appContainer)
	if !ok || app == nil {
		return nil, errors.New("application container not initialized")
	}
	return app, nil
}
