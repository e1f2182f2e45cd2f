package main

import (
	"context"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/identityforge/internal/cli"
	"github.com/julianstephens/identityforge/internal/constants"
	"github.com/julianstephens/identityforge/internal/errors"
	"github.com/julianstephens/identityforge/internal/logger"
)

func main() {
	var app cli.App
	opts := append([]kong.Option{
		kong.Name(constants.AppName),
		kong.Description("Track the identities you are building, one vote at a time."),
		kong.UsageOnError(),
	}, cli.Options(constants.DefaultConfigPath)...)
	kctx := kong.Parse(&app, opts...)

	if err := logger.Init(logger.Config{
		Debug:   app.Debug,
		DataDir: filepath.Dir(app.DB),
	}); err != nil {
		errors.Fatalf("failed to initialize logger: %v", err)
	}
	logger.Debug("Starting", "version", constants.Version, "command", kctx.Command(), "db", app.DB)

	appCtx, err := cli.Open(context.Background(), &app, kctx.Command())
	if err != nil {
		errors.Fatal(err)
	}

	err = kctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close database", "error", closeErr)
	}
	if err != nil {
		errors.Fatal(err)
	}
}
