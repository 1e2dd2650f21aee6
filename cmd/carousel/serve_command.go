package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"carousel/internal/api"
	"carousel/internal/logging"
	"carousel/internal/preflight"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx, bindFlag)
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, bind string) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.Server.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire server lock %s: %w", cfg.Server.LockPath, err)
	}
	if !locked {
		return fmt.Errorf("another carousel server holds %s", cfg.Server.LockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release server lock", logging.Error(err))
		}
	}()

	svc, client, loader, err := ctx.generationService()
	if err != nil {
		return err
	}

	for _, check := range preflight.Failed(preflight.RunAll(signalCtx, cfg, client, loader)) {
		logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
		)
	}

	if strings.TrimSpace(bind) == "" {
		bind = cfg.Server.Bind
	}
	server, err := api.NewServer(api.Options{
		Bind:           bind,
		RequestTimeout: cfg.RequestTimeout(),
		Version:        version,
		Logger:         logger,
	}, svc, client, loader)
	if err != nil {
		return err
	}

	logger.Info("carousel server starting",
		logging.String("engine", client.BaseURL()),
		logging.String("templates", cfg.Templates.Dir),
		logging.String("default_template", svc.DefaultTemplate()),
	)
	if err := server.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("carousel server shutting down")
	return nil
}
