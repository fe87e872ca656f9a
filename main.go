package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"supportdesk/app/client/llm"
	"supportdesk/app/config"
	"supportdesk/app/server/mcp_stdio"
	"supportdesk/app/server/rest"
	"supportdesk/app/service/session"
	"supportdesk/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, llm.New)
	do.Provide(di, session.New)
	do.Provide(di, rest.New)
	do.Provide(di, mcp_stdio.New)

	// fail fast on broken model config before accepting any turn
	if _, err = do.Invoke[*session.Service](di); err != nil {
		log.Fatalf("session service init failed: %v", err)
	}

	slog.Info("Service started", "transport", cfg.Server.Transport)

	g, ctx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		defer cancel()

		switch cfg.Server.Transport {
		case config.TransportStdio:
			return do.MustInvoke[*mcp_stdio.Server](di).Run(ctx)
		default:
			return do.MustInvoke[*rest.Server](di).Run(ctx)
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down...")
		return nil
	})

	if err = g.Wait(); err != nil {
		slog.Error("Server stopped", "error", err)
	}
}
