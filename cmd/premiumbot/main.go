package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mangadesu/premiumbot/core/bootstrap"
	coreconfig "github.com/mangadesu/premiumbot/core/config"
	"github.com/mangadesu/premiumbot/core/logger"
	coretelegram "github.com/mangadesu/premiumbot/core/telegram"
	"github.com/mangadesu/premiumbot/core/telegram/router"
	"github.com/mangadesu/premiumbot/internal/adminapi"
	"github.com/mangadesu/premiumbot/internal/bot"
	"github.com/mangadesu/premiumbot/internal/catalog"
	"github.com/mangadesu/premiumbot/internal/notify"
	"github.com/mangadesu/premiumbot/internal/order"
	"github.com/mangadesu/premiumbot/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("premiumbot: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return err
	}

	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer boot.DB.Close()

	// domain wiring
	st := store.New(boot.DB)
	cat := catalog.New(cfg.Packages)
	pkgList, _ := logger.SummarizeStrings(cat.IDs(), 10)
	logger.L.With("component", "app").Info("catalog ready",
		slog.String("event", "catalog"),
		slog.String("packages", pkgList),
	)
	machine := order.NewMachine(st, cat, order.Policy{
		MinSubscriberIDLen: cfg.Orders.MinSubscriberIDLen,
		AmountTolerance:    cfg.Orders.AmountTolerance,
		SessionTimeout:     time.Duration(cfg.Orders.SessionTimeoutMinutes) * time.Minute,
	})
	engine := order.NewEngine(st)
	gateway := order.NewGateway(engine, cfg.Admin.TelegramIDs, cfg.Admin.APIKeys)

	app := bot.New(cfg, machine, gateway, st, cat)
	api := adminapi.New(cfg, gateway, st)

	// bot routes
	reg := coretelegram.NewRegistry()
	app.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminIDs: cfg.Admin.TelegramIDs,
	})
	routes = append(routes, router.TextRoutes(app, reg, router.TextOptions{
		AdminIDs: cfg.Admin.TelegramIDs,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	runOpts := coretelegram.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			notifier := notify.New(rt.Bot, rt.Dispatcher, cfg.Admin.TelegramIDs)
			app.SetNotifier(notifier)
			api.SetNotifier(notifier)
			logger.L.With("component", "app").Info("app ready",
				slog.String("event", "ready"),
			)
			return nil
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coretelegram.RunTelegram(gctx, runOpts)
	})
	g.Go(func() error {
		return api.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
