package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/andefred/eldsal/app/controllers"
	"github.com/andefred/eldsal/app/repository"
	"github.com/andefred/eldsal/internal/pkg/billing"
	"github.com/andefred/eldsal/internal/pkg/cache"
	"github.com/andefred/eldsal/internal/pkg/config"
	"github.com/andefred/eldsal/internal/pkg/database"
	"github.com/andefred/eldsal/internal/pkg/env"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/andefred/eldsal/internal/pkg/membership"
	"github.com/andefred/eldsal/internal/pkg/metrics/counter"
	"github.com/andefred/eldsal/internal/pkg/middleware"
	"github.com/andefred/eldsal/internal/pkg/roster"
	"github.com/andefred/eldsal/internal/pkg/router"
	"github.com/andefred/eldsal/internal/pkg/s3backup"
)

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app, scheduler, err := NewApplication(cfg)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		<-scheduler.Stop().Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)); err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires the services and returns the app together with the
// started job scheduler.
func NewApplication(cfg *config.Config) (*fiber.App, *cron.Cron, error) {
	if cfg.IsDev() {
		fiberlog.SetLevel(fiberlog.LevelDebug)
	}

	database.SetupDatabase(cfg.DB, cfg.IsDev())
	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	rdb := cache.SetupCache(cfg.Cache)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := counter.New(registry)

	gateways := map[fees.Flavour]billing.Gateway{}
	for _, f := range fees.Flavours {
		account := cfg.Stripe.Account(f)
		if account.SecretKey == "" {
			fiberlog.Warnf("No checkout account configured for %s", f)
			continue
		}
		gateways[f] = billing.NewStripeGateway(account)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	verifier, err := middleware.NewOIDCVerifier(ctx, cfg.Identity.Issuer(), cfg.Identity.Audience, cfg.Identity.ConnectionClaim)
	if err != nil {
		return nil, nil, err
	}

	memberService := membership.NewService(repos.Member, cfg.Identity.Connection, metrics)
	billingService := billing.NewService(billing.Dependencies{
		Events:   billing.NewRepository(database.GetDB()),
		Members:  repos.Member,
		Gateways: gateways,
		Cache:    cache.NewStore(rdb),
		Metrics:  metrics,
		WebHost:  cfg.App.WebHost,
	})

	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := billingService.ScheduleWebhookPruning(scheduler, cfg.Stripe.WebhookPrune, cfg.Stripe.WebhookRetention); err != nil {
		return nil, nil, fmt.Errorf("schedule webhook pruning %q: %w", cfg.Stripe.WebhookPrune, err)
	}
	if err := startRosterArchive(scheduler, cfg, repos.Member, metrics); err != nil {
		return nil, nil, err
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		AppName:   "eldsal",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Dependencies{
		Auth:           middleware.NewAuthenticator(verifier, repos.Member, cfg.Identity.Connection),
		Member:         controllers.NewMemberController(memberService),
		Admin:          controllers.NewAdminController(memberService),
		Checkout:       controllers.NewCheckoutController(billingService, repos.Member),
		Webhook:        controllers.NewWebhookController(billingService),
		Metrics:        metrics,
		LimiterStorage: cache.NewLimiterStorage(cfg.Cache),
		MetricsAuth:    cfg.Metrics,
		OpenAPIFile:    findOpenAPIFile(),
	})

	return app, scheduler, nil
}

func startRosterArchive(scheduler *cron.Cron, cfg *config.Config, members repository.MemberRepository, metrics *counter.Metrics) error {
	s3cfg, err := s3backup.FromArchiveConfig(cfg.Archive, cfg.IsDev())
	if err != nil {
		return err
	}
	if !s3cfg.IsEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := s3backup.NewClient(ctx, s3cfg)
	if err != nil {
		return fmt.Errorf("roster archive storage: %w", err)
	}

	archiver := roster.NewArchiver(members, cfg.Identity.Connection, client, s3cfg.GetObjectKey, metrics)
	if _, err := archiver.Schedule(scheduler, cfg.Archive.Schedule); err != nil {
		return fmt.Errorf("schedule roster archive %q: %w", cfg.Archive.Schedule, err)
	}
	fiberlog.Infof("[RosterArchive] scheduled at %q to bucket %s", cfg.Archive.Schedule, s3cfg.BucketName)
	return nil
}

// findOpenAPIFile looks for the API document from the working directory and
// from cmd/eldsal.
func findOpenAPIFile() string {
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "docs/openapi.yml"); err == nil {
			return path + "docs/openapi.yml"
		}
	}
	return ""
}
