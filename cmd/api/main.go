package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/zimra-fiscal/internal/application/auth"
	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/application/usecase"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
	"github.com/jhoicas/zimra-fiscal/internal/infrastructure/kafka"
	"github.com/jhoicas/zimra-fiscal/internal/infrastructure/metrics"
	"github.com/jhoicas/zimra-fiscal/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/zimra-fiscal/internal/interfaces/http"
	"github.com/jhoicas/zimra-fiscal/internal/interfaces/scheduler"
	"github.com/jhoicas/zimra-fiscal/pkg/config"
	"github.com/jhoicas/zimra-fiscal/pkg/logger"
	"github.com/jhoicas/zimra-fiscal/pkg/secret"
)

// eventPublisher publicador con cierre ordenado.
type eventPublisher interface {
	fiscal.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	box, err := secret.New(cfg.App.SecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("SECRET_KEY inválida")
	}
	if box == nil {
		log.Warn().Msg("SECRET_KEY vacía: activation_key y refresh_token se guardan sin cifrar")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	deviceRepo := postgres.NewFiscalDeviceRepository(pool, box)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	noteRepo := postgres.NewNoteRepository(pool)
	txRunner := postgres.NewTxRunner(pool, box)

	fiscalMetrics := metrics.New(nil)

	var publisher eventPublisher = kafka.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Component("kafka"))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publicación de eventos habilitada")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar publicador de eventos")
		}
	}()

	fdmsClient := infrafdms.NewClient(deviceRepo, infrafdms.Options{
		Timeout:  cfg.FDMS.Timeout,
		Observer: fiscalMetrics,
		Logger:   log.Component("fdms"),
	})

	deviceUC := fiscal.NewDeviceUseCase(deviceRepo, noteRepo, txRunner, cfg.FDMS.DefaultBaseURL)
	dayUC := fiscal.NewDayUseCase(deviceRepo, noteRepo, fdmsClient, publisher, fiscalMetrics, log.Component("fiscal_day"))
	fiscaliseUC := fiscal.NewFiscaliseUseCase(invoiceRepo, deviceRepo, noteRepo, fdmsClient, publisher, fiscalMetrics, log.Component("fiscalise"))
	companyUC := usecase.NewCompanyUseCase(companyRepo)
	authUC := auth.NewAuthUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(dayUC, cfg.Scheduler, log.Component("scheduler"))
		if err != nil {
			log.Fatal().Err(err).Msg("configuración del planificador")
		}
		sched.Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.FDMS.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "ZIMRA Fiscal API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		CompanyUC:   companyUC,
		DeviceUC:    deviceUC,
		DayUC:       dayUC,
		FiscaliseUC: fiscaliseUC,
		JWTSecret:   cfg.JWT.Secret,
		Logger:      log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if sched != nil {
		sched.Wait()
	}

	log.Info().Msg("aplicación detenida")
}
