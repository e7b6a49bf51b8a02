package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/access"
	apihttp "github.com/spec-kit/helpdesk-core/internal/api/http"
	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/blob"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/mail"
	"github.com/spec-kit/helpdesk-core/internal/notify"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/persistence"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer postgres.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, postgres.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	pool := postgres.PoolHandle()
	profileRepo := repository.NewProfileRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	ruleRepo := repository.NewNotificationRuleRepository(pool)

	resolver := access.NewResolver()
	metrics := observability.NewMetrics()

	store := blob.NewFSStore(cfg.Blob.BaseDir, cfg.Blob.PublicBaseURL, cfg.Blob.SignSecret)

	var sender mail.Sender
	if cfg.Mail.SMTPAddr != "" {
		sender = mail.NewSMTPSender(cfg.Mail.SMTPAddr, cfg.Mail.From, cfg.Mail.SMTPUser, cfg.Mail.SMTPPassword, cfg.Mail.Timeout())
	} else {
		logger.Warn("MAIL_SMTP_ADDR not set; notifications go to the log")
		sender = mail.NewLogSender(logger)
	}

	ruleCache := notify.NewRuleCache(redisConn.Client, ruleRepo,
		time.Duration(cfg.Mail.RuleCacheTTL)*time.Second, logger)
	notifier := notify.NewDispatcher(ruleCache, ticketRepo, profileRepo, sender, logger, metrics)

	dispatcher := events.NewAsyncDispatcher(logger, cfg.Mail.Timeout())

	notificationService := service.NewNotificationService(dispatcher, notifier, ruleRepo, ruleCache, logger)
	notificationService.RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, profileRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		CategoryRepo: categoryRepo,
		ProfileRepo:  profileRepo,
		HistoryRepo:  historyRepo,
		Resolver:     resolver,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
	})
	commentService := service.NewCommentService(ticketRepo, commentRepo, resolver, dispatcher)
	attachmentService := service.NewAttachmentService(ticketRepo, attachmentRepo, store, resolver, cfg.Blob.OpTimeout())

	authMW := auth.NewMiddleware(authService.TokenManager(), profileRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	apihttp.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	apihttp.RegisterRoutes(app, apihttp.Handlers{
		Health:      handlers.NewHealthHandler(postgres, redisConn),
		Auth:        handlers.NewAuthHandler(authService),
		Tickets:     handlers.NewTicketsHandler(ticketService),
		Comments:    handlers.NewCommentsHandler(commentService),
		Attachments: handlers.NewAttachmentsHandler(attachmentService),
		Admin:       handlers.NewAdminHandler(notificationService, categoryRepo),
		Files:       handlers.NewFilesHandler(store),
	}, authMW)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// let in-flight notification handlers finish
	if drainer, ok := dispatcher.(interface{ Drain() }); ok {
		drainer.Drain()
	}
	logger.Info("stopped")
}
