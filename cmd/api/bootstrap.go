package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

// application holds the process-wide dependencies shared by every command.
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	pg      *persistence.Postgres
	redis   *persistence.Redis

	authService    *service.AuthService
	ticketService  *service.TicketService
	commentService *service.CommentService
}

func newApplication(ctx context.Context, withRedis bool) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	rt := &application{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
		pg:      pg,
	}

	var limiter *auth.LoginLimiter
	if withRedis {
		rt.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		limiter = auth.NewLoginLimiter(rt.redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger)
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartHistoryWorker(service.NewHistoryRecorder(dispatcher, historyRepo, logger))

	rt.authService = service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
		Limiter:  limiter,
		Metrics:  rt.metrics,
	})
	rt.ticketService = service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		TicketNumbers: repository.NewTicketNumberGenerator(pool),
		FileRepo:      repository.NewFileRepository(pool),
		HistoryRepo:   historyRepo,
		Dispatcher:    dispatcher,
		Metrics:       rt.metrics,
	})
	rt.commentService = service.NewCommentService(service.CommentDependencies{
		CommentRepo: repository.NewCommentRepository(pool),
		TicketRepo:  ticketRepo,
		Dispatcher:  dispatcher,
		Metrics:     rt.metrics,
		LabelMode:   cfg.Comments.UserLabel,
	})
	return rt, nil
}

func (rt *application) migrate(ctx context.Context) error {
	return persistence.RunMigrations(ctx, rt.pg.PoolHandle(), rt.logger)
}

func (rt *application) Close() {
	rt.redis.Close()
	rt.pg.Close()
	_ = rt.logger.Sync()
}
