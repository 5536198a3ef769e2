package main

import (
	"context"

	"github.com/padoru233/trans-progress/internal/bot"
	"github.com/padoru233/trans-progress/internal/config"
	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/services"
	"github.com/padoru233/trans-progress/internal/utils"
	"github.com/padoru233/trans-progress/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg *config.Config

	taskQueue services.TaskQueue
	worker    *services.Worker
	scheduler *services.Scheduler
	botClient *bot.Client

	sender   *services.OneBotClient
	notifier *services.Notifier

	authSvc      *services.AuthService
	memberSvc    *services.MemberService
	projectSvc   *services.ProjectService
	episodeSvc   *services.EpisodeService
	workflowSvc  *services.WorkflowService
	settingSvc   *services.GroupSettingService
	broadcastSvc *services.BroadcastService
}

// bootstrap initializes all application dependencies: database, queue,
// services, schedulers and the bot event connection.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()

	services.InitSystemLogger(db)
	services.StartLogCleanupScheduler(db)

	// Outbound delivery: every message goes through the task queue to
	// the chat platform HTTP API.
	sender := services.NewOneBotClient(&cfg.Bot)
	deliver := func(ctx context.Context, t *services.NotifyTask) error {
		return sender.SendGroupMessage(ctx, t.GroupID, t.Payload)
	}

	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(deliver)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled && taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		worker.SetProcessor(deliver)
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start queue worker: %v", err)
		}
	}

	notifier := services.NewNotifier(taskQueue)

	memberSvc := services.NewMemberService(db).WithClient(sender)
	projectSvc := services.NewProjectService(db, memberSvc, notifier).WithClient(sender)
	episodeSvc := services.NewEpisodeService(db, memberSvc, notifier)
	workflowSvc := services.NewWorkflowService(db)
	settingSvc := services.NewGroupSettingService(db, cfg.Broadcast.DefaultTime)
	broadcastSvc := services.NewBroadcastService(db, taskQueue, cfg.Broadcast.DefaultTime)

	authSvc := services.NewAuthService(db, cfg)
	if err := authSvc.EnsureAdmin(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	scheduler := services.NewScheduler(broadcastSvc)
	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	commandHandler := bot.NewCommandHandler(projectSvc, episodeSvc, workflowSvc, broadcastSvc, notifier)
	botClient := bot.NewClient(&cfg.Bot, commandHandler)
	go botClient.Run()

	return &appServices{
		cfg:          cfg,
		taskQueue:    taskQueue,
		worker:       worker,
		scheduler:    scheduler,
		botClient:    botClient,
		sender:       sender,
		notifier:     notifier,
		authSvc:      authSvc,
		memberSvc:    memberSvc,
		projectSvc:   projectSvc,
		episodeSvc:   episodeSvc,
		workflowSvc:  workflowSvc,
		settingSvc:   settingSvc,
		broadcastSvc: broadcastSvc,
	}
}

// shutdown gracefully stops background work.
func (s *appServices) shutdown() {
	s.botClient.Stop()
	s.scheduler.Stop()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	logger.Info().Msg("background services stopped")
}
