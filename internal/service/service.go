package service

import (
	"github.com/redis/go-redis/v9"

	"incident-workflow/internal/config"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/metrics"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/attachment"
	"incident-workflow/internal/service/auth"
	"incident-workflow/internal/service/backup"
	"incident-workflow/internal/service/dashboard"
	"incident-workflow/internal/service/export"
	"incident-workflow/internal/service/notification"
	"incident-workflow/internal/service/user"
	"incident-workflow/internal/service/workflow"
	"incident-workflow/internal/storage"
)

type Services struct {
	Auth         auth.Service
	User         user.Service
	Attachment   attachment.Service
	Notification notification.Service
	Workflow     workflow.Service
	Dashboard    dashboard.Service
	Export       export.Service
	Backup       backup.Service
}

func NewServices(
	repos *repository.Repositories,
	store storage.Store,
	redis *redis.Client,
	cfg *config.Config,
	m *metrics.Collector,
	log *logger.Logger,
) *Services {
	attachmentService := attachment.NewService(store, m, log)
	dashboardService := dashboard.NewService(repos.Notification, redis, cfg.StatsCacheTTL, log)

	return &Services{
		Auth:         auth.NewService(repos.User, cfg, log),
		User:         user.NewService(repos.User, log),
		Attachment:   attachmentService,
		Notification: notification.NewService(repos.Notification, attachmentService, dashboardService, m, log),
		Workflow:     workflow.NewService(repos.Notification, repos.User, attachmentService, dashboardService, m, log),
		Dashboard:    dashboardService,
		Export:       export.NewService(repos.Notification, repos.User, log),
		Backup:       backup.NewService(repos, store, dashboardService, log),
	}
}
