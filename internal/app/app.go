package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	_ "taskhub/docs"
	"taskhub/internal/authz"
	"taskhub/internal/config"
	"taskhub/internal/handlers"
	"taskhub/internal/jobs"
	"taskhub/internal/pdf"
	"taskhub/internal/realtime"
	"taskhub/internal/repositories"
	"taskhub/internal/routes"
	"taskhub/internal/services"
)

// App owns the process-wide collaborators. Build it with New, release it with Close.
type App struct {
	Config *config.Config
	DB     *sqlx.DB

	Users    repositories.UserRepository
	Projects repositories.ProjectRepository
	Tasks    repositories.TaskRepository

	Auth          services.AuthService
	TaskService   services.TaskService
	Notifications services.NotificationService
	Telegram      *services.TelegramService // nil when no bot token is configured

	Hub               *realtime.Hub
	Dispatcher        *services.AsyncDispatcher
	ChannelDispatcher *services.AsyncDispatcher // Telegram deliveries, apart from realtime pushes
	Scheduler         *jobs.Scheduler

	handlers routes.Handlers
}

func OpenDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := OpenDB(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := repositories.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	a := &App{Config: cfg, DB: db}

	// === Repos ===
	a.Users = repositories.NewUserRepository(db)
	a.Projects = repositories.NewProjectRepository(db)
	a.Tasks = repositories.NewTaskRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)
	linkRepo := repositories.NewTelegramLinkRepository(db)

	// === Services ===
	a.Auth = services.NewAuthService(a.Users, services.AuthOptions{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	userService := services.NewUserService(a.Users)
	projectService := services.NewProjectService(a.Projects)
	a.Notifications = services.NewNotificationService(notificationRepo)
	recorder := services.NewActivityRecorder(activityRepo)

	var channels []services.NotificationChannel
	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramService(cfg.Telegram.BotToken, linkRepo, a.Users, a.Tasks)
		if err != nil {
			// the API keeps working without the bot
			log.Printf("[app][tg] disabled: %v", err)
		} else {
			a.Telegram = tg
			channels = append(channels, tg)
			if cfg.Telegram.WebhookURL != "" {
				if err := tg.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
					log.Printf("[app][tg] set webhook: %v", err)
				}
			}
		}
	}

	a.Hub = realtime.NewHub(cfg.Realtime.SessionBuffer)
	a.Dispatcher = services.NewAsyncDispatcher(cfg.Realtime.DispatchBuffer, 10*time.Second)
	a.ChannelDispatcher = services.NewAsyncDispatcher(cfg.Realtime.DispatchBuffer, 10*time.Second)
	a.TaskService = services.NewTaskService(services.TaskServiceDeps{
		Tasks:             a.Tasks,
		Projects:          a.Projects,
		Users:             a.Users,
		Notifications:     notificationRepo,
		Recorder:          recorder,
		Fanout:            a.Hub,
		Dispatcher:        a.Dispatcher,
		ChannelDispatcher: a.ChannelDispatcher,
		Channels:          channels,
	})

	// === Jobs ===
	a.Scheduler = jobs.NewScheduler()
	a.Scheduler.Register(&jobs.DailyReminder{Tasks: a.Tasks, Projects: a.Projects, Users: a.Users, Mail: emailService}, jobs.Daily{Hour: 8})
	a.Scheduler.Register(&jobs.WeeklySummary{Tasks: a.Tasks, Projects: a.Projects, Users: a.Users, Mail: emailService}, jobs.Weekly{Weekday: time.Friday, Hour: 9})
	a.Scheduler.Register(&jobs.PurgeNotifications{Notifications: a.Notifications}, jobs.Every(time.Hour))

	// === Handlers ===
	canView := func(ctx context.Context, actor authz.Actor, taskID int64) bool {
		_, err := a.TaskService.Get(ctx, actor, taskID)
		return err == nil
	}
	a.handlers = routes.Handlers{
		Auth:         handlers.NewAuthHandler(a.Auth),
		User:         handlers.NewUserHandler(userService),
		Project:      handlers.NewProjectHandler(projectService),
		Task:         handlers.NewTaskHandler(a.TaskService),
		Notification: handlers.NewNotificationHandler(a.Notifications),
		Report:       handlers.NewReportHandler(recorder, pdf.NewReportGenerator(cfg.Reports.FontPath)),
		Realtime:     handlers.NewRealtimeHandler(realtime.NewServer(a.Hub, cfg.Realtime.AllowedOrigin, canView)),
	}
	if a.Telegram != nil {
		a.handlers.Integrations = handlers.NewIntegrationsHandler(a.Telegram, userService)
	}
	return a, nil
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(a.Config.Realtime.AllowedOrigin))
	return routes.SetupRoutes(router, a.handlers, []byte(a.Config.Auth.JWTSecret))
}

// Serve runs the HTTP server and, when enabled, the job scheduler until ctx
// is cancelled, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Admin.Email != "" {
		if err := a.Auth.SeedAdmin(ctx, a.Config.Admin.Name, a.Config.Admin.Email, a.Config.Admin.Password); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	if a.Config.Jobs.Enabled {
		a.Scheduler.Start(jobsCtx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[app] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[app] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	// Close sessions first: hijacked websocket conns are not tracked by Shutdown.
	a.Hub.Close()
	err := srv.Shutdown(shutdownCtx)
	stopJobs()
	a.Scheduler.Wait()
	return err
}

// Close drains queued side effects and releases the database.
func (a *App) Close() {
	a.Dispatcher.Close()
	a.ChannelDispatcher.Close()
	a.Hub.Close()
	if err := a.DB.Close(); err != nil {
		log.Printf("[app] close db: %v", err)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
