package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"taskhub/internal/authz"
	"taskhub/internal/handlers"
	"taskhub/internal/middleware"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Project      *handlers.ProjectHandler
	Task         *handlers.TaskHandler
	Notification *handlers.NotificationHandler
	Report       *handlers.ReportHandler
	Realtime     *handlers.RealtimeHandler
	Integrations *handlers.IntegrationsHandler // nil when Telegram is disabled
}

func SetupRoutes(r *gin.Engine, h Handlers, jwtSecret []byte) *gin.Engine {
	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/refresh", h.Auth.Refresh)
	}
	if h.Integrations != nil {
		r.POST("/api/integrations/telegram/webhook", h.Integrations.Webhook)
	}

	// ---- protected
	api := r.Group("/api", middleware.AuthMiddleware(jwtSecret))

	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/ws", h.Realtime.Connect)

	users := api.Group("/users")
	{
		users.GET("/me", h.User.Me)
		users.GET("", middleware.RequireRoles(authz.RoleAdmin), h.User.List)
	}

	projects := api.Group("/project")
	{
		projects.GET("", h.Project.List)
		projects.GET("/:id", h.Project.GetByID)
		projects.POST("", middleware.RequireRoles(authz.RoleAdmin), h.Project.Create)
		projects.PUT("/:id", h.Project.Update)
		projects.DELETE("/:id", middleware.RequireRoles(authz.RoleAdmin), h.Project.Delete)
	}

	tasks := api.Group("/task")
	{
		tasks.POST("", h.Task.Create)
		tasks.GET("", h.Task.List)
		tasks.GET("/:id", h.Task.GetByID)
		tasks.PUT("/:id", h.Task.Update)
		tasks.DELETE("/:id", h.Task.Delete)
	}

	notes := api.Group("/notifications")
	{
		notes.GET("", h.Notification.ListOwn)
		notes.GET("/all", h.Notification.ListAll)
		notes.GET("/unread-count", h.Notification.UnreadCount)
		notes.PATCH("/mark-all-read", h.Notification.MarkAllRead)
		notes.PATCH("/:id/read", h.Notification.MarkRead)
		notes.DELETE("/:id", h.Notification.Delete)
	}

	admin := api.Group("/admin", middleware.RequireRoles(authz.RoleAdmin))
	{
		admin.GET("/active-logs", h.Report.ActivityLogs)
		admin.GET("/active-logs.pdf", h.Report.ActivityLogsPDF)
	}

	if h.Integrations != nil {
		api.POST("/integrations/telegram/link", h.Integrations.RequestTelegramLink)
		api.DELETE("/integrations/telegram/link", h.Integrations.UnlinkTelegram)
	}
	return r
}
