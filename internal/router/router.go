package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/handler"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/middleware"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/response"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Exam       *handler.ExamHandler
	Submission *handler.SubmissionHandler
	Stream     *handler.StreamHandler
	Setting    *handler.SettingHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	settingService *service.SettingService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Exams Group (JWT + Portal Toggle) ──────────────────────────
	// The portal toggle gates students only; staff manage exams while
	// the portal is closed.
	exams := router.Group("/api/v1/exams")
	exams.Use(
		middleware.RequireAuth(authService),
		middleware.RequirePortalOpen(settingService),
	)
	{
		exams.GET("", handlers.Exam.List)
		exams.GET("/:id", handlers.Exam.Get)

		// Student attempt routes
		exams.PUT("/:id/auto-save", middleware.RequireStudent(), handlers.Submission.Autosave)
		exams.POST("/:id/submit", middleware.RequireStudent(), handlers.Submission.Submit)
		exams.GET("/:id/state", middleware.RequireStudent(), handlers.Submission.State)

		// Staff authoring and review routes
		exams.POST("", middleware.RequireStaff(), handlers.Exam.Create)
		exams.PUT("/:id", middleware.RequireStaff(), handlers.Exam.Update)
		exams.DELETE("/:id", middleware.RequireStaff(), handlers.Exam.Delete)
		exams.GET("/:id/submissions", middleware.RequireStaff(), handlers.Submission.ListByExam)
	}

	// ─── 3. Admin Group (JWT + Admin Role) ─────────────────────────────
	admin := router.Group("/api/v1/admin")
	admin.Use(
		middleware.RequireAuth(authService),
		middleware.RequireAdmin(),
	)
	{
		admin.GET("/settings", handlers.Setting.GetAll)
		admin.PUT("/settings", handlers.Setting.Update)
	}

	// ─── 4. WebSocket Group (Staff) ────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireAuth(authService),
		middleware.RequireStaff(),
	)
	{
		ws.GET("/exams/:id/submissions/stream", handlers.Stream.SubmissionStream)
	}

	return router
}
