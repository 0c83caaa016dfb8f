package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"certhub/backend/config"
	"certhub/backend/internal/api/handler"
	"certhub/backend/internal/api/middleware"
	"certhub/backend/internal/model"
	"certhub/backend/pkg/jwt"
	"certhub/backend/pkg/redis"
)

const maxBodyBytes = 1 << 20 // 1MB

// Setup builds the Gin engine with all middleware and routes attached.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── health check ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// authentication (no token required)
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 10, time.Minute))
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// token-protected routes
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// account management (coordinator only)
			users := authorized.Group("/users", middleware.RoleAuth(model.RoleCoordinator))
			{
				users.POST("", h.User.Create)
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.PUT("/:id", h.User.Update)
				users.PUT("/:id/examiner-profile", h.User.UpdateExaminerProfile)
				users.DELETE("/:id", h.User.Delete)
			}

			// training sessions
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("", h.Session.List)
				sessions.GET("/:id", h.Session.Get)
				sessions.POST("", middleware.RoleAuth(model.RoleTeacher, model.RoleCoordinator), h.Session.Create)
				sessions.PUT("/:id", middleware.RoleAuth(model.RoleTeacher, model.RoleCoordinator), h.Session.Update)
				sessions.DELETE("/:id", middleware.RoleAuth(model.RoleCoordinator), h.Session.Delete)
				sessions.POST("/:id/enroll", middleware.RoleAuth(model.RoleStudent), h.Session.Enroll)
			}

			// exams (coordinator schedules, everyone may read)
			exams := authorized.Group("/exams")
			{
				exams.GET("", h.Exam.List)
				exams.GET("/export", middleware.RoleAuth(model.RoleCoordinator), h.Export.ExportExams)
				exams.GET("/calendar.ics", middleware.RoleAuth(model.RoleCoordinator), h.Export.ExportCalendar)
				exams.GET("/:id", h.Exam.Get)
				exams.POST("", middleware.RoleAuth(model.RoleCoordinator), h.Exam.Schedule)
				exams.PUT("/:id", middleware.RoleAuth(model.RoleCoordinator), h.Exam.Reschedule)
				exams.DELETE("/:id", middleware.RoleAuth(model.RoleCoordinator), h.Exam.Cancel)
			}

			// examiner availability
			availability := authorized.Group("/availability", middleware.RoleAuth(model.RoleExaminer, model.RoleCoordinator))
			{
				availability.GET("", h.Availability.ListMine)
				availability.POST("", h.Availability.Create)
				availability.POST("/import-ics", h.Availability.ImportICS)
				availability.DELETE("/:id", h.Availability.Revoke)
			}
		}
	}

	return r
}
