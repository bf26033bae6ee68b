package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
)

// HandlerManager holds the wired handlers and route middleware.
type HandlerManager struct {
	authHandler         *AuthHandler
	userHandler         *UserHandler
	teamHandler         *TeamHandler
	businessUnitHandler *BusinessUnitHandler
	cycleHandler        *ReviewCycleHandler
	feedbackHandler     *FeedbackHandler
	assessmentHandler   *AssessmentHandler
	attendanceHandler   *AttendanceHandler
	jiraHandler         *JiraHandler
	dashboardHandler    *DashboardHandler
	exportHandler       *ExportHandler
	maintenanceHandler  *MaintenanceHandler

	authMiddleware *AuthMiddleware
	loginLimiter   *LoginLimiter
	metricsHandler http.Handler
	healthCheck    func(ctx context.Context) error
	cfg            *config.Config
}

// NewHandlerManager wires every handler against the service manager.
func NewHandlerManager(serviceManager services.ServiceManager, tokens *auth.TokenManager, cfg *config.Config, logger utils.Logger, metricsHandler http.Handler) *HandlerManager {
	return &HandlerManager{
		authHandler:         NewAuthHandler(serviceManager.Auth(), logger),
		userHandler:         NewUserHandler(serviceManager.User(), logger),
		teamHandler:         NewTeamHandler(serviceManager.Team(), logger),
		businessUnitHandler: NewBusinessUnitHandler(serviceManager.BusinessUnit(), logger),
		cycleHandler:        NewReviewCycleHandler(serviceManager.ReviewCycle(), serviceManager.NotificationEvents(), logger),
		feedbackHandler:     NewFeedbackHandler(serviceManager.Feedback(), logger),
		assessmentHandler:   NewAssessmentHandler(serviceManager.Assessment(), logger),
		attendanceHandler:   NewAttendanceHandler(serviceManager.Attendance(), logger),
		jiraHandler:         NewJiraHandler(serviceManager.Jira(), logger),
		dashboardHandler:    NewDashboardHandler(serviceManager.Dashboard(), logger),
		exportHandler:       NewExportHandler(serviceManager.Export(), logger),
		maintenanceHandler:  NewMaintenanceHandler(serviceManager.Auth(), logger),

		authMiddleware: NewAuthMiddleware(tokens, serviceManager.Auth(), logger),
		loginLimiter:   NewLoginLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst),
		metricsHandler: metricsHandler,
		healthCheck:    serviceManager.HealthCheck,
		cfg:            cfg,
	}
}

// SetupRoutes registers every route on the engine.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	authenticate := hm.authMiddleware.Authenticate()
	requireManager := hm.authMiddleware.RequireRole(models.RoleManager)
	requireAdmin := hm.authMiddleware.RequireRole(models.RoleAdmin)

	v1 := router.Group("/api/v1")

	// Login is the only public API route; everything else goes through the
	// session-backed auth middleware.
	v1.POST("/auth/login", hm.loginLimiter.Middleware(), hm.authHandler.Login)

	protected := v1.Group("")
	protected.Use(authenticate)

	authRoutes := protected.Group("/auth")
	{
		authRoutes.POST("/logout", hm.authHandler.Logout)
		authRoutes.GET("/me", hm.authHandler.Me)
		authRoutes.PUT("/me/password", hm.authHandler.ChangePassword)
		authRoutes.GET("/sessions", hm.authHandler.ListSessions)
		authRoutes.DELETE("/sessions/:id", hm.authHandler.RevokeSession)
	}

	users := protected.Group("/users")
	{
		users.GET("", hm.userHandler.ListUsers)
		users.GET("/:id", hm.userHandler.GetUser)
		users.GET("/:id/reports", hm.userHandler.GetDirectReports)
		users.PUT("/:id", hm.userHandler.UpdateUser)
		users.POST("", requireAdmin, hm.userHandler.CreateUser)
		users.PUT("/:id/role", requireAdmin, hm.userHandler.ChangeRole)
		users.PUT("/:id/manager", requireAdmin, hm.userHandler.AssignManager)
		users.DELETE("/:id", requireAdmin, hm.userHandler.DeactivateUser)
	}

	teams := protected.Group("/teams")
	{
		teams.GET("", hm.teamHandler.ListTeams)
		teams.GET("/:id", hm.teamHandler.GetTeam)
		teams.POST("", requireAdmin, hm.teamHandler.CreateTeam)
		teams.PUT("/:id", requireAdmin, hm.teamHandler.UpdateTeam)
		teams.DELETE("/:id", requireAdmin, hm.teamHandler.DeleteTeam)
		teams.PUT("/:id/members/:user_id", requireAdmin, hm.teamHandler.AssignMember)
		teams.DELETE("/:id/members/:user_id", requireAdmin, hm.teamHandler.RemoveMember)
	}

	businessUnits := protected.Group("/business-units")
	{
		businessUnits.GET("", hm.businessUnitHandler.ListBusinessUnits)
		businessUnits.GET("/:id", hm.businessUnitHandler.GetBusinessUnit)
		businessUnits.POST("", requireAdmin, hm.businessUnitHandler.CreateBusinessUnit)
		businessUnits.PUT("/:id", requireAdmin, hm.businessUnitHandler.UpdateBusinessUnit)
		businessUnits.DELETE("/:id", requireAdmin, hm.businessUnitHandler.DeleteBusinessUnit)
	}

	cycles := protected.Group("/review-cycles")
	{
		cycles.GET("", hm.cycleHandler.ListCycles)
		cycles.GET("/open", hm.cycleHandler.GetOpenCycle)
		cycles.GET("/:id", hm.cycleHandler.GetCycle)
		cycles.GET("/:id/stats", hm.cycleHandler.GetCycleStats)
		cycles.POST("", requireAdmin, hm.cycleHandler.CreateCycle)
		cycles.PUT("/:id", requireAdmin, hm.cycleHandler.UpdateCycle)
		cycles.DELETE("/:id", requireAdmin, hm.cycleHandler.DeleteCycle)
		cycles.POST("/:id/open", requireAdmin, hm.cycleHandler.OpenCycle)
		cycles.POST("/:id/close", requireAdmin, hm.cycleHandler.CloseCycle)
		cycles.POST("/:id/reminders", requireAdmin, hm.cycleHandler.SendReminders)
	}

	feedback := protected.Group("/feedback")
	{
		feedback.POST("/requests", hm.feedbackHandler.CreateRequest)
		feedback.GET("/requests", hm.feedbackHandler.ListRequests)
		feedback.GET("/requests/:id", hm.feedbackHandler.GetRequest)
		feedback.POST("/requests/:id/decline", hm.feedbackHandler.DeclineRequest)
		feedback.POST("/requests/:id/submit", hm.feedbackHandler.SubmitFeedback)
		feedback.GET("", hm.feedbackHandler.ListFeedback)
		feedback.GET("/:id", hm.feedbackHandler.GetFeedback)
		feedback.GET("/received/:user_id", hm.feedbackHandler.ListReceived)
	}

	assessments := protected.Group("/assessments")
	{
		assessments.PUT("/draft", hm.assessmentHandler.SaveDraft)
		assessments.POST("/cycles/:cycle_id/submit", hm.assessmentHandler.Submit)
		assessments.GET("/cycles/:cycle_id/me", hm.assessmentHandler.GetOwn)
		assessments.GET("/cycles/:cycle_id/users/:user_id", hm.assessmentHandler.GetForUser)
		assessments.GET("/cycles/:cycle_id", requireManager, hm.assessmentHandler.ListByCycle)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.PUT("", hm.attendanceHandler.UpsertRecord)
		attendance.GET("", hm.attendanceHandler.ListRecords)
		attendance.DELETE("/:id", hm.attendanceHandler.DeleteRecord)
		attendance.GET("/summary/:user_id", hm.attendanceHandler.GetSummary)
	}

	jira := protected.Group("/jira")
	{
		jira.POST("/sync", requireAdmin, hm.jiraHandler.Sync)
		jira.GET("/stats/:user_id", hm.jiraHandler.GetStats)
		jira.GET("/stats/:user_id/history", hm.jiraHandler.GetHistory)
	}

	dashboard := protected.Group("/dashboard")
	{
		dashboard.GET("/summary", hm.dashboardHandler.GetSummary)
		dashboard.GET("/team", requireManager, hm.dashboardHandler.GetTeamOverview)
		dashboard.GET("/admin", requireAdmin, hm.dashboardHandler.GetAdminOverview)
	}

	exports := protected.Group("/exports")
	{
		exports.GET("/attendance", requireManager, hm.exportHandler.ExportAttendance)
		exports.GET("/cycles/:id", requireAdmin, hm.exportHandler.ExportCycleSummary)
	}

	if hm.cfg.TestRoutesEnabled() {
		test := router.Group("/test")
		{
			test.POST("/cleanup-sessions", hm.maintenanceHandler.CleanupSessions)
			test.GET("/sessions/count", hm.maintenanceHandler.CountSessions)
		}
	}

	if hm.metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(hm.metricsHandler))
	}

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := hm.healthCheck(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Route not found",
		})
	})
}
