package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medivuno/telehealth-server/internal/handlers"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Appointments *handlers.AppointmentHandler
	WorkingHours *handlers.WorkingHoursHandler
	Dashboard    *handlers.DashboardHandler
	Reports      *handlers.ReportHandler
	Messages     *handlers.MessageHandler
}

// Options configures the router.
type Options struct {
	JWTSecret string
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers, opts Options) {
	staff := middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", h.Auth.Register)
			authRoutes.POST("/login", h.Auth.Login)
			authRoutes.POST("/refresh-token", h.Auth.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(opts.JWTSecret))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", h.Auth.Logout)
			authRoutesPrivate.GET("/profile", h.Auth.GetProfile)
			authRoutesPrivate.PUT("/profile", h.Auth.UpdateProfile)
		}

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/doctors", h.Users.GetDoctors)
			userRoutes.GET("/doctor-patients", staff, h.Users.GetDoctorPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", h.Users.CreateUser)
				adminRoutes.GET("", h.Users.GetUsers)
				adminRoutes.GET("/:id", h.Users.GetUserByID)
				adminRoutes.PUT("/:id", h.Users.UpdateUser)
				adminRoutes.DELETE("/:id", h.Users.DeleteUser)
			}
		}

		providerRoutes := private.Group("/providers/:id")
		{
			providerRoutes.GET("/available-slots", h.Appointments.GetAvailableSlots)
			providerRoutes.GET("/working-hours", h.WorkingHours.GetWorkingHours)
			providerRoutes.PUT("/working-hours", staff, h.WorkingHours.UpdateWorkingHours)
			providerRoutes.DELETE("/working-hours", staff, h.WorkingHours.ResetWorkingHours)
		}

		// Authorization beyond the role check happens in the scheduling service.
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", h.Appointments.CreateAppointment)
			appointmentRoutes.GET("", h.Appointments.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", h.Appointments.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", h.Appointments.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", h.Appointments.RescheduleAppointment)
		}

		dashboardRoutes := private.Group("/dashboard")
		dashboardRoutes.Use(staff)
		{
			dashboardRoutes.GET("/counts", h.Dashboard.GetCounts)
			dashboardRoutes.GET("/weekly-summary", h.Dashboard.GetWeeklySummary)
			dashboardRoutes.GET("/demographics", h.Dashboard.GetDemographics)
			dashboardRoutes.GET("/tasks", h.Dashboard.GetPendingTasks)
		}

		taskRoutes := private.Group("/tasks")
		{
			taskRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), h.Dashboard.CreateTask)
			taskRoutes.PATCH("/:id/complete", staff, h.Dashboard.CompleteTask)
		}

		reportRoutes := private.Group("/reports")
		{
			reportRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), h.Reports.CreateReport)
			reportRoutes.GET("", h.Reports.GetReports)
			reportRoutes.GET("/:id", h.Reports.GetReportByID)
			reportRoutes.GET("/:id/pdf", h.Reports.DownloadReportPDF)
			reportRoutes.PATCH("/:id/review", middleware.RoleAuthMiddleware(models.RolePatient), h.Reports.MarkReportReviewed)
		}

		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", h.Messages.SendMessage)
			messageRoutes.GET("", h.Messages.GetMessagesForUser)
			messageRoutes.GET("/new", h.Messages.GetNewMessages)
			messageRoutes.GET("/conversations", h.Messages.GetConversations)
			messageRoutes.PATCH("/:messageId/read", h.Messages.MarkMessageAsRead)
		}
	}

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{})))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
