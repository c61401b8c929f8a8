package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/pkg/auth"
	"github.com/medassist/medassist/pkg/metrics"
)

// RouterDeps carries everything the HTTP layer needs. Handlers own
// their services; the router owns the middleware chain.
type RouterDeps struct {
	Logger     *zap.Logger
	Collector  *metrics.Collector
	JWTManager *auth.JWTManager

	Auth          *AuthHandler
	Reports       *ReportHandler
	Chat          *ChatHandler
	Tasks         *TaskHandler
	Patients      *PatientHandler
	Consultations *ConsultationHandler
	Prescriptions *PrescriptionHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Logger))
	r.Use(Metrics(deps.Collector))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	// Public
	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/auth/refresh", deps.Auth.Refresh)

	// Authenticated
	authed := api.Group("")
	authed.Use(Authenticated(deps.JWTManager))
	{
		authed.POST("/auth/change-password", deps.Auth.ChangePassword)

		authed.POST("/chat", deps.Chat.Message)

		reports := authed.Group("/reports")
		{
			reports.POST("", deps.Reports.Upload)
			reports.GET("", deps.Reports.List)
			reports.GET("/count", deps.Reports.Count)
			reports.GET("/patient-names", deps.Reports.PatientNames)
			reports.GET("/summary", deps.Reports.Summarize)
			reports.GET("/analysis", deps.Reports.Analyze)
			reports.GET("/by-lab-value", deps.Reports.FindByLabValue)
			reports.GET("/:id", deps.Reports.Get)
			reports.GET("/:id/suggestions", deps.Prescriptions.ListForReport)

			admin := reports.Group("")
			admin.Use(RequireRole(domain.RoleAdmin))
			{
				admin.DELETE("/unknown", deps.Reports.Cleanup)
				admin.DELETE("/duplicates", deps.Reports.RemoveDuplicates)
			}
		}

		tasks := authed.Group("/tasks")
		{
			tasks.POST("", deps.Tasks.Create)
			tasks.GET("", deps.Tasks.List)
			tasks.POST("/:id/complete", deps.Tasks.Complete)
			tasks.DELETE("/:id", deps.Tasks.Delete)
		}

		patients := authed.Group("/patients")
		{
			patients.POST("", deps.Patients.Create)
			patients.GET("", deps.Patients.List)
			patients.GET("/search", deps.Patients.Search)
			patients.GET("/:id", deps.Patients.Get)
			patients.PATCH("/:id", deps.Patients.Update)
			patients.DELETE("/:id", deps.Patients.Deactivate)
		}

		consultations := authed.Group("/consultations")
		{
			consultations.POST("", deps.Consultations.Schedule)
			consultations.GET("", deps.Consultations.List)
			consultations.GET("/:id", deps.Consultations.Get)
			consultations.POST("/:id/transition", deps.Consultations.Transition)
		}

		prescriptions := authed.Group("/prescriptions")
		prescriptions.Use(RequireRole(domain.RoleDoctor, domain.RoleAdmin))
		{
			prescriptions.POST("/suggest", deps.Prescriptions.Suggest)
			prescriptions.POST("/:id/review", deps.Prescriptions.Review)
		}
	}

	return r
}
