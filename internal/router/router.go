package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ripsnc/internal/handler"
	"ripsnc/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	log *zap.Logger,
	allowedOrigins []string,
	sessionH *handler.SessionHandler,
	creditNoteH *handler.CreditNoteHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Claims sessions
	sessions := v1.Group("/sessions")
	sessions.POST("", sessionH.Create)
	sessions.GET("", sessionH.List)
	sessions.GET("/:id", sessionH.Get)
	sessions.DELETE("/:id", sessionH.Delete)
	sessions.PUT("/:id/reference", sessionH.SetReference)
	sessions.POST("/:id/normalize", sessionH.Normalize)
	sessions.POST("/:id/reconcile", sessionH.Reconcile)
	sessions.PATCH("/:id/patients/:idx", sessionH.UpdatePatient)

	// Edit table round trip
	sessions.GET("/:id/template", sessionH.ExportTemplate)
	sessions.POST("/:id/template", sessionH.ApplyTemplate)

	// Exports
	sessions.GET("/:id/export/:format", sessionH.Export)
	sessions.POST("/:id/export/embed", sessionH.Embed)
	sessions.POST("/:id/export/archive", sessionH.Archive)

	// Credit notes built from a session
	sessions.GET("/:id/billable", creditNoteH.Billable)
	sessions.POST("/:id/credit-note/selection", creditNoteH.FromSelection)
	sessions.POST("/:id/attached-document", creditNoteH.AttachedDocument)

	creditNotes := v1.Group("/credit-notes")
	creditNotes.POST("/build", creditNoteH.Build)
	creditNotes.POST("/submit", creditNoteH.Submit)
	creditNotes.GET("/submissions", creditNoteH.ListSubmissions)

	v1.POST("/templates/inspect", creditNoteH.InspectTemplate)

	return r
}
