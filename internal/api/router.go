package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/dialogbot/internal/api/handler"
	"github.com/timmy/dialogbot/internal/api/middleware"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/service"
)

// Services bundles the services the router exposes.
type Services struct {
	Conversations  *service.ConversationService
	Similar        *service.SimilarService
	Monitor        *service.MonitorService
	Visualizations *service.VisualizationService
	DB             handler.Pinger // optional, used by /health
}

// RouterConfig holds router settings.
type RouterConfig struct {
	Mode string // debug, release, test
	CORS middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc *Services, cfg *RouterConfig, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(svc.DB)
	conversationHandler := handler.NewConversationHandler(svc.Conversations, svc.Similar)
	driftHandler := handler.NewDriftHandler(svc.Monitor)
	mlopsHandler := handler.NewMLOpsHandler(svc.Visualizations)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Conversations
		v1.POST("/conversations", conversationHandler.Create)
		v1.GET("/conversations", conversationHandler.List)
		v1.GET("/conversations/:id", conversationHandler.Get)
		v1.POST("/conversations/similar", conversationHandler.Similar)

		// Drift
		v1.POST("/drift/check", driftHandler.Check)
		v1.GET("/drift/checks", driftHandler.Checks)

		// MLOps
		v1.POST("/mlops/retrain", mlopsHandler.Retrain)
		v1.GET("/mlops/retrain/status", mlopsHandler.Status)
		v1.GET("/visualizations/:method", mlopsHandler.Visualization)
	}

	return r
}
