package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/tabletalk/internal/chat"
	"github.com/ethanbaker/tabletalk/internal/metrics"
	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	chat_module "github.com/ethanbaker/tabletalk/internal/api/modules/chat"
	health_module "github.com/ethanbaker/tabletalk/internal/api/modules/health"
)

// NewEngine builds the gin engine with every route registered. The chat
// module must be initialized before requests are served
func NewEngine(cfg *utils.Config, m *metrics.Metrics) *gin.Engine {
	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(cfg),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Bound multipart memory to the upload limit
	engine.MaxMultipartMemory = cfg.GetInt64WithDefault("UPLOAD_MAX_BYTES", chat.DefaultUploadMaxBytes)

	// Prometheus scrape endpoint
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)
	chat_module.RegisterRoutes(baseGroup, cfg)

	return engine
}

// corsOrigins reads CORS_ALLOWED_ORIGINS, allowing any origin when unset
func corsOrigins(cfg *utils.Config) []string {
	if origins := cfg.GetList("CORS_ALLOWED_ORIGINS"); len(origins) > 0 {
		return origins
	}
	return []string{"*"}
}

// Start initializes the modules and serves until SIGINT or SIGTERM
func Start(cfg *utils.Config) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")
	m := metrics.New()

	if err := chat_module.Init(cfg, m); err != nil {
		log.Fatalf("[API-MAIN]: Failed to initialize chat module: %v", err)
	}
	defer chat_module.Shutdown()

	server := &http.Server{
		Addr:    ":" + port,
		Handler: NewEngine(cfg, m),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Then after performing initial setup, start the server
	go func() {
		log.Printf("[API-MAIN]: Listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("[API-MAIN]: Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[API-MAIN]: Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API-MAIN]: Graceful shutdown failed: %v", err)
	}
}
