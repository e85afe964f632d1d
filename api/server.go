package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OldStager01/network-forecaster/api/handlers"
	"github.com/OldStager01/network-forecaster/api/middleware"
	"github.com/OldStager01/network-forecaster/api/websocket"
	"github.com/OldStager01/network-forecaster/internal/auth"
	"github.com/OldStager01/network-forecaster/internal/cache"
	"github.com/OldStager01/network-forecaster/internal/events"
	"github.com/OldStager01/network-forecaster/internal/forecast"
	"github.com/OldStager01/network-forecaster/internal/ingest"
	"github.com/OldStager01/network-forecaster/pkg/config"
	"github.com/OldStager01/network-forecaster/pkg/database"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

// Deps are the shared services the API surfaces.
type Deps struct {
	IngestService   *ingest.Service
	ForecastService *forecast.Service
	EventBus        *events.EventBus
	Cache           *cache.Cache
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.Config
	db          *database.DB
	deps        Deps
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	wsFeed      *websocket.Feed
}

func NewServer(cfg config.Config, db *database.DB, deps Deps) *Server {
	if cfg.API.JWTSecret == "" || cfg.API.JWTSecret == "change-me-in-production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtDuration := cfg.API.JWTDuration
	if jwtDuration <= 0 {
		jwtDuration = 24 * time.Hour
	}

	router := gin.New()
	authService := auth.NewService(cfg.API.JWTSecret, jwtDuration)
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router:      router,
		config:      cfg,
		db:          db,
		deps:        deps,
		authService: authService,
		wsHub:       wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if deps.EventBus != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, deps.EventBus.SubscribeAll())
		s.wsBridge.Start()
	}

	sampleRepo := queries.NewSampleRepository(db.DB)
	s.wsFeed = websocket.NewFeed(wsHub, sampleRepo, cfg.WebSocket.FeedInterval, cfg.WebSocket.FeedWindow)
	s.wsFeed.Start()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(s.corsConfig()))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestSizeLimit(1 << 20))

	rateLimit := s.config.API.RateLimit
	if rateLimit <= 0 {
		rateLimit = 300
	}
	s.router.Use(middleware.GlobalRateLimit(rateLimit, time.Minute))
}

func (s *Server) corsConfig() middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	apiCORS := s.config.API.CORS
	if len(apiCORS.AllowedOrigins) > 0 {
		cfg.AllowOrigins = apiCORS.AllowedOrigins
	}
	if len(apiCORS.AllowedMethods) > 0 {
		cfg.AllowMethods = apiCORS.AllowedMethods
	}
	if len(apiCORS.AllowedHeaders) > 0 {
		cfg.AllowHeaders = apiCORS.AllowedHeaders
	}
	if len(apiCORS.ExposedHeaders) > 0 {
		cfg.ExposeHeaders = apiCORS.ExposedHeaders
	}
	cfg.AllowCredentials = apiCORS.AllowCredentials
	return cfg
}

func (s *Server) setupRoutes() {
	// Repositories
	userRepo := queries.NewUserRepository(s.db.DB)
	sampleRepo := queries.NewSampleRepository(s.db.DB)
	deviceRepo := queries.NewDeviceRepository(s.db.DB)
	predictionRepo := queries.NewPredictionRepository(s.db.DB)

	// Handlers
	healthHandler := handlers.NewHealthHandler(s.db)
	authHandler := handlers.NewAuthHandler(userRepo, s.authService)
	deviceHandler := handlers.NewDeviceHandler(sampleRepo, deviceRepo, s.deps.Cache)
	metricHandler := handlers.NewMetricHandler(sampleRepo, s.deps.IngestService, s.config.API.DefaultLimit, s.config.API.MaxLimit)
	predictionHandler := handlers.NewPredictionHandler(predictionRepo, s.deps.ForecastService)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth routes
	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// API routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/devices", deviceHandler.List)
		v1.GET("/devices/:id", deviceHandler.Get)

		v1.GET("/metrics", metricHandler.Query)
		v1.GET("/metrics/export", metricHandler.Export)

		v1.GET("/predictions/:device_id/:metric_name", predictionHandler.Get)
	}

	// Writes require authentication
	protected := v1.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.POST("/metrics", metricHandler.Create)
		protected.POST("/predictions/:device_id/:metric_name/generate", predictionHandler.Generate)
		protected.POST("/models/train", predictionHandler.Train)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsFeed != nil {
		s.wsFeed.Stop()
	}
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
