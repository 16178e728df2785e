package ui

import (
	"log"
	"net/http"

	"gopanel/adapters/excel"
	"gopanel/app"
	"gopanel/internal"
	"gopanel/internal/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// Server is the HTTP front end for panel analyses
type Server struct {
	router  *gin.Engine
	service *app.AnalysisService
	reader  excel.ReaderConfig
	writer  *excel.ReportWriter
	limits  config.LimitsConfig
	logger  *internal.Logger

	// Concurrent runs are bounded; finished reports are kept for download
	runs    *semaphore.Weighted
	reports *reportCache
}

// NewServer creates a server with its routes registered
func NewServer(cfg *config.Config, service *app.AnalysisService) *Server {
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	reader := excel.DefaultReaderConfig()
	reader.Sheet = cfg.Data.ExcelSheet

	s := &Server{
		router:  gin.New(),
		service: service,
		reader:  reader,
		writer:  excel.NewReportWriter(),
		limits:  cfg.Limits,
		logger:  internal.DefaultLogger.WithComponent("Server"),
		runs:    semaphore.NewWeighted(int64(cfg.Limits.MaxConcurrentRuns)),
		reports: newReportCache(cfg.Limits.ReportCacheSize),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/analyses")
	api.POST("", s.handleCreateAnalysis)
	api.GET("/:id", s.handleGetAnalysis)
	api.GET("/:id/report.xlsx", s.handleDownloadReport)
	api.GET("/:id/summary", s.handleSummary)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("Starting gopanel API on http://%s", addr)
	return s.router.Run(addr)
}
