package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Venkey2238/blockchain-evidence/internal/infra/ratelimit"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/walletauth"
	"github.com/Venkey2238/blockchain-evidence/internal/usecase"
)

// SignatureVerifier authenticates a claimed wallet from the request's
// signature headers.
type SignatureVerifier interface {
	Verify(ctx context.Context, req walletauth.Request) (string, error)
}

type Server struct {
	r        *gin.Engine
	log      *slog.Logger
	verifier SignatureVerifier

	ingest *usecase.IngestService
	export *usecase.ExportService
	query  *usecase.QueryService

	limiter            ratelimit.Limiter
	uploadLimitPerHour int
	exportLimitPerMin  int
	authLimitPerWindow int
}

type ServerDeps struct {
	Verifier SignatureVerifier
	Ingest   *usecase.IngestService
	Export   *usecase.ExportService
	Query    *usecase.QueryService
	Logger   *slog.Logger

	RateLimiter        ratelimit.Limiter
	UploadLimitPerHour int
	ExportLimitPerMin  int
	AuthLimitPerWindow int
}

func NewServer(deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		r:                  r,
		log:                deps.Logger,
		verifier:           deps.Verifier,
		ingest:             deps.Ingest,
		export:             deps.Export,
		query:              deps.Query,
		limiter:            deps.RateLimiter,
		uploadLimitPerHour: deps.UploadLimitPerHour,
		exportLimitPerMin:  deps.ExportLimitPerMin,
		authLimitPerWindow: deps.AuthLimitPerWindow,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	r.Use(s.walletAuth())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.r.Group("/api")
	{
		api.POST("/evidence/upload", s.rateLimit("upload", s.uploadLimitPerHour, time.Hour), s.handleUpload)
		api.GET("/evidence", s.handleList)
		api.GET("/evidence/:id", s.handleGet)
		api.GET("/evidence/:id/download", s.rateLimit("export", s.exportLimitPerMin, time.Minute), s.handleDownload)
		api.POST("/evidence/export", s.rateLimit("export", s.exportLimitPerMin, time.Minute), s.handleBulkExport)
		api.GET("/evidence/:id/history", s.handleHistory)
		api.GET("/evidence/:id/verify", s.handleVerify)
		api.GET("/cases/:case_id/evidence", s.handleListByCase)
		api.GET("/stats", s.handleStats)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

// Handler exposes the engine for tests and for the outer http.Server.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run(addr string) error {
	return s.r.Run(addr)
}
