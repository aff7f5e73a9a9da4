package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mikey/llm-fraud-checker/internal/adapters/api/middleware"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/ports"
	"github.com/mikey/llm-fraud-checker/internal/whitelist"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// analyzeRequest is the JSON form of POST /analyze
type analyzeRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// whitelistRequest is the JSON form of POST /whitelist
type whitelistRequest struct {
	Type string `json:"type" form:"type"`
	Item string `json:"item" form:"item"`
}

// Server exposes the analyzer over a JSON HTTP API
type Server struct {
	analyzer  ports.Analyzer
	whitelist ports.WhitelistEditor
	cleaner   ports.CacheCleaner
	cfg       config.APIConfig
	logger    *zap.Logger
	engine    *gin.Engine
	srv       *http.Server
}

// NewServer creates the API server. wl may be nil to disable whitelist
// edits; cleaner is nil when the cache backend expires entries natively.
func NewServer(
	analyzer ports.Analyzer,
	wl ports.WhitelistEditor,
	cleaner ports.CacheCleaner,
	cfg config.APIConfig,
	logLevel string,
	logger *zap.Logger,
) *Server {
	if logLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		analyzer:  analyzer,
		whitelist: wl,
		cleaner:   cleaner,
		cfg:       cfg,
		logger:    logger,
	}

	router := gin.New()
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger, logLevel), middleware.PrometheusMetrics())
	s.routes(router)
	s.engine = router
	return s
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/analyze", s.analyze)
	if s.whitelist != nil {
		router.POST("/whitelist", s.addWhitelist)
	}
	if s.cleaner != nil {
		router.POST("/cache/cleanup", s.cleanupCache)
	}
}

// Handler returns the HTTP handler, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts serving in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server starting", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) analyze(c *gin.Context) {
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}

	in, err := s.readInput(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	verdict, err := s.analyzer.Analyze(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

// readInput accepts a JSON body or a form. Text wins over URL and URL
// wins over an uploaded file.
func (s *Server) readInput(c *gin.Context) (core.AnalysisInput, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return core.AnalysisInput{}, bodyError(err)
		}
		return pick(req.Text, req.URL), nil
	}

	text := strings.TrimSpace(c.PostForm("input_text"))
	rawURL := strings.TrimSpace(c.PostForm("input_url"))
	if text != "" || rawURL != "" {
		return pick(text, rawURL), nil
	}

	fh, err := c.FormFile("input_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return core.AnalysisInput{}, core.ErrEmptyInput
		}
		return core.AnalysisInput{}, bodyError(err)
	}

	f, err := fh.Open()
	if err != nil {
		return core.AnalysisInput{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return core.AnalysisInput{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return core.FileInput(data, fh.Filename, fh.Header.Get("Content-Type"))
}

func pick(text, rawURL string) core.AnalysisInput {
	if strings.TrimSpace(text) != "" {
		return core.TextInput(text)
	}
	return core.URLInput(strings.TrimSpace(rawURL))
}

// bodyError turns an unreadable or oversized body into an input error
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return core.NewInputError("The uploaded content is too large.", core.ErrUnsupportedInput)
	}
	return core.NewInputError("Could not read the request.", core.ErrUnsupportedInput)
}

func (s *Server) addWhitelist(c *gin.Context) {
	var req whitelistRequest
	if err := c.ShouldBind(&req); err != nil {
		s.fail(c, bodyError(err))
		return
	}
	if req.Type == "" {
		req.Type = whitelist.KindDomain
	}

	if err := s.whitelist.Add(req.Type, req.Item); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) cleanupCache(c *gin.Context) {
	removed, err := s.cleaner.Cleanup(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// fail maps input errors to 400 and anything else to 500
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if core.IsInputError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": core.UserMessage(err)})
		return
	}
	s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal error."})
}
