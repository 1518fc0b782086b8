package web

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"refundmerge/internal/config"
	"refundmerge/internal/pipeline"
)

//go:embed index.html
var indexHTML []byte

var allowedExtensions = []string{".xlsx", ".xls", ".csv"}

// Server is the upload, preview and download shell around the runner.
type Server struct {
	router *gin.Engine
	cfg    config.Config
	runner *pipeline.Runner
	logger *zap.Logger
}

func NewServer(cfg config.Config, runner *pipeline.Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, logger)
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 50
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = int64(cfg.UploadMaxMB) << 20

	s := &Server{router: router, cfg: cfg, runner: runner, logger: logger}
	router.GET("/", s.handleIndex)
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/api/sources", s.handleSources)
	router.POST("/api/merge", s.handleMerge)
	router.POST("/api/merge/download", s.handleDownload)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleSources(c *gin.Context) {
	type sourceView struct {
		Name     string `json:"name"`
		Match    string `json:"match"`
		Platform string `json:"platform"`
	}
	out := []sourceView{}
	for _, src := range s.runner.Sources().Sources() {
		out = append(out, sourceView{Name: src.Name, Match: src.Match, Platform: src.Platform})
	}
	c.JSON(http.StatusOK, gin.H{"sources": out})
}

func (s *Server) handleMerge(c *gin.Context) {
	merged, ok := s.merge(c)
	if !ok {
		return
	}
	rows := make([][]any, 0, s.cfg.PreviewRows)
	for _, rec := range pipeline.Preview(merged.Records, s.cfg.PreviewRows) {
		rows = append(rows, pipeline.RecordRow(rec))
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    merged.Len(),
		"columns":  pipeline.Columns,
		"rows":     rows,
		"counts":   merged.Counts(),
		"files":    merged.Files,
		"filename": s.outputFilename(),
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	merged, ok := s.merge(c)
	if !ok {
		return
	}
	if merged.Len() == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	buf := bytes.NewBuffer(nil)
	if err := pipeline.WriteXLSX(buf, merged.Records); err != nil {
		s.logger.Error("write xlsx failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.outputFilename()))
	c.Data(http.StatusOK, pipeline.XLSXContentType, buf.Bytes())
}

// merge reads the uploaded batch and runs it. On failure it has already
// written the error response.
func (s *Server) merge(c *gin.Context) (pipeline.FinalTable, bool) {
	files, err := s.readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return pipeline.FinalTable{}, false
	}

	merged, err := s.runner.Run(files)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnreadable) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		} else {
			s.logger.Error("merge failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "merge failed"})
		}
		return pipeline.FinalTable{}, false
	}
	return merged, true
}

// readUploads returns the "files" parts in upload order.
func (s *Server) readUploads(c *gin.Context) ([]pipeline.InputFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("no files uploaded")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return nil, fmt.Errorf("no files uploaded")
	}

	maxSize := int64(s.cfg.UploadMaxMB) << 20
	out := make([]pipeline.InputFile, 0, len(headers))
	for _, h := range headers {
		if !hasAllowedExtension(h.Filename) {
			return nil, fmt.Errorf("%s: only Excel (.xlsx, .xls) and CSV (.csv) files are allowed", h.Filename)
		}
		if h.Size > maxSize {
			return nil, fmt.Errorf("%s: file size (%.1f MB) exceeds the %dMB limit", h.Filename, float64(h.Size)/(1<<20), s.cfg.UploadMaxMB)
		}
		content, err := readPart(h)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		out = append(out, pipeline.InputFile{Name: h.Filename, Content: content})
	}
	return out, nil
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func hasAllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Server) outputFilename() string {
	if name := strings.TrimSpace(s.cfg.OutputFilename); name != "" {
		return name
	}
	return pipeline.OutputFilename
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
