package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/table-inspector-go/internal/config"
	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/observer"
	"github.com/anime-shed/table-inspector-go/internal/service"
	"github.com/anime-shed/table-inspector-go/pkg/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

type handler struct {
	svc     service.TableAnalysisService
	cfg     *config.Config
	metrics *observer.MetricsObserver
}

// NewHandler builds the HTTP router. gatherer backs /metrics; metrics may be nil.
func NewHandler(svc service.TableAnalysisService, cfg *config.Config, gatherer prometheus.Gatherer, metrics *observer.MetricsObserver) http.Handler {
	h := &handler{svc: svc, cfg: cfg, metrics: metrics}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		cors.New(cors.Config{
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
			AllowOrigins: cfg.CORSOrigins(),
			MaxAge:       12 * time.Hour,
		}),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", h.healthCheck)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	api.POST("/analyze", h.analyze)
	api.POST("/analyze/batch", h.analyzeBatch)
	api.POST("/connectivity", h.testConnection)
	api.GET("/analyses", h.history)
	api.GET("/analyses/:id", h.getAnalysis)
	api.GET("/analyses/:id/table.csv", h.tableCSV)
	api.POST("/analyses/:id/compare", h.compare)

	return r
}

func (h *handler) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

// analyze accepts a multipart upload in field "image" or a JSON {"url": ...} body
func (h *handler) analyze(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.analyzeUpload(ctx, c)
		return
	}

	var req models.AnalyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}
	save, err := saveFlag(c)
	if err != nil {
		respondError(c, "invalid save flag", err)
		return
	}

	rec, err := h.svc.AnalyzeReference(ctx, req.URL, save)
	if err != nil {
		respondError(c, "table analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) analyzeUpload(ctx context.Context, c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, "missing image upload", bindError(err))
		return
	}
	save, err := saveFlag(c)
	if err != nil {
		respondError(c, "invalid save flag", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, "cannot read upload", apperrors.NewValidationError("cannot open uploaded file", err))
		return
	}
	defer f.Close()

	rec, err := h.svc.AnalyzeUpload(ctx, fh.Filename, f, save)
	if err != nil {
		respondError(c, "table analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) analyzeBatch(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	var req models.BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}
	save, err := saveFlag(c)
	if err != nil {
		respondError(c, "invalid save flag", err)
		return
	}

	resp, err := h.svc.AnalyzeBatch(ctx, req.URLs, save)
	if err != nil {
		respondError(c, "batch analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// testConnection always answers 200; the outcome is in the body
func (h *handler) testConnection(c *gin.Context) {
	var req models.ConnectivityRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "invalid request format", bindError(err))
			return
		}
	}
	c.JSON(http.StatusOK, h.svc.TestConnection(c.Request.Context(), req))
}

func (h *handler) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, "invalid limit", apperrors.NewValidationError("limit must be an integer", err))
			return
		}
		limit = n
	}

	records, err := h.svc.History(c.Request.Context(), c.Query("source"), limit)
	if err != nil {
		respondError(c, "failed to list analyses", err)
		return
	}
	if records == nil {
		records = []*models.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, models.HistoryResponse{Items: records, Count: len(records)})
}

func (h *handler) getAnalysis(c *gin.Context) {
	rec, err := h.svc.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to load analysis", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) tableCSV(c *gin.Context) {
	id := c.Param("id")
	var buf bytes.Buffer
	if err := h.svc.WriteCSV(c.Request.Context(), id, &buf); err != nil {
		respondError(c, "failed to export table", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *handler) compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request format", bindError(err))
		return
	}
	cmp, err := h.svc.CompareAnalysis(c.Request.Context(), c.Param("id"), req.TableData)
	if err != nil {
		respondError(c, "comparison failed", err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *handler) healthCheck(c *gin.Context) {
	body := gin.H{
		"status":     "available",
		"version":    version,
		"time":       time.Now().UTC().Format(time.RFC3339),
		"batch_pool": h.svc.PoolStats(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.GetMetrics()
	}
	c.JSON(http.StatusOK, body)
}

func saveFlag(c *gin.Context) (bool, error) {
	raw := c.Query("save")
	if raw == "" {
		raw = c.PostForm("save")
	}
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError("save must be true or false", err)
	}
	return v, nil
}

// bindError classifies request decoding failures
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		appErr := apperrors.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
		appErr.StatusCode = http.StatusRequestEntityTooLarge
		return appErr
	}
	return apperrors.NewValidationError("malformed request", err)
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}).Debug("Request handled")
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, "request processing failed", c.Errors.Last().Err)
		}
	}
}

func respondError(c *gin.Context, message string, err error) {
	code := apperrors.GetStatusCode(err)
	kind := apperrors.KindOf(err)

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"error_type":  kind,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Type:    string(kind),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
