package transport

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/config"
	apperrors "go-image-restorer/internal/errors"
	"go-image-restorer/internal/logger"
	"go-image-restorer/internal/service"
	"go-image-restorer/internal/storage"
	"go-image-restorer/pkg/models"
)

const limiterIdleTTL = 10 * time.Minute

type handler struct {
	svc service.RestorationService
	cfg *config.Config
}

// NewHandler builds the gin engine. metrics may be nil to omit /metrics.
// ctx bounds the background limiter cleanup.
func NewHandler(ctx context.Context, svc service.RestorationService, metrics http.Handler, cfg *config.Config) http.Handler {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		errorHandler(),
	)

	h := &handler{svc: svc, cfg: cfg}
	limiter := newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(limiterIdleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.cleanup(limiterIdleTTL)
			}
		}
	}()

	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/health", h.health)
	api.GET("/status/:id", h.status)
	api.GET("/result/:id", h.result)

	submit := api.Group("/process", requestSizeLimiter(cfg.MaxRequestBodySize), limiter.middleware())
	submit.POST("/frame", h.processFrame)
	submit.POST("/video", h.processVideo)

	r.GET(storage.PublicPrefix+"/*filepath", h.serveResult)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}).Debug("Request handled")
	}
}

func (h *handler) processFrame(c *gin.Context) {
	upload, err := h.readUpload(c, "image", "No image file provided")
	if err != nil {
		respondError(c, determineStatusCode(err), "invalid upload", err)
		return
	}
	defer upload.close()

	job, err := h.svc.SubmitImage(c.Request.Context(), upload.Upload)
	h.respondSubmitted(c, job, err, "Frame processing started")
}

func (h *handler) processVideo(c *gin.Context) {
	upload, err := h.readUpload(c, "video", "No video file provided")
	if err != nil {
		respondError(c, determineStatusCode(err), "invalid upload", err)
		return
	}
	defer upload.close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	job, err := h.svc.SubmitVideo(ctx, upload.Upload)
	h.respondSubmitted(c, job, err, "Video processing started")
}

type openUpload struct {
	service.Upload
	file multipart.File
}

func (u openUpload) close() {
	u.file.Close()
}

func (h *handler) readUpload(c *gin.Context, field, missing string) (openUpload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return openUpload{}, err
		}
		return openUpload{}, apperrors.NewValidationError(missing, nil)
	}
	file, err := header.Open()
	if err != nil {
		return openUpload{}, apperrors.NewResourceError("Failed to read upload", err)
	}

	return openUpload{
		Upload: service.Upload{
			Filename:    header.Filename,
			Body:        file,
			Scale:       c.PostForm("enhance_scale"),
			FrameStride: c.PostForm("frame_stride"),
		},
		file: file,
	}, nil
}

func (h *handler) respondSubmitted(c *gin.Context, job models.Job, err error, message string) {
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "submission failed", err)
		return
	}

	logger.ForJob(job.ID, string(job.Kind)).WithField("ip", c.ClientIP()).Info("Job accepted")
	c.JSON(http.StatusAccepted, models.SubmissionResponse{
		JobID:   job.ID,
		Status:  job.Status.APIStatus(),
		Message: message,
	})
}

func (h *handler) status(c *gin.Context) {
	job, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "status lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, models.NewStatusResponse(job))
}

// result answers 202 until the job reaches a terminal state
func (h *handler) result(c *gin.Context) {
	job, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "result lookup failed", err)
		return
	}

	code := http.StatusOK
	if !job.Status.IsTerminal() {
		code = http.StatusAccepted
	}
	c.JSON(code, models.NewStatusResponse(job))
}

func (h *handler) serveResult(c *gin.Context) {
	root, err := filepath.Abs(h.cfg.OutputDir)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "output directory unavailable", err)
		return
	}

	requested := c.Param("filepath")
	if strings.Contains(requested, "..") {
		respondError(c, http.StatusBadRequest, "invalid path", nil)
		return
	}
	full := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+requested)))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		respondError(c, http.StatusBadRequest, "invalid path", nil)
		return
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		respondError(c, http.StatusNotFound, "file not found", nil)
		return
	}
	c.File(full)
}

func (h *handler) health(c *gin.Context) {
	resp := h.svc.Health(c.Request.Context())
	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
