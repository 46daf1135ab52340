package webapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"visionary-spaces/internal/catalog"
	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/workflow"
)

// Bodies up to twice the image limit are read so oversized images still reach
// the validator and produce a notice instead of a transport error.
const formOverhead = 1 << 20

type Options struct {
	Controller     *workflow.Controller
	MaxUploadBytes int
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Service exposes the workflow controller over HTTP.
type Service struct {
	ctrl           *workflow.Controller
	maxUploadBytes int
	requestTimeout time.Duration
	logger         *slog.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Controller == nil {
		return nil, errors.New("webapi: controller is required")
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 || maxUpload > imagedata.MaxUploadBytes {
		maxUpload = imagedata.MaxUploadBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ctrl:           opts.Controller,
		maxUploadBytes: maxUpload,
		requestTimeout: opts.RequestTimeout,
		logger:         logger.With("component", "webapi"),
	}, nil
}

func (s *Service) Register(engine *gin.Engine) {
	engine.GET("/healthz", s.handleHealth)

	api := engine.Group("/api")
	api.GET("/options", s.handleOptions)

	sessions := api.Group("/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.GET("/:id", s.handleGetSession)
	sessions.DELETE("/:id", s.handleEndSession)
	sessions.POST("/:id/image", s.handleUploadImage)
	sessions.DELETE("/:id/image", s.handleClearImage)
	sessions.PUT("/:id/draft", s.handleUpdateDraft)
	sessions.POST("/:id/designs", s.handleSubmit)
	sessions.POST("/:id/designs/more", s.handleGenerateMore)
	sessions.GET("/:id/designs/:n/download", s.handleDownload)
	sessions.PUT("/:id/preview", s.handleOpenPreview)
	sessions.DELETE("/:id/preview", s.handleClosePreview)
}

func (s *Service) handleHealth(c *gin.Context) {
	stats, err := s.ctrl.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": stats})
}

func (s *Service) handleOptions(c *gin.Context) {
	respondSuccess(c, http.StatusOK, catalog.All(), "")
}

type createSessionRequest struct {
	Name string `json:"name"`
}

func (s *Service) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}
	if req.Name == "" {
		req.Name = c.Query("name")
	}

	res, err := s.ctrl.NewSession(c.Request.Context(), req.Name)
	s.reply(c, http.StatusCreated, res, err)
}

func (s *Service) handleGetSession(c *gin.Context) {
	res, err := s.ctrl.Get(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) handleEndSession(c *gin.Context) {
	if err := s.ctrl.End(c.Request.Context(), c.Param("id")); err != nil {
		s.reply(c, http.StatusOK, workflow.Result{}, err)
		return
	}
	respondSuccess(c, http.StatusOK, nil, "session ended")
}

func (s *Service) handleUploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(2*s.maxUploadBytes+formOverhead))

	file, header, err := c.Request.FormFile("image")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		res, err := s.ctrl.RejectUpload(c.Request.Context(), c.Param("id"), imagedata.ErrTooLarge)
		s.reply(c, http.StatusOK, res, err)
		return
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "image field is required", nil)
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the validator to reject it.
	data, err := io.ReadAll(io.LimitReader(file, int64(s.maxUploadBytes)+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read image", nil)
		return
	}

	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()

	res, err := s.ctrl.UploadImage(ctx, c.Param("id"), imagedata.Upload{
		Data:         data,
		DeclaredMime: header.Header.Get("Content-Type"),
		Filename:     header.Filename,
	})
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) handleClearImage(c *gin.Context) {
	res, err := s.ctrl.ClearImage(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) handleUpdateDraft(c *gin.Context) {
	var form workflow.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, http.StatusBadRequest, "invalid form body", nil)
		return
	}
	res, err := s.ctrl.UpdateDraft(c.Request.Context(), c.Param("id"), form)
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) handleSubmit(c *gin.Context) {
	var form workflow.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, http.StatusBadRequest, "invalid form body", nil)
		return
	}

	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()

	res, err := s.ctrl.Submit(ctx, c.Param("id"), form)
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) handleGenerateMore(c *gin.Context) {
	ctx, cancel := s.withTimeout(c.Request.Context())
	defer cancel()

	res, err := s.ctrl.GenerateMore(ctx, c.Param("id"))
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) handleDownload(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "design index must be a number", nil)
		return
	}

	dl, err := s.ctrl.Download(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		s.reply(c, http.StatusOK, workflow.Result{}, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.FileName))
	c.Data(http.StatusOK, dl.MimeType, dl.Data)
}

type previewRequest struct {
	Index *int `json:"index"`
}

func (s *Service) handleOpenPreview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		respondError(c, http.StatusBadRequest, "index is required", nil)
		return
	}
	res, err := s.ctrl.OpenPreview(c.Request.Context(), c.Param("id"), *req.Index)
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) handleClosePreview(c *gin.Context) {
	res, err := s.ctrl.ClosePreview(c.Request.Context(), c.Param("id"))
	s.reply(c, http.StatusOK, res, err)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

// reply writes res on success. On failure the result is still sent as data so
// clients can show its notices.
func (s *Service) reply(c *gin.Context, okStatus int, res workflow.Result, err error) {
	if err == nil {
		if res.Notices == nil {
			res.Notices = []workflow.Notice{}
		}
		respondSuccess(c, okStatus, res, "")
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "err", err)
		respondError(c, status, "internal error", nil)
		return
	}

	var data any
	if res.View.ID != "" || len(res.Notices) > 0 {
		data = res
	}
	respondError(c, status, err.Error(), data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrSessionNotFound), errors.Is(err, workflow.ErrDesignNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidUpload), errors.Is(err, workflow.ErrInvalidForm):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrNoImage), errors.Is(err, workflow.ErrNoPreviousRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
