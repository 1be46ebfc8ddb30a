package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/domain/app"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// KindBadRequest marks malformed requests. It never comes from the service.
const KindBadRequest = "bad_request"

// Handlers serves the shelf API over an app.Service.
type Handlers struct {
	service    app.Service
	logger     *logging.Logger
	instanceID string
	started    time.Time
}

// NewHandlers creates handlers with a fresh instance ID.
func NewHandlers(service app.Service, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		service:    service,
		logger:     logger.Named("api"),
		instanceID: uuid.NewString(),
		started:    time.Now(),
	}
}

// InstanceID identifies this daemon process.
func (h *Handlers) InstanceID() string {
	return h.instanceID
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Health)
	r.GET("/health", h.Health)

	r.GET("/apps", h.ListApps)
	r.GET("/apps/find", h.FindApp)
	r.GET("/apps/:name", h.GetApp)
	r.POST("/apps", h.AddApp)
	r.DELETE("/apps/:name", h.RemoveApp)
	r.POST("/apps/:name/rename", h.RenameApp)
	r.PUT("/apps/:name/favorite", h.SetFavorite)
	r.POST("/apps/:name/launch", h.LaunchApp)

	r.POST("/refresh", h.Refresh)
	r.GET("/stats", h.Stats)
}

// Health reports daemon status and registry stats.
func (h *Handlers) Health(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "shelfd",
		"instance_id": h.instanceID,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"stats":       stats,
	})
}

// ListApps returns the apps matching ?filter= and ?search=.
func (h *Handlers) ListApps(c *gin.Context) {
	filter, err := types.ParseFilter(c.Query("filter"))
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	apps, err := h.service.List(c.Request.Context(), filter, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"apps":    apps,
		"count":   len(apps),
	})
}

// FindApp returns the first app whose name contains ?q=.
func (h *Handlers) FindApp(c *gin.Context) {
	found, err := h.service.Find(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "app": found})
}

// GetApp returns the detail view of one app.
func (h *Handlers) GetApp(c *gin.Context) {
	info, err := h.service.Info(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "info": info})
}

// AddRequest is the body of POST /apps.
type AddRequest struct {
	Path string `json:"path" binding:"required"`
}

// AddApp copies an executable into the managed directory and registers it.
func (h *Handlers) AddApp(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	added, err := h.service.Add(c.Request.Context(), req.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "app": added})
}

// RemoveApp unregisters an app; ?purge=true also deletes the executable.
func (h *Handlers) RemoveApp(c *gin.Context) {
	purge := false
	if v := c.Query("purge"); v != "" {
		p, err := strconv.ParseBool(v)
		if err != nil {
			h.badRequest(c, "purge must be a boolean")
			return
		}
		purge = p
	}

	removed, err := h.service.Remove(c.Request.Context(), c.Param("name"), purge)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "app": removed, "purged": purge})
}

// RenameRequest is the body of POST /apps/:name/rename.
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameApp changes an app's display name.
func (h *Handlers) RenameApp(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	renamed, err := h.service.Rename(c.Request.Context(), c.Param("name"), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "app": renamed})
}

// FavoriteRequest is the body of PUT /apps/:name/favorite.
type FavoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// SetFavorite sets or clears the favorite flag.
func (h *Handlers) SetFavorite(c *gin.Context) {
	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	updated, err := h.service.SetFavorite(c.Request.Context(), c.Param("name"), *req.Favorite)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "app": updated})
}

// LaunchRequest is the optional body of POST /apps/:name/launch.
type LaunchRequest struct {
	Elevated bool `json:"elevated"`
}

// LaunchApp starts an app.
func (h *Handlers) LaunchApp(c *gin.Context) {
	var req LaunchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err.Error())
			return
		}
	}

	res, err := h.service.Launch(c.Request.Context(), c.Param("name"), req.Elevated)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "launch": res})
}

// Refresh rescans the apps directory and reconciles the registry.
func (h *Handlers) Refresh(c *gin.Context) {
	res, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

// Stats returns registry statistics.
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	kind := app.ErrorKind(err)
	status := StatusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"success": false,
		"kind":    kind,
		"error":   err.Error(),
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"kind":    KindBadRequest,
		"error":   msg,
	})
}

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(kind string) int {
	switch kind {
	case app.KindNotFound:
		return http.StatusNotFound
	case app.KindAlreadyExists, app.KindNameCollision:
		return http.StatusConflict
	case app.KindInvalidName, KindBadRequest:
		return http.StatusBadRequest
	case app.KindLaunchFailed, app.KindCopyFailed:
		return http.StatusUnprocessableEntity
	case app.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
