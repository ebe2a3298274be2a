// Cache admin and usage HTTP handlers.
//
// This file exposes the operational surface:
//   - GET  /admin/cache/stats   (cache occupancy aggregates)
//   - POST /admin/cache/evict   (run an expiry sweep on demand)
//   - GET  /usage               (per-user accounting aggregates)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxify/voxify-backend/internal/repo"
)

// CacheAdmin exposes the cache operations used by the admin surface.
type CacheAdmin interface {
	// EvictExpired removes expired entries and reports how many.
	EvictExpired(ctx context.Context) (int64, error)
	// Stats returns cache occupancy aggregates.
	Stats(ctx context.Context) (*repo.CacheStats, error)
}

// EvictResponse reports the outcome of an on-demand sweep.
type EvictResponse struct {
	Removed int64 `json:"removed"`
}

// UsageResponse wraps per-user accounting aggregates.
type UsageResponse struct {
	UserID string          `json:"user_id"`
	Usage  *repo.UserUsage `json:"usage"`
}

// CacheStats godoc
// @ID          cacheStats
// @Summary     Synthesis cache statistics
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  repo.CacheStats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/cache/stats [get]
func (h *Handlers) CacheStats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// EvictCache godoc
// @ID          evictCache
// @Summary     Evict expired cache entries now
// @Description Runs the expiry sweep immediately instead of waiting for the
// @Description scheduled run. Permanent and non-expiring entries are kept.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  handlers.EvictResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/cache/evict [post]
func (h *Handlers) EvictCache(c *gin.Context) {
	removed, err := h.cache.EvictExpired(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, EvictResponse{Removed: removed})
}

// Usage godoc
// @ID          usage
// @Summary     Per-user usage aggregates
// @Description Returns total jobs, completed jobs, cache-served jobs, and
// @Description characters rendered for the requesting user.
// @Tags        Usage
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
//
// @Success     200  {object}  handlers.UsageResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage [get]
func (h *Handlers) Usage(c *gin.Context) {
	currentUser := userID(c)
	u, err := h.jobs.Usage(c.Request.Context(), currentUser)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, UsageResponse{UserID: currentUser, Usage: u})
}
