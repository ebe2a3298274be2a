// Synthesis job HTTP handlers.
//
// This file exposes REST endpoints for synthesis jobs:
//   - POST /synthesize          (submit text for rendering; may finish from cache)
//   - GET  /jobs                (list jobs, paginated, ETag support)
//   - GET  /jobs/{id}           (fetch one job, including progress and outcome)
//   - POST /jobs/{id}/cancel    (cancel a queued or in-flight job)
//
// Handlers are transport-thin:
//   - validate & normalize inputs
//   - delegate to application services (SynthesisService, JobService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous submission
// exists for (user, route, key), the handler returns the originally created
// job and sets `Idempotency-Replayed: true` instead of enqueueing a second
// render.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxify/voxify-backend/internal/domain"
	"github.com/voxify/voxify-backend/internal/repo"
	"github.com/voxify/voxify-backend/internal/services"
	"github.com/voxify/voxify-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// Synthesizer accepts synthesis requests end to end: it creates the job,
// consults the result cache, and schedules rendering on a miss.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type Synthesizer interface {
	Synthesize(ctx context.Context, userID, voiceModelID, text, lang string, cfg domain.SynthesisConfig) (*domain.SynthesisJob, error)
}

// JobReader exposes job retrieval, listing, cancellation, and usage
// aggregates consumed by HTTP handlers.
type JobReader interface {
	// GetForUser fetches a job scoped to its owner.
	GetForUser(ctx context.Context, jobID, userID string) (*domain.SynthesisJob, error)
	// ListPage returns a page of the user's jobs and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.SynthesisJob, int64, error)
	// Cancel requests cancellation of a queued or processing job.
	Cancel(ctx context.Context, jobID string) error
	// Usage returns per-user accounting aggregates.
	Usage(ctx context.Context, userID string) (*repo.UserUsage, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for synthesis, jobs, voices, and the cache
// admin surface. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	synth  Synthesizer
	jobs   JobReader
	voices VoiceRegistry
	cache  CacheAdmin
}

// New constructs a Handlers instance bound to the given services.
func New(synth Synthesizer, jobs JobReader, voices VoiceRegistry, cache CacheAdmin) *Handlers {
	return &Handlers{synth: synth, jobs: jobs, voices: voices, cache: cache}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// SynthesizeRequest is the JSON payload for submitting text for rendering.
// Zero-valued config fields fall back to server defaults (wav, 24000 Hz,
// speed/pitch 1.0); volume 0.0 is legal and means mute.
type SynthesizeRequest struct {
	// Text is the content to render. It must be non-empty.
	Text string `json:"text" binding:"required,min=1" example:"Welcome to Voxify, your words in any voice."`
	// VoiceModelID selects the cloned voice (UUID).
	VoiceModelID string `json:"voice_model_id" binding:"required" example:"3e0170e3-59b2-4a31-9aeb-121a65ecb54e"`
	// Language is an optional BCP-47 tag; empty lets the engine autodetect.
	Language string `json:"language,omitempty" example:"en-GB"`

	Format     string   `json:"format,omitempty" example:"wav"`
	SampleRate int      `json:"sample_rate,omitempty" example:"24000"`
	Speed      float64  `json:"speed,omitempty" example:"1.0"`
	Pitch      float64  `json:"pitch,omitempty" example:"1.0"`
	Volume     *float64 `json:"volume,omitempty" example:"1.0"`
}

// JobResponse is the JSON envelope for a single synthesis job.
type JobResponse struct {
	Job *domain.SynthesisJob `json:"job"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListJobsResponse wraps a page of jobs and pagination information.
type ListJobsResponse struct {
	Jobs       []domain.SynthesisJob `json:"jobs"`
	Pagination Pagination            `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.ClampPage(utils.AtoiDefault(c.Query("page"), defaultPage))
	pageSize = utils.ClampPageSize(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), defaultPageSize, maxPageSize)
	return
}

// configFrom maps request fields onto a synthesis config. Volume is a
// pointer in the DTO so "absent" and "0.0 (mute)" stay distinguishable;
// absence defaults to 1.0 before normalization.
func configFrom(req SynthesizeRequest) domain.SynthesisConfig {
	vol := 1.0
	if req.Volume != nil {
		vol = *req.Volume
	}
	return domain.SynthesisConfig{
		Format:     req.Format,
		SampleRate: req.SampleRate,
		Speed:      req.Speed,
		Pitch:      req.Pitch,
		Volume:     vol,
	}
}

// idempotencyKey reads a client-supplied Idempotency-Key header, if any.
func idempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}

//
// Handlers
//

// Synthesize godoc
// @ID          synthesize
// @Summary     Submit text for speech synthesis
// @Description Creates a synthesis job for the given text and voice. If an
// @Description identical request was rendered before, the job completes
// @Description immediately from the result cache; otherwise it is queued and
// @Description rendered in the background (poll GET /jobs/{id}).
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Synthesis
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "User ID submitting the request"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.SynthesizeRequest  true  "Synthesis request payload"
//
// @Success     202  {object}  handlers.JobResponse    "Job accepted (pending) or completed from cache"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Voice model not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /synthesize [post]
func (h *Handlers) Synthesize(c *gin.Context) {
	ctx := c.Request.Context()

	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text and voice_model_id required")
		return
	}
	if _, err := uuid.Parse(req.VoiceModelID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "voice_model_id must be a UUID")
		return
	}

	currentUser := userID(c)
	scope := c.FullPath()

	// Idempotency (replay path) – return the originally created job.
	idemKey, _ := idempotencyKey(c)
	if idemKey != "" {
		if db := h.db(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, currentUser, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetJobForUser(ctx, db, rec.JobID, currentUser); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, JobResponse{Job: prev})
					return
				}
			}
		}
	}

	job, err := h.synth.Synthesize(ctx, currentUser, req.VoiceModelID, req.Text, req.Language, configFrom(req))
	if err != nil {
		switch {
		case services.IsValidationErr(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case err == services.ErrVoiceModelNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "voice model not found")
		case err == services.ErrUserNotFound:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSynthesisFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := h.db(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, currentUser, scope, idemKey, job.ID, http.StatusAccepted, h.idemTTL())
		}
	}

	ok(c, http.StatusAccepted, JobResponse{Job: job})
}

// GetJob godoc
// @ID          getJob
// @Summary     Fetch a synthesis job
// @Description Returns the job with its current status, progress, and (when
// @Description completed) output descriptor and timestamp alignments.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the job"  example(user123)
// @Param       id         path    string  true  "Job ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.JobResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Job not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /jobs/{id} [get]
func (h *Handlers) GetJob(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("id")

	if _, err := uuid.Parse(jobID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	job, err := h.jobs.GetForUser(ctx, jobID, userID(c))
	if err != nil {
		switch err {
		case services.ErrJobNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, JobResponse{Job: job})
}

// ListJobs godoc
// @ID          listJobs
// @Summary     List synthesis jobs
// @Description Returns a paginated list of the user's jobs, newest first.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "User ID"  example(user123)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListJobsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /jobs [get]
func (h *Handlers) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	// ETag pre-check (best effort).
	if db := h.db(); db != nil {
		count, maxTS, err := repo.JobsStats(ctx, db, currentUser)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"jobs:%s:%d:%d"`, currentUser, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.jobs.ListPage(ctx, currentUser, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListJobsResponse{
		Jobs: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// CancelJob godoc
// @ID          cancelJob
// @Summary     Cancel a synthesis job
// @Description Cancels a pending or processing job. Jobs that already
// @Description reached a terminal state cannot be cancelled; such requests
// @Description fail with code invalid_state and leave the job untouched.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the job"  example(user123)
// @Param       id         path    string  true  "Job ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.JobResponse    "Job after cancellation"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Job not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Job already terminal"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /jobs/{id}/cancel [post]
func (h *Handlers) CancelJob(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("id")
	currentUser := userID(c)

	if _, err := uuid.Parse(jobID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	// Ownership check before mutating.
	if _, err := h.jobs.GetForUser(ctx, jobID, currentUser); err != nil {
		switch err {
		case services.ErrJobNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	if err := h.jobs.Cancel(ctx, jobID); err != nil {
		switch err {
		case services.ErrInvalidState:
			fail(c, http.StatusConflict, ErrCodeInvalidState, "job already reached a terminal state")
		case services.ErrJobNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	job, err := h.jobs.GetForUser(ctx, jobID, currentUser)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, JobResponse{Job: job})
}

// db exposes the underlying gorm handle when the wired job service is the
// concrete implementation; fakes in tests return nil and skip the ETag and
// idempotency fast paths.
func (h *Handlers) db() *gorm.DB {
	if svc, okSvc := h.jobs.(*services.JobService); okSvc {
		return svc.DB
	}
	return nil
}

// idemTTL returns how long stored idempotency records stay valid.
func (h *Handlers) idemTTL() time.Duration {
	return 24 * time.Hour
}
